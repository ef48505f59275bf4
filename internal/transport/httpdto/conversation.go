package httpdto

import (
	"time"

	"relaychat/internal/domain"
)

type CreateConversationRequest struct {
	Name           string  `json:"name"`
	ParticipantIDs []int64 `json:"participantIds"`
}

type ConversationView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type PresenceView struct {
	UserID int64 `json:"userId"`
	Online bool  `json:"online"`
}

type ConversationPresenceView struct {
	ConversationID int64   `json:"conversationId"`
	OnlineUserIDs  []int64 `json:"onlineUserIds"`
}

func NewConversationView(c domain.Conversation) ConversationView {
	v := ConversationView{ID: c.ID, CreatedAt: c.CreatedAt}
	if c.Name.Valid {
		v.Name = c.Name.String
	}
	return v
}
