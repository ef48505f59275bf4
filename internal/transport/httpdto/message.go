package httpdto

import (
	"time"

	"relaychat/internal/domain"
)

type SendMessageRequest struct {
	Text   string `json:"text"`
	GifURL string `json:"gifUrl"`
}

type MessageView struct {
	ID             int64                `json:"id"`
	ConversationID int64                `json:"conversationId"`
	SenderID       int64                `json:"senderId"`
	Content        string               `json:"content"`
	GifURL         string               `json:"gifUrl,omitempty"`
	Status         domain.MessageStatus `json:"status"`
	CreatedAt      time.Time            `json:"createdAt"`
}

type PageView struct {
	Messages   []MessageView `json:"messages"`
	Pagination Pagination    `json:"pagination"`
}

type Pagination struct {
	HasMore    bool  `json:"hasMore"`
	NextCursor int64 `json:"nextCursor,omitempty"`
}

type SeenView struct {
	MessageID int64     `json:"messageId"`
	UserID    int64     `json:"userId"`
	SeenAt    time.Time `json:"seenAt"`
}

func NewMessageView(m domain.Message) MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
	}
	if m.MediaRef.Valid {
		v.GifURL = m.MediaRef.String
	}
	return v
}

func MessageViews(msgs []domain.Message) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, NewMessageView(m))
	}
	return out
}
