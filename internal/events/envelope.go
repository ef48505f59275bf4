package events

import (
	"encoding/json"
	"time"

	"relaychat/internal/domain"
)

// Envelope is the single wire format handed to transports and to the
// cross-process bus. Origin identifies the publishing process so the Redis
// bridge can skip envelopes it published itself.
type Envelope struct {
	EventType      string          `json:"event_type"`
	ConversationID int64           `json:"conversation_id"`
	Origin         string          `json:"origin,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Payload        json.RawMessage `json:"payload"`
}

// NewMessagePayload is the payload of a new-message event.
type NewMessagePayload struct {
	ID        int64                `json:"id"`
	SenderID  int64                `json:"senderId"`
	Content   string               `json:"content"`
	MediaRef  string               `json:"gifUrl,omitempty"`
	Status    domain.MessageStatus `json:"status"`
	CreatedAt time.Time            `json:"createdAt"`
}

// MessageSeenPayload is the payload of a message-seen event. Subscribers
// must treat duplicate message-seen notifications as a no-op.
type MessageSeenPayload struct {
	MessageID int64 `json:"messageId"`
	UserID    int64 `json:"userId"`
}

// NewMessage builds the envelope for a freshly appended message.
func NewMessage(m domain.Message) (Envelope, error) {
	p := NewMessagePayload{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
	if m.MediaRef.Valid {
		p.MediaRef = m.MediaRef.String
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:      EventTypeNewMessage,
		ConversationID: m.ConversationID,
		OccurredAt:     time.Now(),
		Payload:        raw,
	}, nil
}

// MessageSeen builds the envelope for a seen-state change.
func MessageSeen(conversationID, messageID, userID int64) (Envelope, error) {
	raw, err := json.Marshal(MessageSeenPayload{MessageID: messageID, UserID: userID})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:      EventTypeMessageSeen,
		ConversationID: conversationID,
		OccurredAt:     time.Now(),
		Payload:        raw,
	}, nil
}
