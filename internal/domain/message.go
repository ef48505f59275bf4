package domain

import (
	"database/sql"
	"time"
)

// MessageStatus is the one-bit delivery status projection on a message.
// It moves forward only: sent -> delivered -> seen. "seen" means seen by
// at least one recipient; SeenRecord is the per-recipient source of truth.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

// Rank returns the forward-transition rank of a status.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusSeen:
		return 2
	}
	return -1
}

// Message represents the messages table. IDs come from a single global
// sequence, so id order within a conversation matches creation order.
type Message struct {
	ID             int64 `gorm:"primaryKey;autoIncrement"`
	ConversationID int64 `gorm:"index;not null"`
	SenderID       int64 `gorm:"not null"`
	Content        string
	MediaRef       sql.NullString
	Status         MessageStatus `gorm:"type:text;default:'sent'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SeenRecord represents the message_seen table: one row per
// (message, user) pair, inserted at most once.
type SeenRecord struct {
	MessageID int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"primaryKey"`
	SeenAt    time.Time
}

func (Message) TableName() string {
	return "messages"
}

func (SeenRecord) TableName() string {
	return "message_seen"
}
