package domain

import (
	"database/sql"
	"time"
)

// Conversation represents the conversations table. A conversation owns its
// messages and seen records (cascade delete).
type Conversation struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	Name      sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participant represents conversation_participants. Membership gates every
// read and write against a conversation.
type Participant struct {
	ConversationID int64 `gorm:"primaryKey"`
	UserID         int64 `gorm:"primaryKey"`
	JoinedAt       time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Participant) TableName() string {
	return "conversation_participants"
}
