package repository

import (
	"context"

	"relaychat/internal/domain"
)

// Pagination bounds for Page.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// MessageRepository is the durable, append-only message store. IDs are
// assigned from one global sequence: strictly increasing, never reused.
type MessageRepository interface {
	// Append persists a new message with status "sent". Fails with
	// ErrNotAMember when senderID is not a participant of the
	// conversation; on any failure no row becomes visible.
	Append(ctx context.Context, conversationID, senderID int64, content, mediaRef string) (domain.Message, error)

	// Page returns at most limit messages newest-first with id < beforeID
	// (latest page when beforeID <= 0), plus whether older messages remain.
	Page(ctx context.Context, conversationID, beforeID int64, limit int) ([]domain.Message, bool, error)

	// After returns all messages with id > afterID in ascending id order.
	// This is the resume path.
	After(ctx context.Context, conversationID, afterID int64) ([]domain.Message, error)

	// Get returns a single message or ErrNotFound.
	Get(ctx context.Context, messageID int64) (domain.Message, error)

	// AdvanceStatus moves a message's status forward. Transitions backward
	// or in place are silently skipped.
	AdvanceStatus(ctx context.Context, messageID int64, status domain.MessageStatus) error

	// InsertSeen records that userID has seen messageID. Idempotent: the
	// second return reports whether a new record was created.
	InsertSeen(ctx context.Context, messageID, userID int64) (domain.SeenRecord, bool, error)
}

// ConversationRepository manages conversations and the participant set that
// backs every membership check.
type ConversationRepository interface {
	// Create persists a conversation with its initial participants.
	// At least one participant is required.
	Create(ctx context.Context, name string, participantIDs []int64) (domain.Conversation, error)
	GetByID(ctx context.Context, id int64) (domain.Conversation, error)
	// Delete removes a conversation and cascades to its messages,
	// participants and seen records.
	Delete(ctx context.Context, id int64) error

	AddParticipant(ctx context.Context, conversationID, userID int64) error
	Participants(ctx context.Context, conversationID int64) ([]int64, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
}
