package tracker

import (
	"context"

	"relaychat/internal/broker"
	"relaychat/internal/domain"
	"relaychat/internal/events"
	"relaychat/internal/metrics"
	"relaychat/internal/repository"
	relay_errors "relaychat/pkg/errors"
	"relaychat/pkg/logger"
)

// Tracker records per-recipient seen state and maintains the derived
// one-bit status projection on messages.
type Tracker struct {
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	broker        *broker.Broker
	log           *logger.Logger
}

func New(messages repository.MessageRepository, conversations repository.ConversationRepository, b *broker.Broker, log *logger.Logger) *Tracker {
	return &Tracker{
		messages:      messages,
		conversations: conversations,
		broker:        b,
		log:           log,
	}
}

// MarkSeen records that userID has seen messageID. Idempotent: a duplicate
// call, concurrent or not, returns the existing record and no error. On the
// first insert by someone other than the sender, the message status advances
// to "seen" and a message-seen event goes out to the conversation's
// subscribers.
func (t *Tracker) MarkSeen(ctx context.Context, messageID, userID int64) (domain.SeenRecord, error) {
	msg, err := t.messages.Get(ctx, messageID)
	if err != nil {
		return domain.SeenRecord{}, err
	}

	member, err := t.conversations.IsParticipant(ctx, msg.ConversationID, userID)
	if err != nil {
		return domain.SeenRecord{}, err
	}
	if !member {
		return domain.SeenRecord{}, relay_errors.ErrNotAMember
	}

	rec, created, err := t.messages.InsertSeen(ctx, messageID, userID)
	if err != nil {
		return domain.SeenRecord{}, err
	}
	if created {
		metrics.SeenRecordsCreated.Inc()
	}
	if !created || msg.SenderID == userID {
		return rec, nil
	}

	if err := t.messages.AdvanceStatus(ctx, messageID, domain.StatusSeen); err != nil {
		t.log.Errorf("tracker: advance status for message %d: %v", messageID, err)
	}

	env, err := events.MessageSeen(msg.ConversationID, messageID, userID)
	if err != nil {
		t.log.Errorf("tracker: build message-seen event: %v", err)
		return rec, nil
	}
	t.broker.Publish(ctx, env)
	return rec, nil
}
