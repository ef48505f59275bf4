package resume

import (
	"context"

	"relaychat/internal/domain"
	"relaychat/internal/events"
	"relaychat/internal/metrics"
	"relaychat/internal/registry"
	"relaychat/internal/repository"
	relay_errors "relaychat/pkg/errors"
)

// Protocol recovers missed events for reconnecting clients out of the
// durable store and re-attaches them to live delivery. Because message ids
// are strictly increasing and never reused, a message newer than the
// client's cursor is either in the returned slice or will arrive through a
// publish after the re-subscribe; nothing can fall in between.
type Protocol struct {
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	registry      *registry.Registry
}

func New(messages repository.MessageRepository, conversations repository.ConversationRepository, reg *registry.Registry) *Protocol {
	return &Protocol{
		messages:      messages,
		conversations: conversations,
		registry:      reg,
	}
}

// Resume subscribes the connection to the conversation's channel, then
// returns every message with id > lastSeenID in ascending order. The
// subscribe happens before the fetch so a message appended in between is
// delivered live, fetched, or both; clients drop ids they have already
// rendered. The other order would leave a window where a message is neither.
func (p *Protocol) Resume(ctx context.Context, conn registry.Connection, conversationID, lastSeenID int64) ([]domain.Message, error) {
	member, err := p.conversations.IsParticipant(ctx, conversationID, conn.UserID())
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, relay_errors.ErrNotAMember
	}

	p.registry.Subscribe(conn.ID(), events.ConversationChannel(conversationID))

	missed, err := p.messages.After(ctx, conversationID, lastSeenID)
	if err != nil {
		p.registry.Unsubscribe(conn.ID(), events.ConversationChannel(conversationID))
		return nil, err
	}

	metrics.ResumeRequests.Inc()
	return missed, nil
}
