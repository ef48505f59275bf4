package service

import (
	"context"
	"sync"

	"relaychat/internal/broker"
	"relaychat/internal/domain"
	"relaychat/internal/events"
	"relaychat/internal/metrics"
	"relaychat/internal/registry"
	"relaychat/internal/repository"
	"relaychat/internal/resume"
	"relaychat/internal/tracker"
	relay_errors "relaychat/pkg/errors"
	"relaychat/pkg/logger"
)

// Fallback content for media-only messages.
const mediaOnlyContent = "Sent a GIF"

// ChatService is the facade over the fan-out core. It exposes the five
// caller contracts: SendMessage, MarkSeen, FetchPage, Subscribe, Resume.
type ChatService struct {
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	registry      *registry.Registry
	broker        *broker.Broker
	tracker       *tracker.Tracker
	resume        *resume.Protocol
	log           *logger.Logger

	mu        sync.Mutex
	sendLocks map[int64]*sync.Mutex
}

func NewChatService(
	messages repository.MessageRepository,
	conversations repository.ConversationRepository,
	reg *registry.Registry,
	b *broker.Broker,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		messages:      messages,
		conversations: conversations,
		registry:      reg,
		broker:        b,
		tracker:       tracker.New(messages, conversations, b, log),
		resume:        resume.New(messages, conversations, reg),
		log:           log,
		sendLocks:     make(map[int64]*sync.Mutex),
	}
}

// sendLock returns the mutex serializing append+publish for one conversation.
func (s *ChatService) sendLock(conversationID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.sendLocks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		s.sendLocks[conversationID] = l
	}
	return l
}

// SendMessage appends a message and fans the new-message event out to the
// conversation's subscribers. Either content or mediaRef must be present;
// a media-only message gets placeholder content.
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID int64, content, mediaRef string) (domain.Message, error) {
	if content == "" && mediaRef == "" {
		return domain.Message{}, relay_errors.ErrInvalidInput
	}
	if content == "" {
		content = mediaOnlyContent
	}

	// Append and publish are held under one per-conversation lock so a
	// sender that is slow between the two cannot let a later message id
	// reach subscribers first.
	lock := s.sendLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := s.messages.Append(ctx, conversationID, senderID, content, mediaRef)
	if err != nil {
		return domain.Message{}, err
	}
	metrics.MessagesAppended.Inc()

	env, err := events.NewMessage(msg)
	if err != nil {
		s.log.Errorf("service: build new-message event for %d: %v", msg.ID, err)
		return msg, nil
	}
	s.broker.Publish(ctx, env)
	return msg, nil
}

// MarkSeen records the seen state for one (message, user) pair.
func (s *ChatService) MarkSeen(ctx context.Context, messageID, userID int64) (domain.SeenRecord, error) {
	return s.tracker.MarkSeen(ctx, messageID, userID)
}

// FetchPage returns a page of messages newest-first for initial load and
// backward scrolling. Callers outside the participant set get ErrNotAMember.
func (s *ChatService) FetchPage(ctx context.Context, conversationID, userID, beforeID int64, limit int) ([]domain.Message, bool, error) {
	member, err := s.conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, false, err
	}
	if !member {
		return nil, false, relay_errors.ErrNotAMember
	}
	return s.messages.Page(ctx, conversationID, beforeID, limit)
}

// Subscribe attaches a connection to a conversation's live event channel.
func (s *ChatService) Subscribe(ctx context.Context, conn registry.Connection, conversationID int64) error {
	member, err := s.conversations.IsParticipant(ctx, conversationID, conn.UserID())
	if err != nil {
		return err
	}
	if !member {
		return relay_errors.ErrNotAMember
	}
	s.registry.Subscribe(conn.ID(), events.ConversationChannel(conversationID))
	return nil
}

// Unsubscribe detaches a connection from a conversation's channel.
func (s *ChatService) Unsubscribe(conn registry.Connection, conversationID int64) {
	s.registry.Unsubscribe(conn.ID(), events.ConversationChannel(conversationID))
}

// Resume recovers messages missed since lastSeenID and re-attaches the
// connection for live delivery.
func (s *ChatService) Resume(ctx context.Context, conn registry.Connection, conversationID, lastSeenID int64) ([]domain.Message, error) {
	return s.resume.Resume(ctx, conn, conversationID, lastSeenID)
}

// Participants returns the participant ids of a conversation the user is in.
func (s *ChatService) Participants(ctx context.Context, conversationID, userID int64) ([]int64, error) {
	member, err := s.conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, relay_errors.ErrNotAMember
	}
	return s.conversations.Participants(ctx, conversationID)
}

// CreateConversation persists a conversation with its initial participants.
func (s *ChatService) CreateConversation(ctx context.Context, name string, participantIDs []int64) (domain.Conversation, error) {
	return s.conversations.Create(ctx, name, participantIDs)
}

// GetConversation returns a conversation the user participates in.
func (s *ChatService) GetConversation(ctx context.Context, conversationID, userID int64) (domain.Conversation, error) {
	member, err := s.conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !member {
		return domain.Conversation{}, relay_errors.ErrNotAMember
	}
	return s.conversations.GetByID(ctx, conversationID)
}
