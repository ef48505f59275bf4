package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"relaychat/internal/domain"
	relay_errors "relaychat/pkg/errors"
)

// MemoryStore is an in-memory implementation of both repositories. It backs
// the "memory" store driver and the test suites. IDs come from one counter
// shared by all conversations, matching the global serial sequence of the
// Postgres schema.
type MemoryStore struct {
	mu sync.Mutex

	nextMessageID      int64
	nextConversationID int64

	conversations map[int64]domain.Conversation
	participants  map[int64]map[int64]time.Time // conversationID -> userID -> joinedAt
	messages      map[int64]domain.Message      // messageID -> message
	byConv        map[int64][]int64             // conversationID -> ascending message ids
	seen          map[int64]map[int64]domain.SeenRecord
}

var _ MessageRepository = (*MemoryStore)(nil)
var _ ConversationRepository = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[int64]domain.Conversation),
		participants:  make(map[int64]map[int64]time.Time),
		messages:      make(map[int64]domain.Message),
		byConv:        make(map[int64][]int64),
		seen:          make(map[int64]map[int64]domain.SeenRecord),
	}
}

func (s *MemoryStore) Append(ctx context.Context, conversationID, senderID int64, content, mediaRef string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[conversationID][senderID]; !ok {
		return domain.Message{}, relay_errors.ErrNotAMember
	}

	s.nextMessageID++
	now := time.Now()
	m := domain.Message{
		ID:             s.nextMessageID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Status:         domain.StatusSent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if mediaRef != "" {
		m.MediaRef = sql.NullString{String: mediaRef, Valid: true}
	}
	s.messages[m.ID] = m
	s.byConv[conversationID] = append(s.byConv[conversationID], m.ID)
	return m, nil
}

func (s *MemoryStore) Page(ctx context.Context, conversationID, beforeID int64, limit int) ([]domain.Message, bool, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byConv[conversationID]
	// Walk backward from the newest id below the cursor.
	end := len(ids)
	if beforeID > 0 {
		end = sort.Search(len(ids), func(i int) bool { return ids[i] >= beforeID })
	}

	var out []domain.Message
	for i := end - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.messages[ids[i]])
	}
	hasMore := end-len(out) > 0
	return out, hasMore, nil
}

func (s *MemoryStore) After(ctx context.Context, conversationID, afterID int64) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byConv[conversationID]
	start := sort.Search(len(ids), func(i int) bool { return ids[i] > afterID })

	out := make([]domain.Message, 0, len(ids)-start)
	for _, id := range ids[start:] {
		out = append(out, s.messages[id])
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, messageID int64) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return domain.Message{}, relay_errors.ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) AdvanceStatus(ctx context.Context, messageID int64, status domain.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return nil
	}
	if status.Rank() <= m.Status.Rank() {
		return nil
	}
	m.Status = status
	m.UpdatedAt = time.Now()
	s.messages[messageID] = m
	return nil
}

func (s *MemoryStore) InsertSeen(ctx context.Context, messageID, userID int64) (domain.SeenRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUser, ok := s.seen[messageID]
	if !ok {
		byUser = make(map[int64]domain.SeenRecord)
		s.seen[messageID] = byUser
	}
	if existing, ok := byUser[userID]; ok {
		return existing, false, nil
	}
	rec := domain.SeenRecord{MessageID: messageID, UserID: userID, SeenAt: time.Now()}
	byUser[userID] = rec
	return rec, true, nil
}

func (s *MemoryStore) Create(ctx context.Context, name string, participantIDs []int64) (domain.Conversation, error) {
	if len(participantIDs) == 0 {
		return domain.Conversation{}, relay_errors.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextConversationID++
	now := time.Now()
	c := domain.Conversation{ID: s.nextConversationID, CreatedAt: now, UpdatedAt: now}
	if name != "" {
		c.Name = sql.NullString{String: name, Valid: true}
	}
	s.conversations[c.ID] = c

	members := make(map[int64]time.Time, len(participantIDs))
	for _, id := range participantIDs {
		members[id] = now
	}
	s.participants[c.ID] = members
	return c, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return domain.Conversation{}, relay_errors.ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return relay_errors.ErrNotFound
	}
	for _, msgID := range s.byConv[id] {
		delete(s.messages, msgID)
		delete(s.seen, msgID)
	}
	delete(s.byConv, id)
	delete(s.participants, id)
	delete(s.conversations, id)
	return nil
}

func (s *MemoryStore) AddParticipant(ctx context.Context, conversationID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.participants[conversationID]
	if !ok {
		return relay_errors.ErrNotFound
	}
	if _, ok := members[userID]; !ok {
		members[userID] = time.Now()
	}
	return nil
}

func (s *MemoryStore) Participants(ctx context.Context, conversationID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := s.participants[conversationID]
	out := make([]int64, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *MemoryStore) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.participants[conversationID]
	if !ok {
		return false, nil
	}
	_, ok = members[userID]
	return ok, nil
}
