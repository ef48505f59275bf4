package repository_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/domain"
	"relaychat/internal/repository"
	relay_errors "relaychat/pkg/errors"
)

func newConversation(t *testing.T, store *repository.MemoryStore, participants ...int64) domain.Conversation {
	t.Helper()
	conv, err := store.Create(context.Background(), "", participants)
	require.NoError(t, err)
	return conv
}

func TestAppendAssignsStrictlyIncreasingIDs(t *testing.T) {
	store := repository.NewMemoryStore()
	conv := newConversation(t, store, 1, 2)

	var prev int64
	for i := 0; i < 10; i++ {
		m, err := store.Append(context.Background(), conv.ID, 1, "hello", "")
		require.NoError(t, err)
		assert.Greater(t, m.ID, prev)
		assert.Equal(t, domain.StatusSent, m.Status)
		prev = m.ID
	}
}

func TestAppendConcurrentSendersNeverReuseIDs(t *testing.T) {
	store := repository.NewMemoryStore()
	conv := newConversation(t, store, 1, 2, 3, 4)

	const perSender = 25
	var wg sync.WaitGroup
	ids := make(chan int64, 4*perSender)
	for sender := int64(1); sender <= 4; sender++ {
		wg.Add(1)
		go func(sender int64) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				m, err := store.Append(context.Background(), conv.ID, sender, "x", "")
				if err != nil {
					t.Error(err)
					return
				}
				ids <- m.ID
			}
		}(sender)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	var all []int64
	for id := range ids {
		assert.False(t, seen[id], "id %d reused", id)
		seen[id] = true
		all = append(all, id)
	}
	require.Len(t, all, 4*perSender)

	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	msgs, err := store.After(context.Background(), conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, len(all))
	for i, m := range msgs {
		assert.Equal(t, all[i], m.ID)
	}
}

func TestAppendNonMemberCreatesNoRow(t *testing.T) {
	store := repository.NewMemoryStore()
	conv := newConversation(t, store, 1, 2)

	_, err := store.Append(context.Background(), conv.ID, 99, "intruder", "")
	require.ErrorIs(t, err, relay_errors.ErrNotAMember)

	msgs, err := store.After(context.Background(), conv.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPageWalksBackwardWithCursor(t *testing.T) {
	store := repository.NewMemoryStore()
	conv := newConversation(t, store, 1)

	var ids []int64
	for i := 0; i < 5; i++ {
		m, err := store.Append(context.Background(), conv.ID, 1, "m", "")
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	// Latest page, newest first.
	page, hasMore, err := store.Page(context.Background(), conv.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, hasMore)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	// Next page back from the oldest id in the previous one.
	page, hasMore, err = store.Page(context.Background(), conv.ID, page[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, hasMore)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	// Final page.
	page, hasMore, err = store.Page(context.Background(), conv.ID, page[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.False(t, hasMore)
	assert.Equal(t, ids[0], page[0].ID)
}

func TestInsertSeenIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	conv := newConversation(t, store, 1, 2)
	m, err := store.Append(context.Background(), conv.ID, 1, "m", "")
	require.NoError(t, err)

	first, created, err := store.InsertSeen(context.Background(), m.ID, 2)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := store.InsertSeen(context.Background(), m.ID, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.SeenAt, second.SeenAt)
}

func TestAdvanceStatusNeverMovesBackward(t *testing.T) {
	store := repository.NewMemoryStore()
	conv := newConversation(t, store, 1, 2)
	m, err := store.Append(context.Background(), conv.ID, 1, "m", "")
	require.NoError(t, err)

	require.NoError(t, store.AdvanceStatus(context.Background(), m.ID, domain.StatusSeen))
	got, err := store.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSeen, got.Status)

	require.NoError(t, store.AdvanceStatus(context.Background(), m.ID, domain.StatusDelivered))
	got, err = store.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSeen, got.Status)
}

func TestDeleteCascades(t *testing.T) {
	store := repository.NewMemoryStore()
	conv := newConversation(t, store, 1, 2)
	m, err := store.Append(context.Background(), conv.ID, 1, "m", "")
	require.NoError(t, err)
	_, _, err = store.InsertSeen(context.Background(), m.ID, 2)
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), conv.ID))

	_, err = store.Get(context.Background(), m.ID)
	assert.ErrorIs(t, err, relay_errors.ErrNotFound)
	_, err = store.GetByID(context.Background(), conv.ID)
	assert.ErrorIs(t, err, relay_errors.ErrNotFound)
	member, err := store.IsParticipant(context.Background(), conv.ID, 1)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestCreateRequiresParticipants(t *testing.T) {
	store := repository.NewMemoryStore()
	_, err := store.Create(context.Background(), "empty", nil)
	assert.ErrorIs(t, err, relay_errors.ErrInvalidInput)
}
