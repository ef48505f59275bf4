package resume_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/broker"
	"relaychat/internal/domain"
	"relaychat/internal/events"
	"relaychat/internal/registry"
	"relaychat/internal/repository"
	"relaychat/internal/resume"
	relay_errors "relaychat/pkg/errors"
	"relaychat/pkg/logger"
)

type captureConn struct {
	id     string
	userID int64

	mu       sync.Mutex
	payloads [][]byte
}

func (c *captureConn) ID() string    { return c.id }
func (c *captureConn) UserID() int64 { return c.userID }

func (c *captureConn) Deliver(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *captureConn) liveMessageIDs(t *testing.T) []int64 {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []int64
	for _, raw := range c.payloads {
		var env events.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		if env.EventType != events.EventTypeNewMessage {
			continue
		}
		var p events.NewMessagePayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		out = append(out, p.ID)
	}
	return out
}

func TestResumeReturnsExactlyTheMissedMessages(t *testing.T) {
	store := repository.NewMemoryStore()
	reg := registry.New()
	p := resume.New(store, store, reg)

	conv, err := store.Create(context.Background(), "", []int64{1, 2})
	require.NoError(t, err)

	var msgs []domain.Message
	for i := 0; i < 3; i++ {
		m, err := store.Append(context.Background(), conv.ID, 1, "m", "")
		require.NoError(t, err)
		msgs = append(msgs, m)
	}

	// Client saw ids up to the second message, then dropped; the third
	// arrived while it was offline.
	conn := &captureConn{id: "c", userID: 2}
	reg.Register(conn)

	missed, err := p.Resume(context.Background(), conn, conv.ID, msgs[1].ID)
	require.NoError(t, err)
	require.Len(t, missed, 1)
	assert.Equal(t, msgs[2].ID, missed[0].ID)

	// The connection is live again.
	assert.Len(t, reg.SubscribersOf(events.ConversationChannel(conv.ID)), 1)
}

func TestResumeWithCurrentCursorReturnsNothing(t *testing.T) {
	store := repository.NewMemoryStore()
	reg := registry.New()
	p := resume.New(store, store, reg)

	conv, err := store.Create(context.Background(), "", []int64{1, 2})
	require.NoError(t, err)
	m, err := store.Append(context.Background(), conv.ID, 1, "m", "")
	require.NoError(t, err)

	conn := &captureConn{id: "c", userID: 2}
	reg.Register(conn)

	missed, err := p.Resume(context.Background(), conn, conv.ID, m.ID)
	require.NoError(t, err)
	assert.Empty(t, missed)
}

func TestResumeRejectsNonMember(t *testing.T) {
	store := repository.NewMemoryStore()
	reg := registry.New()
	p := resume.New(store, store, reg)

	conv, err := store.Create(context.Background(), "", []int64{1})
	require.NoError(t, err)

	conn := &captureConn{id: "c", userID: 99}
	reg.Register(conn)

	_, err = p.Resume(context.Background(), conn, conv.ID, 0)
	assert.ErrorIs(t, err, relay_errors.ErrNotAMember)
	assert.Empty(t, reg.SubscribersOf(events.ConversationChannel(conv.ID)))
}

// Completeness: everything with id > cursor shows up exactly through resume
// plus live delivery once the client is re-attached.
func TestResumeThenLiveDeliveryCoversEverything(t *testing.T) {
	store := repository.NewMemoryStore()
	reg := registry.New()
	b := broker.New(reg, logger.NewNop())
	p := resume.New(store, store, reg)

	conv, err := store.Create(context.Background(), "", []int64{1, 2})
	require.NoError(t, err)

	offline, err := store.Append(context.Background(), conv.ID, 1, "while offline", "")
	require.NoError(t, err)

	conn := &captureConn{id: "c", userID: 2}
	reg.Register(conn)

	missed, err := p.Resume(context.Background(), conn, conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, missed, 1)
	assert.Equal(t, offline.ID, missed[0].ID)

	// A message appended after resume arrives live.
	live, err := store.Append(context.Background(), conv.ID, 1, "after resume", "")
	require.NoError(t, err)
	env, err := events.NewMessage(live)
	require.NoError(t, err)
	b.Publish(context.Background(), env)

	assert.Equal(t, []int64{live.ID}, conn.liveMessageIDs(t))
}
