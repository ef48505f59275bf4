package broker_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/broker"
	"relaychat/internal/events"
	"relaychat/internal/registry"
	relay_errors "relaychat/pkg/errors"
	"relaychat/pkg/logger"
)

type captureConn struct {
	id     string
	userID int64

	mu       sync.Mutex
	payloads [][]byte

	// block, when non-nil, makes Deliver hang until it is closed.
	block chan struct{}
}

func (c *captureConn) ID() string    { return c.id }
func (c *captureConn) UserID() int64 { return c.userID }

func (c *captureConn) Deliver(ctx context.Context, payload []byte) error {
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return relay_errors.ErrDeliveryTimeout
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *captureConn) envelopes(t *testing.T) []events.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Envelope, 0, len(c.payloads))
	for _, p := range c.payloads {
		var env events.Envelope
		require.NoError(t, json.Unmarshal(p, &env))
		out = append(out, env)
	}
	return out
}

func seenEnvelope(t *testing.T, conversationID, messageID, userID int64) events.Envelope {
	t.Helper()
	env, err := events.MessageSeen(conversationID, messageID, userID)
	require.NoError(t, err)
	return env
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	reg := registry.New()
	b := broker.New(reg, logger.NewNop())

	a := &captureConn{id: "a", userID: 1}
	c := &captureConn{id: "c", userID: 2}
	outsider := &captureConn{id: "x", userID: 3}
	reg.Register(a)
	reg.Register(c)
	reg.Register(outsider)
	reg.Subscribe("a", events.ConversationChannel(5))
	reg.Subscribe("c", events.ConversationChannel(5))
	reg.Subscribe("x", events.ConversationChannel(6))

	b.Publish(context.Background(), seenEnvelope(t, 5, 10, 1))

	assert.Len(t, a.envelopes(t), 1)
	assert.Len(t, c.envelopes(t), 1)
	assert.Empty(t, outsider.envelopes(t))
}

func TestPublishPreservesOrderAcrossCalls(t *testing.T) {
	reg := registry.New()
	b := broker.New(reg, logger.NewNop())

	conn := &captureConn{id: "a", userID: 1}
	reg.Register(conn)
	reg.Subscribe("a", events.ConversationChannel(1))

	for i := int64(1); i <= 20; i++ {
		b.Publish(context.Background(), seenEnvelope(t, 1, i, 2))
	}

	envs := conn.envelopes(t)
	require.Len(t, envs, 20)
	for i, env := range envs {
		var p events.MessageSeenPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		assert.Equal(t, int64(i+1), p.MessageID)
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	reg := registry.New()
	b := broker.New(reg, logger.NewNop(), broker.WithDeliverTimeout(50*time.Millisecond))

	stuck := &captureConn{id: "stuck", userID: 1, block: make(chan struct{})}
	healthy := &captureConn{id: "healthy", userID: 2}
	reg.Register(stuck)
	reg.Register(healthy)
	reg.Subscribe("stuck", events.ConversationChannel(1))
	reg.Subscribe("healthy", events.ConversationChannel(1))

	start := time.Now()
	b.Publish(context.Background(), seenEnvelope(t, 1, 1, 3))
	elapsed := time.Since(start)

	assert.Len(t, healthy.envelopes(t), 1)
	assert.Empty(t, stuck.envelopes(t))
	// The stuck subscriber costs at most the deliver timeout, not forever.
	assert.Less(t, elapsed, time.Second)

	close(stuck.block)
}

func TestPublishWithNoSubscribersIsHarmless(t *testing.T) {
	reg := registry.New()
	b := broker.New(reg, logger.NewNop())
	b.Publish(context.Background(), seenEnvelope(t, 99, 1, 1))
}

type busSpy struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
}

func (s *busSpy) Publish(ctx context.Context, channel string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = append(s.channels, channel)
	s.payloads = append(s.payloads, payload)
	return nil
}

func TestPublishReplicatesToBus(t *testing.T) {
	reg := registry.New()
	spy := &busSpy{}
	b := broker.New(reg, logger.NewNop(), broker.WithBus(spy))

	b.Publish(context.Background(), seenEnvelope(t, 7, 1, 1))

	spy.mu.Lock()
	defer spy.mu.Unlock()
	require.Len(t, spy.channels, 1)
	assert.Equal(t, "conversation-7", spy.channels[0])

	var env events.Envelope
	require.NoError(t, json.Unmarshal(spy.payloads[0], &env))
	assert.NotEmpty(t, env.Origin)
}
