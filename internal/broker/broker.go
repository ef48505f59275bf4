package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"relaychat/internal/events"
	"relaychat/internal/metrics"
	"relaychat/internal/registry"
	pkgevents "relaychat/pkg/events"
	"relaychat/pkg/logger"
)

const defaultDeliverTimeout = 2 * time.Second

// Broker fans a domain event out to every connection subscribed to the
// event's conversation channel. One delivery attempt per subscriber per
// publish call; failures are logged, never retried and never surfaced to
// the publisher. Resume is the recovery path for anything missed.
type Broker struct {
	registry       *registry.Registry
	log            *logger.Logger
	deliverTimeout time.Duration

	// bus, when set, replicates publishes to other processes.
	bus pkgevents.Publisher

	// origin identifies this process in envelopes so the bridge can
	// ignore its own publishes coming back from the bus.
	origin string
}

type Option func(*Broker)

func WithBus(bus pkgevents.Publisher) Option {
	return func(b *Broker) { b.bus = bus }
}

func WithDeliverTimeout(d time.Duration) Option {
	return func(b *Broker) { b.deliverTimeout = d }
}

func New(reg *registry.Registry, log *logger.Logger, opts ...Option) *Broker {
	b := &Broker{
		registry:       reg,
		log:            log,
		deliverTimeout: defaultDeliverTimeout,
		origin:         uuid.New().String(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers env to all current subscribers of its conversation
// channel. It returns once every subscriber's enqueue attempt has finished,
// so successive Publish calls for one conversation reach each connection's
// FIFO queue in call order. Each attempt is bounded by the deliver timeout;
// a slow subscriber never blocks the others.
func (b *Broker) Publish(ctx context.Context, env events.Envelope) {
	env.Origin = b.origin
	payload, err := json.Marshal(env)
	if err != nil {
		b.log.Errorf("broker: marshal envelope: %v", err)
		return
	}

	metrics.EventsPublished.WithLabelValues(env.EventType).Inc()
	channel := events.ConversationChannel(env.ConversationID)
	b.fanOut(ctx, channel, payload)

	if b.bus != nil {
		if err := b.bus.Publish(ctx, channel, payload); err != nil {
			b.log.Errorf("broker: bus publish on %s: %v", channel, err)
		}
	}
}

// fanOut delivers a marshaled envelope to local subscribers only.
func (b *Broker) fanOut(ctx context.Context, channel string, payload []byte) {
	subscribers := b.registry.SubscribersOf(channel)
	if len(subscribers) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, conn := range subscribers {
		wg.Add(1)
		go func(conn registry.Connection) {
			defer wg.Done()
			deliverCtx, cancel := context.WithTimeout(ctx, b.deliverTimeout)
			defer cancel()
			if err := conn.Deliver(deliverCtx, payload); err != nil {
				// The transport tears down dead connections itself;
				// the broker only records the failure.
				metrics.Deliveries.WithLabelValues("failed").Inc()
				b.log.Warnf("broker: deliver to %s on %s: %v", conn.ID(), channel, err)
				return
			}
			metrics.Deliveries.WithLabelValues("ok").Inc()
		}(conn)
	}
	wg.Wait()
}

// Bridge feeds envelopes published by other processes into the local
// fan-out. It subscribes to every conversation channel on the bus.
type Bridge struct {
	broker     *Broker
	subscriber pkgevents.Subscriber
	log        *logger.Logger
}

func NewBridge(b *Broker, sub pkgevents.Subscriber, log *logger.Logger) *Bridge {
	return &Bridge{broker: b, subscriber: sub, log: log}
}

func (br *Bridge) Run(ctx context.Context) error {
	pattern := events.ChannelPrefixConversation + "*"
	return br.subscriber.Subscribe(ctx, pattern, func(ctx context.Context, channel string, payload []byte) {
		var env events.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			br.log.Errorf("bridge: unmarshal envelope on %s: %v", channel, err)
			return
		}
		if env.Origin == br.broker.origin {
			return
		}
		br.broker.fanOut(ctx, channel, payload)
	})
}
