package events

import "context"

// Handler consumes a raw payload received on a channel.
type Handler func(ctx context.Context, channel string, payload []byte)

type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type Subscriber interface {
	// Subscribe delivers every payload published to channels matching
	// pattern until ctx is cancelled. It returns after the subscription
	// is established.
	Subscribe(ctx context.Context, pattern string, handler Handler) error
}

type Broker interface {
	Publisher
	Subscriber
}
