package events

import (
	"context"

	"github.com/redis/go-redis/v9"

	"relaychat/pkg/logger"
)

// RedisBroker replicates publish calls between processes over Redis pub/sub.
type RedisBroker struct {
	Client *redis.Client
	log    *logger.Logger
}

func NewRedisBroker(addr, password string, db int, log *logger.Logger) *RedisBroker {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisBroker{Client: rdb, log: log}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.Client.Publish(ctx, channel, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	pubsub := b.Client.PSubscribe(ctx, pattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					if b.log != nil {
						b.log.Warnf("redis subscription on %s closed", pattern)
					}
					return
				}
				handler(ctx, msg.Channel, []byte(msg.Payload))
			}
		}
	}()

	return nil
}

func (b *RedisBroker) Close() error {
	return b.Client.Close()
}
