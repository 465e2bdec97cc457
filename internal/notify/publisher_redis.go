package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends envelopes to a Redis stream. Consumers read it with consumer
// groups for at-least-once processing.
type RedisPublisher struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewRedisPublisher(addr, stream string, maxLen int64) (*RedisPublisher, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis publisher needs an address")
	}
	if stream == "" {
		return nil, fmt.Errorf("redis publisher needs a stream name")
	}
	return &RedisPublisher{
		rdb:    redis.NewClient(&redis.Options{Addr: addr}),
		stream: stream,
		maxLen: maxLen,
	}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	value, err := env.Marshal()
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_id":       env.EventID,
			"event_type":     string(env.EventType),
			"correlation_id": env.CorrelationID,
			"envelope":       value,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("appending to stream %s: %w", p.stream, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
