package notify

import (
	"context"
	"fmt"

	"github.com/buildtall-systems/petstock/internal/config"
	"github.com/buildtall-systems/petstock/internal/nostr"
	"go.uber.org/zap"
)

// NewPublisher builds the transport named by cfg.Transport. Transports that hold
// connections are connected before returning.
func NewPublisher(ctx context.Context, cfg config.NotifyConfig, logger *zap.Logger) (Publisher, error) {
	switch cfg.Transport {
	case config.TransportLog, "":
		return NewLogPublisher(logger), nil
	case config.TransportKafka:
		return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	case config.TransportRedis:
		return NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.Stream, cfg.Redis.MaxLen)
	case config.TransportNostr:
		pool, err := nostr.NewRelayPool(cfg.Nostr.Relays, cfg.Nostr.SecretKey, logger)
		if err != nil {
			return nil, err
		}
		if err := pool.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connecting to relays: %w", err)
		}
		return NewNostrPublisher(pool), nil
	default:
		return nil, fmt.Errorf("unknown notification transport %q", cfg.Transport)
	}
}

// DispatcherOptions translates cfg into dispatcher options.
func DispatcherOptions(cfg config.NotifyConfig) []Option {
	return []Option{
		WithProducer(cfg.Producer),
		WithQueueSize(cfg.QueueSize),
		WithWorkers(cfg.Workers),
		WithRetry(cfg.MaxRetries, cfg.RetryBase),
	}
}
