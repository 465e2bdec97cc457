package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes envelopes to the log. It is the transport when no broker is
// configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.Named("events")}
}

func (p *LogPublisher) Publish(_ context.Context, env Envelope) error {
	p.logger.Info("event",
		zap.String("event_id", env.EventID),
		zap.String("event_type", string(env.EventType)),
		zap.String("correlation_id", env.CorrelationID),
		zap.Time("occurred_at", env.OccurredAt),
		zap.ByteString("payload", env.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
