package notify

import (
	"context"

	"github.com/buildtall-systems/petstock/internal/nostr"
	gonostr "github.com/nbd-wtf/go-nostr"
)

// NostrPublisher publishes envelopes as signed application-data events. The event id is
// the "d" tag so a redelivered envelope replaces rather than duplicates.
type NostrPublisher struct {
	pool *nostr.RelayPool
}

func NewNostrPublisher(pool *nostr.RelayPool) *NostrPublisher {
	return &NostrPublisher{pool: pool}
}

func (p *NostrPublisher) Publish(ctx context.Context, env Envelope) error {
	content, err := env.Marshal()
	if err != nil {
		return err
	}
	ev, err := p.pool.NewAppDataEvent("petstock:"+env.EventID, string(content), gonostr.Tags{
		{"t", string(env.EventType)},
		{"order", env.CorrelationID},
	})
	if err != nil {
		return err
	}
	return p.pool.Publish(ctx, ev)
}

func (p *NostrPublisher) Close() error {
	return p.pool.Close()
}
