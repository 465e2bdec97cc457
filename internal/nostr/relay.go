// Package nostr publishes signed application-data events to a set of Nostr relays.
package nostr

import (
	"context"
	"fmt"
	"sync"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// KindAppData is the parameterized-replaceable kind used for application data (NIP-78).
const KindAppData = 30078

// RelayPool holds connections to the configured relays and signs what it publishes with a
// single key.
type RelayPool struct {
	relayURLs []string
	secretKey string
	pubkey    string
	logger    *zap.Logger

	mu     sync.RWMutex
	relays []*nostr.Relay
}

// NewRelayPool validates the signing key. Connect must be called before Publish.
func NewRelayPool(relayURLs []string, secretKeyHex string, logger *zap.Logger) (*RelayPool, error) {
	if len(relayURLs) == 0 {
		return nil, fmt.Errorf("no relays configured")
	}
	pubkey, err := nostr.GetPublicKey(secretKeyHex)
	if err != nil {
		return nil, fmt.Errorf("deriving public key: %w", err)
	}
	return &RelayPool{
		relayURLs: relayURLs,
		secretKey: secretKeyHex,
		pubkey:    pubkey,
		logger:    logger.Named("nostr"),
	}, nil
}

// PublicKey returns the signing key's public half in hex.
func (p *RelayPool) PublicKey() string {
	return p.pubkey
}

// Npub returns the signing key's public half in bech32.
func (p *RelayPool) Npub() string {
	npub, err := nip19.EncodePublicKey(p.pubkey)
	if err != nil {
		return p.pubkey
	}
	return npub
}

// Connect dials every relay. It fails only when none could be reached.
func (p *RelayPool) Connect(ctx context.Context) error {
	var connected int
	for _, url := range p.relayURLs {
		relay, err := nostr.RelayConnect(ctx, url)
		if err != nil {
			p.logger.Warn("relay connect failed", zap.String("relay", url), zap.Error(err))
			continue
		}

		p.mu.Lock()
		p.relays = append(p.relays, relay)
		p.mu.Unlock()

		connected++
		p.logger.Info("connected", zap.String("relay", url))
	}

	if connected == 0 {
		return fmt.Errorf("failed to connect to any relays")
	}

	p.logger.Info("relay pool ready",
		zap.Int("connected", connected),
		zap.Int("configured", len(p.relayURLs)),
		zap.String("npub", p.Npub()))
	return nil
}

// NewAppDataEvent builds and signs an application-data event. identifier becomes the "d"
// tag, so a later event with the same identifier replaces it on relays.
func (p *RelayPool) NewAppDataEvent(identifier, content string, tags nostr.Tags) (nostr.Event, error) {
	ev := nostr.Event{
		PubKey:    p.pubkey,
		CreatedAt: nostr.Now(),
		Kind:      KindAppData,
		Tags:      append(nostr.Tags{{"d", identifier}}, tags...),
		Content:   content,
	}
	if err := ev.Sign(p.secretKey); err != nil {
		return nostr.Event{}, fmt.Errorf("signing event: %w", err)
	}
	return ev, nil
}

// Publish sends event to all connected relays. It succeeds if at least one relay accepted
// it.
func (p *RelayPool) Publish(ctx context.Context, event nostr.Event) error {
	p.mu.RLock()
	relays := make([]*nostr.Relay, len(p.relays))
	copy(relays, p.relays)
	p.mu.RUnlock()

	if len(relays) == 0 {
		return fmt.Errorf("not connected to any relay")
	}

	var errs error
	var published int
	for _, relay := range relays {
		if err := relay.Publish(ctx, event); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", relay.URL, err))
			p.logger.Debug("publish failed", zap.String("relay", relay.URL), zap.Error(err))
			continue
		}
		published++
	}

	if published == 0 {
		return fmt.Errorf("failed to publish to any relay: %w", errs)
	}

	p.logger.Debug("published", zap.String("event_id", event.ID), zap.Int("relays", published))
	return nil
}

// Close disconnects from every relay.
func (p *RelayPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs error
	for _, relay := range p.relays {
		errs = multierr.Append(errs, relay.Close())
	}
	p.relays = nil
	return errs
}
