package notify

import (
	"context"
	"testing"
	"time"

	"github.com/buildtall-systems/petstock/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogPublisherWritesEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	pub := NewLogPublisher(zap.New(core))

	env, err := confirmedEvent(5).Envelope("petstock")
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), env))
	require.NoError(t, pub.Close())

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "OrderConfirmed", fields["event_type"])
	assert.Equal(t, "5", fields["correlation_id"])
}

func TestNewPublisherSelectsTransport(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.NotifyConfig
		want    any
		wantErr bool
	}{
		{name: "log", cfg: config.NotifyConfig{Transport: "log"}, want: &LogPublisher{}},
		{name: "kafka", cfg: config.NotifyConfig{Transport: "kafka", Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "orders"}}, want: &KafkaPublisher{}},
		{name: "redis", cfg: config.NotifyConfig{Transport: "redis", Redis: config.RedisConfig{Addr: "localhost:6379", Stream: "orders"}}, want: &RedisPublisher{}},
		{name: "kafka without topic", cfg: config.NotifyConfig{Transport: "kafka", Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}}}, wantErr: true},
		{name: "nostr with bad key", cfg: config.NotifyConfig{Transport: "nostr", Nostr: config.NostrConfig{Relays: []string{"wss://relay.example"}, SecretKey: "zz"}}, wantErr: true},
		{name: "unknown", cfg: config.NotifyConfig{Transport: "pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, err := NewPublisher(context.Background(), tt.cfg, zap.NewNop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, pub)
			assert.NoError(t, pub.Close())
		})
	}
}

func TestDispatcherOptionsFromConfig(t *testing.T) {
	d := NewDispatcher(&fakePublisher{}, zap.NewNop(), DispatcherOptions(config.NotifyConfig{
		Producer:   "svc",
		QueueSize:  8,
		Workers:    4,
		MaxRetries: 1,
		RetryBase:  time.Millisecond,
	})...)

	assert.Equal(t, "svc", d.opts.producer)
	assert.Equal(t, 8, cap(d.queue))
	assert.Equal(t, 4, d.opts.workers)
	assert.Equal(t, uint64(1), d.opts.maxRetries)
}
