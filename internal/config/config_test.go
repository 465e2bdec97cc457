package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "petstock.db", cfg.Database.Path)
	assert.Equal(t, TransportLog, cfg.Notify.Transport)
	assert.Equal(t, 256, cfg.Notify.QueueSize)
	assert.Equal(t, uint64(3), cfg.Notify.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Notify.RetryBase)
	assert.Equal(t, "order cancelled", cfg.Orders.CancelReason)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		wantErr string
	}{
		{"unknown transport", map[string]any{"notify.transport": "smtp"}, "unknown notify.transport"},
		{"kafka without brokers", map[string]any{"notify.transport": "kafka"}, "notify.kafka.brokers"},
		{"nostr without key", map[string]any{"notify.transport": "nostr"}, "notify.nostr.secret_key"},
		{"empty database path", map[string]any{"database.path": ""}, "database.path"},
		{"kafka with brokers", map[string]any{"notify.transport": "kafka", "notify.kafka.brokers": []string{"localhost:9092"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
