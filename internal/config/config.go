package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Verbose  bool
	Database DatabaseConfig
	Notify   NotifyConfig
	Orders   OrdersConfig
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	Path string
}

// NotifyConfig selects and tunes the notification transport.
type NotifyConfig struct {
	Transport  string // log, kafka, redis or nostr
	Producer   string
	QueueSize  int
	Workers    int
	MaxRetries uint64
	RetryBase  time.Duration
	Kafka      KafkaConfig
	Redis      RedisConfig
	Nostr      NostrConfig
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type RedisConfig struct {
	Addr   string
	Stream string
	MaxLen int64
}

// NostrConfig holds relay settings for the nostr transport.
type NostrConfig struct {
	Relays    []string
	SecretKey string // hex; usually supplied through PETSTOCK_NOTIFY_NOSTR_SECRET_KEY
}

// OrdersConfig holds order handling settings.
type OrdersConfig struct {
	CancelReason string
}

const (
	TransportLog   = "log"
	TransportKafka = "kafka"
	TransportRedis = "redis"
	TransportNostr = "nostr"
)

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "petstock.db")
	v.SetDefault("notify.transport", TransportLog)
	v.SetDefault("notify.producer", "petstock")
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.max_retries", 3)
	v.SetDefault("notify.retry_base", "100ms")
	v.SetDefault("notify.kafka.topic", "petstock.orders")
	v.SetDefault("notify.redis.addr", "localhost:6379")
	v.SetDefault("notify.redis.stream", "petstock:orders")
	v.SetDefault("notify.redis.max_len", 10000)
	v.SetDefault("notify.nostr.relays", []string{"wss://relay.damus.io"})
	v.SetDefault("orders.cancel_reason", "order cancelled")
}

// Load reads configuration from v and returns a Config struct.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Verbose: v.GetBool("verbose"),
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Notify: NotifyConfig{
			Transport:  v.GetString("notify.transport"),
			Producer:   v.GetString("notify.producer"),
			QueueSize:  v.GetInt("notify.queue_size"),
			Workers:    v.GetInt("notify.workers"),
			MaxRetries: v.GetUint64("notify.max_retries"),
			RetryBase:  v.GetDuration("notify.retry_base"),
			Kafka: KafkaConfig{
				Brokers: v.GetStringSlice("notify.kafka.brokers"),
				Topic:   v.GetString("notify.kafka.topic"),
			},
			Redis: RedisConfig{
				Addr:   v.GetString("notify.redis.addr"),
				Stream: v.GetString("notify.redis.stream"),
				MaxLen: v.GetInt64("notify.redis.max_len"),
			},
			Nostr: NostrConfig{
				Relays:    v.GetStringSlice("notify.nostr.relays"),
				SecretKey: v.GetString("notify.nostr.secret_key"),
			},
		},
		Orders: OrdersConfig{
			CancelReason: v.GetString("orders.cancel_reason"),
		},
	}

	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("database.path must not be empty")
	}

	switch cfg.Notify.Transport {
	case TransportLog, TransportRedis:
	case TransportKafka:
		if len(cfg.Notify.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("notify.kafka.brokers is required for the kafka transport")
		}
	case TransportNostr:
		if cfg.Notify.Nostr.SecretKey == "" {
			return nil, fmt.Errorf("notify.nostr.secret_key is required for the nostr transport")
		}
	default:
		return nil, fmt.Errorf("unknown notify.transport %q", cfg.Notify.Transport)
	}

	return cfg, nil
}
