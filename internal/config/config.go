// Package config loads the settings shared by the api_gateway and
// sale_processor binaries. Values come from the environment, an env file and
// defaults, in that order of precedence.
package config

import (
	"errors"
	"strings"
	"time"
)

type Config struct {
	// Source is the env file that was read, empty when only the environment
	// and defaults were used.
	Source string

	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Payment     PaymentGatewayConfig
}

type ApplicationConfig struct {
	Env  string
	Name string
}

type LoggingConfig struct {
	Level string
}

// ServerConfig holds the http.Server timeouts of the API gateway
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// KafkaConfig covers the sale request topic, its dead letter topic and the
// processor's consumer group. Brokers is a comma separated list.
type KafkaConfig struct {
	Brokers           string
	SaleTopic         string
	DLQTopic          string
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	MaxAttempts       int // handler attempts before a message is parked; 0 retries forever
	RetryBackoff      time.Duration
}

type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string // directory or file:// URL
}

// MongoDBConfig is the activity store connection. Timeout bounds both the
// startup ping and server selection.
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int           // publish attempts before a message is marked failed
	Retention        time.Duration // processed messages older than this are purged
}

type WorkerPoolConfig struct {
	Size int // concurrent sale recordings
}

// RedisConfig contains the idempotency cache configuration. An empty URL
// disables idempotency key handling.
type RedisConfig struct {
	URL            string
	IdempotencyTTL time.Duration
}

// AuthConfig contains access token verification settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// PaymentGatewayConfig contains the gateway credentials used to verify
// payment signatures and look payments up
type PaymentGatewayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// problems collects every invalid setting so one startup failure reports
// all of them.
type problems []string

func (p *problems) required(key, value string) {
	if value == "" {
		*p = append(*p, key+" is required")
	}
}

func (p *problems) positive(key string, ok bool) {
	if !ok {
		*p = append(*p, key+" must be greater than 0")
	}
}

func (c *Config) validate() error {
	var p problems

	p.positive("SERVER_PORT", c.Server.Port > 0)
	p.positive("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout > 0)
	p.positive("SERVER_READ_TIMEOUT", c.Server.ReadTimeout > 0)
	p.positive("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout > 0)
	p.positive("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout > 0)

	p.required("KAFKA_BROKERS", c.Kafka.Brokers)
	p.required("KAFKA_SALE_TOPIC", c.Kafka.SaleTopic)
	p.required("KAFKA_DLQ_TOPIC", c.Kafka.DLQTopic)
	p.required("KAFKA_CONSUMER_GROUP", c.Kafka.ConsumerGroup)
	p.positive("KAFKA_CONSUMER_MIN_BYTES", c.Kafka.MinBytes > 0)
	p.positive("KAFKA_CONSUMER_MAX_BYTES", c.Kafka.MaxBytes > 0)
	p.positive("KAFKA_CONSUMER_MAX_WAIT", c.Kafka.MaxWait > 0)

	p.required("POSTGRES_URL", c.Postgres.URL)
	p.positive("POSTGRES_MAX_CONNS", c.Postgres.MaxConns > 0)
	p.positive("POSTGRES_MIN_CONNS", c.Postgres.MinConns > 0)
	p.positive("POSTGRES_MAX_CONN_LIFETIME", c.Postgres.ConnMaxLifetime > 0)
	p.positive("POSTGRES_MAX_CONN_IDLE_TIME", c.Postgres.ConnMaxIdleTime > 0)

	p.required("MONGO_URI", c.MongoDB.URI)
	p.required("MONGO_DATABASE", c.MongoDB.Database)
	p.positive("MONGO_TIMEOUT", c.MongoDB.Timeout > 0)
	p.positive("MONGO_MAX_POOL_SIZE", c.MongoDB.MaxPoolSize > 0)
	p.positive("MONGO_MIN_POOL_SIZE", c.MongoDB.MinPoolSize > 0)
	p.positive("MONGO_MAX_CONN_IDLE_TIME", c.MongoDB.MaxConnIdleTime > 0)

	p.positive("OUTBOX_POLLING_INTERVAL", c.Outbox.PollingInterval > 0)
	p.positive("OUTBOX_BATCH_SIZE", c.Outbox.BatchSize > 0)
	p.positive("OUTBOX_MAX_RETRY_ATTEMPTS", c.Outbox.MaxRetryAttempts > 0)
	p.positive("OUTBOX_RETENTION", c.Outbox.Retention > 0)

	p.positive("WORKER_POOL_SIZE", c.WorkerPool.Size > 0)

	if c.Redis.URL != "" {
		p.positive("REDIS_IDEMPOTENCY_TTL", c.Redis.IdempotencyTTL > 0)
	}

	if len(c.Auth.JWTSecret) < 32 {
		p = append(p, "AUTH_JWT_SECRET must be at least 32 characters")
	}
	p.required("PAYMENT_KEY_SECRET", c.Payment.KeySecret)

	if len(p) > 0 {
		return errors.New(strings.Join(p, ", "))
	}
	return nil
}
