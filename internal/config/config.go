// Package config provides configuration structures and validation for the
// monitor service. Settings cover the upstream card processor, storage
// backends, alert delivery, and the polling schedule.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field represents a
// major subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Upstream    UpstreamConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Poller      PollerConfig
	AlertPool   AlertPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// UpstreamConfig contains settings for the upstream card processor API
type UpstreamConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // Per-request timeout
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the raw payload archive
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration for the malformed-event DLQ
type RedisConfig struct {
	Addr     string
	Password string
}

// KafkaConfig contains settings for the optional alert firehose topic.
// An empty AlertTopic disables the firehose producer.
type KafkaConfig struct {
	Brokers           string
	AlertTopic        string
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

// PollerConfig contains transaction polling configuration
type PollerConfig struct {
	Interval      time.Duration // Time between poll cycles
	DefaultWindow time.Duration // Lookback window when the store is empty
}

// AlertPoolConfig contains the alert delivery worker pool configuration
type AlertPoolConfig struct {
	Size int // Maximum number of concurrent session deliveries
}

// validate performs validation of all configuration values, ensuring they meet
// minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Upstream config
	if c.Upstream.BaseURL == "" {
		validationErrors = append(validationErrors, "UPSTREAM_BASE_URL is required")
	}
	if c.Upstream.APIKey == "" {
		validationErrors = append(validationErrors, "UPSTREAM_API_KEY is required")
	}
	if c.Upstream.Timeout <= 0 {
		validationErrors = append(validationErrors, "UPSTREAM_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}

	// Validate Kafka config. The firehose is optional, but when a topic is
	// configured the broker list must be usable.
	if c.Kafka.AlertTopic != "" {
		if len(c.Kafka.Brokers) == 0 {
			validationErrors = append(validationErrors, "KAFKA_BROKERS is required when KAFKA_ALERT_TOPIC is set")
		}
		if c.Kafka.WriteTimeout <= 0 {
			validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
		}
	}

	// Validate Poller config
	if c.Poller.Interval <= 0 {
		validationErrors = append(validationErrors, "POLLER_INTERVAL must be greater than 0")
	}
	if c.Poller.DefaultWindow <= 0 {
		validationErrors = append(validationErrors, "POLLER_DEFAULT_WINDOW must be greater than 0")
	}

	// Validate AlertPool config
	if c.AlertPool.Size <= 0 {
		validationErrors = append(validationErrors, "ALERT_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
