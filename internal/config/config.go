// Package config provides configuration structures and validation for
// the reconciliation services. It handles environment-based
// configuration for all major components: HTTP server, databases,
// message queues, matching tolerances, and batch processing.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings
// for all components. Each field represents a major subsystem and is
// validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Matching    MatchingConfig
	Batch       BatchConfig
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

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	StatementTopic    string // Inbound normalized bank transactions
	EventsTopic       string // Outbound reconciliation events
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for poisoned statement messages
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig contains worker pool configuration for the
// statement processor.
type WorkerPoolConfig struct {
	Size int
}

// MatchingConfig contains the tolerance bands of the tiered candidate
// search and the bounds of split-set generation.
type MatchingConfig struct {
	ExactDayWindow  int     // Day tolerance of the exact tier
	TightPercent    float64 // Value tolerance of the tight tier, % of the bank amount
	TightDayWindow  int     // Day tolerance of the tight tier
	WidePercent     float64 // Value tolerance of the wide tier, % of the bank amount
	WideDayWindow   int     // Day tolerance of the wide tier
	MaxSplitEntries int     // Largest candidate set generated for split matches
	MaxSplitPool    int     // Cap on the pool considered for split combinations
}

// BatchConfig contains batch reconciliation processor configuration
type BatchConfig struct {
	Size            int           // Suggestions per batch
	InterBatchDelay time.Duration // Throttle between batches
	EventLogCap     int           // Ring buffer size of the run event log
	ReadRetries     int           // Retry count for idempotent store reads
}

// validate performs comprehensive validation of all configuration
// values, ensuring they meet minimum requirements and logical
// constraints.
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

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.StatementTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_STATEMENT_TOPIC is required")
	}
	if c.Kafka.EventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_EVENTS_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
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

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Matching config. The tiers must widen in order or the
	// fallback search degenerates.
	if c.Matching.ExactDayWindow < 0 {
		validationErrors = append(validationErrors, "MATCHING_EXACT_DAY_WINDOW must not be negative")
	}
	if c.Matching.TightPercent <= 0 {
		validationErrors = append(validationErrors, "MATCHING_TIGHT_PERCENT must be greater than 0")
	}
	if c.Matching.WidePercent < c.Matching.TightPercent {
		validationErrors = append(validationErrors, "MATCHING_WIDE_PERCENT must not be narrower than MATCHING_TIGHT_PERCENT")
	}
	if c.Matching.WideDayWindow < c.Matching.TightDayWindow {
		validationErrors = append(validationErrors, "MATCHING_WIDE_DAY_WINDOW must not be narrower than MATCHING_TIGHT_DAY_WINDOW")
	}
	if c.Matching.MaxSplitEntries < 1 {
		validationErrors = append(validationErrors, "MATCHING_MAX_SPLIT_ENTRIES must be at least 1")
	}
	if c.Matching.MaxSplitPool <= 0 {
		validationErrors = append(validationErrors, "MATCHING_MAX_SPLIT_POOL must be greater than 0")
	}

	// Validate Batch config
	if c.Batch.Size <= 0 {
		validationErrors = append(validationErrors, "BATCH_SIZE must be greater than 0")
	}
	if c.Batch.InterBatchDelay < 0 {
		validationErrors = append(validationErrors, "BATCH_INTER_BATCH_DELAY must not be negative")
	}
	if c.Batch.EventLogCap <= 0 {
		validationErrors = append(validationErrors, "BATCH_EVENT_LOG_CAP must be greater than 0")
	}
	if c.Batch.ReadRetries < 0 {
		validationErrors = append(validationErrors, "BATCH_READ_RETRIES must not be negative")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
