// Package config provides configuration structures and validation for the
// sync service. It covers the HTTP server, the Qonto API connection, the
// sync engine parameters, and the backing stores (PostgreSQL, MongoDB, Kafka).
package config

import (
	"errors"
	"strings"
	"time"
)

// Qonto API environments. They select the third-party base URL.
const (
	QontoEnvironmentProduction = "production"
	QontoEnvironmentSandbox    = "sandbox"
)

// Config holds the complete application configuration. Each field represents
// a major subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Qonto       QontoConfig
	Sync        SyncConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	WorkerPool  WorkerPoolConfig
	Metrics     MetricsConfig
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

// QontoConfig contains the third-party banking API connection settings
type QontoConfig struct {
	Environment   string        // "production" or "sandbox"
	APILogin      string        // First half of the login:secret auth header
	APISecretKey  string        // Second half of the login:secret auth header
	PageSize      int           // Transactions per page, capped at 100 by the API
	MaxRetries    int           // Transport-level retry budget for transient HTTP failures
	BackoffFactor time.Duration // Base delay for exponential retry backoff
	Timeout       time.Duration // Per-request HTTP timeout
}

// SyncConfig contains the sync engine parameters
type SyncConfig struct {
	LookbackDays    int           // Initial watermark window for never-synced mappings
	LockLease       time.Duration // Lease on the global sync lock
	Interval        time.Duration // Scheduled run interval
	BatchCommitSize int           // Ledger writes per durable commit
	ErrorHistory    int           // Per-run error messages kept on the sync state
}

// KafkaConfig contains Kafka configuration for the manual-trigger queue
type KafkaConfig struct {
	Brokers           string
	TriggerTopic      string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
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

// MongoDBConfig contains MongoDB configuration for the sync audit log
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// WorkerPoolConfig contains the per-mapping fan-out pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of mappings synced concurrently
}

// MetricsConfig contains the worker metrics listener configuration
type MetricsConfig struct {
	Port int
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
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

	// Validate Qonto config
	if c.Qonto.Environment != QontoEnvironmentProduction && c.Qonto.Environment != QontoEnvironmentSandbox {
		validationErrors = append(validationErrors, "QONTO_ENVIRONMENT must be 'production' or 'sandbox'")
	}
	if c.Qonto.PageSize <= 0 || c.Qonto.PageSize > 100 {
		validationErrors = append(validationErrors, "QONTO_PAGE_SIZE must be between 1 and 100")
	}
	if c.Qonto.MaxRetries < 0 {
		validationErrors = append(validationErrors, "QONTO_MAX_RETRIES must not be negative")
	}
	if c.Qonto.BackoffFactor <= 0 {
		validationErrors = append(validationErrors, "QONTO_BACKOFF_FACTOR must be greater than 0")
	}
	if c.Qonto.Timeout <= 0 {
		validationErrors = append(validationErrors, "QONTO_TIMEOUT must be greater than 0")
	}

	// Validate Sync config
	if c.Sync.LookbackDays < 1 {
		validationErrors = append(validationErrors, "SYNC_LOOKBACK_DAYS must be at least 1")
	}
	if c.Sync.LockLease <= 0 {
		validationErrors = append(validationErrors, "SYNC_LOCK_LEASE must be greater than 0")
	}
	if c.Sync.Interval < 5*time.Minute {
		validationErrors = append(validationErrors, "SYNC_INTERVAL must be at least 5 minutes")
	}
	if c.Sync.BatchCommitSize <= 0 {
		validationErrors = append(validationErrors, "SYNC_BATCH_COMMIT_SIZE must be greater than 0")
	}
	if c.Sync.ErrorHistory <= 0 {
		validationErrors = append(validationErrors, "SYNC_ERROR_HISTORY must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.TriggerTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_TRIGGER_TOPIC is required")
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

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Metrics config
	if c.Metrics.Port <= 0 {
		validationErrors = append(validationErrors, "METRICS_PORT must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
