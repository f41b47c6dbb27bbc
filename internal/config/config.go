// Package config provides configuration management for the job curation pipeline.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Dedup     DedupConfig
	Featured  FeaturedConfig
	Lifecycle LifecycleConfig
	Worker    WorkerConfig
	Logging   LoggingConfig
}

// ServerConfig holds the ops endpoint configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// URL returns the connection URL used by golang-migrate
func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// DedupConfig holds duplicate resolver configuration
type DedupConfig struct {
	SimilarityThreshold float64
	DateWindowDays      int
}

// FeaturedConfig holds featured refresh configuration
type FeaturedConfig struct {
	Limit     int
	ChunkSize int
}

// LifecycleConfig holds expiration and restore sweep configuration
type LifecycleConfig struct {
	MaxAgeDays    int
	ProbeLimit    int
	RestoreLimit  int
	ProbeDelay    time.Duration
	ProbeTimeout  time.Duration
	UserAgent     string
	HostRPS       float64
	MaxBodyBytes  int64
	CheckpointTTL time.Duration
}

// WorkerConfig holds per-sweep schedule intervals. A zero interval disables the sweep.
type WorkerConfig struct {
	DedupInterval    time.Duration
	FeaturedInterval time.Duration
	ExpireInterval   time.Duration
	RestoreInterval  time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "job_catalog"),
				User:           getEnv("POSTGRES_USER", "curator"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			ClickHouse: ClickHouseConfig{
				Enabled:  getEnvAsBool("CLICKHOUSE_ENABLED", true),
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "job_catalog"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 10),
			},
		},
		Dedup: DedupConfig{
			SimilarityThreshold: getEnvAsFloat("DEDUP_SIMILARITY_THRESHOLD", 0.8),
			DateWindowDays:      getEnvAsInt("DEDUP_DATE_WINDOW_DAYS", 7),
		},
		Featured: FeaturedConfig{
			Limit:     getEnvAsInt("FEATURED_LIMIT", 6),
			ChunkSize: getEnvAsInt("FEATURED_CHUNK_SIZE", 100),
		},
		Lifecycle: LifecycleConfig{
			MaxAgeDays:    getEnvAsInt("LIFECYCLE_MAX_AGE_DAYS", 60),
			ProbeLimit:    getEnvAsInt("LIFECYCLE_PROBE_LIMIT", 200),
			RestoreLimit:  getEnvAsInt("LIFECYCLE_RESTORE_LIMIT", 100),
			ProbeDelay:    getEnvAsDuration("LIFECYCLE_PROBE_DELAY", 2*time.Second),
			ProbeTimeout:  getEnvAsDuration("LIFECYCLE_PROBE_TIMEOUT", 12*time.Second),
			UserAgent:     getEnv("LIFECYCLE_USER_AGENT", "JobCatalogLinkChecker/1.0 (+https://jobs.example.com/bot)"),
			HostRPS:       getEnvAsFloat("LIFECYCLE_HOST_RPS", 0.5),
			MaxBodyBytes:  int64(getEnvAsInt("LIFECYCLE_MAX_BODY_BYTES", 2<<20)),
			CheckpointTTL: getEnvAsDuration("LIFECYCLE_CHECKPOINT_TTL", 7*24*time.Hour),
		},
		Worker: WorkerConfig{
			DedupInterval:    getEnvAsDuration("WORKER_DEDUP_INTERVAL", time.Hour),
			FeaturedInterval: getEnvAsDuration("WORKER_FEATURED_INTERVAL", 30*time.Minute),
			ExpireInterval:   getEnvAsDuration("WORKER_EXPIRE_INTERVAL", 6*time.Hour),
			RestoreInterval:  getEnvAsDuration("WORKER_RESTORE_INTERVAL", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks value ranges that would make a sweep misbehave
func (c *Config) Validate() error {
	if c.Dedup.SimilarityThreshold <= 0 || c.Dedup.SimilarityThreshold > 1 {
		return fmt.Errorf("DEDUP_SIMILARITY_THRESHOLD must be in (0, 1], got %v", c.Dedup.SimilarityThreshold)
	}
	if c.Dedup.DateWindowDays < 0 {
		return fmt.Errorf("DEDUP_DATE_WINDOW_DAYS must not be negative, got %d", c.Dedup.DateWindowDays)
	}
	if c.Featured.Limit <= 0 {
		return fmt.Errorf("FEATURED_LIMIT must be positive, got %d", c.Featured.Limit)
	}
	if c.Featured.ChunkSize <= 0 {
		return fmt.Errorf("FEATURED_CHUNK_SIZE must be positive, got %d", c.Featured.ChunkSize)
	}
	if c.Lifecycle.MaxAgeDays <= 0 {
		return fmt.Errorf("LIFECYCLE_MAX_AGE_DAYS must be positive, got %d", c.Lifecycle.MaxAgeDays)
	}
	if c.Lifecycle.ProbeLimit <= 0 || c.Lifecycle.RestoreLimit <= 0 {
		return fmt.Errorf("probe and restore limits must be positive")
	}
	if c.Lifecycle.ProbeTimeout <= 0 {
		return fmt.Errorf("LIFECYCLE_PROBE_TIMEOUT must be positive, got %v", c.Lifecycle.ProbeTimeout)
	}
	if c.Database.Postgres.MaxConnections <= 0 {
		return fmt.Errorf("POSTGRES_MAX_CONNECTIONS must be positive, got %d", c.Database.Postgres.MaxConnections)
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a bool with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
