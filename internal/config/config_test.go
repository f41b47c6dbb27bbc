package config

import (
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("POSTGRES_HOST", "testhost")
	t.Setenv("LIFECYCLE_PROBE_DELAY", "500ms")
	t.Setenv("DEDUP_SIMILARITY_THRESHOLD", "0.75")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}
	if cfg.Database.Postgres.Host != "testhost" {
		t.Errorf("Database.Postgres.Host = %v, want %v", cfg.Database.Postgres.Host, "testhost")
	}
	if cfg.Lifecycle.ProbeDelay != 500*time.Millisecond {
		t.Errorf("Lifecycle.ProbeDelay = %v, want %v", cfg.Lifecycle.ProbeDelay, 500*time.Millisecond)
	}
	if cfg.Dedup.SimilarityThreshold != 0.75 {
		t.Errorf("Dedup.SimilarityThreshold = %v, want %v", cfg.Dedup.SimilarityThreshold, 0.75)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Featured.Limit != 6 {
		t.Errorf("Featured.Limit = %d, want 6", cfg.Featured.Limit)
	}
	if cfg.Dedup.DateWindowDays != 7 {
		t.Errorf("Dedup.DateWindowDays = %d, want 7", cfg.Dedup.DateWindowDays)
	}
	if cfg.Lifecycle.MaxAgeDays != 60 {
		t.Errorf("Lifecycle.MaxAgeDays = %d, want 60", cfg.Lifecycle.MaxAgeDays)
	}
	if cfg.Lifecycle.ProbeTimeout < 10*time.Second || cfg.Lifecycle.ProbeTimeout > 15*time.Second {
		t.Errorf("Lifecycle.ProbeTimeout = %v, want within 10s-15s", cfg.Lifecycle.ProbeTimeout)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "threshold above one", key: "DEDUP_SIMILARITY_THRESHOLD", value: "1.5"},
		{name: "zero featured limit", key: "FEATURED_LIMIT", value: "0"},
		{name: "negative max age", key: "LIFECYCLE_MAX_AGE_DAYS", value: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := LoadConfig(); err == nil {
				t.Errorf("LoadConfig() with %s=%s expected error", tt.key, tt.value)
			}
		})
	}
}

func TestPostgresConfig_URL(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", Database: "jobs", User: "u", Password: "p"}

	want := "postgres://u:p@db:5432/jobs?sslmode=disable"
	if got := cfg.URL(); got != want {
		t.Errorf("URL() = %v, want %v", got, want)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "NONEXISTENT_KEY",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsNumbers(t *testing.T) {
	t.Setenv("TEST_INT", "200")
	t.Setenv("TEST_INT_INVALID", "invalid")
	t.Setenv("TEST_FLOAT", "0.9")
	t.Setenv("TEST_BOOL", "false")
	t.Setenv("TEST_DURATION", "30s")

	if got := getEnvAsInt("TEST_INT", 100); got != 200 {
		t.Errorf("getEnvAsInt() = %v, want 200", got)
	}
	if got := getEnvAsInt("TEST_INT_INVALID", 100); got != 100 {
		t.Errorf("getEnvAsInt() invalid = %v, want 100", got)
	}
	if got := getEnvAsFloat("TEST_FLOAT", 0.8); got != 0.9 {
		t.Errorf("getEnvAsFloat() = %v, want 0.9", got)
	}
	if got := getEnvAsFloat("TEST_FLOAT_NOTSET", 0.8); got != 0.8 {
		t.Errorf("getEnvAsFloat() default = %v, want 0.8", got)
	}
	if got := getEnvAsBool("TEST_BOOL", true); got {
		t.Errorf("getEnvAsBool() = %v, want false", got)
	}
	if got := getEnvAsDuration("TEST_DURATION", 10*time.Second); got != 30*time.Second {
		t.Errorf("getEnvAsDuration() = %v, want 30s", got)
	}
	if got := getEnvAsDuration("TEST_DURATION_NOTSET", 10*time.Second); got != 10*time.Second {
		t.Errorf("getEnvAsDuration() default = %v, want 10s", got)
	}
}
