// Package storage provides database connections and repository implementations.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/job-curator/internal/config"
)

// PostgresDB holds the catalog connection pool
type PostgresDB struct {
	pool *pgxpool.Pool
}

// catalogPoolConfig derives pool settings from the same URL migrations use.
// Sweeps run one at a time per kind, so a small idle floor is enough.
func catalogPoolConfig(cfg *config.PostgresConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("invalid postgres settings for %s: %w", cfg.Database, err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections) // #nosec G115 - MaxConnections is validated in config
	poolConfig.MinConns = min(2, poolConfig.MaxConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	return poolConfig, nil
}

// NewPostgresDB opens the catalog pool, retrying the first ping while the
// server comes up.
func NewPostgresDB(cfg *config.PostgresConfig) (*PostgresDB, error) {
	poolConfig, err := catalogPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	// pgxpool connects lazily; the ping below is the real dial
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create catalog pool: %w", err)
	}

	if err := dialWithRetry(context.Background(), "postgres", connectBackoff(), pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Pool exposes the pool to repositories in this package and to tests
func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping backs the postgres entry of the health endpoint
func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}
