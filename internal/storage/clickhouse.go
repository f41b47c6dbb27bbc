package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/job-curator/internal/config"
)

// ClickHouseDB holds the audit-trail connection. Only sweep summaries and
// probe records go through it, so the pool stays small.
type ClickHouseDB struct {
	conn driver.Conn
}

func auditOptions(cfg *config.ClickHouseConfig) *clickhouse.Options {
	return &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: applicationName, Version: "1"}},
		},
		// probe batches repeat the same hosts and reasons
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
		Settings: clickhouse.Settings{
			"max_execution_time": 30,
		},
		DialTimeout:      connectTimeout,
		MaxOpenConns:     3,
		MaxIdleConns:     1,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	}
}

// NewClickHouseDB opens the audit connection. Callers treat a failure as
// fatal only when ClickHouse is enabled in config.
func NewClickHouseDB(cfg *config.ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(auditOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("invalid clickhouse settings for %s: %w", cfg.Database, err)
	}

	if err := dialWithRetry(context.Background(), "clickhouse", connectBackoff(), conn.Ping); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &ClickHouseDB{conn: conn}, nil
}

func (db *ClickHouseDB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Conn exposes the driver for batch inserts and history queries
func (db *ClickHouseDB) Conn() driver.Conn {
	return db.conn
}

// Ping backs the clickhouse entry of the health endpoint
func (db *ClickHouseDB) Ping(ctx context.Context) error {
	return db.conn.Ping(ctx)
}

// Exec runs a DDL statement; migrations are the only caller
func (db *ClickHouseDB) Exec(ctx context.Context, query string, args ...interface{}) error {
	return db.conn.Exec(ctx, query, args...)
}
