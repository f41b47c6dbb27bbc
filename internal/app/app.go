// Package app wires storage, sweeps and services from configuration. Both the
// worker and the curator CLI build their object graph here.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/job-curator/internal/circuitbreaker"
	"github.com/job-curator/internal/config"
	"github.com/job-curator/internal/dedup"
	"github.com/job-curator/internal/featured"
	"github.com/job-curator/internal/lifecycle"
	"github.com/job-curator/internal/logging"
	"github.com/job-curator/internal/service"
	"github.com/job-curator/internal/storage"
)

// lockTTL bounds how long a crashed process can hold a sweep lock
const lockTTL = 2 * time.Hour

// App holds open connections and the services built on them
type App struct {
	Config *config.Config

	Postgres   *storage.PostgresDB
	Redis      *storage.RedisCache
	ClickHouse *storage.ClickHouseDB

	Jobs     *storage.JobRepository
	Audit    *storage.AuditRepository
	Breakers *circuitbreaker.Registry

	Curation *service.CurationService
	Catalog  *service.CatalogService
	Ingest   *service.IngestService
}

// DedupOptions converts the resolver thresholds from configuration
func DedupOptions(cfg config.DedupConfig) dedup.Options {
	return dedup.Options{
		SimilarityThreshold: cfg.SimilarityThreshold,
		DateWindowDays:      cfg.DateWindowDays,
	}
}

// ProberConfig converts the probe settings from configuration
func ProberConfig(cfg config.LifecycleConfig) lifecycle.ProberConfig {
	return lifecycle.ProberConfig{
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.ProbeTimeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
		HostRPS:      cfg.HostRPS,
	}
}

// Open connects to every configured store and builds the services. ClickHouse
// is skipped when disabled; sweeps then run without an audit trail.
func Open(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	logging.Info("Connecting to Postgres...")
	pg, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	a.Postgres = pg

	logging.Info("Connecting to Redis...")
	rc, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Redis = rc

	if cfg.Database.ClickHouse.Enabled {
		logging.Info("Connecting to ClickHouse...")
		ch, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.ClickHouse = ch
		a.Audit = storage.NewAuditRepository(ch)
	} else {
		logging.Warn("ClickHouse disabled, sweep audit trail is off")
	}

	a.build()
	return a, nil
}

func (a *App) build() {
	cfg := a.Config
	a.Jobs = storage.NewJobRepository(a.Postgres)
	checkpoints := storage.NewCheckpointStore(a.Redis, cfg.Lifecycle.CheckpointTTL)
	locker := storage.NewRunLock(a.Redis, lockTTL)

	breakerCfg := circuitbreaker.DefaultConfig("probe")
	a.Breakers = circuitbreaker.NewRegistry(breakerCfg)
	prober := lifecycle.NewProber(ProberConfig(cfg.Lifecycle), a.Breakers)

	// typed nils must not leak into the interfaces below
	var probeAuditor lifecycle.ProbeAuditor
	var sweepAuditor service.SweepAuditor
	if a.Audit != nil {
		probeAuditor = a.Audit
		sweepAuditor = a.Audit
	}

	opts := DedupOptions(cfg.Dedup)
	checker := lifecycle.NewChecker(a.Jobs, prober, checkpoints, probeAuditor, cfg.Lifecycle.ProbeDelay)
	checker.SetDuplicateOptions(opts)
	refresher := featured.NewRefresher(a.Jobs, cfg.Featured.ChunkSize)
	sweeper := dedup.NewSweeper(a.Jobs, opts)

	a.Curation = service.NewCurationService(sweeper, refresher, checker, sweepAuditor, locker, service.SweepDefaults{
		DedupScope:    dedup.CompanyScope,
		FeaturedLimit: cfg.Featured.Limit,
		MaxAgeDays:    cfg.Lifecycle.MaxAgeDays,
		ProbeLimit:    cfg.Lifecycle.ProbeLimit,
		RestoreLimit:  cfg.Lifecycle.RestoreLimit,
	})
	a.Catalog = service.NewCatalogService(a.Jobs)
	a.Ingest = service.NewIngestService(a.Jobs, opts)
}

// Ping checks every open connection
func (a *App) Ping(ctx context.Context) error {
	var errs []error
	if a.Postgres != nil {
		errs = append(errs, a.Postgres.Ping(ctx))
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Ping(ctx))
	}
	if a.ClickHouse != nil {
		errs = append(errs, a.ClickHouse.Ping(ctx))
	}
	return errors.Join(errs...)
}

// Close releases every open connection
func (a *App) Close() {
	if a.ClickHouse != nil {
		if err := a.ClickHouse.Close(); err != nil {
			logging.WithError(err).Warn("Error closing ClickHouse connection")
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logging.WithError(err).Warn("Error closing Redis connection")
		}
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
}
