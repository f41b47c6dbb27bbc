// Package main provides the sweep worker entry point for the job curation pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/job-curator/internal/api"
	"github.com/job-curator/internal/app"
	"github.com/job-curator/internal/config"
	"github.com/job-curator/internal/logging"
	"github.com/job-curator/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	fmt.Println("Job Curator Sweep Worker")

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logging.Info("Worker starting...")

	if err := run(cfg); err != nil {
		logging.Fatalf("Worker failed: %v", err)
	}
	logging.Info("All workers stopped. Goodbye!")
}

func run(cfg *config.Config) error {
	pipeline, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer pipeline.Close()
	logging.Info("Database connections established")

	scheduler, err := worker.NewScheduler(pipeline.Curation, cfg.Worker)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	deps := api.Dependencies{
		Sweeps:   scheduler,
		Circuits: pipeline.Breakers,
		Pingers: map[string]api.Pinger{
			"postgres": pipeline.Postgres,
			"redis":    pipeline.Redis,
		},
	}
	if pipeline.Audit != nil {
		deps.History = pipeline.Audit
		deps.Pingers["clickhouse"] = pipeline.ClickHouse
	}
	server := api.NewServer(api.DefaultServerConfig(cfg.Server.Host, cfg.Server.Port), deps)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	for _, status := range scheduler.Statuses() {
		logging.WithFields(map[string]interface{}{
			"sweep":    status.Kind,
			"interval": time.Duration(status.IntervalSeconds) * time.Second,
		}).Info("Sweep worker started")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("Shutdown signal received, stopping workers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(server.Shutdown(shutdownCtx), scheduler.Stop(shutdownCtx))
	})

	return g.Wait()
}
