package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/job-curator/internal/logging"
	"github.com/job-curator/internal/retry"
)

// applicationName tags curator sessions in pg_stat_activity and system.query_log
const applicationName = "job-curator"

const (
	connectAttempts = 3
	connectTimeout  = 10 * time.Second
)

// connectBackoff spreads the startup attempts so a database that is still
// coming up next to the worker (compose, k8s) gets a few seconds.
func connectBackoff() *retry.RetryConfig {
	return &retry.RetryConfig{
		MaxAttempts:  connectAttempts,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Multiplier:   2.0,
	}
}

// dialWithRetry runs ping until it succeeds or the attempts run out. Each
// attempt gets its own connectTimeout.
func dialWithRetry(ctx context.Context, backend string, cfg *retry.RetryConfig, ping func(ctx context.Context) error) error {
	logger := logging.FromContext(ctx).WithField("backend", backend)
	result := retry.WithExponentialBackoff(ctx, cfg, func(ctx context.Context, attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := ping(attemptCtx); err != nil {
			logger.WithFields(map[string]interface{}{"attempt": attempt}).WithError(err).Debug("Connection attempt failed")
			return err
		}
		return nil
	})
	if !result.Success {
		return fmt.Errorf("%s unreachable after %d attempts: %w", backend, result.Attempts, result.LastError)
	}
	return nil
}
