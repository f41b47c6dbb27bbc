// Package service wires the curation sweeps to their stores and exposes the
// batch entrypoints used by the worker and the CLI.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/job-curator/internal/dedup"
	apperrors "github.com/job-curator/internal/errors"
	"github.com/job-curator/internal/featured"
	"github.com/job-curator/internal/logging"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/retry"
	"github.com/job-curator/internal/types"
)

// DedupSweeper runs the duplicate sweep
type DedupSweeper interface {
	Sweep(ctx context.Context, scope dedup.ScopeFunc) (*models.SweepSummary, error)
}

// FeaturedRefresher recomputes scores and the featured set
type FeaturedRefresher interface {
	Refresh(ctx context.Context, limit int) (*featured.Result, error)
}

// LifecycleChecker runs the expire and restore sweeps
type LifecycleChecker interface {
	ExpireSweep(ctx context.Context, maxAgeDays, probeLimit int) (*models.SweepSummary, error)
	RestoreSweep(ctx context.Context, limit int) (*models.SweepSummary, error)
}

// SweepAuditor keeps a history of sweep summaries
type SweepAuditor interface {
	RecordSweep(ctx context.Context, summary *models.SweepSummary) error
}

// SweepLocker keeps two processes from running the same sweep at once
type SweepLocker interface {
	Acquire(ctx context.Context, sweep types.SweepKind) (func(context.Context) error, error)
}

// SweepDefaults are the arguments Run uses for each sweep kind
type SweepDefaults struct {
	DedupScope    dedup.ScopeFunc
	FeaturedLimit int
	MaxAgeDays    int
	ProbeLimit    int
	RestoreLimit  int
}

// CurationService is the entrypoint for every batch sweep. Each run gets a
// run ID, a scoped logger and an audit record.
type CurationService struct {
	dedup     DedupSweeper
	featured  FeaturedRefresher
	lifecycle LifecycleChecker
	auditor   SweepAuditor
	locker    SweepLocker
	defaults  SweepDefaults

	auditRetry   *retry.RetryConfig
	auditTimeout time.Duration
	newRunID     func() string
}

// NewCurationService creates a curation service. auditor and locker may be nil.
func NewCurationService(
	dedupSweeper DedupSweeper,
	refresher FeaturedRefresher,
	checker LifecycleChecker,
	auditor SweepAuditor,
	locker SweepLocker,
	defaults SweepDefaults,
) *CurationService {
	auditRetry := retry.DefaultRetryConfig()
	auditRetry.MaxAttempts = 3
	auditRetry.ShouldRetry = apperrors.IsRetryable

	return &CurationService{
		dedup:        dedupSweeper,
		featured:     refresher,
		lifecycle:    checker,
		auditor:      auditor,
		locker:       locker,
		defaults:     defaults,
		auditRetry:   auditRetry,
		auditTimeout: 30 * time.Second,
		newRunID:     uuid.NewString,
	}
}

// DedupSweep collapses duplicate active records within each scope bucket
func (s *CurationService) DedupSweep(ctx context.Context, scope dedup.ScopeFunc) (*models.SweepSummary, error) {
	return s.run(ctx, types.SweepDedup, func(ctx context.Context) (*models.SweepSummary, error) {
		return s.dedup.Sweep(ctx, scope)
	})
}

// RefreshFeatured rescores active records and rewrites the featured set
func (s *CurationService) RefreshFeatured(ctx context.Context, limit int) (*featured.Result, error) {
	var result *featured.Result
	_, err := s.run(ctx, types.SweepFeatured, func(ctx context.Context) (*models.SweepSummary, error) {
		var err error
		result, err = s.featured.Refresh(ctx, limit)
		if result == nil {
			return nil, err
		}
		return result.Summary, err
	})
	return result, err
}

// ExpireSweep retires records past deadline, past maxAgeDays, or with dead URLs
func (s *CurationService) ExpireSweep(ctx context.Context, maxAgeDays, probeLimit int) (*models.SweepSummary, error) {
	return s.run(ctx, types.SweepExpire, func(ctx context.Context) (*models.SweepSummary, error) {
		return s.lifecycle.ExpireSweep(ctx, maxAgeDays, probeLimit)
	})
}

// RestoreSweep re-probes records deactivated for a network reason
func (s *CurationService) RestoreSweep(ctx context.Context, limit int) (*models.SweepSummary, error) {
	return s.run(ctx, types.SweepRestore, func(ctx context.Context) (*models.SweepSummary, error) {
		return s.lifecycle.RestoreSweep(ctx, limit)
	})
}

// Run executes one sweep of the given kind with the configured defaults
func (s *CurationService) Run(ctx context.Context, kind types.SweepKind) (*models.SweepSummary, error) {
	switch kind {
	case types.SweepDedup:
		return s.DedupSweep(ctx, s.defaults.DedupScope)
	case types.SweepFeatured:
		result, err := s.RefreshFeatured(ctx, s.defaults.FeaturedLimit)
		if result == nil {
			return nil, err
		}
		return result.Summary, err
	case types.SweepExpire:
		return s.ExpireSweep(ctx, s.defaults.MaxAgeDays, s.defaults.ProbeLimit)
	case types.SweepRestore:
		return s.RestoreSweep(ctx, s.defaults.RestoreLimit)
	default:
		return nil, apperrors.NewInvalidParameterError("sweep", fmt.Sprintf("unknown sweep kind %q", kind))
	}
}

func (s *CurationService) run(ctx context.Context, kind types.SweepKind, fn func(context.Context) (*models.SweepSummary, error)) (*models.SweepSummary, error) {
	runID := s.newRunID()
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"runId": runID,
		"sweep": kind,
	})
	ctx = logging.WithLogger(types.WithRunID(ctx, runID), logger)

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, kind)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.WithError(err).Warn("Failed to release sweep lock")
			}
		}()
	}

	logger.Info("Sweep started")

	summary, err := fn(ctx)
	if summary == nil {
		if err != nil {
			logger.WithError(err).Error("Sweep failed")
		}
		return nil, err
	}
	summary.RunID = runID

	fields := map[string]interface{}{
		"processed":   summary.Processed,
		"updated":     summary.Updated,
		"skipped":     summary.Skipped,
		"failed":      summary.Failed,
		"reasons":     summary.Reasons,
		"interrupted": summary.Interrupted,
		"duration":    summary.Duration().String(),
	}
	switch {
	case err != nil:
		logger.WithFields(fields).WithError(err).Error("Sweep aborted")
	case summary.Failed > 0 || summary.Interrupted:
		logger.WithFields(fields).Warn("Sweep finished with problems")
	default:
		logger.WithFields(fields).Info("Sweep finished")
	}

	s.recordAudit(ctx, summary)
	return summary, err
}

// recordAudit writes the summary to the audit store. Failures are logged only.
func (s *CurationService) recordAudit(ctx context.Context, summary *models.SweepSummary) {
	if s.auditor == nil {
		return
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.auditTimeout)
	defer cancel()

	err := retry.Do(auditCtx, s.auditRetry, func(ctx context.Context, attempt int) error {
		return s.auditor.RecordSweep(ctx, summary)
	})
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to record sweep audit")
	}
}
