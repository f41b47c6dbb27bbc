package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/job-curator/internal/dedup"
	"github.com/job-curator/internal/logging"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/types"
)

const (
	// ReasonRestored counts records flipped back to active by a restore sweep
	ReasonRestored = "restored"
	// ReasonRestoredDuplicate counts reachable records that lost to an active
	// duplicate and were re-marked as duplicates instead
	ReasonRestoredDuplicate = "restored_as_duplicate"
)

// Store is the subset of the record store the lifecycle sweeps need
type Store interface {
	DeactivatePastDeadline(ctx context.Context, now time.Time) (int, error)
	DeactivatePostedBefore(ctx context.Context, cutoff time.Time, reason string, now time.Time) (int, error)
	ListActiveForProbe(ctx context.Context, after models.ProbeCursor, limit int) ([]*models.JobRecord, error)
	ListInactiveForRestore(ctx context.Context, reasons []string, after models.ProbeCursor, limit int) ([]*models.JobRecord, error)
	SetActiveFlag(ctx context.Context, id int64, active bool, reason string, at time.Time) error
	ListActive(ctx context.Context, filter models.ListFilter) ([]*models.JobRecord, error)
	MarkDuplicate(ctx context.Context, id int64, canonicalID int64, at time.Time) error
}

// Checkpoints persists the keyset position of an interrupted sweep
type Checkpoints interface {
	Load(ctx context.Context, sweep types.SweepKind) (*models.ProbeCursor, error)
	Save(ctx context.Context, sweep types.SweepKind, cursor models.ProbeCursor) error
	Clear(ctx context.Context, sweep types.SweepKind) error
}

// ProbeAuditor receives every probe outcome
type ProbeAuditor interface {
	RecordProbe(ctx context.Context, record *models.ProbeRecord) error
}

// URLProber classifies a listing URL
type URLProber interface {
	Probe(ctx context.Context, rawURL string) ProbeResult
}

// Checker runs the expire and restore sweeps
type Checker struct {
	store       Store
	prober      URLProber
	checkpoints Checkpoints
	auditor     ProbeAuditor
	delay       time.Duration
	dedupOpts   dedup.Options
	now         func() time.Time
}

// NewChecker creates a lifecycle checker. checkpoints and auditor may be nil.
func NewChecker(store Store, prober URLProber, checkpoints Checkpoints, auditor ProbeAuditor, delay time.Duration) *Checker {
	return &Checker{
		store:       store,
		prober:      prober,
		checkpoints: checkpoints,
		auditor:     auditor,
		delay:       delay,
		dedupOpts:   dedup.DefaultOptions(),
		now:         time.Now,
	}
}

// SetDuplicateOptions sets the thresholds restore uses to check a record
// against the active set
func (c *Checker) SetDuplicateOptions(opts dedup.Options) {
	c.dedupOpts = opts
}

// ExpireSweep deactivates records past their deadline or older than
// maxAgeDays, then probes up to probeLimit active records oldest first.
func (c *Checker) ExpireSweep(ctx context.Context, maxAgeDays, probeLimit int) (*models.SweepSummary, error) {
	now := c.now()
	logger := logging.FromContext(ctx).WithField("sweep", types.SweepExpire)
	summary := models.NewSweepSummary(types.SweepExpire, now)

	n, err := c.store.DeactivatePastDeadline(ctx, now)
	if err != nil {
		return summary.Finish(c.now()), fmt.Errorf("failed to deactivate past-deadline records: %w", err)
	}
	summary.Processed += n
	summary.AddReason(types.ReasonDeadlinePassed, n)

	if maxAgeDays > 0 {
		cutoff := now.AddDate(0, 0, -maxAgeDays)
		n, err := c.store.DeactivatePostedBefore(ctx, cutoff, types.ExpiredAfterDaysReason(maxAgeDays), now)
		if err != nil {
			return summary.Finish(c.now()), fmt.Errorf("failed to deactivate aged records: %w", err)
		}
		summary.Processed += n
		summary.AddReason(types.ExpiredAfterDaysReason(maxAgeDays), n)
	}

	logger.WithFields(map[string]interface{}{
		"deadlinePassed": summary.Reasons[types.ReasonDeadlinePassed],
		"aged":           summary.Reasons[types.ExpiredAfterDaysReason(maxAgeDays)],
	}).Info("no-network pass complete")

	if probeLimit <= 0 {
		return summary.Finish(c.now()), nil
	}

	err = c.probePage(ctx, types.SweepExpire, probeLimit, summary,
		func(ctx context.Context, after models.ProbeCursor, limit int) ([]*models.JobRecord, error) {
			return c.store.ListActiveForProbe(ctx, after, limit)
		},
		func(ctx context.Context, record *models.JobRecord, result ProbeResult) (bool, error) {
			if result.Verdict != types.VerdictExpired {
				return false, nil
			}
			if err := c.store.SetActiveFlag(ctx, record.ID, false, result.Reason, c.now()); err != nil {
				return false, err
			}
			summary.AddReason(result.Reason, 1)
			return true, nil
		},
		probeAnchor,
	)
	return summary.Finish(c.now()), err
}

// RestoreSweep re-probes up to limit records deactivated for a network reason
// and reactivates every one that is not found expired. A probe that never
// reached the host (open circuit) leaves the record inactive. A reachable
// record that duplicates an active one goes through the same choice as ingest:
// the loser ends up inactive as a duplicate of the winner.
func (c *Checker) RestoreSweep(ctx context.Context, limit int) (*models.SweepSummary, error) {
	summary := models.NewSweepSummary(types.SweepRestore, c.now())
	if limit <= 0 {
		return summary.Finish(c.now()), nil
	}

	err := c.probePage(ctx, types.SweepRestore, limit, summary,
		func(ctx context.Context, after models.ProbeCursor, limit int) ([]*models.JobRecord, error) {
			return c.store.ListInactiveForRestore(ctx, types.NetworkReasons, after, limit)
		},
		func(ctx context.Context, record *models.JobRecord, result ProbeResult) (bool, error) {
			if result.Verdict == types.VerdictExpired || !reachedHost(result) {
				return false, nil
			}
			return c.restore(ctx, record, summary)
		},
		restoreAnchor,
	)
	return summary.Finish(c.now()), err
}

func (c *Checker) restore(ctx context.Context, record *models.JobRecord, summary *models.SweepSummary) (bool, error) {
	match, err := c.activeDuplicate(ctx, record)
	if err != nil {
		return false, err
	}
	now := c.now()
	if err := c.store.SetActiveFlag(ctx, record.ID, true, "", now); err != nil {
		return false, err
	}
	if match == nil {
		summary.AddReason(ReasonRestored, 1)
		return true, nil
	}

	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"jobId":   record.ID,
		"matchId": match.ID,
	})
	if dedup.ChooseBestDuplicate([]*models.JobRecord{match, record}) == match {
		if err := c.store.MarkDuplicate(ctx, record.ID, match.ID, now); err != nil {
			return true, err
		}
		logger.Info("restored record duplicates an active one")
		summary.AddReason(ReasonRestoredDuplicate, 1)
		return true, nil
	}
	if err := c.store.MarkDuplicate(ctx, match.ID, record.ID, now); err != nil {
		return true, err
	}
	logger.Info("restored record replaced an active duplicate")
	summary.AddReason(ReasonRestored, 1)
	return true, nil
}

// activeDuplicate returns the first active record of the same company that
// record duplicates, or nil
func (c *Checker) activeDuplicate(ctx context.Context, record *models.JobRecord) (*models.JobRecord, error) {
	if record.CompanyKey == "" {
		return nil, nil
	}
	candidates, err := c.store.ListActive(ctx, models.ListFilter{CompanyKey: record.CompanyKey})
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate candidates: %w", err)
	}
	check := dedup.CheckDuplicate(record, candidates, c.dedupOpts)
	if !check.IsDuplicate {
		return nil, nil
	}
	return check.Match, nil
}

type pageLoader func(ctx context.Context, after models.ProbeCursor, limit int) ([]*models.JobRecord, error)

// verdictApplier acts on one probe result and reports whether it wrote a change
type verdictApplier func(ctx context.Context, record *models.JobRecord, result ProbeResult) (bool, error)

// probePage probes one keyset page sequentially with a fixed delay between
// probes. The checkpoint advances after every record and is cleared once a
// short page shows the end of the order was reached.
func (c *Checker) probePage(
	ctx context.Context,
	sweep types.SweepKind,
	limit int,
	summary *models.SweepSummary,
	load pageLoader,
	apply verdictApplier,
	anchor func(*models.JobRecord) time.Time,
) error {
	logger := logging.FromContext(ctx).WithField("sweep", sweep)

	cursor := c.loadCursor(ctx, sweep, logger)
	records, err := load(ctx, cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to load %s page: %w", sweep, err)
	}

	for i, record := range records {
		if i > 0 && !c.sleep(ctx) {
			summary.Interrupted = true
			break
		}

		result := c.prober.Probe(ctx, record.URL)
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		summary.Processed++
		c.audit(ctx, record, result, logger)

		changed, err := apply(ctx, record, result)
		switch {
		case err != nil:
			summary.Failed++
			logger.WithFields(map[string]interface{}{
				"jobId":   record.ID,
				"verdict": result.Verdict,
			}).WithError(err).Warn("failed to apply probe verdict")
		case !changed:
			summary.Skipped++
		}

		c.saveCursor(ctx, sweep, models.ProbeCursor{Anchor: anchor(record), ID: record.ID}, logger)
	}

	if !summary.Interrupted && len(records) < limit {
		c.clearCursor(ctx, sweep, logger)
	}
	return nil
}

func (c *Checker) sleep(ctx context.Context) bool {
	if c.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Checker) loadCursor(ctx context.Context, sweep types.SweepKind, logger *logging.Logger) models.ProbeCursor {
	if c.checkpoints == nil {
		return models.ProbeCursor{}
	}
	cursor, err := c.checkpoints.Load(ctx, sweep)
	if err != nil {
		logger.WithError(err).Warn("failed to load checkpoint, starting from the beginning")
		return models.ProbeCursor{}
	}
	if cursor == nil {
		return models.ProbeCursor{}
	}
	return *cursor
}

func (c *Checker) saveCursor(ctx context.Context, sweep types.SweepKind, cursor models.ProbeCursor, logger *logging.Logger) {
	if c.checkpoints == nil {
		return
	}
	if err := c.checkpoints.Save(ctx, sweep, cursor); err != nil {
		logger.WithField("jobId", cursor.ID).WithError(err).Warn("failed to save checkpoint")
	}
}

func (c *Checker) clearCursor(ctx context.Context, sweep types.SweepKind, logger *logging.Logger) {
	if c.checkpoints == nil {
		return
	}
	if err := c.checkpoints.Clear(ctx, sweep); err != nil {
		logger.WithError(err).Warn("failed to clear checkpoint")
	}
}

func (c *Checker) audit(ctx context.Context, record *models.JobRecord, result ProbeResult, logger *logging.Logger) {
	if c.auditor == nil {
		return
	}
	entry := &models.ProbeRecord{
		RunID:      types.RunIDFromContext(ctx),
		JobID:      record.ID,
		URL:        record.URL,
		Verdict:    result.Verdict,
		Reason:     result.Reason,
		StatusCode: result.StatusCode,
		ProbedAt:   c.now(),
		Duration:   result.Duration,
	}
	if u, err := url.Parse(record.URL); err == nil {
		entry.Host = u.Hostname()
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}
	if err := c.auditor.RecordProbe(ctx, entry); err != nil {
		logger.WithField("jobId", record.ID).WithError(err).Debug("failed to audit probe")
	}
}

// reachedHost is false when the probe was skipped before any request
func reachedHost(result ProbeResult) bool {
	return !errors.Is(result.Err, ErrNotAttempted)
}

func probeAnchor(r *models.JobRecord) time.Time {
	return r.AgeAnchor()
}

func restoreAnchor(r *models.JobRecord) time.Time {
	if r.DeactivatedAt != nil {
		return *r.DeactivatedAt
	}
	return r.UpdatedAt
}
