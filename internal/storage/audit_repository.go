package storage

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "github.com/job-curator/internal/errors"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/types"
)

// AuditRepository appends sweep summaries and probe outcomes to ClickHouse
type AuditRepository struct {
	db *ClickHouseDB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *ClickHouseDB) *AuditRepository {
	return &AuditRepository{db: db}
}

// RecordSweep appends one sweep summary
func (r *AuditRepository) RecordSweep(ctx context.Context, summary *models.SweepSummary) error {
	if summary == nil {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO sweep_runs (run_id, sweep, started_at, finished_at, processed, updated, skipped, failed, reasons, interrupted)
	`)
	if err != nil {
		return apperrors.NewAuditError("prepare sweep batch", err)
	}

	reasons := make(map[string]uint32, len(summary.Reasons))
	for reason, n := range summary.Reasons {
		reasons[reason] = toUInt32(n)
	}

	var interrupted uint8
	if summary.Interrupted {
		interrupted = 1
	}

	if err := batch.Append(
		summary.RunID,
		string(summary.Sweep),
		summary.StartedAt.UTC(),
		summary.FinishedAt.UTC(),
		toUInt32(summary.Processed),
		toUInt32(summary.Updated),
		toUInt32(summary.Skipped),
		toUInt32(summary.Failed),
		reasons,
		interrupted,
	); err != nil {
		return apperrors.NewAuditError("append sweep", err)
	}

	if err := batch.Send(); err != nil {
		return apperrors.NewAuditError("send sweep", err)
	}
	return nil
}

// RecordProbe appends one probe outcome
func (r *AuditRepository) RecordProbe(ctx context.Context, rec *models.ProbeRecord) error {
	if rec == nil {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO probe_results (run_id, job_id, url, host, verdict, reason, status_code, error, probed_at, duration_ms)
	`)
	if err != nil {
		return apperrors.NewAuditError("prepare probe batch", err)
	}

	statusCode := uint16(0)
	if rec.StatusCode > 0 && rec.StatusCode <= math.MaxUint16 {
		statusCode = uint16(rec.StatusCode)
	}

	if err := batch.Append(
		rec.RunID,
		rec.JobID,
		rec.URL,
		rec.Host,
		string(rec.Verdict),
		rec.Reason,
		statusCode,
		rec.Error,
		rec.ProbedAt.UTC(),
		toUInt32(int(rec.Duration.Milliseconds())),
	); err != nil {
		return apperrors.NewAuditError("append probe", err)
	}

	if err := batch.Send(); err != nil {
		return apperrors.NewAuditError("send probe", err)
	}
	return nil
}

// RecentSweeps returns the latest sweep summaries, newest first. An empty
// sweep kind returns runs of every kind.
func (r *AuditRepository) RecentSweeps(ctx context.Context, sweep types.SweepKind, limit int) ([]*models.SweepSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, sweep, started_at, finished_at, processed, updated, skipped, failed, reasons, interrupted
		FROM sweep_runs
		WHERE (? = '' OR sweep = ?)
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().Query(ctx, query, string(sweep), string(sweep), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	defer rows.Close()

	var summaries []*models.SweepSummary
	for rows.Next() {
		var (
			runID, kind                         string
			startedAt, finishedAt               time.Time
			processed, updated, skipped, failed uint32
			reasons                             map[string]uint32
			interrupted                         uint8
		)
		if err := rows.Scan(&runID, &kind, &startedAt, &finishedAt, &processed, &updated, &skipped, &failed, &reasons, &interrupted); err != nil {
			return nil, fmt.Errorf("failed to scan sweep run: %w", err)
		}

		s := &models.SweepSummary{
			RunID:       runID,
			Sweep:       types.SweepKind(kind),
			StartedAt:   startedAt,
			FinishedAt:  finishedAt,
			Processed:   int(processed),
			Updated:     int(updated),
			Skipped:     int(skipped),
			Failed:      int(failed),
			Reasons:     make(map[string]int, len(reasons)),
			Interrupted: interrupted != 0,
		}
		for reason, n := range reasons {
			s.Reasons[reason] = int(n)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func toUInt32(n int) uint32 {
	if n <= 0 {
		return 0
	}
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n) // #nosec G115 - bounds checked above
}
