package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/job-curator/internal/errors"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/types"
)

const jobColumns = `
	id, title, company, company_key, location, url, source, posted_date, deadline,
	description, salary, salary_min, salary_max, employment_type, backers, is_active,
	featured_score, featured_pinned, is_featured, featured_at, deactivated_at,
	deactivation_reason, canonical_id, dedup_key, created_at, updated_at`

// probeAnchorExpr orders the expire sweep oldest posted first
const probeAnchorExpr = `COALESCE(posted_date, created_at)`

// JobRepository handles job record persistence
type JobRepository struct {
	db *PostgresDB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *PostgresDB) *JobRepository {
	return &JobRepository{db: db}
}

func scanJob(row pgx.Row) (*models.JobRecord, error) {
	var r models.JobRecord
	err := row.Scan(
		&r.ID,
		&r.Title,
		&r.Company,
		&r.CompanyKey,
		&r.Location,
		&r.URL,
		&r.Source,
		&r.PostedDate,
		&r.Deadline,
		&r.Description,
		&r.Salary,
		&r.SalaryMin,
		&r.SalaryMax,
		&r.EmploymentType,
		&r.Backers,
		&r.IsActive,
		&r.FeaturedScore,
		&r.FeaturedPinned,
		&r.IsFeatured,
		&r.FeaturedAt,
		&r.DeactivatedAt,
		&r.DeactivationReason,
		&r.CanonicalID,
		&r.DedupKey,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *JobRepository) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*models.JobRecord, error) {
	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetByID retrieves a job record by id
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM job_records WHERE id = $1`

	rec, err := scanJob(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("job record", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}
	return rec, nil
}

// ListActive returns active records matching filter, ordered by id
func (r *JobRepository) ListActive(ctx context.Context, filter models.ListFilter) ([]*models.JobRecord, error) {
	var (
		conditions = []string{"is_active"}
		args       []interface{}
	)

	if filter.CompanyKey != "" {
		args = append(args, filter.CompanyKey)
		conditions = append(conditions, fmt.Sprintf("company_key = $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, "%"+filter.Source+"%")
		conditions = append(conditions, fmt.Sprintf("source ILIKE $%d", len(args)))
	}

	query := `SELECT ` + jobColumns + ` FROM job_records WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	records, err := r.queryJobs(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active job records: %w", err)
	}
	return records, nil
}

// Upsert inserts a record or refreshes the content of the existing row with
// the same source and url. Lifecycle and featured columns of an existing row
// are left alone. The record's ID, activity, deactivation fields and
// timestamps are set from the stored row.
func (r *JobRepository) Upsert(ctx context.Context, rec *models.JobRecord) error {
	if rec.Backers == nil {
		rec.Backers = []string{}
	}

	query := `
		INSERT INTO job_records (
			title, company, company_key, location, url, source, posted_date, deadline,
			description, salary, salary_min, salary_max, employment_type, backers,
			is_active, featured_pinned, deactivated_at, deactivation_reason, canonical_id, dedup_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (source, url) WHERE url <> '' DO UPDATE SET
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			company_key = EXCLUDED.company_key,
			location = EXCLUDED.location,
			posted_date = EXCLUDED.posted_date,
			deadline = EXCLUDED.deadline,
			description = EXCLUDED.description,
			salary = EXCLUDED.salary,
			salary_min = EXCLUDED.salary_min,
			salary_max = EXCLUDED.salary_max,
			employment_type = EXCLUDED.employment_type,
			backers = EXCLUDED.backers,
			dedup_key = EXCLUDED.dedup_key,
			updated_at = NOW()
		RETURNING id, is_active, deactivated_at, deactivation_reason, canonical_id, created_at, updated_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		rec.Title,
		rec.Company,
		rec.CompanyKey,
		rec.Location,
		rec.URL,
		rec.Source,
		rec.PostedDate,
		rec.Deadline,
		rec.Description,
		rec.Salary,
		rec.SalaryMin,
		rec.SalaryMax,
		rec.EmploymentType,
		rec.Backers,
		rec.IsActive,
		rec.FeaturedPinned,
		rec.DeactivatedAt,
		rec.DeactivationReason,
		rec.CanonicalID,
		rec.DedupKey,
	).Scan(&rec.ID, &rec.IsActive, &rec.DeactivatedAt, &rec.DeactivationReason, &rec.CanonicalID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert job record: %w", err)
	}
	return nil
}

// SetActiveFlag flips a record's active flag. Deactivation stamps the reason
// and time and drops the record from the featured set; activation clears the
// deactivation fields and the canonical reference. Writes that would not
// change the flag are no-ops.
func (r *JobRepository) SetActiveFlag(ctx context.Context, id int64, active bool, reason string, at time.Time) error {
	if active {
		query := `
			UPDATE job_records
			SET is_active = TRUE, deactivated_at = NULL, deactivation_reason = NULL,
				canonical_id = NULL, updated_at = $2
			WHERE id = $1 AND NOT is_active
		`
		if _, err := r.db.Pool().Exec(ctx, query, id, at); err != nil {
			return fmt.Errorf("failed to activate job record %d: %w", id, err)
		}
		return nil
	}

	if reason == "" {
		return apperrors.NewInvalidParameterError("reason", "deactivation requires a reason")
	}

	query := `
		UPDATE job_records
		SET is_active = FALSE, deactivated_at = $3, deactivation_reason = $2,
			is_featured = FALSE, featured_at = NULL, updated_at = $3
		WHERE id = $1 AND is_active
	`
	if _, err := r.db.Pool().Exec(ctx, query, id, reason, at); err != nil {
		return fmt.Errorf("failed to deactivate job record %d: %w", id, err)
	}
	return nil
}

// MarkDuplicate deactivates an active record as a duplicate of canonicalID
func (r *JobRepository) MarkDuplicate(ctx context.Context, id int64, canonicalID int64, at time.Time) error {
	query := `
		UPDATE job_records
		SET is_active = FALSE, deactivated_at = $3, deactivation_reason = $4,
			canonical_id = $2, is_featured = FALSE, featured_at = NULL, updated_at = $3
		WHERE id = $1 AND is_active
	`
	if _, err := r.db.Pool().Exec(ctx, query, id, canonicalID, at, types.ReasonDuplicate); err != nil {
		return fmt.Errorf("failed to mark job record %d as duplicate: %w", id, err)
	}
	return nil
}

// SetFeaturedFlag sets is_featured for ids, stamping featured_at with at when
// featured and clearing it otherwise
func (r *JobRepository) SetFeaturedFlag(ctx context.Context, ids []int64, featured bool, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE job_records
		SET is_featured = $2,
			featured_at = CASE WHEN $2 THEN $3::timestamptz ELSE NULL END,
			updated_at = $3
		WHERE id = ANY($1)
	`
	if _, err := r.db.Pool().Exec(ctx, query, ids, featured, at); err != nil {
		return fmt.Errorf("failed to set featured flag on %d records: %w", len(ids), err)
	}
	return nil
}

// SetScore persists a record's featured score
func (r *JobRepository) SetScore(ctx context.Context, id int64, score int) error {
	query := `UPDATE job_records SET featured_score = $2 WHERE id = $1 AND featured_score <> $2`
	if _, err := r.db.Pool().Exec(ctx, query, id, score); err != nil {
		return fmt.Errorf("failed to set featured score for %d: %w", id, err)
	}
	return nil
}

// SetPinned pins or unpins a record in the featured set
func (r *JobRepository) SetPinned(ctx context.Context, id int64, pinned bool) error {
	query := `UPDATE job_records SET featured_pinned = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Pool().Exec(ctx, query, id, pinned)
	if err != nil {
		return fmt.Errorf("failed to set pinned flag for %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("job record", strconv.FormatInt(id, 10))
	}
	return nil
}

// DeactivatePastDeadline deactivates every active record whose deadline is
// before now and returns how many were changed
func (r *JobRepository) DeactivatePastDeadline(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE job_records
		SET is_active = FALSE, deactivated_at = $1, deactivation_reason = $2,
			is_featured = FALSE, featured_at = NULL, updated_at = $1
		WHERE is_active AND deadline IS NOT NULL AND deadline < $1
	`
	tag, err := r.db.Pool().Exec(ctx, query, now, types.ReasonDeadlinePassed)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate past-deadline records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeactivatePostedBefore deactivates every active record posted before cutoff
func (r *JobRepository) DeactivatePostedBefore(ctx context.Context, cutoff time.Time, reason string, now time.Time) (int, error) {
	query := `
		UPDATE job_records
		SET is_active = FALSE, deactivated_at = $3, deactivation_reason = $2,
			is_featured = FALSE, featured_at = NULL, updated_at = $3
		WHERE is_active AND posted_date IS NOT NULL AND posted_date < $1
	`
	tag, err := r.db.Pool().Exec(ctx, query, cutoff, reason, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate aged records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListActiveForProbe returns up to limit active records with a url, oldest
// posted first, strictly after the keyset cursor
func (r *JobRepository) ListActiveForProbe(ctx context.Context, after models.ProbeCursor, limit int) ([]*models.JobRecord, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM job_records
		WHERE is_active AND url <> ''
		  AND ($1::boolean OR (` + probeAnchorExpr + `, id) > ($2::timestamptz, $3::bigint))
		ORDER BY ` + probeAnchorExpr + `, id
		LIMIT $4
	`
	records, err := r.queryJobs(ctx, query, after.IsZero(), after.Anchor, after.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records for probing: %w", err)
	}
	return records, nil
}

// ListInactiveForRestore returns up to limit inactive records deactivated for
// one of reasons, in deactivation order, strictly after the keyset cursor
func (r *JobRepository) ListInactiveForRestore(ctx context.Context, reasons []string, after models.ProbeCursor, limit int) ([]*models.JobRecord, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM job_records
		WHERE NOT is_active AND url <> '' AND deactivation_reason = ANY($1)
		  AND ($2::boolean OR (deactivated_at, id) > ($3::timestamptz, $4::bigint))
		ORDER BY deactivated_at, id
		LIMIT $5
	`
	records, err := r.queryJobs(ctx, query, reasons, after.IsZero(), after.Anchor, after.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records for restore: %w", err)
	}
	return records, nil
}
