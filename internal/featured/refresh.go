package featured

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/job-curator/internal/logging"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/types"
)

const (
	// DefaultLimit is the size of the featured set
	DefaultLimit = 6
	// DefaultChunkSize bounds ids per featured-flag update
	DefaultChunkSize = 100
)

// Store is the subset of the record store the refresh needs
type Store interface {
	ListActive(ctx context.Context, filter models.ListFilter) ([]*models.JobRecord, error)
	SetScore(ctx context.Context, id int64, score int) error
	// SetFeaturedFlag stamps featured_at with at when featured, clears it otherwise
	SetFeaturedFlag(ctx context.Context, ids []int64, featured bool, at time.Time) error
}

// Result reports a featured refresh
type Result struct {
	Summary   *models.SweepSummary `json:"summary" yaml:"summary"`
	Pinned    int                  `json:"pinned" yaml:"pinned"`
	TopScored int                  `json:"topScored" yaml:"topScored"`
	Winners   []int64              `json:"winners" yaml:"winners"`
}

// Refresher recomputes featured scores and rewrites the featured set
type Refresher struct {
	store     Store
	chunkSize int
	now       func() time.Time
}

// NewRefresher creates a refresher; chunkSize <= 0 uses DefaultChunkSize
func NewRefresher(store Store, chunkSize int) *Refresher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Refresher{
		store:     store,
		chunkSize: chunkSize,
		now:       time.Now,
	}
}

type scored struct {
	record *models.JobRecord
	score  int
}

// Refresh scores every active record and features all pinned records plus the
// best unpinned ones up to limit. Pinned records are never evicted, so the
// winner set exceeds limit only when pins alone do.
func (r *Refresher) Refresh(ctx context.Context, limit int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	now := r.now()
	logger := logging.FromContext(ctx).WithField("sweep", types.SweepFeatured)
	summary := models.NewSweepSummary(types.SweepFeatured, now)
	result := &Result{Summary: summary}

	records, err := r.store.ListActive(ctx, models.ListFilter{})
	if err != nil {
		summary.Finish(r.now())
		return result, fmt.Errorf("failed to list active records: %w", err)
	}

	var pinned, unpinned []scored
	for _, rec := range records {
		if rec == nil {
			continue
		}
		summary.Processed++
		s := scored{record: rec, score: ComputeScore(rec, now)}

		if err := r.store.SetScore(ctx, rec.ID, s.score); err != nil {
			summary.Failed++
			logger.WithField("jobId", rec.ID).WithError(err).Warn("failed to persist featured score")
		} else {
			summary.Updated++
		}

		if rec.FeaturedPinned {
			pinned = append(pinned, s)
		} else {
			unpinned = append(unpinned, s)
		}
	}

	sortByRank(unpinned)

	top := limit - len(pinned)
	if top < 0 {
		top = 0
	}
	if top > len(unpinned) {
		top = len(unpinned)
	}

	winners := make([]int64, 0, len(pinned)+top)
	for _, s := range pinned {
		winners = append(winners, s.record.ID)
	}
	for _, s := range unpinned[:top] {
		winners = append(winners, s.record.ID)
	}

	losers := make([]int64, 0, len(unpinned)-top)
	for _, s := range unpinned[top:] {
		losers = append(losers, s.record.ID)
	}

	if err := ctx.Err(); err != nil {
		summary.Interrupted = true
		summary.Finish(r.now())
		return result, err
	}

	summary.Failed += r.setFeatured(ctx, winners, true, now, logger)
	summary.Failed += r.setFeatured(ctx, losers, false, now, logger)

	result.Pinned = len(pinned)
	result.TopScored = top
	result.Winners = winners
	summary.Reasons["featured"] = len(winners)
	summary.Reasons["unfeatured"] = len(losers)
	summary.Finish(r.now())

	return result, nil
}

// setFeatured writes the flag in chunks and returns how many ids failed
func (r *Refresher) setFeatured(ctx context.Context, ids []int64, featured bool, at time.Time, logger *logging.Logger) int {
	failed := 0
	for start := 0; start < len(ids); start += r.chunkSize {
		end := min(start+r.chunkSize, len(ids))
		chunk := ids[start:end]
		if err := r.store.SetFeaturedFlag(ctx, chunk, featured, at); err != nil {
			failed += len(chunk)
			logger.WithFields(map[string]interface{}{
				"featured": featured,
				"ids":      len(chunk),
			}).WithError(err).Error("failed to update featured flag")
		}
	}
	return failed
}

// sortByRank orders by score, then newer posted date, then lower id
func sortByRank(items []scored) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.score != b.score {
			return a.score > b.score
		}
		ap, bp := a.record.PostedDate, b.record.PostedDate
		switch {
		case ap != nil && bp != nil && !ap.Equal(*bp):
			return ap.After(*bp)
		case ap != nil && bp == nil:
			return true
		case ap == nil && bp != nil:
			return false
		}
		return a.record.ID < b.record.ID
	})
}
