package dedup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/job-curator/internal/logging"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/normalize"
	"github.com/job-curator/internal/types"
)

// Store is the subset of the record store the dedup sweep needs
type Store interface {
	ListActive(ctx context.Context, filter models.ListFilter) ([]*models.JobRecord, error)
	MarkDuplicate(ctx context.Context, id int64, canonicalID int64, at time.Time) error
}

// ScopeFunc maps a record to the candidate bucket it is compared within.
// Records with an empty scope are never compared.
type ScopeFunc func(record *models.JobRecord) string

// CompanyScope buckets records by alias-resolved company key
func CompanyScope(record *models.JobRecord) string {
	if record.CompanyKey != "" {
		return record.CompanyKey
	}
	return normalize.CompanyKey(record.Company)
}

// DedupKeyScope buckets records by the company|title-prefix|location key.
// It is narrower than CompanyScope and misses title rewordings.
func DedupKeyScope(record *models.JobRecord) string {
	if record.DedupKey != "" {
		return record.DedupKey
	}
	return GenerateDedupKey(record)
}

// Sweeper collapses duplicate active records onto one canonical record
type Sweeper struct {
	store Store
	opts  Options
	now   func() time.Time
}

// NewSweeper creates a dedup sweeper
func NewSweeper(store Store, opts Options) *Sweeper {
	return &Sweeper{
		store: store,
		opts:  opts,
		now:   time.Now,
	}
}

// cluster is a group of mutual duplicates in processing order
type cluster struct {
	members []*models.JobRecord
}

// Sweep loads the active set, clusters each scope bucket and deactivates every
// non-canonical member. A nil scope uses CompanyScope.
func (s *Sweeper) Sweep(ctx context.Context, scope ScopeFunc) (*models.SweepSummary, error) {
	if scope == nil {
		scope = CompanyScope
	}
	logger := logging.FromContext(ctx).WithField("sweep", types.SweepDedup)
	summary := models.NewSweepSummary(types.SweepDedup, s.now())

	records, err := s.store.ListActive(ctx, models.ListFilter{})
	if err != nil {
		return summary.Finish(s.now()), fmt.Errorf("failed to list active records: %w", err)
	}

	buckets, order := bucketRecords(records, scope)
	summary.Processed = len(records)
	summary.Skipped = len(records) - countBucketed(buckets)

	for _, key := range order {
		if err := ctx.Err(); err != nil {
			summary.Interrupted = true
			break
		}

		for _, c := range clusterBucket(buckets[key], s.opts) {
			if len(c.members) < 2 {
				continue
			}
			canonical := ChooseBestDuplicate(c.members)
			for _, member := range c.members {
				if member == canonical {
					continue
				}
				if err := s.store.MarkDuplicate(ctx, member.ID, canonical.ID, s.now()); err != nil {
					summary.Failed++
					logger.WithFields(map[string]interface{}{
						"jobId":       member.ID,
						"canonicalId": canonical.ID,
					}).WithError(err).Warn("failed to mark duplicate")
					continue
				}
				summary.AddReason(types.ReasonDuplicate, 1)
			}
		}
	}

	return summary.Finish(s.now()), nil
}

// bucketRecords groups records by scope key, each bucket sorted oldest first.
// order lists keys in first-seen order so sweeps are deterministic.
func bucketRecords(records []*models.JobRecord, scope ScopeFunc) (map[string][]*models.JobRecord, []string) {
	buckets := make(map[string][]*models.JobRecord)
	var order []string
	for _, r := range records {
		if r == nil {
			continue
		}
		key := scope(r)
		if key == "" {
			continue
		}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], r)
	}

	for _, bucket := range buckets {
		sort.SliceStable(bucket, func(i, j int) bool {
			ai, aj := bucket[i].AgeAnchor(), bucket[j].AgeAnchor()
			if !ai.Equal(aj) {
				return ai.Before(aj)
			}
			return bucket[i].ID < bucket[j].ID
		})
	}
	return buckets, order
}

func countBucketed(buckets map[string][]*models.JobRecord) int {
	n := 0
	for _, b := range buckets {
		n += len(b)
	}
	return n
}

// clusterBucket assigns each record to the cluster of the first earlier record
// it duplicates, or starts a new cluster.
func clusterBucket(bucket []*models.JobRecord, opts Options) []*cluster {
	var clusters []*cluster
	var seen []*models.JobRecord
	owner := make(map[*models.JobRecord]*cluster)

	for _, r := range bucket {
		result := CheckDuplicate(r, seen, opts)
		if result.IsDuplicate {
			c := owner[result.Match]
			c.members = append(c.members, r)
			owner[r] = c
		} else {
			c := &cluster{members: []*models.JobRecord{r}}
			clusters = append(clusters, c)
			owner[r] = c
		}
		seen = append(seen, r)
	}
	return clusters
}
