package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/job-curator/internal/dedup"
	apperrors "github.com/job-curator/internal/errors"
	"github.com/job-curator/internal/logging"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/normalize"
	"github.com/job-curator/internal/types"
)

// IngestStore is the subset of the record store the ingest gate needs
type IngestStore interface {
	ListActive(ctx context.Context, filter models.ListFilter) ([]*models.JobRecord, error)
	Upsert(ctx context.Context, record *models.JobRecord) error
	SetActiveFlag(ctx context.Context, id int64, active bool, reason string, at time.Time) error
	MarkDuplicate(ctx context.Context, id int64, canonicalID int64, at time.Time) error
}

// IngestOutcome describes what the gate did with an incoming record
type IngestOutcome string

const (
	// OutcomeInserted means no duplicate was found and the record is active
	OutcomeInserted IngestOutcome = "inserted"
	// OutcomeDuplicate means an existing record won and the new one is stored inactive
	OutcomeDuplicate IngestOutcome = "duplicate"
	// OutcomeReplaced means the new record won and the existing one was deactivated
	OutcomeReplaced IngestOutcome = "replaced"
)

// IngestResult reports one gate decision
type IngestResult struct {
	Record     *models.JobRecord `json:"record" yaml:"record"`
	Outcome    IngestOutcome     `json:"outcome" yaml:"outcome"`
	MatchID    int64             `json:"matchId,omitempty" yaml:"matchId,omitempty"`
	Similarity float64           `json:"similarity,omitempty" yaml:"similarity,omitempty"`
	Reason     string            `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// IngestService is the ingest-time duplicate gate in front of the store
type IngestService struct {
	store IngestStore
	opts  dedup.Options
	now   func() time.Time
}

// NewIngestService creates an ingest service
func NewIngestService(store IngestStore, opts dedup.Options) *IngestService {
	return &IngestService{
		store: store,
		opts:  opts,
		now:   time.Now,
	}
}

// Ingest checks record against active records of the same company and stores
// it. When a duplicate exists, the record ChooseBestDuplicate prefers stays
// active and the other is stored inactive pointing at it. A re-crawl of a
// stored listing takes the same decision, flipping the stored row if needed.
func (s *IngestService) Ingest(ctx context.Context, record *models.JobRecord) (*IngestResult, error) {
	if record == nil {
		return nil, apperrors.NewInvalidParameterError("record", "record is required")
	}
	if strings.TrimSpace(record.Title) == "" {
		return nil, apperrors.NewInvalidParameterError("title", "title is required")
	}

	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"source": record.Source,
		"url":    record.URL,
	})

	record.CompanyKey = normalize.CompanyKey(record.Company)
	record.DedupKey = dedup.GenerateDedupKey(record)

	var candidates []*models.JobRecord
	if record.CompanyKey != "" {
		var err error
		candidates, err = s.store.ListActive(ctx, models.ListFilter{CompanyKey: record.CompanyKey})
		if err != nil {
			return nil, apperrors.NewStoreError("list candidates", err)
		}
	}

	check := dedup.CheckDuplicate(record, sameListing(record, candidates), s.opts)
	if !check.IsDuplicate {
		s.activate(record)
		if err := s.store.Upsert(ctx, record); err != nil {
			return nil, apperrors.NewStoreError("insert record", err)
		}
		if err := s.reactivate(ctx, record, s.now(), logger); err != nil {
			return nil, err
		}
		logger.WithField("id", record.ID).Debug("Record inserted")
		return &IngestResult{Record: record, Outcome: OutcomeInserted}, nil
	}

	match := check.Match
	result := &IngestResult{
		Record:     record,
		MatchID:    match.ID,
		Similarity: check.Similarity,
		Reason:     check.Reason,
	}
	now := s.now()

	if dedup.ChooseBestDuplicate([]*models.JobRecord{match, record}) == match {
		markDuplicateOf(record, match.ID, now)
		if err := s.store.Upsert(ctx, record); err != nil {
			return nil, apperrors.NewStoreError("insert duplicate", err)
		}
		// Upsert keeps the stored flag of a re-crawled row
		if record.IsActive {
			if err := s.store.MarkDuplicate(ctx, record.ID, match.ID, now); err != nil {
				return nil, apperrors.NewStoreError(fmt.Sprintf("demote record %d", record.ID), err)
			}
			markDuplicateOf(record, match.ID, now)
		}
		result.Outcome = OutcomeDuplicate
		logger.WithFields(map[string]interface{}{
			"id":          record.ID,
			"canonicalId": match.ID,
		}).Info("Incoming record stored as duplicate")
		return result, nil
	}

	s.activate(record)
	if err := s.store.Upsert(ctx, record); err != nil {
		return nil, apperrors.NewStoreError("insert record", err)
	}
	if err := s.reactivate(ctx, record, now, logger); err != nil {
		return nil, err
	}
	if err := s.store.MarkDuplicate(ctx, match.ID, record.ID, now); err != nil {
		logger.WithFields(map[string]interface{}{
			"canonicalId": record.ID,
			"matchId":     match.ID,
		}).WithError(err).Error("Failed to demote replaced record, both stay active until the next dedup sweep")
		return nil, apperrors.NewStoreError(fmt.Sprintf("demote record %d", match.ID), err)
	}
	result.Outcome = OutcomeReplaced
	logger.WithFields(map[string]interface{}{
		"id":         record.ID,
		"replacedId": match.ID,
	}).Info("Incoming record replaced existing duplicate")
	return result, nil
}

// reactivate applies an active decision to a re-crawled row the store kept
// inactive
func (s *IngestService) reactivate(ctx context.Context, record *models.JobRecord, now time.Time, logger *logging.Logger) error {
	if record.IsActive {
		return nil
	}
	previous := record.Reason()
	if err := s.store.SetActiveFlag(ctx, record.ID, true, "", now); err != nil {
		return apperrors.NewStoreError(fmt.Sprintf("reactivate record %d", record.ID), err)
	}
	s.activate(record)
	logger.WithFields(map[string]interface{}{
		"id":             record.ID,
		"previousReason": previous,
	}).Info("Re-crawled record reactivated")
	return nil
}

// IngestBatch runs Ingest over records in order. A failing record is logged
// and counted; the batch continues.
func (s *IngestService) IngestBatch(ctx context.Context, records []*models.JobRecord) ([]*IngestResult, int) {
	logger := logging.FromContext(ctx)
	results := make([]*IngestResult, 0, len(records))
	failed := 0

	for i, rec := range records {
		if ctx.Err() != nil {
			break
		}
		res, err := s.Ingest(ctx, rec)
		if err != nil {
			failed++
			logger.WithField("index", i).WithError(err).Warn("Failed to ingest record")
			continue
		}
		results = append(results, res)
	}
	return results, failed
}

func (s *IngestService) activate(record *models.JobRecord) {
	record.IsActive = true
	record.DeactivatedAt = nil
	record.DeactivationReason = nil
	record.CanonicalID = nil
}

func markDuplicateOf(record *models.JobRecord, canonicalID int64, at time.Time) {
	reason := types.ReasonDuplicate
	record.IsActive = false
	record.DeactivatedAt = &at
	record.DeactivationReason = &reason
	record.CanonicalID = &canonicalID
}

// sameListing drops the candidate that is the stored copy of record itself,
// so a re-crawl of an existing listing updates it instead of colliding.
func sameListing(record *models.JobRecord, candidates []*models.JobRecord) []*models.JobRecord {
	if record.URL == "" {
		return candidates
	}
	out := candidates[:0:0]
	for _, c := range candidates {
		if c != nil && c.URL == record.URL && c.Source == record.Source {
			continue
		}
		out = append(out, c)
	}
	return out
}
