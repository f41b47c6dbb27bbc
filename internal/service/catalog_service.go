package service

import (
	"context"
	"sort"
	"strings"
	"time"

	apperrors "github.com/job-curator/internal/errors"
	"github.com/job-curator/internal/featured"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/normalize"
)

// DefaultSearchThreshold is the fuzzy similarity a search term must reach
const DefaultSearchThreshold = 0.8

// CatalogStore is the subset of the record store the catalog operations need
type CatalogStore interface {
	ListActive(ctx context.Context, filter models.ListFilter) ([]*models.JobRecord, error)
	GetByID(ctx context.Context, id int64) (*models.JobRecord, error)
	SetPinned(ctx context.Context, id int64, pinned bool) error
}

// SearchInput narrows a free-text search over active records
type SearchInput struct {
	Query     string  `json:"query"`
	Company   string  `json:"company,omitempty"`
	Source    string  `json:"source,omitempty"`
	Threshold float64 `json:"threshold,omitempty"` // default: 0.8
	Limit     int     `json:"limit,omitempty"`     // default: 20
}

// ScoreExplanation is a record's featured score broken into components
type ScoreExplanation struct {
	ID        int64                   `json:"id" yaml:"id"`
	Title     string                  `json:"title" yaml:"title"`
	Company   string                  `json:"company" yaml:"company"`
	Stored    int                     `json:"storedScore" yaml:"storedScore"`
	Breakdown featured.ScoreBreakdown `json:"breakdown" yaml:"breakdown"`
}

// CatalogService handles operator queries against the catalog
type CatalogService struct {
	store CatalogStore
	now   func() time.Time
}

// NewCatalogService creates a catalog service
func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store, now: time.Now}
}

// Search returns active records whose title or company fuzzy-matches the
// query, best title match first
func (s *CatalogService) Search(ctx context.Context, input SearchInput) ([]*models.JobRecord, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, apperrors.NewInvalidParameterError("query", "query must not be empty")
	}
	threshold := input.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSearchThreshold
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	filter := models.ListFilter{Source: input.Source}
	if input.Company != "" {
		filter.CompanyKey = normalize.CompanyKey(input.Company)
	}

	records, err := s.store.ListActive(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStoreError("search", err)
	}

	type hit struct {
		record *models.JobRecord
		score  float64
	}
	var hits []hit
	for _, rec := range records {
		if !normalize.FuzzyMatch(query, rec.Title, threshold) && !normalize.FuzzyMatch(query, rec.Company, threshold) {
			continue
		}
		hits = append(hits, hit{record: rec, score: normalize.FuzzySimilarity(query, rec.Title)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*models.JobRecord, len(hits))
	for i, h := range hits {
		out[i] = h.record
	}
	return out, nil
}

// ExplainScore recomputes a record's featured score component by component
func (s *CatalogService) ExplainScore(ctx context.Context, id int64) (*ScoreExplanation, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ScoreExplanation{
		ID:        rec.ID,
		Title:     rec.Title,
		Company:   rec.Company,
		Stored:    rec.FeaturedScore,
		Breakdown: featured.Breakdown(rec, s.now()),
	}, nil
}

// Pin sets or clears the featured pin on a record. The featured set picks
// the change up on its next refresh.
func (s *CatalogService) Pin(ctx context.Context, id int64, pinned bool) error {
	if id <= 0 {
		return apperrors.NewInvalidParameterError("id", "id must be positive")
	}
	return s.store.SetPinned(ctx, id, pinned)
}
