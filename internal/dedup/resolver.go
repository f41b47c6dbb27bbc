// Package dedup decides whether job records describe the same posting and
// picks the canonical record of a duplicate group.
package dedup

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/normalize"
)

// Options tune the duplicate decision
type Options struct {
	SimilarityThreshold float64
	DateWindowDays      int
}

// DefaultOptions returns the standard thresholds
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: 0.8,
		DateWindowDays:      7,
	}
}

// Result is the outcome of CheckDuplicate
type Result struct {
	IsDuplicate bool
	Similarity  float64
	Match       *models.JobRecord
	Reason      string
}

// CheckDuplicate scans candidates in order and returns the first one that
// newRecord duplicates. Filters whose inputs are missing are skipped.
func CheckDuplicate(newRecord *models.JobRecord, candidates []*models.JobRecord, opts Options) Result {
	if newRecord == nil {
		return Result{}
	}

	for _, candidate := range candidates {
		if candidate == nil || (candidate.ID != 0 && candidate.ID == newRecord.ID) {
			continue
		}
		if !normalize.SameCompany(newRecord.Company, candidate.Company) {
			continue
		}

		similarity := normalize.TitleSimilarity(newRecord.Title, candidate.Title)
		if similarity < opts.SimilarityThreshold {
			continue
		}

		if !locationsCompatible(newRecord.Location, candidate.Location) {
			continue
		}

		if newRecord.PostedDate != nil && candidate.PostedDate != nil {
			if daysApart(*newRecord.PostedDate, *candidate.PostedDate) > float64(opts.DateWindowDays) {
				continue
			}
		}

		return Result{
			IsDuplicate: true,
			Similarity:  similarity,
			Match:       candidate,
			Reason: fmt.Sprintf("same company %q, title similarity %.2f",
				normalize.CompanyKey(candidate.Company), similarity),
		}
	}

	return Result{}
}

// locationsCompatible treats a missing location on either side as unknown
func locationsCompatible(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return true
	}
	return normalize.SameLocation(a, b)
}

func daysApart(a, b time.Time) float64 {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d.Hours() / 24
}

// ChooseBestDuplicate returns the record that should stay canonical: highest
// source priority, then longest description. Ties keep input order.
func ChooseBestDuplicate(group []*models.JobRecord) *models.JobRecord {
	ranked := make([]*models.JobRecord, 0, len(group))
	for _, r := range group {
		if r != nil {
			ranked = append(ranked, r)
		}
	}
	if len(ranked) == 0 {
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := SourcePriority(ranked[i].Source), SourcePriority(ranked[j].Source)
		if pi != pj {
			return pi > pj
		}
		return len(ranked[i].Description) > len(ranked[j].Description)
	})

	return ranked[0]
}

// GenerateDedupKey builds the company|title-prefix|location bucketing key
func GenerateDedupKey(record *models.JobRecord) string {
	if record == nil {
		return "||"
	}
	return normalize.NormalizeCompany(record.Company) + "|" +
		normalize.TitlePrefix(record.Title, 3) + "|" +
		normalize.NormalizeLocation(record.Location)
}
