package dedup

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/normalize"
)

func datePtr(t time.Time) *time.Time {
	return &t
}

func record(id int64, company, title, location string) *models.JobRecord {
	return &models.JobRecord{
		ID:       id,
		Company:  company,
		Title:    title,
		Location: location,
		IsActive: true,
	}
}

func TestCheckDuplicate_SynonymScenario(t *testing.T) {
	posted := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	existing := record(1, "Acme Labs", "Senior Solidity Developer", "Remote")
	existing.PostedDate = datePtr(posted)

	incoming := record(2, "ACME Inc.", "Sr. Solidity Engineer", "Remote - Worldwide")
	incoming.PostedDate = datePtr(posted.AddDate(0, 0, 5))

	result := CheckDuplicate(incoming, []*models.JobRecord{existing}, DefaultOptions())

	require.True(t, result.IsDuplicate)
	assert.Equal(t, 1.0, result.Similarity)
	assert.Same(t, existing, result.Match)
	assert.NotEmpty(t, result.Reason)
}

func TestCheckDuplicate_Filters(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		candidate *models.JobRecord
		incoming  *models.JobRecord
		want      bool
	}{
		{
			name:      "different company",
			candidate: record(1, "Kraken", "Rust Engineer", "Remote"),
			incoming:  record(2, "Coinbase", "Rust Engineer", "Remote"),
			want:      false,
		},
		{
			name:      "title below threshold",
			candidate: record(1, "Acme", "Rust Engineer", "Remote"),
			incoming:  record(2, "Acme", "Senior Rust Engineer", "Remote"),
			want:      false,
		},
		{
			name:      "different location",
			candidate: record(1, "Acme", "Rust Engineer", "Berlin"),
			incoming:  record(2, "Acme", "Rust Engineer", "London"),
			want:      false,
		},
		{
			name:      "blank location skips the filter",
			candidate: record(1, "Acme", "Rust Engineer", ""),
			incoming:  record(2, "Acme", "Rust Engineer", "London"),
			want:      true,
		},
		{
			name: "outside date window",
			candidate: func() *models.JobRecord {
				r := record(1, "Acme", "Rust Engineer", "Remote")
				r.PostedDate = datePtr(base)
				return r
			}(),
			incoming: func() *models.JobRecord {
				r := record(2, "Acme", "Rust Engineer", "Remote")
				r.PostedDate = datePtr(base.AddDate(0, 0, 8))
				return r
			}(),
			want: false,
		},
		{
			name: "missing date never disqualifies",
			candidate: func() *models.JobRecord {
				r := record(1, "Acme", "Rust Engineer", "Remote")
				r.PostedDate = datePtr(base)
				return r
			}(),
			incoming: record(2, "Acme", "Rust Engineer", "Remote"),
			want:     true,
		},
		{
			name:      "alias entry matches",
			candidate: record(1, "Payward", "Rust Engineer", "Remote"),
			incoming:  record(2, "Kraken", "Rust Engineer", "Remote"),
			want:      true,
		},
		{
			name:      "blank companies never match",
			candidate: record(1, "", "Rust Engineer", "Remote"),
			incoming:  record(2, "", "Rust Engineer", "Remote"),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckDuplicate(tt.incoming, []*models.JobRecord{tt.candidate}, DefaultOptions())
			assert.Equal(t, tt.want, result.IsDuplicate)
			if !tt.want {
				assert.Nil(t, result.Match)
			}
		})
	}
}

func TestCheckDuplicate_FirstMatchWins(t *testing.T) {
	first := record(1, "Acme", "Backend Engineer", "Remote")
	second := record(2, "Acme", "Backend Engineer", "Remote")
	incoming := record(3, "Acme", "Backend Engineer", "Remote")

	result := CheckDuplicate(incoming, []*models.JobRecord{nil, first, second}, DefaultOptions())

	require.True(t, result.IsDuplicate)
	assert.Same(t, first, result.Match)
}

func TestCheckDuplicate_IgnoresSelfAndNil(t *testing.T) {
	self := record(7, "Acme", "Backend Engineer", "Remote")

	assert.False(t, CheckDuplicate(self, []*models.JobRecord{self}, DefaultOptions()).IsDuplicate)
	assert.False(t, CheckDuplicate(nil, []*models.JobRecord{self}, DefaultOptions()).IsDuplicate)
	assert.False(t, CheckDuplicate(self, nil, DefaultOptions()).IsDuplicate)
}

func TestChooseBestDuplicate(t *testing.T) {
	web3 := record(1, "Acme", "Rust Engineer", "Remote")
	web3.Source = "web3.career"
	web3.Description = "a much longer description than the greenhouse one"

	greenhouse := record(2, "Acme", "Rust Engineer", "Remote")
	greenhouse.Source = "greenhouse"

	assert.Same(t, greenhouse, ChooseBestDuplicate([]*models.JobRecord{web3, greenhouse}))

	unknownShort := record(3, "Acme", "Rust Engineer", "Remote")
	unknownShort.Source = "my-crawler"
	unknownShort.Description = "short"
	unknownLong := record(4, "Acme", "Rust Engineer", "Remote")
	unknownLong.Source = "other-crawler"
	unknownLong.Description = "considerably longer"

	assert.Same(t, unknownLong, ChooseBestDuplicate([]*models.JobRecord{unknownShort, unknownLong}))

	tieA := record(5, "Acme", "Rust Engineer", "Remote")
	tieB := record(6, "Acme", "Rust Engineer", "Remote")
	assert.Same(t, tieA, ChooseBestDuplicate([]*models.JobRecord{tieA, tieB}))

	assert.Nil(t, ChooseBestDuplicate(nil))
	assert.Nil(t, ChooseBestDuplicate([]*models.JobRecord{nil}))
}

func TestSourcePriority(t *testing.T) {
	assert.Equal(t, 100, SourcePriority("greenhouse"))
	assert.Equal(t, 100, SourcePriority("boards.Greenhouse.io"))
	assert.Equal(t, 95, SourcePriority("jobs.lever.co"))
	assert.Equal(t, 50, SourcePriority("Web3.Career"))
	assert.Equal(t, UnknownSourcePriority, SourcePriority("some-forum"))
	assert.Equal(t, UnknownSourcePriority, SourcePriority(""))
	assert.Greater(t, SourcePriority("greenhouse"), SourcePriority("web3.career"))
}

func TestGenerateDedupKey(t *testing.T) {
	r := record(1, "Acme Inc.", "Sr. Backend Engineer - Acme", "NYC")
	assert.Equal(t, "acme|senior backend engineer|new york", GenerateDedupKey(r))

	assert.Equal(t, "||", GenerateDedupKey(&models.JobRecord{}))
	assert.Equal(t, "||", GenerateDedupKey(nil))
}

func TestCheckDuplicateProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("never a duplicate when companies differ", prop.ForAll(
		func(companyA, companyB, title string) bool {
			if normalize.SameCompany(companyA, companyB) {
				return true
			}
			incoming := record(1, companyA, title, "Remote")
			candidate := record(2, companyB, title, "Remote")
			return !CheckDuplicate(incoming, []*models.JobRecord{candidate}, DefaultOptions()).IsDuplicate
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("same company and title is always a duplicate", prop.ForAll(
		func(company, title string) bool {
			incoming := record(1, company, title, "")
			candidate := record(2, company, title, "")
			return CheckDuplicate(incoming, []*models.JobRecord{candidate}, DefaultOptions()).IsDuplicate
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
