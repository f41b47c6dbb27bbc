package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/types"
)

type markCall struct {
	id, canonicalID int64
}

// mockStore implements Store for testing
type mockStore struct {
	records []*models.JobRecord
	listErr error
	markErr error
	marked  []markCall
}

func (m *mockStore) ListActive(ctx context.Context, filter models.ListFilter) ([]*models.JobRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records, nil
}

func (m *mockStore) MarkDuplicate(ctx context.Context, id int64, canonicalID int64, at time.Time) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.marked = append(m.marked, markCall{id: id, canonicalID: canonicalID})
	return nil
}

func sweepFixture() []*models.JobRecord {
	day := func(d int) *time.Time {
		t := time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
		return &t
	}

	aggregator := record(1, "Acme", "Backend Engineer", "Remote")
	aggregator.Source = "web3.career"
	aggregator.PostedDate = day(1)

	ats := record(2, "ACME Inc.", "Backend Developer", "Remote")
	ats.Source = "greenhouse"
	ats.PostedDate = day(2)

	designer := record(3, "Acme", "Product Designer", "Remote")
	designer.PostedDate = day(3)

	otherCompany := record(4, "Kraken", "Backend Engineer", "Remote")
	otherCompany.PostedDate = day(1)

	blank := record(5, "", "Backend Engineer", "Remote")

	return []*models.JobRecord{ats, designer, otherCompany, aggregator, blank}
}

func TestSweeper_Sweep(t *testing.T) {
	store := &mockStore{records: sweepFixture()}
	sweeper := NewSweeper(store, DefaultOptions())

	summary, err := sweeper.Sweep(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, store.marked, 1)
	assert.Equal(t, markCall{id: 1, canonicalID: 2}, store.marked[0])

	assert.Equal(t, types.SweepDedup, summary.Sweep)
	assert.Equal(t, 5, summary.Processed)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.Reasons[types.ReasonDuplicate])
	assert.False(t, summary.Interrupted)
	assert.False(t, summary.FinishedAt.IsZero())
}

func TestSweeper_ChainedDuplicatesShareCanonical(t *testing.T) {
	a := record(1, "Acme", "Backend Engineer", "Remote")
	a.Source = "indeed"
	b := record(2, "Acme", "Backend Developer", "Remote")
	b.Source = "lever"
	c := record(3, "Acme", "Backend Programmer", "Remote")
	c.Source = "web3.career"

	store := &mockStore{records: []*models.JobRecord{a, b, c}}
	summary, err := NewSweeper(store, DefaultOptions()).Sweep(context.Background(), CompanyScope)
	require.NoError(t, err)

	assert.ElementsMatch(t, []markCall{{id: 1, canonicalID: 2}, {id: 3, canonicalID: 2}}, store.marked)
	assert.Equal(t, 2, summary.Updated)
}

func TestSweeper_DedupKeyScope(t *testing.T) {
	// rewording changes the title prefix, so the narrow scope keeps both
	a := record(1, "Acme", "Senior Backend Engineer", "Remote")
	b := record(2, "Acme", "Backend Engineer Senior", "Remote")

	store := &mockStore{records: []*models.JobRecord{a, b}}
	_, err := NewSweeper(store, DefaultOptions()).Sweep(context.Background(), DedupKeyScope)
	require.NoError(t, err)
	assert.Empty(t, store.marked)

	store = &mockStore{records: []*models.JobRecord{a, b}}
	_, err = NewSweeper(store, DefaultOptions()).Sweep(context.Background(), CompanyScope)
	require.NoError(t, err)
	assert.Len(t, store.marked, 1)
}

func TestSweeper_MarkFailureIsCounted(t *testing.T) {
	store := &mockStore{records: sweepFixture(), markErr: errors.New("connection reset")}

	summary, err := NewSweeper(store, DefaultOptions()).Sweep(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Updated)
}

func TestSweeper_ListFailure(t *testing.T) {
	store := &mockStore{listErr: errors.New("db down")}

	summary, err := NewSweeper(store, DefaultOptions()).Sweep(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.NotNil(t, summary)
}

func TestSweeper_CancelledContext(t *testing.T) {
	store := &mockStore{records: sweepFixture()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := NewSweeper(store, DefaultOptions()).Sweep(ctx, nil)
	require.NoError(t, err)

	assert.True(t, summary.Interrupted)
	assert.Empty(t, store.marked)
}
