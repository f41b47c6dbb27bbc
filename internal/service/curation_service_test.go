package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/job-curator/internal/dedup"
	apperrors "github.com/job-curator/internal/errors"
	"github.com/job-curator/internal/featured"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/types"
)

var sweepStart = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeDedup struct {
	runIDs []string
	scope  dedup.ScopeFunc
	err    error
}

func (f *fakeDedup) Sweep(ctx context.Context, scope dedup.ScopeFunc) (*models.SweepSummary, error) {
	f.runIDs = append(f.runIDs, types.RunIDFromContext(ctx))
	f.scope = scope
	s := models.NewSweepSummary(types.SweepDedup, sweepStart)
	s.Processed = 10
	s.AddReason(types.ReasonDuplicate, 2)
	return s.Finish(sweepStart.Add(time.Second)), f.err
}

type fakeRefresher struct {
	limits []int
}

func (f *fakeRefresher) Refresh(ctx context.Context, limit int) (*featured.Result, error) {
	f.limits = append(f.limits, limit)
	s := models.NewSweepSummary(types.SweepFeatured, sweepStart)
	return &featured.Result{Summary: s.Finish(sweepStart), Winners: []int64{3, 1}}, nil
}

type fakeChecker struct {
	expireArgs  [][2]int
	restoreArgs []int
	expireErr   error
}

func (f *fakeChecker) ExpireSweep(ctx context.Context, maxAgeDays, probeLimit int) (*models.SweepSummary, error) {
	f.expireArgs = append(f.expireArgs, [2]int{maxAgeDays, probeLimit})
	if f.expireErr != nil {
		return models.NewSweepSummary(types.SweepExpire, sweepStart).Finish(sweepStart), f.expireErr
	}
	return models.NewSweepSummary(types.SweepExpire, sweepStart).Finish(sweepStart), nil
}

func (f *fakeChecker) RestoreSweep(ctx context.Context, limit int) (*models.SweepSummary, error) {
	f.restoreArgs = append(f.restoreArgs, limit)
	return models.NewSweepSummary(types.SweepRestore, sweepStart).Finish(sweepStart), nil
}

type recordingAuditor struct {
	mu       sync.Mutex
	failures []error // returned in order before succeeding
	calls    int
	recorded []*models.SweepSummary
}

func (a *recordingAuditor) RecordSweep(ctx context.Context, summary *models.SweepSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if len(a.failures) > 0 {
		err := a.failures[0]
		a.failures = a.failures[1:]
		return err
	}
	a.recorded = append(a.recorded, summary)
	return nil
}

type fakeLocker struct {
	held     map[types.SweepKind]bool
	released []types.SweepKind
}

func (l *fakeLocker) Acquire(ctx context.Context, sweep types.SweepKind) (func(context.Context) error, error) {
	if l.held[sweep] {
		return nil, apperrors.NewSweepRunningError(sweep)
	}
	return func(context.Context) error {
		l.released = append(l.released, sweep)
		return nil
	}, nil
}

func newTestCuration(auditor SweepAuditor, locker SweepLocker) (*CurationService, *fakeDedup, *fakeRefresher, *fakeChecker) {
	d, r, c := &fakeDedup{}, &fakeRefresher{}, &fakeChecker{}
	svc := NewCurationService(d, r, c, auditor, locker, SweepDefaults{
		DedupScope:    dedup.DedupKeyScope,
		FeaturedLimit: 8,
		MaxAgeDays:    45,
		ProbeLimit:    150,
		RestoreLimit:  60,
	})
	svc.auditRetry.InitialDelay = time.Millisecond
	svc.auditRetry.MaxDelay = 5 * time.Millisecond

	n := 0
	svc.newRunID = func() string {
		n++
		return "run-" + string(rune('0'+n))
	}
	return svc, d, r, c
}

func TestCurationService_DedupSweep(t *testing.T) {
	auditor := &recordingAuditor{}
	svc, d, _, _ := newTestCuration(auditor, nil)

	summary, err := svc.DedupSweep(context.Background(), dedup.CompanyScope)
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, []string{"run-1"}, d.runIDs, "run id is visible to the sweep")
	assert.Equal(t, 2, summary.Updated)

	require.Len(t, auditor.recorded, 1)
	assert.Equal(t, "run-1", auditor.recorded[0].RunID)
}

func TestCurationService_AuditRetry(t *testing.T) {
	auditor := &recordingAuditor{failures: []error{
		apperrors.NewAuditError("send sweep", errors.New("connection reset")),
		apperrors.NewAuditError("send sweep", errors.New("connection reset")),
	}}
	svc, _, _, _ := newTestCuration(auditor, nil)

	summary, err := svc.RestoreSweep(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 3, auditor.calls)
	assert.Len(t, auditor.recorded, 1)
}

func TestCurationService_AuditFailureDoesNotFailSweep(t *testing.T) {
	t.Run("retryable errors exhaust attempts", func(t *testing.T) {
		fail := apperrors.NewAuditError("send sweep", errors.New("down"))
		auditor := &recordingAuditor{failures: []error{fail, fail, fail, fail}}
		svc, _, _, _ := newTestCuration(auditor, nil)

		summary, err := svc.ExpireSweep(context.Background(), 30, 10)
		require.NoError(t, err)
		assert.NotNil(t, summary)
		assert.Equal(t, 3, auditor.calls)
		assert.Empty(t, auditor.recorded)
	})

	t.Run("non-retryable error is attempted once", func(t *testing.T) {
		auditor := &recordingAuditor{failures: []error{errors.New("bad schema")}}
		svc, _, _, _ := newTestCuration(auditor, nil)

		_, err := svc.ExpireSweep(context.Background(), 30, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, auditor.calls)
	})
}

func TestCurationService_SweepErrorStillAudited(t *testing.T) {
	auditor := &recordingAuditor{}
	svc, _, _, c := newTestCuration(auditor, nil)
	c.expireErr = errors.New("store unavailable")

	summary, err := svc.ExpireSweep(context.Background(), 30, 10)
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Len(t, auditor.recorded, 1)
}

func TestCurationService_Locking(t *testing.T) {
	locker := &fakeLocker{held: map[types.SweepKind]bool{types.SweepDedup: true}}
	svc, d, _, c := newTestCuration(nil, locker)

	_, err := svc.DedupSweep(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, "SWEEP_RUNNING", apperrors.Categorize(err).Code)
	assert.Empty(t, d.runIDs, "sweep must not run without the lock")

	_, err = svc.RestoreSweep(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, c.restoreArgs)
	assert.Equal(t, []types.SweepKind{types.SweepRestore}, locker.released)
}

func TestCurationService_Run(t *testing.T) {
	auditor := &recordingAuditor{}
	svc, d, r, c := newTestCuration(auditor, nil)
	ctx := context.Background()

	for _, kind := range types.AllSweepKinds {
		summary, err := svc.Run(ctx, kind)
		require.NoError(t, err, kind)
		require.NotNil(t, summary, kind)
		assert.Equal(t, kind, summary.Sweep)
		assert.NotEmpty(t, summary.RunID)
	}

	assert.NotNil(t, d.scope)
	assert.Equal(t, []int{8}, r.limits)
	assert.Equal(t, [][2]int{{45, 150}}, c.expireArgs)
	assert.Equal(t, []int{60}, c.restoreArgs)
	assert.Len(t, auditor.recorded, 4)

	_, err := svc.Run(ctx, types.SweepKind("reindex"))
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetHTTPStatusCode(err))
}

func TestCurationService_RefreshFeatured(t *testing.T) {
	svc, _, r, _ := newTestCuration(nil, nil)

	result, err := svc.RefreshFeatured(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []int64{3, 1}, result.Winners)
	assert.Equal(t, "run-1", result.Summary.RunID)
	assert.Equal(t, []int{3}, r.limits)
}
