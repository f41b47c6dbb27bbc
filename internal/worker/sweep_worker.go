// Package worker schedules curation sweeps inside the worker process.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/job-curator/internal/errors"
	"github.com/job-curator/internal/logging"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/types"
)

// SweepRunner executes one sweep of a kind
type SweepRunner interface {
	Run(ctx context.Context, kind types.SweepKind) (*models.SweepSummary, error)
}

// SweepWorker runs one sweep kind on an interval. Runs of the same worker
// never overlap; a run requested while one is in flight is rejected.
type SweepWorker struct {
	kind       types.SweepKind
	runner     SweepRunner
	interval   time.Duration
	runOnStart bool

	mu          sync.RWMutex
	running     bool
	inFlight    bool
	pending     bool
	cancel      context.CancelFunc
	stopCh      chan struct{}
	doneCh      chan struct{}
	triggerCh   chan struct{}
	lastRunAt   time.Time
	nextRunAt   time.Time
	lastSummary *models.SweepSummary
	lastError   string
	runs        int
}

// SweepWorkerConfig holds configuration for a sweep worker
type SweepWorkerConfig struct {
	Kind       types.SweepKind
	Runner     SweepRunner
	Interval   time.Duration
	RunOnStart bool // run once immediately instead of waiting a full interval
}

// NewSweepWorker creates a new sweep worker
func NewSweepWorker(cfg *SweepWorkerConfig) (*SweepWorker, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("sweep runner cannot be nil")
	}
	if _, err := types.ParseSweepKind(string(cfg.Kind)); err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval for %s sweep must be positive, got %v", cfg.Kind, cfg.Interval)
	}

	return &SweepWorker{
		kind:       cfg.Kind,
		runner:     cfg.Runner,
		interval:   cfg.Interval,
		runOnStart: cfg.RunOnStart,
	}, nil
}

// Kind returns the sweep kind this worker runs
func (w *SweepWorker) Kind() types.SweepKind {
	return w.kind
}

// Start begins the schedule loop
func (w *SweepWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("%s sweep worker is already running", w.kind)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.triggerCh = make(chan struct{}, 1)
	w.nextRunAt = time.Now().Add(w.interval)

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"sweep":    w.kind,
		"interval": w.interval.String(),
	}).Info("Starting sweep worker")

	go w.loop(loopCtx)

	if w.runOnStart {
		w.pending = true
		w.triggerCh <- struct{}{}
	}
	return nil
}

// Stop cancels any in-flight sweep and waits for the loop to exit
func (w *SweepWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("%s sweep worker is not running", w.kind)
	}
	stopCh, doneCh, cancel := w.stopCh, w.doneCh, w.cancel
	w.mu.Unlock()

	logger := logging.FromContext(ctx).WithField("sweep", w.kind)
	logger.Info("Stopping sweep worker")

	close(stopCh)
	cancel()

	select {
	case <-doneCh:
		logger.Info("Sweep worker stopped gracefully")
	case <-ctx.Done():
		logger.Warn("Sweep worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// Trigger queues an immediate run. It fails when the worker is stopped or
// when a run is already in flight or queued.
func (w *SweepWorker) Trigger() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return apperrors.NewInternalError(fmt.Sprintf("%s sweep worker is not running", w.kind), nil)
	}
	if w.inFlight || w.pending {
		return apperrors.NewSweepRunningError(w.kind)
	}

	w.pending = true
	w.triggerCh <- struct{}{}
	return nil
}

func (w *SweepWorker) loop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.triggerCh:
			w.runOnce(ctx)
			ticker.Reset(w.interval)
		}
	}
}

// runOnce executes a sweep and records its outcome
func (w *SweepWorker) runOnce(ctx context.Context) {
	w.mu.Lock()
	w.inFlight = true
	w.pending = false
	w.lastRunAt = time.Now()
	w.mu.Unlock()

	summary, err := w.runner.Run(ctx, w.kind)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	w.runs++
	w.nextRunAt = time.Now().Add(w.interval)
	if summary != nil {
		w.lastSummary = summary
	}
	if err != nil {
		w.lastError = err.Error()
		logging.FromContext(ctx).WithField("sweep", w.kind).WithError(err).Warn("Scheduled sweep failed")
	} else {
		w.lastError = ""
	}
}

// GetStatus returns the current status of the worker
func (w *SweepWorker) GetStatus() *SweepWorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := &SweepWorkerStatus{
		Kind:            w.kind,
		Running:         w.running,
		InFlight:        w.inFlight,
		IntervalSeconds: int(w.interval.Seconds()),
		Runs:            w.runs,
		LastSummary:     w.lastSummary,
		LastError:       w.lastError,
	}
	if !w.lastRunAt.IsZero() {
		t := w.lastRunAt
		status.LastRunAt = &t
	}
	if w.running && !w.nextRunAt.IsZero() {
		t := w.nextRunAt
		status.NextRunAt = &t
	}
	return status
}

// SweepWorkerStatus represents the current status of a sweep worker
type SweepWorkerStatus struct {
	Kind            types.SweepKind      `json:"kind"`
	Running         bool                 `json:"running"`
	InFlight        bool                 `json:"inFlight"`
	IntervalSeconds int                  `json:"intervalSeconds"`
	Runs            int                  `json:"runs"`
	LastRunAt       *time.Time           `json:"lastRunAt,omitempty"`
	NextRunAt       *time.Time           `json:"nextRunAt,omitempty"`
	LastSummary     *models.SweepSummary `json:"lastSummary,omitempty"`
	LastError       string               `json:"lastError,omitempty"`
}
