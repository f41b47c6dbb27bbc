package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/job-curator/internal/config"
	apperrors "github.com/job-curator/internal/errors"
	"github.com/job-curator/internal/types"
)

// Scheduler owns one SweepWorker per enabled sweep kind
type Scheduler struct {
	workers map[types.SweepKind]*SweepWorker
	order   []types.SweepKind
}

// NewScheduler builds workers for every sweep kind with a positive interval
func NewScheduler(runner SweepRunner, cfg config.WorkerConfig) (*Scheduler, error) {
	intervals := map[types.SweepKind]time.Duration{
		types.SweepDedup:    cfg.DedupInterval,
		types.SweepFeatured: cfg.FeaturedInterval,
		types.SweepExpire:   cfg.ExpireInterval,
		types.SweepRestore:  cfg.RestoreInterval,
	}

	s := &Scheduler{workers: make(map[types.SweepKind]*SweepWorker)}
	for _, kind := range types.AllSweepKinds {
		interval := intervals[kind]
		if interval <= 0 {
			continue
		}
		w, err := NewSweepWorker(&SweepWorkerConfig{
			Kind:     kind,
			Runner:   runner,
			Interval: interval,
		})
		if err != nil {
			return nil, err
		}
		s.workers[kind] = w
		s.order = append(s.order, kind)
	}
	return s, nil
}

// Start starts every worker
func (s *Scheduler) Start(ctx context.Context) error {
	for _, kind := range s.order {
		if err := s.workers[kind].Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s worker: %w", kind, err)
		}
	}
	return nil
}

// Stop stops every worker and returns the joined errors
func (s *Scheduler) Stop(ctx context.Context) error {
	var errs []error
	for _, kind := range s.order {
		if err := s.workers[kind].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

// Statuses returns worker statuses in scheduling order
func (s *Scheduler) Statuses() []*SweepWorkerStatus {
	out := make([]*SweepWorkerStatus, 0, len(s.order))
	for _, kind := range s.order {
		out = append(out, s.workers[kind].GetStatus())
	}
	return out
}

// Trigger queues an immediate run of kind
func (s *Scheduler) Trigger(kind types.SweepKind) error {
	w, ok := s.workers[kind]
	if !ok {
		return apperrors.NewNotFoundError("sweep worker", string(kind))
	}
	return w.Trigger()
}
