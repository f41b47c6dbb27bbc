package models

import (
	"time"

	"github.com/job-curator/internal/types"
)

// SweepSummary is the externally observable result of a batch sweep
type SweepSummary struct {
	RunID       string          `json:"runId" yaml:"runId"`
	Sweep       types.SweepKind `json:"sweep" yaml:"sweep"`
	StartedAt   time.Time       `json:"startedAt" yaml:"startedAt"`
	FinishedAt  time.Time       `json:"finishedAt" yaml:"finishedAt"`
	Processed   int             `json:"processed" yaml:"processed"`
	Updated     int             `json:"updated" yaml:"updated"`
	Skipped     int             `json:"skipped" yaml:"skipped"`
	Failed      int             `json:"failed" yaml:"failed"`
	Reasons     map[string]int  `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Interrupted bool            `json:"interrupted" yaml:"interrupted"`
}

// NewSweepSummary starts a summary for the given sweep
func NewSweepSummary(kind types.SweepKind, startedAt time.Time) *SweepSummary {
	return &SweepSummary{
		Sweep:     kind,
		StartedAt: startedAt,
		Reasons:   make(map[string]int),
	}
}

// AddReason counts one record updated for reason
func (s *SweepSummary) AddReason(reason string, n int) {
	if n <= 0 {
		return
	}
	if s.Reasons == nil {
		s.Reasons = make(map[string]int)
	}
	s.Reasons[reason] += n
	s.Updated += n
}

// Finish stamps the end time
func (s *SweepSummary) Finish(at time.Time) *SweepSummary {
	s.FinishedAt = at
	return s
}

// Duration returns how long the sweep ran
func (s *SweepSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// ProbeRecord is one liveness probe outcome, kept for audit
type ProbeRecord struct {
	RunID      string             `json:"runId"`
	JobID      int64              `json:"jobId"`
	URL        string             `json:"url"`
	Host       string             `json:"host"`
	Verdict    types.ProbeVerdict `json:"verdict"`
	Reason     string             `json:"reason,omitempty"`
	StatusCode int                `json:"statusCode"`
	Error      string             `json:"error,omitempty"`
	ProbedAt   time.Time          `json:"probedAt"`
	Duration   time.Duration      `json:"duration"`
}
