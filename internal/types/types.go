// Package types provides common type definitions for the job curation pipeline.
package types

import (
	"context"
	"fmt"
)

// SweepKind identifies one of the batch curation passes
type SweepKind string

const (
	// SweepDedup collapses duplicate active records onto a canonical record
	SweepDedup SweepKind = "dedup"
	// SweepFeatured recomputes scores and the featured set
	SweepFeatured SweepKind = "featured"
	// SweepExpire deactivates stale and dead listings
	SweepExpire SweepKind = "expire"
	// SweepRestore reactivates listings whose probes pass again
	SweepRestore SweepKind = "restore"
)

// AllSweepKinds lists every sweep in scheduling order
var AllSweepKinds = []SweepKind{SweepDedup, SweepFeatured, SweepExpire, SweepRestore}

// ParseSweepKind converts a string into a SweepKind
func ParseSweepKind(s string) (SweepKind, error) {
	for _, k := range AllSweepKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sweep kind: %s", s)
}

// ProbeVerdict is the outcome of a liveness probe
type ProbeVerdict string

const (
	// VerdictValid means the listing page looks open
	VerdictValid ProbeVerdict = "valid"
	// VerdictExpired means the listing is unambiguously gone or closed
	VerdictExpired ProbeVerdict = "expired"
	// VerdictUnknown means the probe was inconclusive; the record is left as is
	VerdictUnknown ProbeVerdict = "unknown"
)

// Deactivation reasons
const (
	ReasonDeadlinePassed   = "deadline_passed"
	ReasonBrokenURL        = "broken_url"
	ReasonClosedText       = "closed_text"
	ReasonConnectionFailed = "connection_failed"
	ReasonDuplicate        = "duplicate"
)

// ExpiredAfterDaysReason builds the age-based deactivation reason
func ExpiredAfterDaysReason(days int) string {
	return fmt.Sprintf("expired_%d_days", days)
}

// NetworkReasons are the deactivation reasons a restore sweep may reverse
var NetworkReasons = []string{ReasonBrokenURL, ReasonClosedText, ReasonConnectionFailed}

// IsNetworkReason reports whether reason came from a liveness probe
func IsNetworkReason(reason string) bool {
	for _, r := range NetworkReasons {
		if r == reason {
			return true
		}
	}
	return false
}

type runIDKey struct{}

// WithRunID tags ctx with the id of the sweep run it belongs to
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the sweep run id or an empty string
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
