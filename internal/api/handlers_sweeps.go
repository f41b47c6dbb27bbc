package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/job-curator/internal/circuitbreaker"
	"github.com/job-curator/internal/types"
)

const maxHistoryLimit = 200

// handleHealth pings every dependency and reports 503 when any is down
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.HealthTimeout)
	defer cancel()

	checks := make(map[string]string, len(s.deps.Pingers))
	healthy := true
	for name, p := range s.deps.Pingers {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status":  status,
		"service": "job-curator",
		"checks":  checks,
	})
}

// handleListSweeps returns the status of every scheduled sweep
func (s *Server) handleListSweeps(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sweeps": s.deps.Sweeps.Statuses(),
	})
}

// handleRunSweep queues an immediate run of one sweep kind
func (s *Server) handleRunSweep(w http.ResponseWriter, r *http.Request) {
	kind, err := types.ParseSweepKind(mux.Vars(r)["kind"])
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	if err := s.deps.Sweeps.Trigger(kind); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"sweep":  kind,
		"status": "queued",
	})
}

// handleSweepHistory returns recent audited sweep summaries
func (s *Server) handleSweepHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var kind types.SweepKind
	if raw := query.Get("kind"); raw != "" {
		parsed, err := types.ParseSweepKind(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), nil)
			return
		}
		kind = parsed
	}

	limit := 20
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "limit must be between 1 and 200", map[string]interface{}{
				"limit": raw,
			})
			return
		}
		limit = n
	}

	summaries, err := s.deps.History.RecentSweeps(r.Context(), kind, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sweeps": summaries,
		"count":  len(summaries),
	})
}

// handleCircuits lists probe hosts whose circuit is open or half-open
func (s *Server) handleCircuits(w http.ResponseWriter, r *http.Request) {
	stats := s.deps.Circuits.Stats()

	circuits := make([]*circuitbreaker.Stats, 0, len(stats))
	for _, st := range stats {
		circuits = append(circuits, st)
	}
	sort.Slice(circuits, func(i, j int) bool {
		return circuits[i].Name < circuits[j].Name
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"circuits": circuits,
	})
}
