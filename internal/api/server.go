// Package api provides the ops HTTP endpoint of the worker process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/job-curator/internal/circuitbreaker"
	"github.com/job-curator/internal/logging"
	"github.com/job-curator/internal/models"
	"github.com/job-curator/internal/types"
	"github.com/job-curator/internal/worker"
)

// SweepController exposes the scheduled sweep workers
type SweepController interface {
	Statuses() []*worker.SweepWorkerStatus
	Trigger(kind types.SweepKind) error
}

// SweepHistory reads past sweep summaries from the audit store
type SweepHistory interface {
	RecentSweeps(ctx context.Context, sweep types.SweepKind, limit int) ([]*models.SweepSummary, error)
}

// CircuitStats reports probe circuit breakers that are not closed
type CircuitStats interface {
	Stats() map[string]*circuitbreaker.Stats
}

// Pinger is a dependency the health check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the server reads from. History and
// Circuits may be nil; their routes are then not registered.
type Dependencies struct {
	Sweeps   SweepController
	History  SweepHistory
	Circuits CircuitStats
	Pingers  map[string]Pinger
}

// Server represents the ops HTTP server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	deps       Dependencies
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	HealthTimeout     time.Duration
	RequestsPerSecond int // per client address
}

// DefaultServerConfig returns timeouts suited to a small internal endpoint
func DefaultServerConfig(host, port string) *ServerConfig {
	return &ServerConfig{
		Host:              host,
		Port:              port,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		HealthTimeout:     3 * time.Second,
		RequestsPerSecond: 5,
	}
}

// NewServer creates a new ops server instance.
func NewServer(config *ServerConfig, deps Dependencies) *Server {
	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
		config: config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	if s.config.RequestsPerSecond > 0 {
		s.router.Use(RateLimitMiddleware(NewRateLimiter(s.config.RequestsPerSecond)))
	}
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all ops routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/sweeps", s.handleListSweeps).Methods("GET")
	s.router.HandleFunc("/sweeps/{kind}/run", s.handleRunSweep).Methods("POST")
	if s.deps.History != nil {
		s.router.HandleFunc("/sweeps/history", s.handleSweepHistory).Methods("GET")
	}
	if s.deps.Circuits != nil {
		s.router.HandleFunc("/probes/circuits", s.handleCircuits).Methods("GET")
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Starting ops server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down ops server...")
	return s.httpServer.Shutdown(ctx)
}
