package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/oracle/pkg/usecase"
	"github.com/m-mizutani/oracle/pkg/utils/safe"
)

// Server translates HTTP requests onto coordinator calls. Every handler
// is a thin adapter: decode, delegate, encode.
type Server struct {
	router *chi.Mux
	uc     *usecase.Coordinator
}

// Options is a functional option for Server
type Options func(*Server)

// WithCoordinator sets the coordinator use cases
func WithCoordinator(uc *usecase.Coordinator) Options {
	return func(s *Server) {
		s.uc = uc
	}
}

// New creates a new HTTP server
func New(opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Apply middleware
	r.Use(loggingMiddleware)
	r.Use(panicRecoveryMiddleware)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/agents", s.handleListAgents)
		r.Route("/agents/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetAgent)
			r.Post("/heartbeat", s.handleHeartbeat)
			r.Post("/metrics", s.handleRecordMetric)
			r.Get("/health", s.handleAssessHealth)
			r.Get("/versions", s.handleListVersions)
			r.Post("/versions", s.handleCreateVersion)
			r.Post("/rollback", s.handleRollback)
			r.Post("/emergency-rollback", s.handleEmergencyRollback)
			r.Get("/impact", s.handleAnalyzeImpact)
			r.Post("/rollout-plan", s.handlePlanRollout)
			r.Post("/heal", s.handleHeal)
			r.Get("/proposals", s.handleListProposals)
		})

		r.Post("/dependencies", s.handleAddDependency)
		r.Get("/dependencies", s.handleExportDependencies)
		r.Get("/cycles", s.handleDetectCycles)

		r.Post("/tasks/plan", s.handlePlanTask)
		r.Post("/scan", s.handleScan)

		r.Get("/alerts", s.handleListAlerts)
		r.Post("/alerts/{id}/ack", s.handleAcknowledgeAlert)

		r.Route("/proposals/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetProposal)
			r.Post("/approve", s.handleApproveProposal)
			r.Post("/apply", s.handleApplyProposal)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		safe.Write(r.Context(), w, []byte("OK"))
	})

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
