package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/health"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.uc.ListAgents(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, agents)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := s.uc.GetAgent(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, a)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	a, err := s.uc.Heartbeat(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, a)
}

type recordMetricRequest struct {
	Success   bool   `json:"success"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleRecordMetric(w http.ResponseWriter, r *http.Request) {
	var req recordMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, goerr.Wrap(err, "invalid metric payload", goerr.T(apperr.ErrTagInvalidInput)))
		return
	}

	name := chi.URLParam(r, "name")
	sample := health.Sample{
		AgentName: name,
		Success:   req.Success,
		Latency:   time.Duration(req.LatencyMS) * time.Millisecond,
		Error:     req.Error,
	}

	if err := s.uc.RecordMetric(r.Context(), name, sample); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusAccepted, map[string]bool{"recorded": true})
}

func (s *Server) handleAssessHealth(w http.ResponseWriter, r *http.Request) {
	assessment, err := s.uc.AssessHealth(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, assessment)
}
