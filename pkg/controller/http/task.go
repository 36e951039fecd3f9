package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/fleet"
	"github.com/m-mizutani/oracle/pkg/domain/types"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

type planTaskRequest struct {
	Description    string   `json:"description"`
	RequiredAgents []string `json:"required_agents"`
	Priority       string   `json:"priority,omitempty"`
}

func (s *Server) handlePlanTask(w http.ResponseWriter, r *http.Request) {
	var req planTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, goerr.Wrap(err, "invalid task payload", goerr.T(apperr.ErrTagInvalidInput)))
		return
	}

	plan, err := s.uc.PlanMultiAgentTask(r.Context(), req.Description, req.RequiredAgents, fleet.TaskPriority(req.Priority))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, plan)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	report, err := s.uc.ScanFleet(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, report)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			handleError(w, r, goerr.New("limit must be a non-negative integer",
				goerr.T(apperr.ErrTagInvalidInput), goerr.V("limit", raw)))
			return
		}
		limit = parsed
	}

	alerts, err := s.uc.ListAlerts(r.Context(), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, alerts)
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := types.AlertID(chi.URLParam(r, "id"))
	if err := s.uc.AcknowledgeAlert(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]bool{"acknowledged": true})
}
