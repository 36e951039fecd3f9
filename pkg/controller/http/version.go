package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
	"github.com/m-mizutani/oracle/pkg/service/ledger"
)

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
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

	records, err := s.uc.Ledger().History(r.Context(), chi.URLParam(r, "name"), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, records)
}

type createVersionRequest struct {
	ChangeType      string   `json:"change_type"`
	Description     string   `json:"description"`
	BreakingChanges []string `json:"breaking_changes,omitempty"`
	Artifact        []byte   `json:"artifact,omitempty"`
}

func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	var req createVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, goerr.Wrap(err, "invalid version payload", goerr.T(apperr.ErrTagInvalidInput)))
		return
	}

	rec, err := s.uc.Ledger().CreateVersion(r.Context(), &ledger.CreateVersionInput{
		AgentName:       chi.URLParam(r, "name"),
		ChangeType:      version.ChangeType(req.ChangeType),
		Description:     req.Description,
		BreakingChanges: req.BreakingChanges,
		Artifact:        req.Artifact,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, rec)
}

type rollbackRequest struct {
	TargetVersion string `json:"target_version"`
	Force         bool   `json:"force"`
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, goerr.Wrap(err, "invalid rollback payload", goerr.T(apperr.ErrTagInvalidInput)))
		return
	}

	result, err := s.uc.Ledger().Rollback(r.Context(), chi.URLParam(r, "name"), req.TargetVersion, req.Force)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleEmergencyRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, goerr.Wrap(err, "invalid rollback payload", goerr.T(apperr.ErrTagInvalidInput)))
		return
	}

	result, err := s.uc.EmergencyRollback(r.Context(), chi.URLParam(r, "name"), req.TargetVersion)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleAnalyzeImpact(w http.ResponseWriter, r *http.Request) {
	newVersion := r.URL.Query().Get("new_version")
	if newVersion == "" {
		handleError(w, r, goerr.New("new_version query parameter is required",
			goerr.T(apperr.ErrTagRequiredField)))
		return
	}

	impact, err := s.uc.AnalyzeImpact(r.Context(), chi.URLParam(r, "name"), newVersion)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, impact)
}

type planRolloutRequest struct {
	NewVersion string `json:"new_version"`
}

func (s *Server) handlePlanRollout(w http.ResponseWriter, r *http.Request) {
	var req planRolloutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, goerr.Wrap(err, "invalid rollout payload", goerr.T(apperr.ErrTagInvalidInput)))
		return
	}

	plan, err := s.uc.PlanVersionUpdate(r.Context(), chi.URLParam(r, "name"), req.NewVersion)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, plan)
}
