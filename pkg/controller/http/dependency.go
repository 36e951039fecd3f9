package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/depgraph"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

type addDependencyRequest struct {
	Agent      string `json:"agent"`
	DependsOn  string `json:"depends_on"`
	Constraint string `json:"constraint,omitempty"`
	Relation   string `json:"relation,omitempty"`
}

func (s *Server) handleAddDependency(w http.ResponseWriter, r *http.Request) {
	var req addDependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, goerr.Wrap(err, "invalid dependency payload", goerr.T(apperr.ErrTagInvalidInput)))
		return
	}

	relation := depgraph.Relation(req.Relation)
	if req.Relation == "" {
		relation = depgraph.RelationRequires
	}

	edge := &depgraph.Edge{
		Agent:      req.Agent,
		DependsOn:  req.DependsOn,
		Constraint: req.Constraint,
		Relation:   relation,
	}
	if err := s.uc.Tracker().AddDependency(r.Context(), edge); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, edge)
}

func (s *Server) handleExportDependencies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, s.uc.Tracker().Export())
}

func (s *Server) handleDetectCycles(w http.ResponseWriter, r *http.Request) {
	cycles := s.uc.Tracker().DetectCycles()
	respondJSON(w, r, http.StatusOK, map[string]any{
		"cycles": cycles,
		"count":  len(cycles),
	})
}
