package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/types"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

type healRequest struct {
	Issue   string            `json:"issue"`
	Context map[string]string `json:"context,omitempty"`
}

func (s *Server) handleHeal(w http.ResponseWriter, r *http.Request) {
	var req healRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, r, goerr.Wrap(err, "invalid heal payload", goerr.T(apperr.ErrTagInvalidInput)))
		return
	}

	proposal, err := s.uc.Heal(r.Context(), chi.URLParam(r, "name"), req.Issue, req.Context)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, proposal)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.uc.Engine().ListProposals(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, proposals)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposal, err := s.uc.Engine().GetProposal(r.Context(), types.ProposalID(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, proposal)
}

func (s *Server) handleApproveProposal(w http.ResponseWriter, r *http.Request) {
	proposal, err := s.uc.Engine().Approve(r.Context(), types.ProposalID(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, proposal)
}

func (s *Server) handleApplyProposal(w http.ResponseWriter, r *http.Request) {
	proposal, err := s.uc.Engine().Apply(r.Context(), types.ProposalID(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, proposal)
}
