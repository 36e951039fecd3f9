package remediation

import (
	"context"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/interfaces"
	"github.com/m-mizutani/oracle/pkg/domain/model/policy"
	"github.com/m-mizutani/oracle/pkg/domain/model/remediation"
	"github.com/m-mizutani/oracle/pkg/domain/types"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

// Engine generates catalog-driven fix proposals and gates their
// application by the static risk table
type Engine struct {
	proposalRepo interfaces.ProposalRepository
	registry     *Registry
	policy       *policy.Policy
	now          func() time.Time
}

// Option is a functional option for Engine
type Option func(*Engine)

// WithClock overrides the clock, for tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a fix proposal engine
func NewEngine(proposalRepo interfaces.ProposalRepository, registry *Registry, p *policy.Policy, opts ...Option) *Engine {
	e := &Engine{
		proposalRepo: proposalRepo,
		registry:     registry,
		policy:       p,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the handler registry for agent registration
func (e *Engine) Registry() *Registry {
	return e.registry
}

// GenerateProposal matches the issue against the remediation catalog and
// assigns risk from the policy table, never from the issue text
func (e *Engine) GenerateProposal(ctx context.Context, issue, agentName string, issueContext map[string]string) (*remediation.Proposal, error) {
	if issue == "" {
		return nil, goerr.New("issue is required", goerr.T(apperr.ErrTagValidation))
	}
	if agentName == "" {
		return nil, goerr.New("agent name is required", goerr.T(apperr.ErrTagValidation))
	}

	entry := matchCatalog(issue)
	now := e.now()

	proposal := &remediation.Proposal{
		ID:           types.NewProposalID(ctx),
		AgentName:    agentName,
		Issue:        issue,
		Strategy:     entry.strategy,
		Risk:         e.policy.RiskOf(entry.strategy),
		RollbackPlan: entry.rollbackPlan,
		Status:       remediation.StatusProposed,
		CreatedAt:    now,
		ExpiresAt:    now.Add(e.policy.Remediation.ProposalTTL),
	}

	if err := e.proposalRepo.PutProposal(ctx, proposal); err != nil {
		return nil, goerr.Wrap(err, "failed to store proposal",
			goerr.V("agent_name", agentName), goerr.V("strategy", entry.strategy))
	}

	ctxlog.From(ctx).Info("generated fix proposal",
		"proposal_id", proposal.ID,
		"agent_name", agentName,
		"strategy", proposal.Strategy,
		"risk", proposal.Risk,
	)

	return proposal, nil
}

// Approve records an explicit approval for a proposed fix
func (e *Engine) Approve(ctx context.Context, id types.ProposalID) (*remediation.Proposal, error) {
	proposal, err := e.proposalRepo.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}

	if expired, err := e.expireIfNeeded(ctx, proposal); expired {
		return proposal, err
	}

	if proposal.Status != remediation.StatusProposed {
		return nil, goerr.Wrap(apperr.ErrProposalNotApplicable, "only proposed fixes can be approved",
			goerr.V("proposal_id", id), goerr.V("status", proposal.Status))
	}

	proposal.Status = remediation.StatusApproved
	if err := e.proposalRepo.UpdateProposal(ctx, proposal); err != nil {
		return nil, err
	}

	return proposal, nil
}

// Apply executes a proposal's remediation callback. Only low-risk or
// explicitly approved proposals may be applied. A missing handler fails
// fast; a timed-out or failing handler moves the proposal to rejected
// with a recorded reason. The remediation itself is never rolled back
// automatically since agent actions are not generically reversible.
func (e *Engine) Apply(ctx context.Context, id types.ProposalID) (*remediation.Proposal, error) {
	proposal, err := e.proposalRepo.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}

	if expired, err := e.expireIfNeeded(ctx, proposal); expired {
		return proposal, err
	}

	switch proposal.Status {
	case remediation.StatusProposed:
		if proposal.Risk.RequiresApproval() {
			return nil, goerr.Wrap(apperr.ErrApprovalRequired, "non-low risk fix needs approval",
				goerr.V("proposal_id", id), goerr.V("risk", proposal.Risk))
		}
	case remediation.StatusApproved:
		// approved fixes may always proceed
	default:
		return nil, goerr.Wrap(apperr.ErrProposalNotApplicable, "proposal is not applicable",
			goerr.V("proposal_id", id), goerr.V("status", proposal.Status))
	}

	handler, ok := e.registry.Lookup(proposal.AgentName, proposal.Strategy)
	if !ok {
		proposal.Status = remediation.StatusRejected
		proposal.Reason = "no remediation handler"
		if updateErr := e.proposalRepo.UpdateProposal(ctx, proposal); updateErr != nil {
			return nil, updateErr
		}
		return proposal, goerr.Wrap(apperr.ErrNoRemediationHandler, "agent has no handler for strategy",
			goerr.V("agent_name", proposal.AgentName),
			goerr.V("strategy", proposal.Strategy))
	}

	if err := e.runHandler(ctx, handler); err != nil {
		proposal.Status = remediation.StatusRejected
		proposal.Reason = err.Error()
		if updateErr := e.proposalRepo.UpdateProposal(ctx, proposal); updateErr != nil {
			return nil, updateErr
		}
		return proposal, err
	}

	now := e.now()
	proposal.Status = remediation.StatusApplied
	proposal.AppliedAt = &now
	if err := e.proposalRepo.UpdateProposal(ctx, proposal); err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Info("applied fix proposal",
		"proposal_id", proposal.ID,
		"agent_name", proposal.AgentName,
		"strategy", proposal.Strategy,
	)

	return proposal, nil
}

// runHandler invokes the callback under the bounded timeout. A timed-out
// handler counts as a failed fix, never left pending.
func (e *Engine) runHandler(ctx context.Context, handler interfaces.RemediationHandler) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.policy.Remediation.HandlerTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- handler(timeoutCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return goerr.Wrap(apperr.ErrRemediationFailed, "remediation handler failed",
				goerr.V("cause", err.Error()))
		}
		return nil
	case <-timeoutCtx.Done():
		return goerr.Wrap(apperr.ErrRemediationTimeout, "remediation handler timed out",
			goerr.V("timeout", e.policy.Remediation.HandlerTimeout))
	}
}

// GetProposal retrieves one proposal, expiring it first if its TTL passed
func (e *Engine) GetProposal(ctx context.Context, id types.ProposalID) (*remediation.Proposal, error) {
	proposal, err := e.proposalRepo.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}

	// A read reports the expired state rather than failing on it
	if expired, err := e.expireIfNeeded(ctx, proposal); !expired && err != nil {
		return nil, err
	}

	return proposal, nil
}

// ListProposals returns proposals for an agent, newest first
func (e *Engine) ListProposals(ctx context.Context, agentName string) ([]*remediation.Proposal, error) {
	return e.proposalRepo.ListProposals(ctx, agentName)
}

// expireIfNeeded transitions an un-acted proposal past its TTL to
// expired. The returned bool reports whether the proposal is expired.
func (e *Engine) expireIfNeeded(ctx context.Context, proposal *remediation.Proposal) (bool, error) {
	if proposal.Status == remediation.StatusExpired {
		return true, goerr.Wrap(apperr.ErrProposalExpired, "proposal already expired",
			goerr.V("proposal_id", proposal.ID))
	}
	if !proposal.Expired(e.now()) {
		return false, nil
	}

	proposal.Status = remediation.StatusExpired
	if err := e.proposalRepo.UpdateProposal(ctx, proposal); err != nil {
		return true, err
	}

	return true, goerr.Wrap(apperr.ErrProposalExpired, "proposal passed its time-to-live",
		goerr.V("proposal_id", proposal.ID),
		goerr.V("expires_at", proposal.ExpiresAt))
}
