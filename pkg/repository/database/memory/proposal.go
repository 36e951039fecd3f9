package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/remediation"
	"github.com/m-mizutani/oracle/pkg/domain/types"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

// PutProposal stores a new fix proposal
func (c *Client) PutProposal(ctx context.Context, p *remediation.Proposal) error {
	if !p.ID.IsValid() {
		return goerr.New("proposal ID is required", goerr.V("proposal_id", p.ID))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pCopy := *p
	c.proposals[p.ID] = &pCopy

	return nil
}

// GetProposal retrieves a proposal by ID
func (c *Client) GetProposal(ctx context.Context, id types.ProposalID) (*remediation.Proposal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, exists := c.proposals[id]
	if !exists {
		return nil, goerr.Wrap(apperr.ErrProposalNotFound, "proposal not found",
			goerr.V("proposal_id", id))
	}

	pCopy := *p
	return &pCopy, nil
}

// ListProposals returns proposals for an agent, newest first.
// An empty agent name returns all proposals.
func (c *Client) ListProposals(ctx context.Context, agentName string) ([]*remediation.Proposal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	proposals := make([]*remediation.Proposal, 0, len(c.proposals))
	for _, p := range c.proposals {
		if agentName != "" && p.AgentName != agentName {
			continue
		}
		pCopy := *p
		proposals = append(proposals, &pCopy)
	}

	sort.Slice(proposals, func(i, j int) bool {
		return proposals[i].CreatedAt.After(proposals[j].CreatedAt)
	})

	return proposals, nil
}

// UpdateProposal replaces an existing proposal
func (c *Client) UpdateProposal(ctx context.Context, p *remediation.Proposal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.proposals[p.ID]; !exists {
		return goerr.Wrap(apperr.ErrProposalNotFound, "proposal not found",
			goerr.V("proposal_id", p.ID))
	}

	pCopy := *p
	c.proposals[p.ID] = &pCopy

	return nil
}
