package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/remediation"
	"github.com/m-mizutani/oracle/pkg/domain/types"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Fix proposal Firestore document structure
type proposalDoc struct {
	ID           string     `firestore:"id"`
	AgentName    string     `firestore:"agent_name"`
	Issue        string     `firestore:"issue"`
	Strategy     string     `firestore:"strategy"`
	Risk         string     `firestore:"risk"`
	RollbackPlan string     `firestore:"rollback_plan"`
	Status       string     `firestore:"status"`
	Reason       string     `firestore:"reason"`
	CreatedAt    time.Time  `firestore:"created_at"`
	ExpiresAt    time.Time  `firestore:"expires_at"`
	AppliedAt    *time.Time `firestore:"applied_at"`
}

func proposalToDoc(p *remediation.Proposal) *proposalDoc {
	return &proposalDoc{
		ID:           p.ID.String(),
		AgentName:    p.AgentName,
		Issue:        p.Issue,
		Strategy:     p.Strategy.String(),
		Risk:         p.Risk.String(),
		RollbackPlan: p.RollbackPlan,
		Status:       p.Status.String(),
		Reason:       p.Reason,
		CreatedAt:    p.CreatedAt,
		ExpiresAt:    p.ExpiresAt,
		AppliedAt:    p.AppliedAt,
	}
}

func (d *proposalDoc) toModel() *remediation.Proposal {
	return &remediation.Proposal{
		ID:           types.ProposalID(d.ID),
		AgentName:    d.AgentName,
		Issue:        d.Issue,
		Strategy:     remediation.Strategy(d.Strategy),
		Risk:         remediation.RiskLevel(d.Risk),
		RollbackPlan: d.RollbackPlan,
		Status:       remediation.ProposalStatus(d.Status),
		Reason:       d.Reason,
		CreatedAt:    d.CreatedAt,
		ExpiresAt:    d.ExpiresAt,
		AppliedAt:    d.AppliedAt,
	}
}

// PutProposal stores a new fix proposal
func (c *Client) PutProposal(ctx context.Context, p *remediation.Proposal) error {
	if !p.ID.IsValid() {
		return goerr.New("proposal ID is required", goerr.V("proposal_id", p.ID))
	}

	if _, err := c.client.Collection(collectionProposals).Doc(p.ID.String()).Set(ctx, proposalToDoc(p)); err != nil {
		return goerr.Wrap(err, "failed to put proposal", goerr.V("proposal_id", p.ID))
	}

	return nil
}

// GetProposal retrieves a proposal by ID
func (c *Client) GetProposal(ctx context.Context, id types.ProposalID) (*remediation.Proposal, error) {
	doc, err := c.client.Collection(collectionProposals).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(apperr.ErrProposalNotFound, "proposal not found",
				goerr.V("proposal_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get proposal", goerr.V("proposal_id", id))
	}

	var d proposalDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal proposal", goerr.V("proposal_id", id))
	}

	return d.toModel(), nil
}

// ListProposals returns proposals for an agent, newest first.
// An empty agent name returns all proposals.
func (c *Client) ListProposals(ctx context.Context, agentName string) ([]*remediation.Proposal, error) {
	q := c.client.Collection(collectionProposals).Query
	if agentName != "" {
		q = q.Where("agent_name", "==", agentName)
	}
	iter := q.OrderBy("created_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var proposals []*remediation.Proposal
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate proposals",
				goerr.V("agent_name", agentName))
		}

		var d proposalDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal proposal")
		}
		proposals = append(proposals, d.toModel())
	}

	return proposals, nil
}

// UpdateProposal replaces an existing proposal
func (c *Client) UpdateProposal(ctx context.Context, p *remediation.Proposal) error {
	ref := c.client.Collection(collectionProposals).Doc(p.ID.String())
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(apperr.ErrProposalNotFound, "proposal not found",
				goerr.V("proposal_id", p.ID))
		}
		return goerr.Wrap(err, "failed to load proposal", goerr.V("proposal_id", p.ID))
	}

	if _, err := ref.Set(ctx, proposalToDoc(p)); err != nil {
		return goerr.Wrap(err, "failed to update proposal", goerr.V("proposal_id", p.ID))
	}

	return nil
}
