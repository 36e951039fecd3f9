package types

import (
	"context"

	"github.com/google/uuid"
)

type ProposalID string

func NewProposalID(ctx context.Context) ProposalID {
	return ProposalID(newUUID(ctx))
}

func (id ProposalID) String() string {
	return string(id)
}

// IsValid checks if the ProposalID is valid
func (id ProposalID) IsValid() bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(string(id))
	return err == nil
}
