package types

import (
	"context"

	"github.com/google/uuid"
)

type AlertID string

func NewAlertID(ctx context.Context) AlertID {
	return AlertID(newUUID(ctx))
}

func (id AlertID) String() string {
	return string(id)
}

// IsValid checks if the AlertID is valid
func (id AlertID) IsValid() bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(string(id))
	return err == nil
}
