package agent

import (
	"strings"
	"time"
)

// InitialVersion is the sentinel version assigned on first contact.
// An agent at this version has no ledger history yet.
const InitialVersion = "0.0.0"

type Agent struct {
	Name           string    `json:"name"`
	CurrentVersion string    `json:"current_version"`
	LastSeen       time.Time `json:"last_seen"`

	// Status is derived from the health monitor and never persisted.
	Status string `json:"status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an agent record at the sentinel version
func New(name string, now time.Time) *Agent {
	return &Agent{
		Name:           name,
		CurrentVersion: InitialVersion,
		LastSeen:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsRegistered reports whether the agent has at least one version record
func (a *Agent) IsRegistered() bool {
	return a.CurrentVersion != InitialVersion
}

// ValidateName validates an agent name
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(name) != name {
		return ErrInvalidName
	}
	if len(name) > 128 {
		return ErrInvalidName
	}
	return nil
}
