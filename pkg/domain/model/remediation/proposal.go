package remediation

import (
	"time"

	"github.com/m-mizutani/oracle/pkg/domain/types"
)

// Strategy identifies a remediation action an agent may support
type Strategy string

const (
	StrategyCacheClear      Strategy = "cache-clear"
	StrategyConnectionReset Strategy = "connection-reset"
	StrategyConfigReload    Strategy = "config-reload"
	StrategyRestart         Strategy = "restart"
)

// IsValid checks if the strategy is valid
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyCacheClear, StrategyConnectionReset, StrategyConfigReload, StrategyRestart:
		return true
	default:
		return false
	}
}

// String returns the string representation of the strategy
func (s Strategy) String() string {
	return string(s)
}

// RiskLevel is a static risk tier assigned from the policy table,
// never derived from issue description text.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// IsValid checks if the risk level is valid
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk level
func (r RiskLevel) String() string {
	return string(r)
}

// RequiresApproval reports whether an explicit approval must precede apply
func (r RiskLevel) RequiresApproval() bool {
	return r != RiskLow
}

// ProposalStatus is the state of a fix proposal
type ProposalStatus string

const (
	StatusProposed ProposalStatus = "proposed"
	StatusApproved ProposalStatus = "approved"
	StatusApplied  ProposalStatus = "applied"
	StatusRejected ProposalStatus = "rejected"
	StatusExpired  ProposalStatus = "expired"
)

// String returns the string representation of the proposal status
func (s ProposalStatus) String() string {
	return string(s)
}

// Proposal is a catalog-driven remediation proposal for one agent
type Proposal struct {
	ID           types.ProposalID `json:"id"`
	AgentName    string           `json:"agent_name"`
	Issue        string           `json:"issue"`
	Strategy     Strategy         `json:"strategy"`
	Risk         RiskLevel        `json:"risk"`
	RollbackPlan string           `json:"rollback_plan"`
	Status       ProposalStatus   `json:"status"`
	Reason       string           `json:"reason,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
	AppliedAt    *time.Time       `json:"applied_at,omitempty"`
}

// Expired reports whether the proposal passed its time-to-live unapplied
func (p *Proposal) Expired(now time.Time) bool {
	return (p.Status == StatusProposed || p.Status == StatusApproved) &&
		now.After(p.ExpiresAt)
}
