package depgraph

// BreakingRisk classifies how likely an update is to break dependents
type BreakingRisk string

const (
	RiskLow    BreakingRisk = "low"
	RiskMedium BreakingRisk = "medium"
	RiskHigh   BreakingRisk = "high"
)

func (r BreakingRisk) String() string {
	return string(r)
}

// Impact is the blast radius of updating one agent to a new version.
// UpdateOrder is reverse-topological over the affected subgraph; it is
// empty when the target participates in a cycle.
type Impact struct {
	Agent              string       `json:"agent"`
	NewVersion         string       `json:"new_version"`
	DirectDependents   []string     `json:"direct_dependents"`
	IndirectDependents []string     `json:"indirect_dependents"`
	TotalAffected      int          `json:"total_affected"`
	BreakingRisk       BreakingRisk `json:"breaking_risk"`
	UpdateOrder        []string     `json:"update_order"`
	Cycle              []string     `json:"cycle,omitempty"`
}
