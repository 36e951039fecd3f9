package fleet

import "time"

// TaskPriority orders competing multi-agent tasks
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityNormal TaskPriority = "normal"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// IsValid checks if the priority is valid
func (p TaskPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// TaskPlan is a coordination plan for a task spanning several agents
type TaskPlan struct {
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority"`

	// ExecutionOrder lists the required agents dependencies-first. When
	// no dependency data exists the caller's order is kept and a warning
	// says so.
	ExecutionOrder []string `json:"execution_order"`

	// Unsafe marks a plan involving an agent below healthy. The plan is
	// still returned; acting on it is the caller's call.
	Unsafe   bool     `json:"unsafe"`
	Warnings []string `json:"warnings"`

	CreatedAt time.Time `json:"created_at"`
}

// RolloutPlan is a phased update plan: phase 1 is the target agent, each
// later phase is the next layer of dependents outward
type RolloutPlan struct {
	Agent      string     `json:"agent"`
	NewVersion string     `json:"new_version"`
	Phases     [][]string `json:"phases"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RolloutResult reports a sequential best-effort rollout execution. On a
// failed phase the rollout halts and FailedPhase carries its index.
type RolloutResult struct {
	Agent           string `json:"agent"`
	CompletedPhases int    `json:"completed_phases"`
	FailedPhase     int    `json:"failed_phase"` // -1 when all phases completed
	Error           string `json:"error,omitempty"`
}
