package health

import "time"

// Status classifies an agent's health from its recent outcome window
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusHealthy   Status = "healthy"
	StatusWarning   Status = "warning"
	StatusUnhealthy Status = "unhealthy"
	StatusCritical  Status = "critical"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusUnknown, StatusHealthy, StatusWarning, StatusUnhealthy, StatusCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// NeedsAttention reports whether the status should trigger remediation
func (s Status) NeedsAttention() bool {
	return s == StatusUnhealthy || s == StatusCritical
}

// Trend describes the direction of the success rate within the window
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDegrading Trend = "degrading"
)

func (t Trend) String() string {
	return string(t)
}

// Assessment is the classified result of one window evaluation
type Assessment struct {
	AgentName   string        `json:"agent_name"`
	Status      Status        `json:"status"`
	SuccessRate float64       `json:"success_rate"`
	SampleCount int           `json:"sample_count"`
	LatencyP95  time.Duration `json:"latency_p95"`
	LatencyP99  time.Duration `json:"latency_p99"`
	Trend       Trend         `json:"trend"`
	AssessedAt  time.Time     `json:"assessed_at"`
}
