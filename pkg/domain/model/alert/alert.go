package alert

import (
	"fmt"
	"time"

	"github.com/m-mizutani/oracle/pkg/domain/types"
)

// Severity of an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// IsValid checks if the severity is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity
func (s Severity) String() string {
	return string(s)
}

// Alert is one raised fleet issue
type Alert struct {
	ID           types.AlertID     `json:"id"`
	Message      string            `json:"message"`
	Severity     Severity          `json:"severity"`
	Context      map[string]string `json:"context"`
	Signature    string            `json:"signature"`
	Acknowledged bool              `json:"acknowledged"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewSignature builds the dedupe key for an (agent, issue) pair
func NewSignature(agentName, issue string) string {
	return fmt.Sprintf("%s/%s", agentName, issue)
}
