package health

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

// Sample is one observed outcome reported by an agent after a unit of work.
// Samples live only in the bounded rolling window and are never persisted.
type Sample struct {
	AgentName string        `json:"agent_name"`
	Timestamp time.Time     `json:"timestamp"`
	Success   bool          `json:"success"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
}

// Validate rejects malformed samples before they can touch a window
func (s *Sample) Validate() error {
	if s.AgentName == "" {
		return goerr.New("sample agent name must not be empty",
			goerr.T(apperr.ErrTagValidation))
	}
	if s.Latency < 0 {
		return goerr.New("sample latency must not be negative",
			goerr.T(apperr.ErrTagValidation),
			goerr.V("latency", s.Latency))
	}
	return nil
}
