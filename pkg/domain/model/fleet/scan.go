package fleet

import (
	"time"

	"github.com/m-mizutani/oracle/pkg/domain/model/alert"
	"github.com/m-mizutani/oracle/pkg/domain/model/health"
	"github.com/m-mizutani/oracle/pkg/domain/model/remediation"
)

// ScanReport summarizes one fleet-wide scan pass
type ScanReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	AgentCount int       `json:"agent_count"`

	Assessments []*health.Assessment `json:"assessments"`

	// RaisedAlerts holds only the alerts this pass created; alerts
	// suppressed by the dedupe cool-down are not listed.
	RaisedAlerts []*alert.Alert `json:"raised_alerts"`

	// Remediations lists proposals auto-generated during the scan.
	Remediations []*remediation.Proposal `json:"remediations"`

	// Failures records per-agent scan errors. One agent failing never
	// stops the scan of the rest.
	Failures map[string]string `json:"failures,omitempty"`
}
