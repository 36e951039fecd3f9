package policy_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/oracle/pkg/domain/model/policy"
	"github.com/m-mizutani/oracle/pkg/domain/model/remediation"
)

func TestDefaultPolicy(t *testing.T) {
	p := policy.Default()

	gt.NoError(t, p.Validate())
	gt.Equal(t, p.Health.HealthyThreshold, 0.95)
	gt.Equal(t, p.Health.WarningThreshold, 0.85)
	gt.Equal(t, p.Health.UnhealthyThreshold, 0.70)
	gt.Equal(t, p.Health.WindowSize, 100)
	gt.Equal(t, p.RiskOf(remediation.StrategyCacheClear), remediation.RiskLow)
	gt.Equal(t, p.RiskOf(remediation.StrategyRestart), remediation.RiskHigh)
}

func TestParseLayersOverDefaults(t *testing.T) {
	raw := []byte(`
health:
  window_size: 50
scan:
  interval: 1m
  auto_remediate: false
remediation:
  risk_table:
    restart: critical
`)

	p, err := policy.Parse(raw)
	gt.NoError(t, err)

	// overridden values
	gt.Equal(t, p.Health.WindowSize, 50)
	gt.Equal(t, p.Scan.Interval, time.Minute)
	gt.False(t, p.Scan.AutoRemediate)
	gt.Equal(t, p.RiskOf(remediation.StrategyRestart), remediation.RiskCritical)

	// untouched values keep their defaults
	gt.Equal(t, p.Health.HealthyThreshold, 0.95)
	gt.Equal(t, p.Remediation.HandlerTimeout, 30*time.Second)
}

func TestParseRejectsBrokenPolicy(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"inverted thresholds", "health:\n  healthy_threshold: 0.5\n  warning_threshold: 0.9\n"},
		{"zero window", "health:\n  window_size: 0\n"},
		{"unknown strategy", "remediation:\n  risk_table:\n    reboot-universe: low\n"},
		{"unknown risk", "remediation:\n  risk_table:\n    restart: catastrophic\n"},
		{"zero concurrency", "scan:\n  concurrency: 0\n"},
		{"not yaml", "::::"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := policy.Parse([]byte(tc.raw))
			gt.Error(t, err)
		})
	}
}

func TestRiskOfUnlistedStrategyIsCritical(t *testing.T) {
	p := policy.Default()
	delete(p.Remediation.RiskTable, remediation.StrategyRestart)

	gt.Equal(t, p.RiskOf(remediation.StrategyRestart), remediation.RiskCritical)
}
