package policy

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/remediation"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
	"gopkg.in/yaml.v3"
)

// Policy carries the tunable operating points of the oracle: health
// thresholds, the strategy risk table and coordinator cadence. The
// correct values are a tuning decision, so they are configuration,
// not constants.
type Policy struct {
	Health      Health      `yaml:"health"`
	Remediation Remediation `yaml:"remediation"`
	Scan        Scan        `yaml:"scan"`
}

// Health holds classification thresholds for success rates in [0, 1]
type Health struct {
	HealthyThreshold   float64 `yaml:"healthy_threshold"`
	WarningThreshold   float64 `yaml:"warning_threshold"`
	UnhealthyThreshold float64 `yaml:"unhealthy_threshold"`
	WindowSize         int     `yaml:"window_size"`
	TrendBand          float64 `yaml:"trend_band"`
}

// Remediation holds the auditable strategy risk table and apply limits
type Remediation struct {
	RiskTable      map[remediation.Strategy]remediation.RiskLevel `yaml:"risk_table"`
	ProposalTTL    time.Duration                                  `yaml:"proposal_ttl"`
	HandlerTimeout time.Duration                                  `yaml:"handler_timeout"`
}

// Scan holds fleet scan cadence and alert dedupe settings
type Scan struct {
	Interval      time.Duration `yaml:"interval"`
	AlertCooldown time.Duration `yaml:"alert_cooldown"`
	Concurrency   int           `yaml:"concurrency"`
	AutoRemediate bool          `yaml:"auto_remediate"`
}

// UnmarshalYAML layers parsed values over whatever is already set, so a
// partial policy file only overrides the keys it names. Durations are
// written in time.ParseDuration form ("30s", "5m").
func (r *Remediation) UnmarshalYAML(node *yaml.Node) error {
	type raw struct {
		RiskTable      map[remediation.Strategy]remediation.RiskLevel `yaml:"risk_table"`
		ProposalTTL    string                                         `yaml:"proposal_ttl"`
		HandlerTimeout string                                         `yaml:"handler_timeout"`
	}

	var in raw
	if err := node.Decode(&in); err != nil {
		return err
	}

	if len(in.RiskTable) > 0 && r.RiskTable == nil {
		r.RiskTable = map[remediation.Strategy]remediation.RiskLevel{}
	}
	for strategy, risk := range in.RiskTable {
		r.RiskTable[strategy] = risk
	}

	if in.ProposalTTL != "" {
		d, err := time.ParseDuration(in.ProposalTTL)
		if err != nil {
			return goerr.Wrap(err, "invalid proposal_ttl",
				goerr.T(apperr.ErrTagValidation), goerr.V("proposal_ttl", in.ProposalTTL))
		}
		r.ProposalTTL = d
	}
	if in.HandlerTimeout != "" {
		d, err := time.ParseDuration(in.HandlerTimeout)
		if err != nil {
			return goerr.Wrap(err, "invalid handler_timeout",
				goerr.T(apperr.ErrTagValidation), goerr.V("handler_timeout", in.HandlerTimeout))
		}
		r.HandlerTimeout = d
	}
	return nil
}

// UnmarshalYAML layers parsed values over the existing scan settings
func (s *Scan) UnmarshalYAML(node *yaml.Node) error {
	type raw struct {
		Interval      string `yaml:"interval"`
		AlertCooldown string `yaml:"alert_cooldown"`
		Concurrency   *int   `yaml:"concurrency"`
		AutoRemediate *bool  `yaml:"auto_remediate"`
	}

	var in raw
	if err := node.Decode(&in); err != nil {
		return err
	}

	if in.Interval != "" {
		d, err := time.ParseDuration(in.Interval)
		if err != nil {
			return goerr.Wrap(err, "invalid interval",
				goerr.T(apperr.ErrTagValidation), goerr.V("interval", in.Interval))
		}
		s.Interval = d
	}
	if in.AlertCooldown != "" {
		d, err := time.ParseDuration(in.AlertCooldown)
		if err != nil {
			return goerr.Wrap(err, "invalid alert_cooldown",
				goerr.T(apperr.ErrTagValidation), goerr.V("alert_cooldown", in.AlertCooldown))
		}
		s.AlertCooldown = d
	}
	if in.Concurrency != nil {
		s.Concurrency = *in.Concurrency
	}
	if in.AutoRemediate != nil {
		s.AutoRemediate = *in.AutoRemediate
	}
	return nil
}

// Default returns the built-in operating point
func Default() *Policy {
	return &Policy{
		Health: Health{
			HealthyThreshold:   0.95,
			WarningThreshold:   0.85,
			UnhealthyThreshold: 0.70,
			WindowSize:         100,
			TrendBand:          0.05,
		},
		Remediation: Remediation{
			RiskTable: map[remediation.Strategy]remediation.RiskLevel{
				remediation.StrategyCacheClear:      remediation.RiskLow,
				remediation.StrategyConfigReload:    remediation.RiskLow,
				remediation.StrategyConnectionReset: remediation.RiskMedium,
				remediation.StrategyRestart:         remediation.RiskHigh,
			},
			ProposalTTL:    time.Hour,
			HandlerTimeout: 30 * time.Second,
		},
		Scan: Scan{
			Interval:      5 * time.Minute,
			AlertCooldown: 15 * time.Minute,
			Concurrency:   8,
			AutoRemediate: true,
		},
	}
}

// Parse loads a policy from YAML, layered over the defaults
func Parse(data []byte) (*Policy, error) {
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, goerr.Wrap(err, "failed to parse policy YAML",
			goerr.T(apperr.ErrTagValidation))
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate rejects inconsistent operating points
func (p *Policy) Validate() error {
	h := p.Health
	if h.HealthyThreshold <= h.WarningThreshold ||
		h.WarningThreshold <= h.UnhealthyThreshold ||
		h.UnhealthyThreshold <= 0 || h.HealthyThreshold > 1 {
		return goerr.New("health thresholds must satisfy 0 < unhealthy < warning < healthy <= 1",
			goerr.T(apperr.ErrTagValidation),
			goerr.V("healthy", h.HealthyThreshold),
			goerr.V("warning", h.WarningThreshold),
			goerr.V("unhealthy", h.UnhealthyThreshold))
	}
	if h.WindowSize <= 0 {
		return goerr.New("health window size must be positive",
			goerr.T(apperr.ErrTagValidation), goerr.V("window_size", h.WindowSize))
	}

	for strategy, risk := range p.Remediation.RiskTable {
		if !strategy.IsValid() {
			return goerr.New("unknown strategy in risk table",
				goerr.T(apperr.ErrTagValidation), goerr.V("strategy", strategy))
		}
		if !risk.IsValid() {
			return goerr.New("unknown risk level in risk table",
				goerr.T(apperr.ErrTagValidation),
				goerr.V("strategy", strategy), goerr.V("risk", risk))
		}
	}

	if p.Remediation.HandlerTimeout <= 0 {
		return goerr.New("remediation handler timeout must be positive",
			goerr.T(apperr.ErrTagValidation),
			goerr.V("handler_timeout", p.Remediation.HandlerTimeout))
	}

	if p.Scan.Concurrency <= 0 {
		return goerr.New("scan concurrency must be positive",
			goerr.T(apperr.ErrTagValidation), goerr.V("concurrency", p.Scan.Concurrency))
	}

	return nil
}

// RiskOf resolves a strategy's risk from the table. Unlisted strategies
// default to critical so an incomplete table never under-gates an apply.
func (p *Policy) RiskOf(s remediation.Strategy) remediation.RiskLevel {
	if risk, ok := p.Remediation.RiskTable[s]; ok {
		return risk
	}
	return remediation.RiskCritical
}
