package usecase

import (
	"time"

	"github.com/m-mizutani/oracle/pkg/domain/interfaces"
	"github.com/m-mizutani/oracle/pkg/domain/model/policy"
	"github.com/m-mizutani/oracle/pkg/service/graph"
	healthservice "github.com/m-mizutani/oracle/pkg/service/health"
	"github.com/m-mizutani/oracle/pkg/service/ledger"
	"github.com/m-mizutani/oracle/pkg/service/remediation"
	"golang.org/x/sync/singleflight"
)

// Coordinator holds the fleet supervision use cases. It composes the
// health monitor, version ledger, dependency tracker and fix engine, and
// owns the fleet-wide scan.
type Coordinator struct {
	agentRepo interfaces.AgentRepository
	alertRepo interfaces.AlertRepository

	monitor *healthservice.Monitor
	ledger  *ledger.Ledger
	tracker *graph.Tracker
	engine  *remediation.Engine

	notifier interfaces.AlertNotifier
	policy   *policy.Policy

	scans singleflight.Group
	now   func() time.Time
}

// Option is a functional option for Coordinator
type Option func(*Coordinator)

// WithAgentRepository sets the agent repository
func WithAgentRepository(repo interfaces.AgentRepository) Option {
	return func(uc *Coordinator) {
		uc.agentRepo = repo
	}
}

// WithAlertRepository sets the alert repository
func WithAlertRepository(repo interfaces.AlertRepository) Option {
	return func(uc *Coordinator) {
		uc.alertRepo = repo
	}
}

// WithMonitor sets the health monitor
func WithMonitor(m *healthservice.Monitor) Option {
	return func(uc *Coordinator) {
		uc.monitor = m
	}
}

// WithLedger sets the version ledger
func WithLedger(l *ledger.Ledger) Option {
	return func(uc *Coordinator) {
		uc.ledger = l
	}
}

// WithTracker sets the dependency graph tracker
func WithTracker(t *graph.Tracker) Option {
	return func(uc *Coordinator) {
		uc.tracker = t
	}
}

// WithEngine sets the fix proposal engine
func WithEngine(e *remediation.Engine) Option {
	return func(uc *Coordinator) {
		uc.engine = e
	}
}

// WithNotifier sets the alert notifier. Without one, alerts are stored
// but never pushed.
func WithNotifier(n interfaces.AlertNotifier) Option {
	return func(uc *Coordinator) {
		uc.notifier = n
	}
}

// WithPolicy sets the operating policy
func WithPolicy(p *policy.Policy) Option {
	return func(uc *Coordinator) {
		uc.policy = p
	}
}

// WithClock overrides the clock, for tests
func WithClock(now func() time.Time) Option {
	return func(uc *Coordinator) {
		uc.now = now
	}
}

// New creates a Coordinator
func New(opts ...Option) *Coordinator {
	uc := &Coordinator{
		policy: policy.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Ledger exposes the version ledger for the controller layer
func (uc *Coordinator) Ledger() *ledger.Ledger {
	return uc.ledger
}

// Tracker exposes the dependency graph tracker for the controller layer
func (uc *Coordinator) Tracker() *graph.Tracker {
	return uc.tracker
}

// Engine exposes the fix proposal engine for the controller layer
func (uc *Coordinator) Engine() *remediation.Engine {
	return uc.engine
}
