package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	memoryadapter "github.com/m-mizutani/oracle/pkg/adapters/memory"
	"github.com/m-mizutani/oracle/pkg/domain/model/alert"
	"github.com/m-mizutani/oracle/pkg/domain/model/depgraph"
	healthmodel "github.com/m-mizutani/oracle/pkg/domain/model/health"
	"github.com/m-mizutani/oracle/pkg/domain/model/policy"
	remediationmodel "github.com/m-mizutani/oracle/pkg/domain/model/remediation"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
	memorydb "github.com/m-mizutani/oracle/pkg/repository/database/memory"
	"github.com/m-mizutani/oracle/pkg/repository/storage"
	"github.com/m-mizutani/oracle/pkg/service/graph"
	healthservice "github.com/m-mizutani/oracle/pkg/service/health"
	"github.com/m-mizutani/oracle/pkg/service/ledger"
	"github.com/m-mizutani/oracle/pkg/service/remediation"
	"github.com/m-mizutani/oracle/pkg/usecase"
	"github.com/m-mizutani/oracle/pkg/utils/async"
)

type fixture struct {
	db       *memorydb.Client
	registry *remediation.Registry
	notifier *notifierMock
	policy   *policy.Policy
	uc       *usecase.Coordinator
}

type notifierMock struct {
	mu     sync.Mutex
	alerts []*alert.Alert
}

func (n *notifierMock) NotifyAlert(ctx context.Context, a *alert.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return nil
}

func (n *notifierMock) delivered() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func setup(t *testing.T, mutate func(p *policy.Policy)) *fixture {
	t.Helper()

	p := policy.Default()
	if mutate != nil {
		mutate(p)
	}

	db := memorydb.New()
	registry := remediation.NewRegistry()
	notifier := &notifierMock{}

	tracker, err := graph.New(context.Background(), db)
	gt.NoError(t, err)

	uc := usecase.New(
		usecase.WithAgentRepository(db),
		usecase.WithAlertRepository(db),
		usecase.WithMonitor(healthservice.NewMonitor(p)),
		usecase.WithLedger(ledger.New(db, db, storage.New(memoryadapter.New()))),
		usecase.WithTracker(tracker),
		usecase.WithEngine(remediation.NewEngine(db, registry, p)),
		usecase.WithNotifier(notifier),
		usecase.WithPolicy(p),
	)

	return &fixture{
		db:       db,
		registry: registry,
		notifier: notifier,
		policy:   p,
		uc:       uc,
	}
}

func recordOutcomes(t *testing.T, f *fixture, agentName string, success bool, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		gt.NoError(t, f.uc.RecordMetric(ctx, agentName, healthmodel.Sample{
			Success: success,
			Latency: 5 * time.Millisecond,
		}))
	}
}

func TestHeartbeatRegistersOnFirstContact(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	a, err := f.uc.Heartbeat(ctx, "batman")
	gt.NoError(t, err)
	gt.Equal(t, a.CurrentVersion, "0.0.0")

	before := a.LastSeen
	time.Sleep(time.Millisecond)

	a, err = f.uc.Heartbeat(ctx, "batman")
	gt.NoError(t, err)
	gt.True(t, a.LastSeen.After(before))

	agents, err := f.uc.ListAgents(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(agents), 1)
}

func TestSelfHealingRoundTrip(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	// batman degrades below the unhealthy threshold
	recordOutcomes(t, f, "batman", true, 10)
	recordOutcomes(t, f, "batman", false, 2)

	assessment, err := f.uc.AssessHealth(ctx, "batman")
	gt.NoError(t, err)
	gt.True(t, assessment.SuccessRate > 0.82 && assessment.SuccessRate < 0.84)
	gt.Equal(t, assessment.Status, healthmodel.StatusUnhealthy)

	// a low-risk fix applies without approval
	invoked := false
	f.registry.Register("batman", remediationmodel.StrategyCacheClear, func(ctx context.Context) error {
		invoked = true
		return nil
	})

	proposal, err := f.uc.Heal(ctx, "batman", "stale cache suspected", nil)
	gt.NoError(t, err)
	gt.True(t, invoked)
	gt.Equal(t, proposal.Status, remediationmodel.StatusApplied)

	// recovery pushes the window back above the healthy threshold and
	// shows up as an improving trend
	recordOutcomes(t, f, "batman", true, 50)
	assessment, err = f.uc.AssessHealth(ctx, "batman")
	gt.NoError(t, err)
	gt.Equal(t, assessment.Status, healthmodel.StatusHealthy)
	gt.Equal(t, assessment.Trend, healthmodel.TrendImproving)
}

func TestHealHigherRiskAwaitsApproval(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	_, err := f.uc.Heartbeat(ctx, "batman")
	gt.NoError(t, err)

	proposal, err := f.uc.Heal(ctx, "batman", "repeated network timeout", nil)
	gt.NoError(t, err)
	gt.Equal(t, proposal.Risk, remediationmodel.RiskMedium)
	gt.Equal(t, proposal.Status, remediationmodel.StatusProposed)
}

func TestVersionLifecycle(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	_, err := f.uc.Heartbeat(ctx, "flash")
	gt.NoError(t, err)

	// a fresh agent rejects a minor bump; its first release must be major
	_, err = f.uc.Ledger().CreateVersion(ctx, &ledger.CreateVersionInput{
		AgentName:   "flash",
		ChangeType:  version.ChangeMinor,
		Description: "speed tweaks",
	})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, apperr.ErrNotInitialRelease))

	rec, err := f.uc.Ledger().CreateVersion(ctx, &ledger.CreateVersionInput{
		AgentName:   "flash",
		ChangeType:  version.ChangeMajor,
		Description: "initial release",
	})
	gt.NoError(t, err)
	gt.Equal(t, rec.Version.String(), "1.0.0")
}

func TestScanFleetRaisesAndDedupesAlerts(t *testing.T) {
	f := setup(t, func(p *policy.Policy) {
		p.Scan.AutoRemediate = false
	})
	ctx := async.WithSyncMode(context.Background())

	recordOutcomes(t, f, "joker", false, 5)
	recordOutcomes(t, f, "stable", true, 5)

	report, err := f.uc.ScanFleet(ctx)
	gt.NoError(t, err)
	gt.Equal(t, report.AgentCount, 2)
	gt.Equal(t, len(report.RaisedAlerts), 1)
	gt.Equal(t, report.RaisedAlerts[0].Severity, alert.SeverityCritical)
	gt.Equal(t, len(report.Failures), 0)

	// the critical alert reached the notifier
	gt.Equal(t, f.notifier.delivered(), 1)

	// an identical issue within the cool-down raises nothing new
	report, err = f.uc.ScanFleet(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(report.RaisedAlerts), 0)

	alerts, err := f.uc.ListAlerts(ctx, 0)
	gt.NoError(t, err)
	gt.Equal(t, len(alerts), 1)
}

func TestScanFleetAutoRemediates(t *testing.T) {
	f := setup(t, nil)
	ctx := async.WithSyncMode(context.Background())

	recordOutcomes(t, f, "joker", false, 5)

	invoked := false
	f.registry.Register("joker", remediationmodel.StrategyRestart, func(ctx context.Context) error {
		invoked = true
		return nil
	})

	report, err := f.uc.ScanFleet(ctx)
	gt.NoError(t, err)
	gt.Equal(t, len(report.Remediations), 1)

	// a degraded-health issue maps to restart, which is high risk and
	// therefore proposed, never auto-applied
	gt.False(t, invoked)
	gt.Equal(t, report.Remediations[0].Status, remediationmodel.StatusProposed)
	gt.Equal(t, report.Remediations[0].Strategy, remediationmodel.StrategyRestart)
}

func TestPlanMultiAgentTaskOrdersByDependency(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	for _, name := range []string{"x", "y"} {
		_, err := f.uc.Heartbeat(ctx, name)
		gt.NoError(t, err)
		recordOutcomes(t, f, name, true, 5)
	}

	gt.NoError(t, f.uc.Tracker().AddDependency(ctx, &depgraph.Edge{
		Agent: "y", DependsOn: "x", Relation: depgraph.RelationRequires,
	}))

	plan, err := f.uc.PlanMultiAgentTask(ctx, "deploy the thing", []string{"y", "x"}, "")
	gt.NoError(t, err)
	gt.Equal(t, plan.ExecutionOrder, []string{"x", "y"})
	gt.False(t, plan.Unsafe)
}

func TestPlanMultiAgentTaskWithoutDependencyData(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		_, err := f.uc.Heartbeat(ctx, name)
		gt.NoError(t, err)
	}

	plan, err := f.uc.PlanMultiAgentTask(ctx, "ad hoc work", []string{"b", "a"}, "")
	gt.NoError(t, err)

	// caller order is kept and the gap is called out
	gt.Equal(t, plan.ExecutionOrder, []string{"b", "a"})
	gt.True(t, len(plan.Warnings) > 0)
}

func TestPlanMultiAgentTaskFlagsUnhealthyAgents(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	recordOutcomes(t, f, "shaky", false, 5)
	recordOutcomes(t, f, "solid", true, 5)

	plan, err := f.uc.PlanMultiAgentTask(ctx, "risky deploy", []string{"shaky", "solid"}, "high")
	gt.NoError(t, err)
	gt.True(t, plan.Unsafe)
	gt.True(t, len(plan.Warnings) > 0)
}

func TestPlanVersionUpdatePhases(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	for _, name := range []string{"db", "api", "web"} {
		_, err := f.uc.Heartbeat(ctx, name)
		gt.NoError(t, err)
	}
	gt.NoError(t, f.uc.Tracker().AddDependency(ctx, &depgraph.Edge{
		Agent: "api", DependsOn: "db", Relation: depgraph.RelationRequires,
	}))
	gt.NoError(t, f.uc.Tracker().AddDependency(ctx, &depgraph.Edge{
		Agent: "web", DependsOn: "api", Relation: depgraph.RelationRequires,
	}))

	plan, err := f.uc.PlanVersionUpdate(ctx, "db", "2.0.0")
	gt.NoError(t, err)
	gt.Equal(t, plan.Phases, [][]string{{"db"}, {"api"}, {"web"}})
}

func TestExecuteRolloutHaltsOnFailedPhase(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	_, err := f.uc.Heartbeat(ctx, "db")
	gt.NoError(t, err)

	plan, err := f.uc.PlanVersionUpdate(ctx, "db", "2.0.0")
	gt.NoError(t, err)
	plan.Phases = [][]string{{"db"}, {"api"}, {"web"}}

	var touched []string
	result, err := f.uc.ExecuteRollout(ctx, plan, func(ctx context.Context, agentName string) error {
		touched = append(touched, agentName)
		if agentName == "api" {
			return errors.New("update refused")
		}
		return nil
	})
	gt.Error(t, err)
	gt.Equal(t, result.CompletedPhases, 1)
	gt.Equal(t, result.FailedPhase, 1)
	gt.Equal(t, touched, []string{"db", "api"})
}

func TestEmergencyRollbackAlwaysAlerts(t *testing.T) {
	f := setup(t, nil)
	ctx := async.WithSyncMode(context.Background())

	_, err := f.uc.Heartbeat(ctx, "batman")
	gt.NoError(t, err)
	for _, change := range []version.ChangeType{version.ChangeMajor, version.ChangeMajor} {
		_, err := f.uc.Ledger().CreateVersion(ctx, &ledger.CreateVersionInput{
			AgentName:   "batman",
			ChangeType:  change,
			Description: "release",
		})
		gt.NoError(t, err)
	}

	result, err := f.uc.EmergencyRollback(ctx, "batman", "1.0.0")
	gt.NoError(t, err)
	gt.Equal(t, result.RestoredVersion, "1.0.0")
	gt.Equal(t, result.SafetyLevel, version.SafetyDangerous)

	alerts, err := f.uc.ListAlerts(ctx, 0)
	gt.NoError(t, err)
	gt.Equal(t, len(alerts), 1)
	gt.Equal(t, alerts[0].Severity, alert.SeverityCritical)

	// a failed emergency rollback still raises its alert
	_, err = f.uc.EmergencyRollback(ctx, "batman", "0.9.0")
	gt.Error(t, err)

	alerts, err = f.uc.ListAlerts(ctx, 0)
	gt.NoError(t, err)
	gt.Equal(t, len(alerts), 2)
}

func TestAnalyzeImpactThroughCoordinator(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	for _, name := range []string{"lib", "client"} {
		_, err := f.uc.Heartbeat(ctx, name)
		gt.NoError(t, err)
	}
	gt.NoError(t, f.uc.Tracker().AddDependency(ctx, &depgraph.Edge{
		Agent: "client", DependsOn: "lib", Relation: depgraph.RelationRequires,
	}))

	impact, err := f.uc.AnalyzeImpact(ctx, "lib", "2.0.0")
	gt.NoError(t, err)
	gt.Equal(t, impact.DirectDependents, []string{"client"})
	gt.Equal(t, impact.TotalAffected, 1)
}

func TestScanFleetCoalescesConcurrentCallers(t *testing.T) {
	f := setup(t, func(p *policy.Policy) {
		p.Scan.AutoRemediate = false
	})
	ctx := async.WithSyncMode(context.Background())

	recordOutcomes(t, f, "batman", true, 5)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.ScanFleet(ctx)
			gt.NoError(t, err)
		}()
	}
	wg.Wait()
}
