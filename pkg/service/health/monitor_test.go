package health_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	healthmodel "github.com/m-mizutani/oracle/pkg/domain/model/health"
	"github.com/m-mizutani/oracle/pkg/domain/model/policy"
	"github.com/m-mizutani/oracle/pkg/service/health"
)

func record(t *testing.T, m *health.Monitor, agent string, success bool, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		gt.NoError(t, m.Record(ctx, agent, healthmodel.Sample{
			Success: success,
			Latency: 10 * time.Millisecond,
		}))
	}
}

func TestAssessZeroSamples(t *testing.T) {
	m := health.NewMonitor(policy.Default())

	assessment, err := m.Assess(context.Background(), "idle-agent")
	gt.NoError(t, err)
	gt.Equal(t, assessment.Status, healthmodel.StatusUnknown)
	gt.Equal(t, assessment.SampleCount, 0)
}

func TestAssessHealthy(t *testing.T) {
	m := health.NewMonitor(policy.Default())

	record(t, m, "steady", true, 96)
	record(t, m, "steady", false, 4)

	assessment, err := m.Assess(context.Background(), "steady")
	gt.NoError(t, err)
	gt.Equal(t, assessment.Status, healthmodel.StatusHealthy)
	gt.True(t, assessment.SuccessRate >= 0.95)
}

func TestAssessClassification(t *testing.T) {
	cases := []struct {
		name      string
		successes int
		failures  int
		expect    healthmodel.Status
	}{
		{"warning", 90, 10, healthmodel.StatusWarning},
		{"unhealthy", 75, 25, healthmodel.StatusUnhealthy},
		{"critical", 50, 50, healthmodel.StatusCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := health.NewMonitor(policy.Default())
			record(t, m, tc.name, true, tc.successes)
			record(t, m, tc.name, false, tc.failures)

			assessment, err := m.Assess(context.Background(), tc.name)
			gt.NoError(t, err)
			gt.Equal(t, assessment.Status, tc.expect)
		})
	}
}

func TestAssessAllFailuresIsCritical(t *testing.T) {
	m := health.NewMonitor(policy.Default())

	// a tiny all-failure window must not be diluted into a milder status
	record(t, m, "broken", false, 3)

	assessment, err := m.Assess(context.Background(), "broken")
	gt.NoError(t, err)
	gt.Equal(t, assessment.Status, healthmodel.StatusCritical)
}

func TestWindowEviction(t *testing.T) {
	p := policy.Default()
	p.Health.WindowSize = 10
	m := health.NewMonitor(p)

	record(t, m, "busy", false, 10)
	record(t, m, "busy", true, 10)

	// the failures were all evicted by the second batch
	assessment, err := m.Assess(context.Background(), "busy")
	gt.NoError(t, err)
	gt.Equal(t, assessment.SampleCount, 10)
	gt.Equal(t, assessment.SuccessRate, 1.0)
	gt.Equal(t, assessment.Status, healthmodel.StatusHealthy)
}

func TestTrend(t *testing.T) {
	m := health.NewMonitor(policy.Default())

	record(t, m, "recovering", false, 10)
	record(t, m, "recovering", true, 10)

	assessment, err := m.Assess(context.Background(), "recovering")
	gt.NoError(t, err)
	gt.Equal(t, assessment.Trend, healthmodel.TrendImproving)

	m2 := health.NewMonitor(policy.Default())
	record(t, m2, "declining", true, 10)
	record(t, m2, "declining", false, 10)

	assessment2, err := m2.Assess(context.Background(), "declining")
	gt.NoError(t, err)
	gt.Equal(t, assessment2.Trend, healthmodel.TrendDegrading)
}

func TestRecordRejectsMalformedSample(t *testing.T) {
	m := health.NewMonitor(policy.Default())
	ctx := context.Background()

	gt.Error(t, m.Record(ctx, "agent", healthmodel.Sample{Latency: -1}))
	gt.Error(t, m.Record(ctx, "agent", healthmodel.Sample{AgentName: "other"}))

	assessment, err := m.Assess(ctx, "agent")
	gt.NoError(t, err)
	gt.Equal(t, assessment.SampleCount, 0)
}

func TestConcurrentRecords(t *testing.T) {
	p := policy.Default()
	p.Health.WindowSize = 64
	m := health.NewMonitor(p)
	ctx := context.Background()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Record(ctx, "hot", healthmodel.Sample{Success: true})
		}()
	}
	wg.Wait()

	// no sample lost or duplicated: the window holds min(n, capacity)
	assessment, err := m.Assess(ctx, "hot")
	gt.NoError(t, err)
	gt.Equal(t, assessment.SampleCount, 64)
}
