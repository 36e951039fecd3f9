package health

import (
	"sort"
	"sync"
	"time"

	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/health"
	"github.com/m-mizutani/oracle/pkg/domain/model/policy"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

// window is a bounded ring of samples for one agent. It has its own lock
// so recording for one agent never contends with any other agent.
type window struct {
	mu      sync.Mutex
	samples []health.Sample
	next    int
	filled  bool
}

func newWindow(capacity int) *window {
	return &window{
		samples: make([]health.Sample, 0, capacity),
	}
}

// append adds a sample, evicting the oldest once the window is full
func (w *window) append(s health.Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.filled && len(w.samples) < cap(w.samples) {
		w.samples = append(w.samples, s)
		if len(w.samples) == cap(w.samples) {
			w.filled = true
		}
		return
	}

	w.samples[w.next] = s
	w.next = (w.next + 1) % cap(w.samples)
}

// snapshot returns the window contents in chronological order
func (w *window) snapshot() []health.Sample {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]health.Sample, 0, len(w.samples))
	if w.filled {
		out = append(out, w.samples[w.next:]...)
		out = append(out, w.samples[:w.next]...)
	} else {
		out = append(out, w.samples...)
	}
	return out
}

// Monitor aggregates bounded per-agent outcome windows into classified
// health assessments
type Monitor struct {
	mu      sync.RWMutex
	windows map[string]*window
	policy  *policy.Policy
	now     func() time.Time
}

// Option is a functional option for Monitor
type Option func(*Monitor)

// WithClock overrides the clock, for tests
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// NewMonitor creates a health monitor with the given policy
func NewMonitor(p *policy.Policy, opts ...Option) *Monitor {
	m := &Monitor{
		windows: make(map[string]*window),
		policy:  p,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) windowOf(agentName string) *window {
	m.mu.RLock()
	w, ok := m.windows[agentName]
	m.mu.RUnlock()
	if ok {
		return w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[agentName]; ok {
		return w
	}
	w = newWindow(m.policy.Health.WindowSize)
	m.windows[agentName] = w
	return w
}

// Record appends a sample to the agent's window. Malformed samples are
// rejected with a validation error and the window stays uncorrupted.
func (m *Monitor) Record(ctx context.Context, agentName string, sample health.Sample) error {
	if sample.AgentName == "" {
		sample.AgentName = agentName
	}
	if sample.AgentName != agentName {
		return goerr.New("sample agent name mismatch",
			goerr.T(apperr.ErrTagValidation),
			goerr.V("agent_name", agentName),
			goerr.V("sample_agent", sample.AgentName))
	}
	if err := sample.Validate(); err != nil {
		return goerr.Wrap(err, "rejected malformed sample", goerr.V("agent_name", agentName))
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = m.now()
	}

	m.windowOf(agentName).append(sample)
	return nil
}

// Assess classifies the agent's current window. A zero-sample window
// yields an explicit unknown status, never healthy.
func (m *Monitor) Assess(ctx context.Context, agentName string) (*health.Assessment, error) {
	if agentName == "" {
		return nil, goerr.New("agent name is required", goerr.T(apperr.ErrTagValidation))
	}

	samples := m.windowOf(agentName).snapshot()

	assessment := &health.Assessment{
		AgentName:   agentName,
		SampleCount: len(samples),
		Trend:       health.TrendStable,
		AssessedAt:  m.now(),
	}

	if len(samples) == 0 {
		assessment.Status = health.StatusUnknown
		return assessment, nil
	}

	successes := 0
	allFailed := true
	for _, s := range samples {
		if s.Success {
			successes++
			allFailed = false
		}
	}

	rate := float64(successes) / float64(len(samples))
	assessment.SuccessRate = rate
	assessment.LatencyP95 = percentile(samples, 0.95)
	assessment.LatencyP99 = percentile(samples, 0.99)
	assessment.Trend = m.trendOf(samples)

	switch {
	case allFailed:
		// an all-failure window is critical no matter how small
		assessment.Status = health.StatusCritical
	case rate >= m.policy.Health.HealthyThreshold:
		assessment.Status = health.StatusHealthy
	case rate >= m.policy.Health.WarningThreshold:
		assessment.Status = health.StatusWarning
	case rate >= m.policy.Health.UnhealthyThreshold:
		assessment.Status = health.StatusUnhealthy
	default:
		assessment.Status = health.StatusCritical
	}

	return assessment, nil
}

// trendOf compares the success rate of the window's first half against
// its second half
func (m *Monitor) trendOf(samples []health.Sample) health.Trend {
	if len(samples) < 4 {
		return health.TrendStable
	}

	half := len(samples) / 2
	first := successRate(samples[:half])
	second := successRate(samples[half:])

	switch {
	case second-first > m.policy.Health.TrendBand:
		return health.TrendImproving
	case first-second > m.policy.Health.TrendBand:
		return health.TrendDegrading
	default:
		return health.TrendStable
	}
}

func successRate(samples []health.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	successes := 0
	for _, s := range samples {
		if s.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(samples))
}

// percentile computes a latency percentile over a sorted copy of the window
func percentile(samples []health.Sample, q float64) time.Duration {
	latencies := make([]time.Duration, len(samples))
	for i, s := range samples {
		latencies[i] = s.Latency
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	idx := int(q * float64(len(latencies)))
	if idx >= len(latencies) {
		idx = len(latencies) - 1
	}
	return latencies[idx]
}
