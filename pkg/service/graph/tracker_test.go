package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/oracle/pkg/domain/model/depgraph"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
	memorydb "github.com/m-mizutani/oracle/pkg/repository/database/memory"
	"github.com/m-mizutani/oracle/pkg/service/graph"
)

func newTracker(t *testing.T, edges ...[2]string) *graph.Tracker {
	t.Helper()
	ctx := context.Background()

	tracker, err := graph.New(ctx, memorydb.New())
	gt.NoError(t, err)

	for _, e := range edges {
		gt.NoError(t, tracker.AddDependency(ctx, &depgraph.Edge{
			Agent:     e[0],
			DependsOn: e[1],
			Relation:  depgraph.RelationRequires,
		}))
	}
	return tracker
}

func TestAddDependencyValidation(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()

	gt.Error(t, tracker.AddDependency(ctx, &depgraph.Edge{
		Agent: "a", DependsOn: "a", Relation: depgraph.RelationRequires,
	}))
	gt.Error(t, tracker.AddDependency(ctx, &depgraph.Edge{
		Agent: "a", DependsOn: "", Relation: depgraph.RelationRequires,
	}))
	gt.Error(t, tracker.AddDependency(ctx, &depgraph.Edge{
		Agent: "a", DependsOn: "b", Relation: "friend",
	}))
}

func TestAddDependencyIdempotent(t *testing.T) {
	tracker := newTracker(t,
		[2]string{"a", "b"},
		[2]string{"a", "b"},
	)
	gt.Equal(t, len(tracker.Export()), 1)
}

func TestTrackerReloadsPersistedEdges(t *testing.T) {
	db := memorydb.New()
	ctx := context.Background()

	first, err := graph.New(ctx, db)
	gt.NoError(t, err)
	gt.NoError(t, first.AddDependency(ctx, &depgraph.Edge{
		Agent: "api", DependsOn: "db", Relation: depgraph.RelationRequires,
	}))

	second, err := graph.New(ctx, db)
	gt.NoError(t, err)
	gt.Equal(t, len(second.Export()), 1)
	gt.Equal(t, second.DirectDependents("db"), []string{"api"})
}

func TestDetectCyclesTriangle(t *testing.T) {
	tracker := newTracker(t,
		[2]string{"a", "b"},
		[2]string{"b", "c"},
		[2]string{"c", "a"},
	)

	cycles := tracker.DetectCycles()
	gt.Equal(t, len(cycles), 1)
	gt.Equal(t, cycles[0], []string{"a", "b", "c"})
}

func TestDetectCyclesNone(t *testing.T) {
	tracker := newTracker(t,
		[2]string{"a", "b"},
		[2]string{"b", "c"},
		[2]string{"a", "c"},
	)
	gt.Equal(t, len(tracker.DetectCycles()), 0)
}

func TestAnalyzeUpdateImpactNoDependents(t *testing.T) {
	tracker := newTracker(t, [2]string{"loner", "helper"})

	impact, err := tracker.AnalyzeUpdateImpact(context.Background(), "loner", "1.1.0", nil)
	gt.NoError(t, err)
	gt.Equal(t, impact.TotalAffected, 0)
	gt.Equal(t, impact.UpdateOrder, []string{"loner"})
	gt.Equal(t, len(impact.DirectDependents), 0)
}

func TestAnalyzeUpdateImpactBlastRadius(t *testing.T) {
	// web -> api -> db, worker -> db
	tracker := newTracker(t,
		[2]string{"web", "api"},
		[2]string{"api", "db"},
		[2]string{"worker", "db"},
	)

	current := &version.Record{
		Version: version.Triple{Major: 1, Minor: 2, Patch: 0},
	}

	impact, err := tracker.AnalyzeUpdateImpact(context.Background(), "db", "2.0.0", current)
	gt.NoError(t, err)
	gt.Equal(t, impact.DirectDependents, []string{"api", "worker"})
	gt.Equal(t, impact.IndirectDependents, []string{"web"})
	gt.Equal(t, impact.TotalAffected, 3)
	gt.Equal(t, impact.BreakingRisk, depgraph.RiskHigh)

	// the target comes first, every dependent after what it depends on
	gt.Equal(t, impact.UpdateOrder[0], "db")
	gt.Equal(t, len(impact.UpdateOrder), 4)
	position := map[string]int{}
	for i, name := range impact.UpdateOrder {
		position[name] = i
	}
	gt.True(t, position["api"] < position["web"])
}

func TestAnalyzeUpdateImpactBreakingRisk(t *testing.T) {
	tracker := newTracker(t, [2]string{"client", "lib"})

	withBreaking := &version.Record{
		Version:         version.Triple{Major: 1, Minor: 0, Patch: 0},
		BreakingChanges: []string{"changed signature"},
	}

	impact, err := tracker.AnalyzeUpdateImpact(context.Background(), "lib", "1.1.0", withBreaking)
	gt.NoError(t, err)
	gt.Equal(t, impact.BreakingRisk, depgraph.RiskMedium)

	clean := &version.Record{Version: version.Triple{Major: 1, Minor: 0, Patch: 0}}
	impact, err = tracker.AnalyzeUpdateImpact(context.Background(), "lib", "1.0.1", clean)
	gt.NoError(t, err)
	gt.Equal(t, impact.BreakingRisk, depgraph.RiskLow)
}

func TestAnalyzeUpdateImpactCycle(t *testing.T) {
	tracker := newTracker(t,
		[2]string{"a", "b"},
		[2]string{"b", "a"},
	)

	impact, err := tracker.AnalyzeUpdateImpact(context.Background(), "a", "2.0.0", nil)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, apperr.ErrCycleBlocksOrder))
	gt.NotNil(t, impact)
	gt.Equal(t, impact.Cycle, []string{"a", "b"})
	gt.Equal(t, len(impact.UpdateOrder), 0)
}

func TestUpdateOrderForRestrictedSet(t *testing.T) {
	// y depends on x; z is unrelated
	tracker := newTracker(t,
		[2]string{"y", "x"},
		[2]string{"z", "w"},
	)

	order, ok := tracker.UpdateOrderFor([]string{"y", "x"})
	gt.True(t, ok)
	gt.Equal(t, order, []string{"x", "y"})

	// a cycle inside the set yields no order
	cyclic := newTracker(t,
		[2]string{"p", "q"},
		[2]string{"q", "p"},
	)
	_, ok = cyclic.UpdateOrderFor([]string{"p", "q"})
	gt.False(t, ok)
}

func TestHasDependencyData(t *testing.T) {
	tracker := newTracker(t, [2]string{"a", "b"})

	gt.True(t, tracker.HasDependencyData([]string{"a"}))
	gt.True(t, tracker.HasDependencyData([]string{"b"}))
	gt.False(t, tracker.HasDependencyData([]string{"c", "d"}))
}
