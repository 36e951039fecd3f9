package graph

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/interfaces"
	"github.com/m-mizutani/oracle/pkg/domain/model/depgraph"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

// Tracker maintains the fleet-wide dependency graph. Mutation is rare
// relative to reads, so one read-write lock around the whole graph gives
// queries a consistent snapshot.
type Tracker struct {
	repo interfaces.DependencyRepository

	mu      sync.RWMutex
	forward map[string]map[string]*depgraph.Edge // agent -> depends_on
	reverse map[string]map[string]struct{}       // depends_on -> dependents
}

// New creates a tracker and loads persisted edges
func New(ctx context.Context, repo interfaces.DependencyRepository) (*Tracker, error) {
	t := &Tracker{
		repo:    repo,
		forward: make(map[string]map[string]*depgraph.Edge),
		reverse: make(map[string]map[string]struct{}),
	}

	edges, err := repo.ListEdges(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load dependency edges")
	}
	for _, e := range edges {
		t.insert(e)
	}

	return t, nil
}

func (t *Tracker) insert(e *depgraph.Edge) {
	if t.forward[e.Agent] == nil {
		t.forward[e.Agent] = make(map[string]*depgraph.Edge)
	}
	t.forward[e.Agent][e.DependsOn] = e

	if t.reverse[e.DependsOn] == nil {
		t.reverse[e.DependsOn] = make(map[string]struct{})
	}
	t.reverse[e.DependsOn][e.Agent] = struct{}{}
}

// AddDependency upserts an edge idempotently and persists it
func (t *Tracker) AddDependency(ctx context.Context, edge *depgraph.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	if edge.UpdatedAt.IsZero() {
		edge.UpdatedAt = time.Now()
	}

	if err := t.repo.UpsertEdge(ctx, edge); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	edgeCopy := *edge
	t.insert(&edgeCopy)

	return nil
}

// Export returns a snapshot of all edges in a stable order
func (t *Tracker) Export() []*depgraph.Edge {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var edges []*depgraph.Edge
	for _, deps := range t.forward {
		for _, e := range deps {
			edgeCopy := *e
			edges = append(edges, &edgeCopy)
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Agent != edges[j].Agent {
			return edges[i].Agent < edges[j].Agent
		}
		return edges[i].DependsOn < edges[j].DependsOn
	})

	return edges
}

// DetectCycles finds every dependency cycle with a linear-time DFS using
// recursion-stack coloring. Cycles are flagged, not forbidden: transient
// cycles can occur during coordinated refactors.
func (t *Tracker) DetectCycles() [][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.detectCyclesLocked()
}

const (
	white = iota // unvisited
	gray         // on the recursion stack
	black        // fully explored
)

func (t *Tracker) detectCyclesLocked() [][]string {
	color := make(map[string]int)
	var cycles [][]string

	nodes := make([]string, 0, len(t.forward))
	for n := range t.forward {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	var stack []string
	onStack := make(map[string]int) // node -> index in stack

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		onStack[node] = len(stack)
		stack = append(stack, node)

		deps := make([]string, 0, len(t.forward[node]))
		for d := range t.forward[node] {
			deps = append(deps, d)
		}
		sort.Strings(deps)

		for _, dep := range deps {
			switch color[dep] {
			case white:
				visit(dep)
			case gray:
				// the slice of the stack from dep onward is one cycle
				members := append([]string(nil), stack[onStack[dep]:]...)
				sort.Strings(members)
				cycles = append(cycles, members)
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, node)
		color[node] = black
	}

	for _, n := range nodes {
		if color[n] == white {
			visit(n)
		}
	}

	return cycles
}

// cycleOf returns the members of a cycle containing the node, or nil
func (t *Tracker) cycleOf(node string) []string {
	for _, cycle := range t.detectCyclesLocked() {
		for _, member := range cycle {
			if member == node {
				return cycle
			}
		}
	}
	return nil
}

// AnalyzeUpdateImpact computes the blast radius of updating an agent to
// a new version. It is a pure query and never mutates the graph. When
// the target participates in a cycle no total order exists, so the call
// reports the cycle instead of guessing one.
func (t *Tracker) AnalyzeUpdateImpact(ctx context.Context, agentName, newVersion string, current *version.Record) (*depgraph.Impact, error) {
	newTriple, err := version.Parse(newVersion)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	impact := &depgraph.Impact{
		Agent:      agentName,
		NewVersion: newVersion,
	}

	impact.DirectDependents = t.directDependentsLocked(agentName)

	reachable := t.reverseReachableLocked(agentName)
	for _, dep := range reachable {
		if !contains(impact.DirectDependents, dep) {
			impact.IndirectDependents = append(impact.IndirectDependents, dep)
		}
	}
	sort.Strings(impact.IndirectDependents)
	impact.TotalAffected = len(reachable)

	impact.BreakingRisk = classifyBreakingRisk(newTriple, current)

	if cycle := t.cycleOf(agentName); cycle != nil {
		impact.Cycle = cycle
		return impact, goerr.Wrap(apperr.ErrCycleBlocksOrder, "target agent participates in a cycle",
			goerr.V("agent_name", agentName), goerr.V("cycle", cycle))
	}

	impact.UpdateOrder = t.updateOrderLocked(agentName, reachable)
	return impact, nil
}

// UpdateOrderFor computes a dependency-respecting order over a restricted
// set of agents. It returns ok=false when the set contains a cycle.
func (t *Tracker) UpdateOrderFor(agents []string) ([]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	include := make(map[string]struct{}, len(agents))
	for _, a := range agents {
		include[a] = struct{}{}
	}

	// Kahn's algorithm over the restricted subgraph: dependencies first
	indegree := make(map[string]int, len(agents))
	for _, a := range agents {
		indegree[a] = 0
	}
	for _, a := range agents {
		for dep := range t.forward[a] {
			if _, ok := include[dep]; ok {
				indegree[a]++
			}
		}
	}

	var queue []string
	for _, a := range agents {
		if indegree[a] == 0 {
			queue = append(queue, a)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var released []string
		for dependent := range t.reverse[node] {
			if _, ok := include[dependent]; !ok {
				continue
			}
			indegree[dependent]--
			if indegree[dependent] == 0 {
				released = append(released, dependent)
			}
		}
		sort.Strings(released)
		queue = append(queue, released...)
	}

	if len(order) != len(agents) {
		return nil, false
	}
	return order, true
}

// HasDependencyData reports whether any of the agents appear in the graph
func (t *Tracker) HasDependencyData(agents []string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, a := range agents {
		if len(t.forward[a]) > 0 || len(t.reverse[a]) > 0 {
			return true
		}
	}
	return false
}

// DirectDependents returns the agents that directly depend on the given one
func (t *Tracker) DirectDependents(agentName string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.directDependentsLocked(agentName)
}

func (t *Tracker) directDependentsLocked(agentName string) []string {
	deps := make([]string, 0, len(t.reverse[agentName]))
	for d := range t.reverse[agentName] {
		deps = append(deps, d)
	}
	sort.Strings(deps)
	return deps
}

// reverseReachableLocked returns every agent that transitively depends
// on the given one, via BFS over reverse edges
func (t *Tracker) reverseReachableLocked(agentName string) []string {
	visited := make(map[string]struct{})
	queue := []string{agentName}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for dependent := range t.reverse[node] {
			if _, seen := visited[dependent]; seen || dependent == agentName {
				continue
			}
			visited[dependent] = struct{}{}
			queue = append(queue, dependent)
		}
	}

	reachable := make([]string, 0, len(visited))
	for n := range visited {
		reachable = append(reachable, n)
	}
	sort.Strings(reachable)
	return reachable
}

// updateOrderLocked computes the rollout order over the affected
// subgraph: the target first, then dependents in reverse-topological
// order so nothing updates before what it depends on
func (t *Tracker) updateOrderLocked(agentName string, affected []string) []string {
	include := map[string]struct{}{agentName: {}}
	for _, a := range affected {
		include[a] = struct{}{}
	}

	indegree := make(map[string]int, len(include))
	for node := range include {
		indegree[node] = 0
	}
	for node := range include {
		for dep := range t.forward[node] {
			if _, ok := include[dep]; ok {
				indegree[node]++
			}
		}
	}

	var queue []string
	for node := range include {
		if indegree[node] == 0 {
			queue = append(queue, node)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var released []string
		for dependent := range t.reverse[node] {
			if _, ok := include[dependent]; !ok {
				continue
			}
			indegree[dependent]--
			if indegree[dependent] == 0 {
				released = append(released, dependent)
			}
		}
		sort.Strings(released)
		queue = append(queue, released...)
	}

	return order
}

// classifyBreakingRisk follows the declared-constraint rule: a major
// bump is high risk, a minor bump with declared breaking changes is
// medium, anything else is low
func classifyBreakingRisk(next version.Triple, current *version.Record) depgraph.BreakingRisk {
	if current == nil {
		if next.Major > 0 && next.Minor == 0 && next.Patch == 0 {
			return depgraph.RiskHigh
		}
		return depgraph.RiskLow
	}

	switch {
	case next.Major > current.Version.Major:
		return depgraph.RiskHigh
	case next.Minor > current.Version.Minor && len(current.BreakingChanges) > 0:
		return depgraph.RiskMedium
	default:
		return depgraph.RiskLow
	}
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
