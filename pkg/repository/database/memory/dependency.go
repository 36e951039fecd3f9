package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/depgraph"
)

// UpsertEdge inserts or replaces an edge keyed by (agent, depends_on)
func (c *Client) UpsertEdge(ctx context.Context, edge *depgraph.Edge) error {
	if err := edge.Validate(); err != nil {
		return goerr.Wrap(err, "invalid dependency edge")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	edgeCopy := *edge
	c.edges[edgeKey{agent: edge.Agent, dependsOn: edge.DependsOn}] = &edgeCopy

	return nil
}

// ListEdges returns all edges in a stable order
func (c *Client) ListEdges(ctx context.Context) ([]*depgraph.Edge, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	edges := make([]*depgraph.Edge, 0, len(c.edges))
	for _, e := range c.edges {
		edgeCopy := *e
		edges = append(edges, &edgeCopy)
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Agent != edges[j].Agent {
			return edges[i].Agent < edges[j].Agent
		}
		return edges[i].DependsOn < edges[j].DependsOn
	})

	return edges, nil
}
