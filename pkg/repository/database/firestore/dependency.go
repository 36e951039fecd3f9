package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/depgraph"
	"google.golang.org/api/iterator"
)

// Dependency edge Firestore document structure
type edgeDoc struct {
	Agent      string    `firestore:"agent"`
	DependsOn  string    `firestore:"depends_on"`
	Constraint string    `firestore:"constraint"`
	Relation   string    `firestore:"relation"`
	UpdatedAt  time.Time `firestore:"updated_at"`
}

// edgeDocID keys the document by the edge pair so upserts are idempotent
func edgeDocID(agent, dependsOn string) string {
	return fmt.Sprintf("%s__%s", agent, dependsOn)
}

// UpsertEdge inserts or replaces an edge keyed by (agent, depends_on)
func (c *Client) UpsertEdge(ctx context.Context, edge *depgraph.Edge) error {
	if err := edge.Validate(); err != nil {
		return goerr.Wrap(err, "invalid dependency edge")
	}

	doc := &edgeDoc{
		Agent:      edge.Agent,
		DependsOn:  edge.DependsOn,
		Constraint: edge.Constraint,
		Relation:   edge.Relation.String(),
		UpdatedAt:  time.Now(),
	}

	id := edgeDocID(edge.Agent, edge.DependsOn)
	if _, err := c.client.Collection(collectionDependencies).Doc(id).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to upsert dependency edge",
			goerr.V("agent", edge.Agent), goerr.V("depends_on", edge.DependsOn))
	}

	return nil
}

// ListEdges returns all dependency edges
func (c *Client) ListEdges(ctx context.Context) ([]*depgraph.Edge, error) {
	iter := c.client.Collection(collectionDependencies).OrderBy("agent", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var edges []*depgraph.Edge
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate dependency edges")
		}

		var d edgeDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal dependency edge")
		}

		edges = append(edges, &depgraph.Edge{
			Agent:      d.Agent,
			DependsOn:  d.DependsOn,
			Constraint: d.Constraint,
			Relation:   depgraph.Relation(d.Relation),
			UpdatedAt:  d.UpdatedAt,
		})
	}

	return edges, nil
}
