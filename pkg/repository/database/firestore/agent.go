package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/agent"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Agent Firestore document structure. The derived health status is
// intentionally absent: it is recomputed, never persisted.
type agentDoc struct {
	Name           string    `firestore:"name"`
	CurrentVersion string    `firestore:"current_version"`
	LastSeen       time.Time `firestore:"last_seen"`
	CreatedAt      time.Time `firestore:"created_at"`
	UpdatedAt      time.Time `firestore:"updated_at"`
}

func (d *agentDoc) toModel() *agent.Agent {
	return &agent.Agent{
		Name:           d.Name,
		CurrentVersion: d.CurrentVersion,
		LastSeen:       d.LastSeen,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// PutAgent stores an agent record keyed by name
func (c *Client) PutAgent(ctx context.Context, a *agent.Agent) error {
	if err := agent.ValidateName(a.Name); err != nil {
		return goerr.Wrap(err, "invalid agent record", goerr.V("agent_name", a.Name))
	}

	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	doc := &agentDoc{
		Name:           a.Name,
		CurrentVersion: a.CurrentVersion,
		LastSeen:       a.LastSeen,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}

	if _, err := c.client.Collection(collectionAgents).Doc(a.Name).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put agent", goerr.V("agent_name", a.Name))
	}

	return nil
}

// GetAgent retrieves an agent by name
func (c *Client) GetAgent(ctx context.Context, name string) (*agent.Agent, error) {
	if name == "" {
		return nil, goerr.Wrap(agent.ErrEmptyName, "agent name is required")
	}

	doc, err := c.client.Collection(collectionAgents).Doc(name).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(agent.ErrNotFound, "agent not found", goerr.V("agent_name", name))
		}
		return nil, goerr.Wrap(err, "failed to get agent", goerr.V("agent_name", name))
	}

	var d agentDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal agent data", goerr.V("agent_name", name))
	}

	return d.toModel(), nil
}

// ListAgents returns all registered agents ordered by name
func (c *Client) ListAgents(ctx context.Context) ([]*agent.Agent, error) {
	iter := c.client.Collection(collectionAgents).OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var agents []*agent.Agent
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate agents")
		}

		var d agentDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal agent data")
		}
		agents = append(agents, d.toModel())
	}

	return agents, nil
}

// UpdateLastSeen updates the last-seen timestamp of an agent
func (c *Client) UpdateLastSeen(ctx context.Context, name string, seen time.Time) error {
	return c.updateAgent(ctx, name, []firestore.Update{
		{Path: "last_seen", Value: seen},
		{Path: "updated_at", Value: time.Now()},
	})
}

// UpdateCurrentVersion updates the current version of an agent
func (c *Client) UpdateCurrentVersion(ctx context.Context, name, v string) error {
	return c.updateAgent(ctx, name, []firestore.Update{
		{Path: "current_version", Value: v},
		{Path: "updated_at", Value: time.Now()},
	})
}

func (c *Client) updateAgent(ctx context.Context, name string, updates []firestore.Update) error {
	if _, err := c.client.Collection(collectionAgents).Doc(name).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(agent.ErrNotFound, "agent not found", goerr.V("agent_name", name))
		}
		return goerr.Wrap(err, "failed to update agent", goerr.V("agent_name", name))
	}

	return nil
}
