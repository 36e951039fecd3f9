package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/agent"
)

// PutAgent stores an agent record keyed by name
func (c *Client) PutAgent(ctx context.Context, a *agent.Agent) error {
	if err := agent.ValidateName(a.Name); err != nil {
		return goerr.Wrap(err, "invalid agent record", goerr.V("agent_name", a.Name))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Copy to avoid external modifications
	agentCopy := *a
	c.agents[a.Name] = &agentCopy

	return nil
}

// GetAgent retrieves an agent by name
func (c *Client) GetAgent(ctx context.Context, name string) (*agent.Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, exists := c.agents[name]
	if !exists {
		return nil, goerr.Wrap(agent.ErrNotFound, "agent not found", goerr.V("agent_name", name))
	}

	agentCopy := *a
	return &agentCopy, nil
}

// ListAgents returns all registered agents ordered by name
func (c *Client) ListAgents(ctx context.Context) ([]*agent.Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	agents := make([]*agent.Agent, 0, len(c.agents))
	for _, a := range c.agents {
		agentCopy := *a
		agents = append(agents, &agentCopy)
	}

	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Name < agents[j].Name
	})

	return agents, nil
}

// UpdateLastSeen updates the last-seen timestamp of an agent
func (c *Client) UpdateLastSeen(ctx context.Context, name string, seen time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, exists := c.agents[name]
	if !exists {
		return goerr.Wrap(agent.ErrNotFound, "agent not found", goerr.V("agent_name", name))
	}

	a.LastSeen = seen
	a.UpdatedAt = time.Now()

	return nil
}

// UpdateCurrentVersion updates the current version of an agent
func (c *Client) UpdateCurrentVersion(ctx context.Context, name, v string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, exists := c.agents[name]
	if !exists {
		return goerr.Wrap(agent.ErrNotFound, "agent not found", goerr.V("agent_name", name))
	}

	a.CurrentVersion = v
	a.UpdatedAt = time.Now()

	return nil
}
