package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

// AppendRecord appends a record to the agent's ledger. Records are
// append-only; an existing version number is a conflict.
func (c *Client) AppendRecord(ctx context.Context, rec *version.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.versions[rec.AgentName] {
		if existing.Version == rec.Version {
			return goerr.Wrap(apperr.ErrVersionConflict, "record already exists",
				goerr.V("agent_name", rec.AgentName),
				goerr.V("version", rec.Version.String()))
		}
	}

	recCopy := *rec
	recCopy.BreakingChanges = append([]string(nil), rec.BreakingChanges...)
	c.versions[rec.AgentName] = append(c.versions[rec.AgentName], &recCopy)

	return nil
}

// GetRecord retrieves one version record of an agent
func (c *Client) GetRecord(ctx context.Context, agentName, v string) (*version.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, rec := range c.versions[agentName] {
		if rec.Version.String() == v {
			recCopy := *rec
			recCopy.BreakingChanges = append([]string(nil), rec.BreakingChanges...)
			return &recCopy, nil
		}
	}

	return nil, goerr.Wrap(apperr.ErrVersionNotFound, "version record not found",
		goerr.V("agent_name", agentName), goerr.V("version", v))
}

// ListRecords returns the ledger most recent first. limit <= 0 returns all.
func (c *Client) ListRecords(ctx context.Context, agentName string, limit int) ([]*version.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records := c.versions[agentName]
	result := make([]*version.Record, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		recCopy := *records[i]
		recCopy.BreakingChanges = append([]string(nil), records[i].BreakingChanges...)
		result = append(result, &recCopy)
	}

	return result, nil
}

// LatestRecord returns the most recent record of an agent
func (c *Client) LatestRecord(ctx context.Context, agentName string) (*version.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	records := c.versions[agentName]
	if len(records) == 0 {
		return nil, goerr.Wrap(apperr.ErrVersionNotFound, "agent has no version records",
			goerr.V("agent_name", agentName))
	}

	last := records[len(records)-1]
	recCopy := *last
	recCopy.BreakingChanges = append([]string(nil), last.BreakingChanges...)
	return &recCopy, nil
}
