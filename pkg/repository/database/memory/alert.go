package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/alert"
	"github.com/m-mizutani/oracle/pkg/domain/types"
)

// PutAlert stores a new alert
func (c *Client) PutAlert(ctx context.Context, a *alert.Alert) error {
	if !a.ID.IsValid() {
		return goerr.New("alert ID is required", goerr.V("alert_id", a.ID))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	aCopy := *a
	c.alerts = append(c.alerts, &aCopy)
	c.alertByID[a.ID] = &aCopy

	return nil
}

// GetAlert retrieves an alert by ID
func (c *Client) GetAlert(ctx context.Context, id types.AlertID) (*alert.Alert, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, exists := c.alertByID[id]
	if !exists {
		return nil, goerr.Wrap(alert.ErrNotFound, "alert not found",
			goerr.V("alert_id", id))
	}

	aCopy := *a
	return &aCopy, nil
}

// ListAlerts returns alerts newest first. limit <= 0 returns all.
func (c *Client) ListAlerts(ctx context.Context, limit int) ([]*alert.Alert, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*alert.Alert, 0, len(c.alerts))
	for i := len(c.alerts) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		aCopy := *c.alerts[i]
		result = append(result, &aCopy)
	}

	return result, nil
}

// LatestAlertBySignature returns the most recent alert with the given
// dedupe signature, or nil when none exists
func (c *Client) LatestAlertBySignature(ctx context.Context, signature string) (*alert.Alert, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.alerts) - 1; i >= 0; i-- {
		if c.alerts[i].Signature == signature {
			aCopy := *c.alerts[i]
			return &aCopy, nil
		}
	}

	return nil, nil
}

// AcknowledgeAlert marks an alert as acknowledged
func (c *Client) AcknowledgeAlert(ctx context.Context, id types.AlertID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, exists := c.alertByID[id]
	if !exists {
		return goerr.Wrap(alert.ErrNotFound, "alert not found",
			goerr.V("alert_id", id))
	}

	a.Acknowledged = true

	return nil
}
