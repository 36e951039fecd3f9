package interfaces

import (
	"context"

	"github.com/m-mizutani/oracle/pkg/domain/model/alert"
)

// AlertNotifier delivers raised alerts to an external channel.
// Delivery failures are logged, never propagated into scan results.
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, a *alert.Alert) error
}

// RemediationHandler is a callback registered by an agent for one strategy.
// It runs under a bounded timeout; a timed-out handler counts as a failed fix.
type RemediationHandler func(ctx context.Context) error
