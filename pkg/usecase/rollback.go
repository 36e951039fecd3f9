package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/oracle/pkg/domain/model/alert"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/utils/errors"
)

// EmergencyRollback forces an agent back to a prior version and always
// raises a critical alert, whether or not the rollback itself succeeds.
// It exists for incident response; routine rollbacks go through the
// ledger's safety classification instead.
func (uc *Coordinator) EmergencyRollback(ctx context.Context, agentName, targetVersion string) (*version.RollbackResult, error) {
	result, err := uc.ledger.Rollback(ctx, agentName, targetVersion, true)

	issue := fmt.Sprintf("emergency rollback to %s", targetVersion)
	alertContext := map[string]string{
		"target_version": targetVersion,
	}
	if err != nil {
		alertContext["error"] = err.Error()
	} else {
		alertContext["restored_version"] = result.RestoredVersion
	}

	if _, alertErr := uc.RaiseAlert(ctx, agentName, issue, alert.SeverityCritical, alertContext); alertErr != nil {
		// the rollback outcome matters more than the alert record
		errors.Handle(ctx, alertErr)
	}

	if err != nil {
		return result, err
	}

	ctxlog.From(ctx).Warn("emergency rollback executed",
		"agent_name", agentName,
		"restored_version", result.RestoredVersion,
		"safety_level", result.SafetyLevel,
	)

	return result, nil
}
