package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/agent"
	"github.com/m-mizutani/oracle/pkg/domain/model/fleet"
	"github.com/m-mizutani/oracle/pkg/domain/model/health"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

// PlanMultiAgentTask orders a task across the required agents so that
// dependencies run first. The plan is advisory: an unsafe plan is still
// returned, flagged, with the reasons in its warnings.
func (uc *Coordinator) PlanMultiAgentTask(ctx context.Context, description string, required []string, priority fleet.TaskPriority) (*fleet.TaskPlan, error) {
	if description == "" {
		return nil, goerr.New("task description is required", goerr.T(apperr.ErrTagValidation))
	}
	if len(required) == 0 {
		return nil, goerr.New("at least one required agent is needed", goerr.T(apperr.ErrTagValidation))
	}
	if priority == "" {
		priority = fleet.PriorityNormal
	}
	if !priority.IsValid() {
		return nil, goerr.New("invalid task priority",
			goerr.T(apperr.ErrTagValidation), goerr.V("priority", priority))
	}
	for _, name := range required {
		if err := agent.ValidateName(name); err != nil {
			return nil, err
		}
	}

	plan := &fleet.TaskPlan{
		Description: description,
		Priority:    priority,
		CreatedAt:   uc.now(),
	}

	for _, name := range required {
		if _, err := uc.agentRepo.GetAgent(ctx, name); err != nil {
			return nil, err
		}

		assessment, err := uc.monitor.Assess(ctx, name)
		if err != nil {
			return nil, err
		}

		switch assessment.Status {
		case health.StatusHealthy:
			// nothing to flag
		case health.StatusUnknown:
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("agent %s has no recorded outcomes yet", name))
		default:
			plan.Unsafe = true
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("agent %s is %s (success rate %.3f)", name, assessment.Status, assessment.SuccessRate))
		}
	}

	if !uc.tracker.HasDependencyData(required) {
		plan.ExecutionOrder = append([]string(nil), required...)
		plan.Warnings = append(plan.Warnings,
			"no dependency data for the required agents; keeping caller order")
		return plan, nil
	}

	order, ok := uc.tracker.UpdateOrderFor(required)
	if !ok {
		return nil, goerr.Wrap(apperr.ErrCycleBlocksOrder, "required agents contain a dependency cycle",
			goerr.V("required", required))
	}
	plan.ExecutionOrder = order

	ctxlog.From(ctx).Info("planned multi agent task",
		"description", description,
		"priority", priority,
		"execution_order", plan.ExecutionOrder,
		"unsafe", plan.Unsafe,
	)

	return plan, nil
}

// PlanVersionUpdate builds a phased rollout for moving an agent to a new
// version: the target updates first, then each layer of dependents
// outward, so a bad update is caught before it spreads.
func (uc *Coordinator) PlanVersionUpdate(ctx context.Context, agentName, newVersion string) (*fleet.RolloutPlan, error) {
	if err := agent.ValidateName(agentName); err != nil {
		return nil, err
	}
	if _, err := version.Parse(newVersion); err != nil {
		return nil, err
	}
	if _, err := uc.agentRepo.GetAgent(ctx, agentName); err != nil {
		return nil, err
	}

	plan := &fleet.RolloutPlan{
		Agent:      agentName,
		NewVersion: newVersion,
		Phases:     [][]string{{agentName}},
		CreatedAt:  uc.now(),
	}

	visited := map[string]struct{}{agentName: {}}
	frontier := []string{agentName}

	for len(frontier) > 0 {
		var next []string
		for _, node := range frontier {
			for _, dependent := range uc.tracker.DirectDependents(node) {
				if _, seen := visited[dependent]; seen {
					continue
				}
				visited[dependent] = struct{}{}
				next = append(next, dependent)
			}
		}
		if len(next) > 0 {
			plan.Phases = append(plan.Phases, next)
		}
		frontier = next
	}

	return plan, nil
}

// PhaseAction is the per-agent step a rollout executes. The coordinator
// sequences phases; what updating an agent means belongs to the caller
// since agent internals are opaque here.
type PhaseAction func(ctx context.Context, agentName string) error

// ExecuteRollout runs a phased plan sequentially and best-effort: a
// failed agent halts the rollout at its phase, reported by index. There
// is no cross-agent transaction and no automatic unwind.
func (uc *Coordinator) ExecuteRollout(ctx context.Context, plan *fleet.RolloutPlan, apply PhaseAction) (*fleet.RolloutResult, error) {
	if plan == nil {
		return nil, goerr.New("rollout plan cannot be nil", goerr.T(apperr.ErrTagValidation))
	}
	if apply == nil {
		return nil, goerr.New("rollout action cannot be nil", goerr.T(apperr.ErrTagValidation))
	}

	result := &fleet.RolloutResult{
		Agent:       plan.Agent,
		FailedPhase: -1,
	}

	for i, phase := range plan.Phases {
		for _, name := range phase {
			if err := apply(ctx, name); err != nil {
				result.FailedPhase = i
				result.Error = err.Error()

				ctxlog.From(ctx).Error("rollout halted on failed phase",
					"agent", plan.Agent,
					"phase", i,
					"failed_on", name,
				)
				return result, goerr.Wrap(err, "rollout phase failed",
					goerr.V("phase", i), goerr.V("agent_name", name))
			}
		}
		result.CompletedPhases++

		ctxlog.From(ctx).Info("rollout phase completed",
			"agent", plan.Agent,
			"phase", i,
			"members", phase,
		)
	}

	return result, nil
}
