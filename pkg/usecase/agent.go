package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/agent"
	"github.com/m-mizutani/oracle/pkg/domain/model/depgraph"
	"github.com/m-mizutani/oracle/pkg/domain/model/health"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

// Heartbeat records contact from an agent. An unknown agent is
// registered on first contact at the sentinel version.
func (uc *Coordinator) Heartbeat(ctx context.Context, agentName string) (*agent.Agent, error) {
	if err := agent.ValidateName(agentName); err != nil {
		return nil, err
	}

	now := uc.now()

	a, err := uc.agentRepo.GetAgent(ctx, agentName)
	if err != nil {
		if !errors.Is(err, agent.ErrNotFound) {
			return nil, err
		}

		a = agent.New(agentName, now)
		if err := uc.agentRepo.PutAgent(ctx, a); err != nil {
			return nil, err
		}

		ctxlog.From(ctx).Info("registered agent on first contact",
			"agent_name", agentName,
		)
		return a, nil
	}

	if err := uc.agentRepo.UpdateLastSeen(ctx, agentName, now); err != nil {
		return nil, err
	}
	a.LastSeen = now
	return a, nil
}

// RecordMetric feeds one outcome sample into the agent's health window.
// The agent is registered implicitly so metrics never get dropped while
// a heartbeat is still in flight.
func (uc *Coordinator) RecordMetric(ctx context.Context, agentName string, sample health.Sample) error {
	if _, err := uc.Heartbeat(ctx, agentName); err != nil {
		return err
	}
	return uc.monitor.Record(ctx, agentName, sample)
}

// AssessHealth classifies an agent's current health window
func (uc *Coordinator) AssessHealth(ctx context.Context, agentName string) (*health.Assessment, error) {
	if err := agent.ValidateName(agentName); err != nil {
		return nil, err
	}
	if _, err := uc.agentRepo.GetAgent(ctx, agentName); err != nil {
		return nil, err
	}
	return uc.monitor.Assess(ctx, agentName)
}

// GetAgent returns one agent with its derived health status attached
func (uc *Coordinator) GetAgent(ctx context.Context, agentName string) (*agent.Agent, error) {
	a, err := uc.agentRepo.GetAgent(ctx, agentName)
	if err != nil {
		return nil, err
	}

	assessment, err := uc.monitor.Assess(ctx, agentName)
	if err != nil {
		return nil, err
	}
	a.Status = assessment.Status.String()
	return a, nil
}

// ListAgents returns the fleet with derived health statuses attached
func (uc *Coordinator) ListAgents(ctx context.Context) ([]*agent.Agent, error) {
	agents, err := uc.agentRepo.ListAgents(ctx)
	if err != nil {
		return nil, err
	}

	for _, a := range agents {
		assessment, err := uc.monitor.Assess(ctx, a.Name)
		if err != nil {
			return nil, err
		}
		a.Status = assessment.Status.String()
	}
	return agents, nil
}

// AnalyzeImpact computes the blast radius of moving an agent to a new
// version, using the agent's latest ledger record for risk classification
func (uc *Coordinator) AnalyzeImpact(ctx context.Context, agentName, newVersion string) (*depgraph.Impact, error) {
	if err := agent.ValidateName(agentName); err != nil {
		return nil, err
	}
	if _, err := uc.agentRepo.GetAgent(ctx, agentName); err != nil {
		return nil, err
	}

	latest, err := uc.ledger.Latest(ctx, agentName)
	if err != nil && !errors.Is(err, apperr.ErrVersionNotFound) {
		return nil, goerr.Wrap(err, "failed to load latest version record",
			goerr.V("agent_name", agentName))
	}

	return uc.tracker.AnalyzeUpdateImpact(ctx, agentName, newVersion, latest)
}
