package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/oracle/pkg/domain/model/agent"
	"github.com/m-mizutani/oracle/pkg/domain/model/alert"
	"github.com/m-mizutani/oracle/pkg/domain/model/depgraph"
	"github.com/m-mizutani/oracle/pkg/domain/model/remediation"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/domain/types"
)

// AgentRepository manages agent record persistence, keyed by agent name
type AgentRepository interface {
	PutAgent(ctx context.Context, a *agent.Agent) error
	GetAgent(ctx context.Context, name string) (*agent.Agent, error)
	ListAgents(ctx context.Context) ([]*agent.Agent, error)
	UpdateLastSeen(ctx context.Context, name string, seen time.Time) error
	UpdateCurrentVersion(ctx context.Context, name, v string) error
}

// VersionRepository manages the append-only version ledger per agent
type VersionRepository interface {
	AppendRecord(ctx context.Context, rec *version.Record) error
	GetRecord(ctx context.Context, agentName, v string) (*version.Record, error)
	ListRecords(ctx context.Context, agentName string, limit int) ([]*version.Record, error)
	LatestRecord(ctx context.Context, agentName string) (*version.Record, error)
}

// DependencyRepository manages dependency edge persistence
type DependencyRepository interface {
	UpsertEdge(ctx context.Context, edge *depgraph.Edge) error
	ListEdges(ctx context.Context) ([]*depgraph.Edge, error)
}

// ProposalRepository manages fix proposal persistence
type ProposalRepository interface {
	PutProposal(ctx context.Context, p *remediation.Proposal) error
	GetProposal(ctx context.Context, id types.ProposalID) (*remediation.Proposal, error)
	ListProposals(ctx context.Context, agentName string) ([]*remediation.Proposal, error)
	UpdateProposal(ctx context.Context, p *remediation.Proposal) error
}

// AlertRepository manages alert persistence
type AlertRepository interface {
	PutAlert(ctx context.Context, a *alert.Alert) error
	GetAlert(ctx context.Context, id types.AlertID) (*alert.Alert, error)
	ListAlerts(ctx context.Context, limit int) ([]*alert.Alert, error)
	LatestAlertBySignature(ctx context.Context, signature string) (*alert.Alert, error)
	AcknowledgeAlert(ctx context.Context, id types.AlertID) error
}
