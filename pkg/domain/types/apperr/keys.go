package apperr

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/types"
)

// Domain entity related keys
var (
	AgentNameKey  = goerr.NewTypedKey[string]("agent_name")
	VersionKey    = goerr.NewTypedKey[string]("version")
	ProposalIDKey = goerr.NewTypedKey[types.ProposalID]("proposal_id")
	AlertIDKey    = goerr.NewTypedKey[types.AlertID]("alert_id")
	StrategyKey   = goerr.NewTypedKey[string]("strategy")
)

// Processing related keys
var (
	BackupKeyKey = goerr.NewTypedKey[string]("backup_key")
	PhaseKey     = goerr.NewTypedKey[int]("phase")
	CycleKey     = goerr.NewTypedKey[[]string]("cycle")
)
