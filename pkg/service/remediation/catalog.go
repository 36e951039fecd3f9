package remediation

import (
	"strings"

	"github.com/m-mizutani/oracle/pkg/domain/model/remediation"
)

// catalogEntry binds an issue keyword to a remediation strategy and its
// rollback plan. The catalog is small and explicit: matching selects a
// strategy only, never a risk level.
type catalogEntry struct {
	keywords     []string
	strategy     remediation.Strategy
	rollbackPlan string
}

var catalog = []catalogEntry{
	{
		keywords:     []string{"cache", "stale"},
		strategy:     remediation.StrategyCacheClear,
		rollbackPlan: "cache rebuilds from source data on next access",
	},
	{
		keywords:     []string{"connection", "socket", "network", "timeout"},
		strategy:     remediation.StrategyConnectionReset,
		rollbackPlan: "connections re-establish automatically after reset",
	},
	{
		keywords:     []string{"config", "configuration", "setting"},
		strategy:     remediation.StrategyConfigReload,
		rollbackPlan: "previous configuration remains on disk until next write",
	},
}

// fallback when no catalog entry matches the issue
var fallbackEntry = catalogEntry{
	strategy:     remediation.StrategyRestart,
	rollbackPlan: "agent restarts from its last committed state",
}

// matchCatalog selects a strategy for an issue by keyword
func matchCatalog(issue string) catalogEntry {
	lowered := strings.ToLower(issue)
	for _, entry := range catalog {
		for _, kw := range entry.keywords {
			if strings.Contains(lowered, kw) {
				return entry
			}
		}
	}
	return fallbackEntry
}
