package version

import (
	"time"
)

// ChangeType classifies a version bump
type ChangeType string

const (
	ChangeMajor ChangeType = "major"
	ChangeMinor ChangeType = "minor"
	ChangePatch ChangeType = "patch"
)

// IsValid checks if the change type is valid
func (c ChangeType) IsValid() bool {
	switch c {
	case ChangeMajor, ChangeMinor, ChangePatch:
		return true
	default:
		return false
	}
}

// String returns the string representation of the change type
func (c ChangeType) String() string {
	return string(c)
}

// Record is one append-only entry of an agent's version ledger.
// Records are never mutated or deleted after creation.
type Record struct {
	AgentName         string     `json:"agent_name"`
	Version           Triple     `json:"version"`
	ChangeType        ChangeType `json:"change_type"`
	Description       string     `json:"description"`
	BreakingChanges   []string   `json:"breaking_changes"`
	MigrationRequired bool       `json:"migration_required"`
	Fingerprint       string     `json:"fingerprint"`
	BackupRef         string     `json:"backup_ref"`
	CreatedAt         time.Time  `json:"created_at"`
}

// SafetyLevel classifies a rollback by version distance
type SafetyLevel string

const (
	SafetySafe      SafetyLevel = "safe"
	SafetyCaution   SafetyLevel = "caution"
	SafetyDangerous SafetyLevel = "dangerous"
)

func (s SafetyLevel) String() string {
	return string(s)
}

/// ClassifySafety determines the rollback safety from current to target:
// same major and minor is safe, same major is caution, otherwise dangerous.
func ClassifySafety(current, target Triple) SafetyLevel {
	switch {
	case current.Major != target.Major:
		return SafetyDangerous
	case current.Minor != target.Minor:
		return SafetyCaution
	default:
		return SafetySafe
	}
}

// RollbackResult reports the outcome of a rollback attempt.
// SafetyLevel and Warnings are populated regardless of success.
type RollbackResult struct {
	AgentName       string      `json:"agent_name"`
	FromVersion     Triple      `json:"from_version"`
	TargetVersion   Triple      `json:"target_version"`
	SafetyLevel     SafetyLevel `json:"safety_level"`
	Warnings        []string    `json:"warnings"`
	RestoredVersion string      `json:"restored_version,omitempty"`
	RolledBackAt    time.Time   `json:"rolled_back_at"`
}
