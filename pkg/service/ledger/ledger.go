package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/interfaces"
	"github.com/m-mizutani/oracle/pkg/domain/model/agent"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
	"github.com/m-mizutani/oracle/pkg/repository/storage"
)

// Ledger maintains the append-only semantic-version history per agent
// with backup-gated rollback. Writes for one agent are serialized on a
// per-agent lock; different agents never contend.
type Ledger struct {
	agentRepo   interfaces.AgentRepository
	versionRepo interfaces.VersionRepository
	backup      *storage.Client

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

// Option is a functional option for Ledger
type Option func(*Ledger)

// WithClock overrides the clock, for tests
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New creates a version ledger
func New(agentRepo interfaces.AgentRepository, versionRepo interfaces.VersionRepository, backup *storage.Client, opts ...Option) *Ledger {
	l := &Ledger{
		agentRepo:   agentRepo,
		versionRepo: versionRepo,
		backup:      backup,
		locks:       make(map[string]*sync.Mutex),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) lockOf(agentName string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[agentName]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[agentName] = lock
	}
	return lock
}

// CreateVersionInput describes one declared version bump
type CreateVersionInput struct {
	AgentName       string
	ChangeType      version.ChangeType
	Description     string
	BreakingChanges []string

	// Artifact is the content the new version ships; it is snapshotted
	// before the record is committed so the version is always recoverable.
	Artifact []byte
}

// Validate rejects malformed input synchronously
func (in *CreateVersionInput) Validate() error {
	if err := agent.ValidateName(in.AgentName); err != nil {
		return err
	}
	if !in.ChangeType.IsValid() {
		return goerr.New("invalid change type",
			goerr.T(apperr.ErrTagValidation), goerr.V("change_type", in.ChangeType))
	}
	if in.Description == "" {
		return goerr.New("version description is required",
			goerr.T(apperr.ErrTagValidation), goerr.V("agent_name", in.AgentName))
	}
	return nil
}

// CreateVersion computes the next version by the strict increment rule
// and appends a record. The durable backup is written first: a version
// is not considered created until its backup exists.
func (l *Ledger) CreateVersion(ctx context.Context, input *CreateVersionInput) (*version.Record, error) {
	if input == nil {
		return nil, goerr.New("create version input cannot be nil", goerr.T(apperr.ErrTagValidation))
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	lock := l.lockOf(input.AgentName)
	lock.Lock()
	defer lock.Unlock()

	a, err := l.agentRepo.GetAgent(ctx, input.AgentName)
	if err != nil {
		return nil, err
	}

	current, err := version.Parse(a.CurrentVersion)
	if err != nil {
		return nil, goerr.Wrap(err, "agent has a corrupted current version",
			goerr.V("agent_name", a.Name), goerr.V("current_version", a.CurrentVersion))
	}

	// Nothing exists yet to increment on an unregistered agent: the first
	// ledger entry is an initial release, so only a major bump is accepted
	if current.IsZero() && input.ChangeType != version.ChangeMajor {
		return nil, goerr.Wrap(apperr.ErrNotInitialRelease, "agent has no versions yet",
			goerr.V("agent_name", a.Name), goerr.V("change_type", input.ChangeType))
	}

	next, err := current.Next(input.ChangeType)
	if err != nil {
		return nil, err
	}

	fingerprint := storage.Fingerprint(input.Artifact)

	backupRef, err := l.backup.SaveSnapshot(ctx, &storage.Snapshot{
		AgentName:   input.AgentName,
		Version:     next.String(),
		Fingerprint: fingerprint,
		Artifact:    input.Artifact,
		CreatedAt:   l.now(),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "backup failed, version not created",
			goerr.V("agent_name", input.AgentName), goerr.V("version", next.String()))
	}

	rec := &version.Record{
		AgentName:         input.AgentName,
		Version:           next,
		ChangeType:        input.ChangeType,
		Description:       input.Description,
		BreakingChanges:   append([]string(nil), input.BreakingChanges...),
		MigrationRequired: len(input.BreakingChanges) > 0,
		Fingerprint:       fingerprint,
		BackupRef:         backupRef,
		CreatedAt:         l.now(),
	}

	if err := l.versionRepo.AppendRecord(ctx, rec); err != nil {
		return nil, err
	}

	if err := l.agentRepo.UpdateCurrentVersion(ctx, input.AgentName, next.String()); err != nil {
		return nil, goerr.Wrap(err, "record appended but current version not updated",
			goerr.V("agent_name", input.AgentName), goerr.V("version", next.String()))
	}

	return rec, nil
}

// Rollback reverts an agent to a prior version. Safety is classified by
// version distance; a dangerous rollback is refused without force. The
// returned result carries the safety level and warnings even on failure.
func (l *Ledger) Rollback(ctx context.Context, agentName, targetVersion string, force bool) (*version.RollbackResult, error) {
	if err := agent.ValidateName(agentName); err != nil {
		return nil, err
	}
	target, err := version.Parse(targetVersion)
	if err != nil {
		return nil, err
	}

	lock := l.lockOf(agentName)
	lock.Lock()
	defer lock.Unlock()

	a, err := l.agentRepo.GetAgent(ctx, agentName)
	if err != nil {
		return nil, err
	}

	current, err := version.Parse(a.CurrentVersion)
	if err != nil {
		return nil, goerr.Wrap(err, "agent has a corrupted current version",
			goerr.V("agent_name", agentName), goerr.V("current_version", a.CurrentVersion))
	}

	result := &version.RollbackResult{
		AgentName:     agentName,
		FromVersion:   current,
		TargetVersion: target,
		SafetyLevel:   version.ClassifySafety(current, target),
		Warnings:      []string{},
	}

	if target.Compare(current) >= 0 {
		return result, goerr.New("rollback target must precede the current version",
			goerr.T(apperr.ErrTagValidation),
			goerr.V("agent_name", agentName),
			goerr.V("current", current.String()),
			goerr.V("target", target.String()))
	}

	switch result.SafetyLevel {
	case version.SafetyCaution:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("rolling back across minor versions (%s -> %s)", current, target))
	case version.SafetyDangerous:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("rolling back across major versions (%s -> %s) may lose incompatible state", current, target))
		if !force {
			return result, goerr.Wrap(apperr.ErrUnsafeRollback, "refusing dangerous rollback without force",
				goerr.V("agent_name", agentName),
				goerr.V("current", current.String()),
				goerr.V("target", target.String()))
		}
	}

	// The ledger is append-only; the target must exist in it
	if _, err := l.versionRepo.GetRecord(ctx, agentName, target.String()); err != nil {
		return result, err
	}

	// A usable backup is mandatory: never reconstruct from partial data
	snapshot, err := l.backup.LoadSnapshot(ctx, agentName, target.String())
	if err != nil {
		if errors.Is(err, apperr.ErrBackupMissing) {
			return result, err
		}
		return result, goerr.Wrap(err, "failed to load rollback backup",
			goerr.V("agent_name", agentName), goerr.V("target", target.String()))
	}

	if err := l.agentRepo.UpdateCurrentVersion(ctx, agentName, snapshot.Version); err != nil {
		return result, goerr.Wrap(err, "failed to apply rollback",
			goerr.V("agent_name", agentName), goerr.V("target", target.String()))
	}

	result.RestoredVersion = snapshot.Version
	result.RolledBackAt = l.now()
	return result, nil
}

// Latest returns the agent's most recent ledger record
func (l *Ledger) Latest(ctx context.Context, agentName string) (*version.Record, error) {
	if err := agent.ValidateName(agentName); err != nil {
		return nil, err
	}
	return l.versionRepo.LatestRecord(ctx, agentName)
}

// History returns the immutable ledger, most recent first
func (l *Ledger) History(ctx context.Context, agentName string, limit int) ([]*version.Record, error) {
	if err := agent.ValidateName(agentName); err != nil {
		return nil, err
	}
	return l.versionRepo.ListRecords(ctx, agentName, limit)
}
