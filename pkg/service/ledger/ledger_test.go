package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	memoryadapter "github.com/m-mizutani/oracle/pkg/adapters/memory"
	"github.com/m-mizutani/oracle/pkg/domain/interfaces"
	"github.com/m-mizutani/oracle/pkg/domain/model/agent"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
	memorydb "github.com/m-mizutani/oracle/pkg/repository/database/memory"
	"github.com/m-mizutani/oracle/pkg/repository/storage"
	"github.com/m-mizutani/oracle/pkg/service/ledger"
)

type fixture struct {
	db      *memorydb.Client
	adapter *memoryadapter.Client
	ledger  *ledger.Ledger
}

func setup(t *testing.T, agents ...string) *fixture {
	t.Helper()

	db := memorydb.New()
	adapter := memoryadapter.New()
	f := &fixture{
		db:      db,
		adapter: adapter,
		ledger:  ledger.New(db, db, storage.New(adapter)),
	}

	ctx := context.Background()
	for _, name := range agents {
		gt.NoError(t, db.PutAgent(ctx, agent.New(name, time.Now())))
	}
	return f
}

func (f *fixture) createVersions(t *testing.T, agentName string, changes ...version.ChangeType) *version.Record {
	t.Helper()

	var rec *version.Record
	var err error
	for _, change := range changes {
		rec, err = f.ledger.CreateVersion(context.Background(), &ledger.CreateVersionInput{
			AgentName:   agentName,
			ChangeType:  change,
			Description: "test change",
			Artifact:    []byte("artifact"),
		})
		gt.NoError(t, err)
	}
	return rec
}

func TestCreateVersionPatchSequence(t *testing.T) {
	f := setup(t, "robin")
	ctx := context.Background()

	f.createVersions(t, "robin", version.ChangeMajor)

	expected := []string{"1.0.1", "1.0.2", "1.0.3"}
	for _, want := range expected {
		rec, err := f.ledger.CreateVersion(ctx, &ledger.CreateVersionInput{
			AgentName:   "robin",
			ChangeType:  version.ChangePatch,
			Description: "bugfix",
			Artifact:    []byte("patched"),
		})
		gt.NoError(t, err)
		gt.Equal(t, rec.Version.String(), want)
	}

	a, err := f.db.GetAgent(ctx, "robin")
	gt.NoError(t, err)
	gt.Equal(t, a.CurrentVersion, "1.0.3")
}

func TestCreateVersionMajorResets(t *testing.T) {
	f := setup(t, "cyborg")

	f.createVersions(t, "cyborg",
		version.ChangeMajor, // 1.0.0
		version.ChangeMinor, // 1.1.0
		version.ChangeMinor, // 1.2.0
		version.ChangePatch, // 1.2.1
		version.ChangePatch, // 1.2.2
		version.ChangePatch, // 1.2.3
		version.ChangePatch, // 1.2.4
		version.ChangePatch, // 1.2.5
	)

	rec := f.createVersions(t, "cyborg", version.ChangeMajor)
	gt.Equal(t, rec.Version.String(), "2.0.0")
}

func TestFirstVersionMustBeMajor(t *testing.T) {
	f := setup(t, "flash")
	ctx := context.Background()

	for _, change := range []version.ChangeType{version.ChangeMinor, version.ChangePatch} {
		_, err := f.ledger.CreateVersion(ctx, &ledger.CreateVersionInput{
			AgentName:   "flash",
			ChangeType:  change,
			Description: "premature",
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, apperr.ErrNotInitialRelease))
	}

	rec, err := f.ledger.CreateVersion(ctx, &ledger.CreateVersionInput{
		AgentName:   "flash",
		ChangeType:  version.ChangeMajor,
		Description: "initial release",
	})
	gt.NoError(t, err)
	gt.Equal(t, rec.Version.String(), "1.0.0")
}

func TestCreateVersionUnknownAgent(t *testing.T) {
	f := setup(t)

	_, err := f.ledger.CreateVersion(context.Background(), &ledger.CreateVersionInput{
		AgentName:   "ghost",
		ChangeType:  version.ChangeMajor,
		Description: "initial release",
	})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, agent.ErrNotFound))
}

func TestCreateVersionWritesBackupFirst(t *testing.T) {
	f := setup(t, "aquaman")

	rec := f.createVersions(t, "aquaman", version.ChangeMajor)
	gt.Equal(t, rec.BackupRef, "backups/aquaman/1.0.0.json.gz")

	found := false
	for _, key := range f.adapter.Keys() {
		if key == rec.BackupRef {
			found = true
		}
	}
	gt.True(t, found)

	// breaking changes imply a migration
	rec2, err := f.ledger.CreateVersion(context.Background(), &ledger.CreateVersionInput{
		AgentName:       "aquaman",
		ChangeType:      version.ChangeMinor,
		Description:     "new api",
		BreakingChanges: []string{"renamed trident endpoint"},
	})
	gt.NoError(t, err)
	gt.True(t, rec2.MigrationRequired)
}

// failingAdapter rejects every write so the backup gate can be observed
type failingAdapter struct{}

func (failingAdapter) Put(ctx context.Context, key string, data []byte) error {
	return errors.New("storage is down")
}

func (failingAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, interfaces.ErrStorageKeyNotFound
}

func TestCreateVersionFailedBackupCreatesNothing(t *testing.T) {
	db := memorydb.New()
	l := ledger.New(db, db, storage.New(failingAdapter{}))
	ctx := context.Background()

	gt.NoError(t, db.PutAgent(ctx, agent.New("atom", time.Now())))

	_, err := l.CreateVersion(ctx, &ledger.CreateVersionInput{
		AgentName:   "atom",
		ChangeType:  version.ChangeMajor,
		Description: "initial release",
	})
	gt.Error(t, err)

	// no record was committed and the agent version did not move
	_, err = db.LatestRecord(ctx, "atom")
	gt.True(t, errors.Is(err, apperr.ErrVersionNotFound))

	a, err := db.GetAgent(ctx, "atom")
	gt.NoError(t, err)
	gt.Equal(t, a.CurrentVersion, agent.InitialVersion)
}

func TestRollbackSafetyLevels(t *testing.T) {
	f := setup(t, "zatanna")
	ctx := context.Background()

	f.createVersions(t, "zatanna",
		version.ChangeMajor, // 1.0.0
		version.ChangeMinor, // 1.1.0
		version.ChangeMinor, // 1.2.0
		version.ChangeMinor, // 1.3.0
		version.ChangeMinor, // 1.4.0
		version.ChangeMinor, // 1.5.0
		version.ChangeMajor, // 2.0.0
	)

	// a cross-major rollback is refused without force
	result, err := f.ledger.Rollback(ctx, "zatanna", "1.5.0", false)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, apperr.ErrUnsafeRollback))
	gt.NotNil(t, result)
	gt.Equal(t, result.SafetyLevel, version.SafetyDangerous)
	gt.True(t, len(result.Warnings) > 0)

	a, err := f.db.GetAgent(ctx, "zatanna")
	gt.NoError(t, err)
	gt.Equal(t, a.CurrentVersion, "2.0.0")

	// with force it proceeds, still flagged dangerous
	result, err = f.ledger.Rollback(ctx, "zatanna", "1.5.0", true)
	gt.NoError(t, err)
	gt.Equal(t, result.SafetyLevel, version.SafetyDangerous)
	gt.True(t, len(result.Warnings) > 0)
	gt.Equal(t, result.RestoredVersion, "1.5.0")

	a, err = f.db.GetAgent(ctx, "zatanna")
	gt.NoError(t, err)
	gt.Equal(t, a.CurrentVersion, "1.5.0")
}

func TestRollbackAcrossMinorIsCaution(t *testing.T) {
	f := setup(t, "vixen")
	ctx := context.Background()

	f.createVersions(t, "vixen",
		version.ChangeMajor, // 1.0.0
		version.ChangeMinor, // 1.1.0
	)

	result, err := f.ledger.Rollback(ctx, "vixen", "1.0.0", false)
	gt.NoError(t, err)
	gt.Equal(t, result.SafetyLevel, version.SafetyCaution)
	gt.True(t, len(result.Warnings) > 0)
}

func TestRollbackTargetMustPrecedeCurrent(t *testing.T) {
	f := setup(t, "hawkgirl")
	f.createVersions(t, "hawkgirl", version.ChangeMajor)

	_, err := f.ledger.Rollback(context.Background(), "hawkgirl", "1.0.0", false)
	gt.Error(t, err)

	_, err = f.ledger.Rollback(context.Background(), "hawkgirl", "3.0.0", false)
	gt.Error(t, err)
}

func TestRollbackRequiresBackup(t *testing.T) {
	db := memorydb.New()
	adapter := memoryadapter.New()
	l := ledger.New(db, db, storage.New(adapter))
	ctx := context.Background()

	gt.NoError(t, db.PutAgent(ctx, agent.New("canary", time.Now())))

	// forge history without backups: records appended directly
	for _, v := range []string{"1.0.0", "1.1.0"} {
		triple, err := version.Parse(v)
		gt.NoError(t, err)
		gt.NoError(t, db.AppendRecord(ctx, &version.Record{
			AgentName:   "canary",
			Version:     triple,
			ChangeType:  version.ChangeMinor,
			Description: "forged",
			CreatedAt:   time.Now(),
		}))
	}
	gt.NoError(t, db.UpdateCurrentVersion(ctx, "canary", "1.1.0"))

	_, err := l.Rollback(ctx, "canary", "1.0.0", false)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, apperr.ErrBackupMissing))
}

func TestHistoryNewestFirst(t *testing.T) {
	f := setup(t, "flashpoint")
	ctx := context.Background()

	f.createVersions(t, "flashpoint",
		version.ChangeMajor,
		version.ChangePatch,
		version.ChangePatch,
	)

	records, err := f.ledger.History(ctx, "flashpoint", 0)
	gt.NoError(t, err)
	gt.Equal(t, len(records), 3)
	gt.Equal(t, records[0].Version.String(), "1.0.2")
	gt.Equal(t, records[2].Version.String(), "1.0.0")

	limited, err := f.ledger.History(ctx, "flashpoint", 2)
	gt.NoError(t, err)
	gt.Equal(t, len(limited), 2)
	gt.Equal(t, limited[0].Version.String(), "1.0.2")
}
