package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Version ledger Firestore document structure
type versionDoc struct {
	AgentName         string    `firestore:"agent_name"`
	Version           string    `firestore:"version"`
	Sequence          int       `firestore:"sequence"`
	ChangeType        string    `firestore:"change_type"`
	Description       string    `firestore:"description"`
	BreakingChanges   []string  `firestore:"breaking_changes"`
	MigrationRequired bool      `firestore:"migration_required"`
	Fingerprint       string    `firestore:"fingerprint"`
	BackupRef         string    `firestore:"backup_ref"`
	CreatedAt         time.Time `firestore:"created_at"`
}

func (d *versionDoc) toModel() (*version.Record, error) {
	triple, err := version.Parse(d.Version)
	if err != nil {
		return nil, goerr.Wrap(err, "corrupted version record",
			goerr.V("agent_name", d.AgentName), goerr.V("version", d.Version))
	}

	return &version.Record{
		AgentName:         d.AgentName,
		Version:           triple,
		ChangeType:        version.ChangeType(d.ChangeType),
		Description:       d.Description,
		BreakingChanges:   d.BreakingChanges,
		MigrationRequired: d.MigrationRequired,
		Fingerprint:       d.Fingerprint,
		BackupRef:         d.BackupRef,
		CreatedAt:         d.CreatedAt,
	}, nil
}

func (c *Client) versionsOf(agentName string) *firestore.CollectionRef {
	return c.client.Collection(collectionAgents).Doc(agentName).Collection(subCollectionVersions)
}

// AppendRecord appends a ledger record. The document ID is the version
// string, so a re-created version fails instead of silently overwriting.
func (c *Client) AppendRecord(ctx context.Context, rec *version.Record) error {
	seq, err := c.latestSequence(ctx, rec.AgentName)
	if err != nil {
		return err
	}

	doc := &versionDoc{
		AgentName:         rec.AgentName,
		Version:           rec.Version.String(),
		Sequence:          seq + 1,
		ChangeType:        rec.ChangeType.String(),
		Description:       rec.Description,
		BreakingChanges:   rec.BreakingChanges,
		MigrationRequired: rec.MigrationRequired,
		Fingerprint:       rec.Fingerprint,
		BackupRef:         rec.BackupRef,
		CreatedAt:         rec.CreatedAt,
	}
	if doc.BreakingChanges == nil {
		doc.BreakingChanges = []string{}
	}

	ref := c.versionsOf(rec.AgentName).Doc(doc.Version)
	if _, err := ref.Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(apperr.ErrVersionConflict, "record already exists",
				goerr.V("agent_name", rec.AgentName), goerr.V("version", doc.Version))
		}
		return goerr.Wrap(err, "failed to append version record",
			goerr.V("agent_name", rec.AgentName), goerr.V("version", doc.Version))
	}

	return nil
}

// latestSequence returns the highest sequence number in the agent's
// ledger, or 0 when the ledger is empty
func (c *Client) latestSequence(ctx context.Context, agentName string) (int, error) {
	iter := c.versionsOf(agentName).OrderBy("sequence", firestore.Desc).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return 0, nil
	}
	if err != nil {
		return 0, goerr.Wrap(err, "failed to query latest sequence",
			goerr.V("agent_name", agentName))
	}

	var d versionDoc
	if err := doc.DataTo(&d); err != nil {
		return 0, goerr.Wrap(err, "failed to unmarshal version record",
			goerr.V("agent_name", agentName))
	}

	return d.Sequence, nil
}

// GetRecord retrieves one version record of an agent
func (c *Client) GetRecord(ctx context.Context, agentName, v string) (*version.Record, error) {
	doc, err := c.versionsOf(agentName).Doc(v).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(apperr.ErrVersionNotFound, "version record not found",
				goerr.V("agent_name", agentName), goerr.V("version", v))
		}
		return nil, goerr.Wrap(err, "failed to get version record",
			goerr.V("agent_name", agentName), goerr.V("version", v))
	}

	var d versionDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal version record",
			goerr.V("agent_name", agentName), goerr.V("version", v))
	}

	return d.toModel()
}

// ListRecords returns the ledger most recent first. limit <= 0 returns all.
func (c *Client) ListRecords(ctx context.Context, agentName string, limit int) ([]*version.Record, error) {
	q := c.versionsOf(agentName).OrderBy("sequence", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var records []*version.Record
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate version records",
				goerr.V("agent_name", agentName))
		}

		var d versionDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal version record",
				goerr.V("agent_name", agentName))
		}

		rec, err := d.toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// LatestRecord returns the most recent record of an agent
func (c *Client) LatestRecord(ctx context.Context, agentName string) (*version.Record, error) {
	records, err := c.ListRecords(ctx, agentName, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, goerr.Wrap(apperr.ErrVersionNotFound, "agent has no version records",
			goerr.V("agent_name", agentName))
	}

	return records[0], nil
}
