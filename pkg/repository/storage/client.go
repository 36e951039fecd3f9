package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/interfaces"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"

	"context"
)

// Snapshot is the durable backup payload written before a version commit.
// Restore never reconstructs an artifact from partial data: either the
// full snapshot exists, or the rollback fails.
type Snapshot struct {
	AgentName   string    `json:"agent_name"`
	Version     string    `json:"version"`
	Fingerprint string    `json:"fingerprint"`
	Artifact    []byte    `json:"artifact"`
	CreatedAt   time.Time `json:"created_at"`
}

// Client provides backup save/restore over a storage adapter with
// gzip compression
type Client struct {
	adapter interfaces.StorageAdapter
}

// New creates a new backup client
func New(adapter interfaces.StorageAdapter) *Client {
	return &Client{
		adapter: adapter,
	}
}

// Fingerprint computes the content fingerprint of an artifact
func Fingerprint(artifact []byte) string {
	sum := sha256.Sum256(artifact)
	return hex.EncodeToString(sum[:])
}

// SaveSnapshot writes a snapshot and returns its backup key. The write is
// synchronous; the key is only returned once the adapter committed the data.
func (c *Client) SaveSnapshot(ctx context.Context, snapshot *Snapshot) (string, error) {
	key := c.buildBackupKey(snapshot.AgentName, snapshot.Version)

	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal snapshot",
			goerr.V("agent_name", snapshot.AgentName),
			goerr.V("version", snapshot.Version),
		)
	}

	compressed, err := c.compressData(jsonData)
	if err != nil {
		return "", goerr.Wrap(err, "failed to compress snapshot",
			goerr.V("agent_name", snapshot.AgentName),
			goerr.V("version", snapshot.Version),
		)
	}

	if err := c.adapter.Put(ctx, key, compressed); err != nil {
		return "", goerr.Wrap(err, "failed to save snapshot to storage",
			goerr.T(apperr.ErrTagStorage),
			goerr.V("agent_name", snapshot.AgentName),
			goerr.V("version", snapshot.Version),
			goerr.V("key", key),
		)
	}

	return key, nil
}

// LoadSnapshot loads and decompresses a snapshot. A missing snapshot is
// reported with the backup_missing tag so callers cannot downgrade it.
func (c *Client) LoadSnapshot(ctx context.Context, agentName, version string) (*Snapshot, error) {
	key := c.buildBackupKey(agentName, version)

	compressed, err := c.adapter.Get(ctx, key)
	if err != nil {
		if errors.Is(err, interfaces.ErrStorageKeyNotFound) {
			return nil, goerr.Wrap(apperr.ErrBackupMissing, "snapshot not found",
				goerr.V("agent_name", agentName),
				goerr.V("version", version),
				goerr.V("key", key),
			)
		}
		return nil, goerr.Wrap(err, "failed to load snapshot from storage",
			goerr.T(apperr.ErrTagStorage),
			goerr.V("agent_name", agentName),
			goerr.V("version", version),
			goerr.V("key", key),
		)
	}

	jsonData, err := c.decompressData(compressed)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decompress snapshot",
			goerr.V("agent_name", agentName),
			goerr.V("version", version),
		)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(jsonData, &snapshot); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal snapshot",
			goerr.V("agent_name", agentName),
			goerr.V("version", version),
		)
	}

	return &snapshot, nil
}

// HasSnapshot reports whether a usable backup exists for the version
func (c *Client) HasSnapshot(ctx context.Context, agentName, version string) bool {
	_, err := c.LoadSnapshot(ctx, agentName, version)
	return err == nil
}

func (c *Client) buildBackupKey(agentName, version string) string {
	return fmt.Sprintf("backups/%s/%s.json.gz", agentName, version)
}

func (c *Client) compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return nil, goerr.Wrap(err, "failed to write data to gzip writer")
	}

	if err := writer.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to close gzip writer")
	}

	return buf.Bytes(), nil
}

func (c *Client) decompressData(compressed []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gzip reader")
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from gzip reader")
	}

	return data, nil
}
