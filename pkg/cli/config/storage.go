package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/adapters/cs"
	"github.com/m-mizutani/oracle/pkg/adapters/fs"
	"github.com/m-mizutani/oracle/pkg/adapters/memory"
	"github.com/m-mizutani/oracle/pkg/domain/interfaces"
	"github.com/urfave/cli/v3"
)

// Storage contains configuration for backup storage adapters
type Storage struct {
	// Cloud Storage configuration
	Bucket string
	Prefix string

	// File System storage configuration
	FSPath string

	// InMemory keeps backups in process memory, for local development only
	InMemory bool
}

// Flags returns CLI flags for Storage configuration
func (s *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cloud-storage-bucket",
			Sources:     cli.EnvVars("ORACLE_CLOUD_STORAGE_BUCKET"),
			Usage:       "Cloud Storage bucket for version backups",
			Destination: &s.Bucket,
		},
		&cli.StringFlag{
			Name:        "cloud-storage-prefix",
			Sources:     cli.EnvVars("ORACLE_CLOUD_STORAGE_PREFIX"),
			Usage:       "Prefix for Cloud Storage objects",
			Destination: &s.Prefix,
		},
		&cli.StringFlag{
			Name:        "file-storage-path",
			Usage:       "Path for file system backup storage",
			Sources:     cli.EnvVars("ORACLE_FILE_STORAGE_PATH"),
			Destination: &s.FSPath,
		},
		&cli.BoolFlag{
			Name:        "memory-storage",
			Usage:       "Keep backups in memory (development only)",
			Sources:     cli.EnvVars("ORACLE_MEMORY_STORAGE"),
			Destination: &s.InMemory,
		},
	}
}

// Validate validates the Storage configuration
func (s *Storage) Validate() error {
	if s.Bucket == "" && s.FSPath == "" && !s.InMemory {
		return goerr.New("a backup backend must be configured: use --cloud-storage-bucket, --file-storage-path or --memory-storage")
	}
	return nil
}

// CreateAdapter creates the backup storage adapter based on configuration
func (s *Storage) CreateAdapter(ctx context.Context) (interfaces.StorageAdapter, func(), error) {
	switch {
	case s.Bucket != "":
		opts := []cs.Option{}
		if s.Prefix != "" {
			opts = append(opts, cs.WithPrefix(s.Prefix))
		}

		csClient, err := cs.New(ctx, s.Bucket, opts...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create Cloud Storage client")
		}

		cleanup := func() {
			_ = csClient.Close()
		}
		return csClient, cleanup, nil

	case s.FSPath != "":
		fsClient, err := fs.New(&fs.Config{BaseDirectory: s.FSPath})
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create file system storage adapter")
		}
		return fsClient, nil, nil

	case s.InMemory:
		return memory.New(), nil, nil

	default:
		return nil, nil, goerr.New("no backup backend configured")
	}
}
