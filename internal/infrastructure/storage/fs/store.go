// Package fs is the filesystem artifact store.  Artifacts land in a single
// directory named by digest, written through a temp file and renamed so
// readers never observe a partial artifact.
package fs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
	"github.com/foldbank/foldbank/internal/infrastructure/storage"
	"github.com/foldbank/foldbank/pkg/errors"
)

// Config holds the filesystem backend settings.
type Config struct {
	// Root is the directory artifacts are written to.  Created on first
	// use if missing.
	Root string `mapstructure:"root"`
}

// Store implements storage.ArtifactStore on a local directory.
type Store struct {
	root   string
	logger logging.Logger
}

// NewStore creates a filesystem store rooted at cfg.Root.
func NewStore(cfg Config, logger logging.Logger) (*Store, error) {
	if cfg.Root == "" {
		return nil, errors.InvalidParam("storage root cannot be empty")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "create storage root")
	}
	return &Store{root: cfg.Root, logger: logger.Named("fs-store")}, nil
}

func (s *Store) path(digest string) string {
	return filepath.Join(s.root, storage.ObjectName(digest))
}

// Put writes the artifact through a temp file in the same directory and
// renames it over the final path.  Rename is atomic on POSIX, so a
// concurrent reader sees either the old artifact or the new one, never a
// torn write.
func (s *Store) Put(ctx context.Context, digest string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "put cancelled")
	}

	tmp, err := os.CreateTemp(s.root, storage.ObjectName(digest)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "create temp artifact")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrCodeStorageError, "write temp artifact")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "close temp artifact")
	}
	if err := os.Rename(tmpName, s.path(digest)); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "publish artifact")
	}

	s.logger.Debug("artifact stored",
		logging.String("digest", digest),
		logging.Int("bytes", len(data)))
	return nil
}

func (s *Store) Get(ctx context.Context, digest string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "get cancelled")
	}

	data, err := os.ReadFile(s.path(digest))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrCodeStructureNotFound,
				"no cached structure for digest %s", digest)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "read artifact")
	}
	return data, nil
}

func (s *Store) Exists(ctx context.Context, digest string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.Wrap(err, errors.ErrCodeStorageError, "exists cancelled")
	}

	_, err := os.Stat(s.path(digest))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeStorageError, "stat artifact")
}
