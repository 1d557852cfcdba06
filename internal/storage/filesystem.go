package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/drivebox/internal/domain"
)

// FilesystemBackend stores blobs as regular files in a single directory.
// Storage names are generated server-side, so the flat layout cannot collide
// with user input.
type FilesystemBackend struct {
	dataDir string
	logger  zerolog.Logger
}

// NewFilesystemBackend creates a filesystem backend rooted at dataDir,
// creating the directory if needed.
func NewFilesystemBackend(dataDir string, logger zerolog.Logger) (*FilesystemBackend, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	logger.Info().Str("data_dir", dataDir).Msg("filesystem storage initialized")

	return &FilesystemBackend{
		dataDir: dataDir,
		logger:  logger,
	}, nil
}

// DataDir returns the directory blobs are stored in.
func (b *FilesystemBackend) DataDir() string {
	return b.dataDir
}

// Store writes content to a temporary file and renames it into place, so a
// failed write never leaves a partial blob under the final name.
func (b *FilesystemBackend) Store(ctx context.Context, storageName string, reader io.Reader) (int64, error) {
	path, err := b.path(storageName)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(b.dataDir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("failed to write blob: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("failed to finalize blob: %w", err)
	}

	return size, nil
}

// Retrieve opens the blob stored under the given name.
func (b *FilesystemBackend) Retrieve(ctx context.Context, storageName string) (io.ReadCloser, error) {
	path, err := b.path(storageName)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Delete removes the blob stored under the given name.
func (b *FilesystemBackend) Delete(ctx context.Context, storageName string) error {
	path, err := b.path(storageName)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return domain.ErrBlobNotFound
		}
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

// Exists checks if a blob with the given name exists.
func (b *FilesystemBackend) Exists(ctx context.Context, storageName string) (bool, error) {
	path, err := b.path(storageName)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}
	return true, nil
}

// path resolves a storage name inside the data dir, rejecting anything that
// would escape it.
func (b *FilesystemBackend) path(storageName string) (string, error) {
	if storageName == "" || storageName == "." || storageName == ".." ||
		strings.Contains(storageName, "/") || strings.Contains(storageName, "\\") ||
		storageName != filepath.Base(storageName) {
		return "", fmt.Errorf("invalid storage name %q", storageName)
	}
	return filepath.Join(b.dataDir, storageName), nil
}

// Ensure FilesystemBackend implements Backend.
var _ Backend = (*FilesystemBackend)(nil)
