// Package storage defines interfaces for blob storage backends.
// The storage layer is responsible for persisting and retrieving raw file
// bytes under generated storage names; file metadata lives in the repository
// layer.
package storage

import (
	"context"
	"io"
)

// Backend defines the interface for blob storage backends.
// Implementations include the local filesystem and S3-compatible stores.
type Backend interface {
	// Store writes content from the reader under the given storage name.
	// Returns the number of bytes written.
	Store(ctx context.Context, storageName string, reader io.Reader) (int64, error)

	// Retrieve opens the blob stored under the given name.
	// Returns a ReadCloser that must be closed after use, or
	// domain.ErrBlobNotFound if no such blob exists.
	Retrieve(ctx context.Context, storageName string) (io.ReadCloser, error)

	// Delete removes the blob stored under the given name.
	// Returns domain.ErrBlobNotFound if no such blob exists; callers racing
	// on the same file should treat that as a no-op.
	Delete(ctx context.Context, storageName string) error

	// Exists checks if a blob with the given name exists.
	Exists(ctx context.Context, storageName string) (bool, error)
}
