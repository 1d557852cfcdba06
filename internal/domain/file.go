// Package domain contains the core business entities for Drivebox.
package domain

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// File represents a stored file owned by a single user.
// The raw bytes live in blob storage under StorageName; OriginalName is the
// user-facing filename used when the file is downloaded.
type File struct {
	// ID is the unique identifier for the file record (auto-generated).
	ID int64 `json:"id"`

	// OwnerID is the ID of the user who uploaded the file.
	// A file is only visible to and operable by its owner.
	OwnerID int64 `json:"owner_id"`

	// OriginalName is the filename as uploaded by the user.
	OriginalName string `json:"original_name"`

	// StorageName is the generated, collision-resistant name the blob is
	// stored under. Unique across all records.
	StorageName string `json:"storage_name"`

	// Size is the size of the blob in bytes.
	Size int64 `json:"size"`

	// ContentType is the MIME type reported at upload time.
	ContentType string `json:"content_type"`

	// CreatedAt is the timestamp when the file was uploaded.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the record was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFile creates a new File record with a generated storage name.
func NewFile(ownerID int64, originalName, contentType string, size int64) *File {
	now := time.Now().UTC()
	return &File{
		OwnerID:      ownerID,
		OriginalName: originalName,
		StorageName:  GenerateStorageName(originalName),
		Size:         size,
		ContentType:  contentType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// GenerateStorageName returns a unique on-disk name for an uploaded file.
// A random UUID is used instead of a timestamp so that concurrent uploads
// of the same filename cannot collide. The original extension is preserved
// so static serving picks a sensible content type.
func GenerateStorageName(originalName string) string {
	return uuid.NewString() + filepath.Ext(originalName)
}
