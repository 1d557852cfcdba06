// Package repository defines data access interfaces for Drivebox.
// These interfaces abstract database operations, allowing for different
// implementations (SQLite, PostgreSQL, mocks for testing) while keeping the
// service layer clean.
package repository

import (
	"context"

	"github.com/prn-tf/drivebox/internal/domain"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user. Returns domain.ErrUserAlreadyExists if the
	// username is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Delete deletes a user by ID.
	Delete(ctx context.Context, id int64) error

	// List returns all users in insertion order.
	List(ctx context.Context) ([]*domain.User, error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// FileRepository defines the interface for file record access.
//
// The lookup methods embed the ownership check in the query predicate itself,
// so a request for another user's file is indistinguishable from a request
// for a file that does not exist.
type FileRepository interface {
	// Create creates a new file record.
	Create(ctx context.Context, file *domain.File) error

	// GetByIDAndOwner retrieves a file by ID, scoped to the owner.
	// Returns domain.ErrFileNotFound on any miss.
	GetByIDAndOwner(ctx context.Context, id, ownerID int64) (*domain.File, error)

	// GetByStorageNameAndOwner retrieves a file by storage name, scoped to
	// the owner. Returns domain.ErrFileNotFound on any miss.
	GetByStorageNameAndOwner(ctx context.Context, storageName string, ownerID int64) (*domain.File, error)

	// ListByOwner returns all files owned by the given user, in insertion
	// order.
	ListByOwner(ctx context.Context, ownerID int64) ([]*domain.File, error)

	// Delete deletes a file record by ID.
	Delete(ctx context.Context, id int64) error
}
