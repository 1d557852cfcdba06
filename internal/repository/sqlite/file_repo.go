package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/drivebox/internal/domain"
	"github.com/prn-tf/drivebox/internal/repository"
)

// fileRepository implements repository.FileRepository for SQLite.
type fileRepository struct {
	db *DB
}

// NewFileRepository creates a new SQLite file repository.
func NewFileRepository(db *DB) repository.FileRepository {
	return &fileRepository{db: db}
}

// Create creates a new file record.
func (r *fileRepository) Create(ctx context.Context, file *domain.File) error {
	query := `
		INSERT INTO files (owner_id, original_name, storage_name, size, content_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		file.OwnerID,
		file.OriginalName,
		file.StorageName,
		file.Size,
		file.ContentType,
		file.CreatedAt.Format(time.RFC3339),
		file.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("storage name '%s' already registered: %w", file.StorageName, err)
		}
		return fmt.Errorf("failed to create file record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	file.ID = id

	return nil
}

// GetByIDAndOwner retrieves a file by ID, scoped to the owner.
// The ownership check is part of the lookup predicate, so a foreign file
// surfaces as domain.ErrFileNotFound.
func (r *fileRepository) GetByIDAndOwner(ctx context.Context, id, ownerID int64) (*domain.File, error) {
	query := `
		SELECT id, owner_id, original_name, storage_name, size, content_type, created_at, updated_at
		FROM files
		WHERE id = ? AND owner_id = ?
	`

	return r.scanFile(r.db.QueryRowContext(ctx, query, id, ownerID))
}

// GetByStorageNameAndOwner retrieves a file by storage name, scoped to the owner.
func (r *fileRepository) GetByStorageNameAndOwner(ctx context.Context, storageName string, ownerID int64) (*domain.File, error) {
	query := `
		SELECT id, owner_id, original_name, storage_name, size, content_type, created_at, updated_at
		FROM files
		WHERE storage_name = ? AND owner_id = ?
	`

	return r.scanFile(r.db.QueryRowContext(ctx, query, storageName, ownerID))
}

// ListByOwner returns all files owned by the given user, in insertion order.
func (r *fileRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.File, error) {
	query := `
		SELECT id, owner_id, original_name, storage_name, size, content_type, created_at, updated_at
		FROM files
		WHERE owner_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*domain.File
	for rows.Next() {
		file := &domain.File{}
		var createdAt, updatedAt string

		err := rows.Scan(
			&file.ID,
			&file.OwnerID,
			&file.OriginalName,
			&file.StorageName,
			&file.Size,
			&file.ContentType,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}

		file.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		file.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}

	return files, nil
}

// Delete deletes a file record by ID.
func (r *fileRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrFileNotFound
	}

	return nil
}

func (r *fileRepository) scanFile(row rowScanner) (*domain.File, error) {
	file := &domain.File{}
	var createdAt, updatedAt string

	err := row.Scan(
		&file.ID,
		&file.OwnerID,
		&file.OriginalName,
		&file.StorageName,
		&file.Size,
		&file.ContentType,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	file.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	file.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return file, nil
}

// Ensure fileRepository implements repository.FileRepository.
var _ repository.FileRepository = (*fileRepository)(nil)
