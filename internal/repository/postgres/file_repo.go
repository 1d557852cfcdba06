package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/drivebox/internal/domain"
	"github.com/prn-tf/drivebox/internal/repository"
)

// fileRepository implements repository.FileRepository for PostgreSQL.
type fileRepository struct {
	db *DB
}

// NewFileRepository creates a new PostgreSQL file repository.
func NewFileRepository(db *DB) repository.FileRepository {
	return &fileRepository{db: db}
}

// Create creates a new file record.
func (r *fileRepository) Create(ctx context.Context, file *domain.File) error {
	query := `
		INSERT INTO files (owner_id, original_name, storage_name, size, content_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		file.OwnerID,
		file.OriginalName,
		file.StorageName,
		file.Size,
		file.ContentType,
		file.CreatedAt,
		file.UpdatedAt,
	).Scan(&file.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("storage name '%s' already registered: %w", file.StorageName, err)
		}
		return fmt.Errorf("failed to create file record: %w", err)
	}

	return nil
}

// GetByIDAndOwner retrieves a file by ID, scoped to the owner.
func (r *fileRepository) GetByIDAndOwner(ctx context.Context, id, ownerID int64) (*domain.File, error) {
	query := `
		SELECT id, owner_id, original_name, storage_name, size, content_type, created_at, updated_at
		FROM files
		WHERE id = $1 AND owner_id = $2
	`

	return r.scanFile(r.db.Pool.QueryRow(ctx, query, id, ownerID))
}

// GetByStorageNameAndOwner retrieves a file by storage name, scoped to the owner.
func (r *fileRepository) GetByStorageNameAndOwner(ctx context.Context, storageName string, ownerID int64) (*domain.File, error) {
	query := `
		SELECT id, owner_id, original_name, storage_name, size, content_type, created_at, updated_at
		FROM files
		WHERE storage_name = $1 AND owner_id = $2
	`

	return r.scanFile(r.db.Pool.QueryRow(ctx, query, storageName, ownerID))
}

// ListByOwner returns all files owned by the given user, in insertion order.
func (r *fileRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.File, error) {
	query := `
		SELECT id, owner_id, original_name, storage_name, size, content_type, created_at, updated_at
		FROM files
		WHERE owner_id = $1
		ORDER BY id
	`

	rows, err := r.db.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*domain.File
	for rows.Next() {
		file := &domain.File{}
		err := rows.Scan(
			&file.ID,
			&file.OwnerID,
			&file.OriginalName,
			&file.StorageName,
			&file.Size,
			&file.ContentType,
			&file.CreatedAt,
			&file.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}

	return files, nil
}

// Delete deletes a file record by ID.
func (r *fileRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func (r *fileRepository) scanFile(row pgx.Row) (*domain.File, error) {
	file := &domain.File{}

	err := row.Scan(
		&file.ID,
		&file.OwnerID,
		&file.OriginalName,
		&file.StorageName,
		&file.Size,
		&file.ContentType,
		&file.CreatedAt,
		&file.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return file, nil
}

// Ensure fileRepository implements repository.FileRepository.
var _ repository.FileRepository = (*fileRepository)(nil)
