// Package service provides business logic services for Drivebox.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/prn-tf/drivebox/internal/domain"
	"github.com/prn-tf/drivebox/internal/repository"
	"github.com/prn-tf/drivebox/internal/storage"
)

// FileService handles upload, listing, download and deletion of files,
// always scoped to the owning user.
type FileService struct {
	fileRepo repository.FileRepository
	storage  storage.Backend
	logger   zerolog.Logger
}

// NewFileService creates a new FileService.
func NewFileService(fileRepo repository.FileRepository, backend storage.Backend, logger zerolog.Logger) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		storage:  backend,
		logger:   logger.With().Str("service", "file").Logger(),
	}
}

// UploadInput contains the data needed to store an uploaded file.
type UploadInput struct {
	OwnerID      int64
	OriginalName string
	ContentType  string
	Body         io.Reader
}

// Upload writes the blob first and registers the metadata record only after
// the write succeeded. There is no transaction spanning the two steps; a
// record-create failure leaves at worst an orphaned blob, never a record
// that references nothing.
func (s *FileService) Upload(ctx context.Context, input UploadInput) (*domain.File, error) {
	name := filepath.Base(input.OriginalName)
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return nil, ErrInvalidFilename
	}

	file := domain.NewFile(input.OwnerID, name, input.ContentType, 0)

	size, err := s.storage.Store(ctx, file.StorageName, input.Body)
	if err != nil {
		s.logger.Error().Err(err).Str("storage_name", file.StorageName).Msg("blob write failed")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	file.Size = size

	if err := s.fileRepo.Create(ctx, file); err != nil {
		s.logger.Warn().
			Err(err).
			Str("storage_name", file.StorageName).
			Msg("record creation failed after blob write; blob is orphaned")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("file_id", file.ID).
		Int64("owner_id", file.OwnerID).
		Str("original_name", file.OriginalName).
		Int64("size", file.Size).
		Msg("file uploaded")

	return file, nil
}

// List returns the caller's files, in insertion order. Files owned by other
// users are never returned.
func (s *FileService) List(ctx context.Context, ownerID int64) ([]*domain.File, error) {
	files, err := s.fileRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error().Err(err).Int64("owner_id", ownerID).Msg("failed to list files")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return files, nil
}

// DownloadOutput contains an opened blob stream and its metadata.
type DownloadOutput struct {
	File *domain.File
	Body io.ReadCloser
}

// Download resolves a storage name to the caller's file and opens the blob.
// The ownership check is part of the lookup predicate, so a foreign file
// yields ErrFileNotFound, never a forbidden error.
func (s *FileService) Download(ctx context.Context, ownerID int64, storageName string) (*DownloadOutput, error) {
	file, err := s.fileRepo.GetByStorageNameAndOwner(ctx, storageName, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		s.logger.Error().Err(err).Str("storage_name", storageName).Msg("failed to resolve file")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	body, err := s.storage.Retrieve(ctx, file.StorageName)
	if err != nil {
		if errors.Is(err, domain.ErrBlobNotFound) {
			// Record exists but the blob is gone: registry and storage have
			// drifted apart. Surface as not found, but make the gap visible.
			s.logger.Warn().
				Int64("file_id", file.ID).
				Str("storage_name", file.StorageName).
				Msg("file record has no blob in storage")
			return nil, ErrFileNotFound
		}
		s.logger.Error().Err(err).Str("storage_name", file.StorageName).Msg("failed to open blob")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &DownloadOutput{File: file, Body: body}, nil
}

// Delete removes the caller's file. The record is removed first, then the
// blob, so a partial failure leaves a reclaimable orphaned blob rather than
// a record referencing nothing. A missing record is a silent no-op, and a
// concurrent delete that already removed the blob is tolerated.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID int64) error {
	file, err := s.fileRepo.GetByIDAndOwner(ctx, fileID, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			return nil
		}
		s.logger.Error().Err(err).Int64("file_id", fileID).Msg("failed to resolve file for delete")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.fileRepo.Delete(ctx, file.ID); err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			// Lost the race with another delete of the same file.
			return nil
		}
		s.logger.Error().Err(err).Int64("file_id", file.ID).Msg("failed to delete file record")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := s.storage.Delete(ctx, file.StorageName); err != nil {
		if errors.Is(err, domain.ErrBlobNotFound) {
			// Blob already gone; nothing left to clean up.
			return nil
		}
		// The record is gone but the blob is not: log the inconsistency
		// rather than failing the request the user already succeeded at.
		s.logger.Warn().
			Err(err).
			Int64("file_id", file.ID).
			Str("storage_name", file.StorageName).
			Msg("record removed but blob removal failed; blob is orphaned")
		return nil
	}

	s.logger.Info().
		Int64("file_id", file.ID).
		Int64("owner_id", ownerID).
		Msg("file deleted")

	return nil
}
