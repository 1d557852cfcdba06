// Package domain contains the core business entities for Drivebox.
package domain

import (
	"errors"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, filesystem, etc.).

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same username exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidCredentials indicates authentication failed. It deliberately
	// carries no hint about which of username or password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotFound indicates the session token is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrFileNotFound indicates the requested file does not exist or is not
	// owned by the caller. Ownership misses surface as this same error so
	// that foreign files are indistinguishable from absent ones.
	ErrFileNotFound = errors.New("file not found")

	// ErrBlobNotFound indicates the blob is missing from storage.
	ErrBlobNotFound = errors.New("blob not found")
)
