// Package session provides server-side session storage for Drivebox.
// Sessions are keyed by an opaque token delivered to the client in a cookie;
// the store maps token to the authenticated user identity.
package session

import (
	"context"
	"time"

	"github.com/prn-tf/drivebox/internal/domain"
)

// Store defines the interface for session storage backends.
// Implementations include an in-memory store for single-node deployments and
// a Redis store for deployments behind a load balancer.
type Store interface {
	// Set stores a session under its token with the given TTL.
	Set(ctx context.Context, session *domain.Session, ttl time.Duration) error

	// Get retrieves a session by token.
	// Returns domain.ErrSessionNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string) (*domain.Session, error)

	// Delete removes a session by token. Deleting an absent session is not
	// an error.
	Delete(ctx context.Context, token string) error

	// Close releases store resources.
	Close() error
}
