// Package domain contains the core business entities for Drivebox.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a server-side authenticated session, bound to a client
// via a cookie-delivered opaque token.
type Session struct {
	// Token is the opaque session identifier delivered in the cookie.
	Token string `json:"token"`

	// UserID is the identifier of the authenticated user.
	UserID int64 `json:"user_id"`

	// Username is cached from the user record for display.
	Username string `json:"username"`

	// CreatedAt is the timestamp when the session was established.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the timestamp after which the session is invalid.
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession creates a session for the given user with a fresh random token.
func NewSession(user *User, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired returns true if the session lifetime has elapsed.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
