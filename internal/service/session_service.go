// Package service provides business logic services for Drivebox.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/drivebox/internal/domain"
	"github.com/prn-tf/drivebox/internal/session"
)

// SessionService manages the login/logout lifecycle on top of a session
// store and the user service.
type SessionService struct {
	users  *UserService
	store  session.Store
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(users *UserService, store session.Store, ttl time.Duration, logger zerolog.Logger) *SessionService {
	return &SessionService{
		users:  users,
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("service", "session").Logger(),
	}
}

// LoginInput contains the credentials presented at login.
type LoginInput struct {
	Username string
	Password string
}

// Login authenticates the credentials and establishes a new session.
// Returns the session whose token is to be delivered in a cookie.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*domain.Session, error) {
	user, err := s.users.Authenticate(ctx, input.Username, input.Password)
	if err != nil {
		// No session is created on failed authentication.
		return nil, err
	}

	sess := domain.NewSession(user, s.ttl)
	if err := s.store.Set(ctx, sess, s.ttl); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to store session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("session created")

	return sess, nil
}

// Logout destroys the session unconditionally.
// Destroying an already-gone session is not an error.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.Delete(ctx, token); err != nil {
		s.logger.Error().Err(err).Msg("failed to delete session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	s.logger.Debug().Msg("session destroyed")
	return nil
}

// Validate resolves a session token to its session state.
// Unknown and expired tokens yield ErrSessionNotFound.
func (s *SessionService) Validate(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	sess, err := s.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error().Err(err).Msg("failed to load session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	// The memory store reaps lazily; double-check the deadline.
	if sess.IsExpired() {
		_ = s.store.Delete(ctx, token)
		return nil, ErrSessionNotFound
	}

	return sess, nil
}
