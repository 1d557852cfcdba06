package session

import (
	"context"
	"sync"
	"time"

	"github.com/prn-tf/drivebox/internal/domain"
)

// MemoryStore implements Store using in-memory storage.
// This is NOT suitable for multi-node deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]*memoryItem
	stopCh  chan struct{}
	stopped bool
}

// memoryItem represents a single stored session.
type memoryItem struct {
	session   *domain.Session
	expiresAt time.Time
}

// isExpired checks if the item has expired.
func (i *memoryItem) isExpired() bool {
	return time.Now().After(i.expiresAt)
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		items:  make(map[string]*memoryItem),
		stopCh: make(chan struct{}),
	}

	// Start cleanup goroutine.
	go s.cleanupLoop()

	return s
}

// cleanupLoop periodically removes expired sessions.
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired sessions.
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, item := range s.items {
		if item.isExpired() {
			delete(s.items, token)
		}
	}
}

// Set stores a session under its token with the given TTL.
func (s *MemoryStore) Set(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.items[session.Token] = &memoryItem{
		session:   &copied,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Get retrieves a session by token.
func (s *MemoryStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[token]
	if !exists || item.isExpired() {
		return nil, domain.ErrSessionNotFound
	}

	// Return a copy to prevent mutation.
	copied := *item.session
	return &copied, nil
}

// Delete removes a session by token.
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, token)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.stopped {
		close(s.stopCh)
		s.stopped = true
	}
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
