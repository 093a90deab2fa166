// Package session holds the bearer credential used by the API client.
//
// A Session is created once per process and passed explicitly to the client.
// The token lives in memory and is mirrored to a TokenStore so it survives restarts.
package session

import (
	"fmt"
	"sync"
)

// TokenStore persists a single bearer token.
// Implementations must be safe for concurrent use.
type TokenStore interface {
	// Load returns the stored token, or "" when none is stored.
	Load() (string, error)
	// Save replaces the stored token.
	Save(token string) error
	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear() error
}

// Session is the credential shared by all requests of one client.
type Session struct {
	mu    sync.RWMutex
	token string
	store TokenStore
}

// New creates a session backed by store and loads any persisted token.
func New(store TokenStore) (*Session, error) {
	if store == nil {
		store = NewMemoryStore()
	}
	token, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	return &Session{token: token, store: store}, nil
}

// Token returns the current bearer token, or "" when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken stores a new token in memory and in the backing store.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	s.token = token
	return nil
}

// Evict drops the token. The in-memory copy is always cleared even if the
// backing store fails.
func (s *Session) Evict() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// Reload re-reads the token from the backing store.
func (s *Session) Reload() error {
	token, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// MemoryStore keeps the token in process memory only.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
