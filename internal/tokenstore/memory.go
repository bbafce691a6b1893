package tokenstore

import (
	"context"
	"sync"

	"github.com/justSteve/ts-trades/internal/auth"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore holds the token record in memory. It serves as the test double
// and as ephemeral storage when persistence is explicitly unwanted.
type MemoryStore struct {
	mu    sync.RWMutex
	token *auth.Token
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored token, or ErrNotFound when empty.
func (s *MemoryStore) Load(_ context.Context) (*auth.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return nil, ErrNotFound
	}
	return s.token.Clone(), nil
}

// Save replaces the stored token with a copy of the given record.
func (s *MemoryStore) Save(_ context.Context, token *auth.Token) error {
	if token == nil {
		return ErrNilToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token.Clone()
	return nil
}
