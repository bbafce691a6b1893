// Package tokenstore provides pluggable persistence backends for OAuth2
// token records: a JSON file, the OS keyring, and an in-memory store for
// tests. Stores only serialize and deserialize tokens; the auth.Session owns
// the record and all mutation.
package tokenstore

import (
	"context"
	"errors"

	"github.com/justSteve/ts-trades/internal/auth"
)

var (
	// ErrNotFound is returned by Load when no token has been stored yet.
	ErrNotFound = errors.New("no token stored")
	// ErrNilToken is returned when attempting to save a nil token.
	ErrNilToken = errors.New("token cannot be nil")
)

// Store persists and retrieves a single token record.
type Store interface {
	// Load returns the stored token, or ErrNotFound when none exists.
	Load(ctx context.Context) (*auth.Token, error)
	// Save overwrites the stored token. The record is never cleared, only
	// replaced.
	Save(ctx context.Context, token *auth.Token) error
}
