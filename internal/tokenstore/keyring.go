package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/justSteve/ts-trades/internal/auth"
)

// Compile-time interface check.
var _ Store = (*KeyringStore)(nil)

// KeyringStore persists the token record as a JSON blob in the OS keyring
// (Keychain on macOS, Secret Service on Linux, Credential Manager on
// Windows).
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore creates a KeyringStore under the given service name. The
// user component scopes the entry to a client key so multiple client
// applications can coexist.
func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{service: service, user: user}
}

// Load reads and parses the keyring entry. A missing entry maps to
// ErrNotFound.
func (s *KeyringStore) Load(_ context.Context) (*auth.Token, error) {
	secret, err := keyring.Get(s.service, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading keyring entry: %w", err)
	}

	var token auth.Token
	if err := json.Unmarshal([]byte(secret), &token); err != nil {
		return nil, fmt.Errorf("parsing keyring entry: %w", err)
	}

	return &token, nil
}

// Save writes the token as a JSON blob into the keyring.
func (s *KeyringStore) Save(_ context.Context, token *auth.Token) error {
	if token == nil {
		return ErrNilToken
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if err := keyring.Set(s.service, s.user, string(data)); err != nil {
		return fmt.Errorf("writing keyring entry: %w", err)
	}

	return nil
}
