package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/justSteve/ts-trades/internal/auth"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists the token record as a pretty-printed JSON file. The file
// is written with mode 0600 since it holds bearer credentials.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore for the given path. Parent directories are
// created on first save, not here.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the token file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and parses the token file. A missing file maps to ErrNotFound.
func (s *FileStore) Load(_ context.Context) (*auth.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var token auth.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", s.path, err)
	}

	return &token, nil
}

// Save writes the token file, creating parent directories as needed.
func (s *FileStore) Save(_ context.Context, token *auth.Token) error {
	if token == nil {
		return ErrNilToken
	}

	data, err := json.MarshalIndent(token, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating token directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	return nil
}
