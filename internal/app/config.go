// Package app holds the application configuration and the wiring that turns
// it into concrete components: credentials, token storage, and the API
// client environment.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/justSteve/ts-trades/internal/auth"
	"github.com/justSteve/ts-trades/internal/tokenstore"
	"github.com/justSteve/ts-trades/internal/tsapi"
)

// Environment selects between the simulated and live trading APIs.
type Environment string

const (
	// EnvironmentSimulation targets the paper-trading API.
	EnvironmentSimulation Environment = "simulation"
	// EnvironmentLive targets the live trading API.
	EnvironmentLive Environment = "live"
)

// TokenStorageType selects a token persistence backend.
type TokenStorageType string

const (
	// TokenStorageTypeFile persists the token as a JSON file.
	TokenStorageTypeFile TokenStorageType = "file"
	// TokenStorageTypeKeyring persists the token in the OS keyring.
	TokenStorageTypeKeyring TokenStorageType = "keyring"
	// TokenStorageTypeMemory keeps the token in memory only.
	TokenStorageTypeMemory TokenStorageType = "memory"
)

// Config is the full application configuration, loaded from the JSON config
// file with environment variable overrides.
type Config struct {
	Credentials CredentialsConfig `koanf:"credentials"`
	Environment Environment       `koanf:"environment" validate:"oneof=simulation live"`
	Auth        AuthConfig        `koanf:"auth"`
}

// CredentialsConfig identifies the registered OAuth2 client application.
// Field names follow the credentials file format.
type CredentialsConfig struct {
	ClientKey      string `koanf:"client_key" validate:"required"`
	ClientSecret   string `koanf:"client_secret" validate:"required"`
	CallBackDomain string `koanf:"call_back_domain" validate:"required,url"`
}

// AuthConfig selects and parameterizes the token storage backend.
type AuthConfig struct {
	Storage        TokenStorageType `koanf:"storage" validate:"oneof=file keyring memory"`
	TokenPath      string           `koanf:"token_path"`
	KeyringService string           `koanf:"keyring_service"`
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// OAuthCredentials converts the configured credentials into the auth
// package's immutable form.
func (c *Config) OAuthCredentials() auth.Credentials {
	return auth.Credentials{
		ClientKey:    c.Credentials.ClientKey,
		ClientSecret: c.Credentials.ClientSecret,
		RedirectURI:  c.Credentials.CallBackDomain,
	}
}

// BaseURL returns the API base URL for the configured environment.
func (c *Config) BaseURL() string {
	if c.Environment == EnvironmentLive {
		return tsapi.LiveBaseURL
	}
	return tsapi.PaperBaseURL
}

// NewTokenStore builds the configured token storage backend. Keyring entries
// are scoped to the client key so multiple client applications can coexist.
func (c *Config) NewTokenStore() (tokenstore.Store, error) {
	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		path := c.Auth.TokenPath
		if path == "" {
			defaultPath, err := DefaultTokenPath()
			if err != nil {
				return nil, err
			}
			path = defaultPath
		}
		return tokenstore.NewFileStore(path), nil
	case TokenStorageTypeKeyring:
		service := c.Auth.KeyringService
		if service == "" {
			service = "ts-trades"
		}
		return tokenstore.NewKeyringStore(service, c.Credentials.ClientKey), nil
	case TokenStorageTypeMemory:
		return tokenstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported token storage type: %s", c.Auth.Storage)
	}
}

// DefaultTokenPath returns the default token file location under the user's
// config directory.
func DefaultTokenPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(configDir, "ts-trades", "ts_state.json"), nil
}
