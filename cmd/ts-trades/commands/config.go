package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/justSteve/ts-trades/internal/app"
)

// envKeys maps TS_-prefixed environment variables onto config keys. Unknown
// variables are dropped.
var envKeys = map[string]string{
	"CLIENT_KEY":       "credentials.client_key",
	"CLIENT_SECRET":    "credentials.client_secret",
	"CALL_BACK_DOMAIN": "credentials.call_back_domain",
	"ENVIRONMENT":      "environment",
	"TOKEN_STORAGE":    "auth.storage",
	"TOKEN_PATH":       "auth.token_path",
	"KEYRING_SERVICE":  "auth.keyring_service",
}

// loadConfig assembles the configuration in priority order: defaults, then
// the JSON config file, then TS_-prefixed environment variables. When no
// config path is given, the default location is used if it exists.
func loadConfig(path string, environ func() []string) (*app.Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"environment":  string(app.EnvironmentSimulation),
		"auth.storage": string(app.TokenStorageTypeFile),
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading config defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("loading config file %s: %w", path, err)
			}
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix:      "TS_",
		EnvironFunc: environ,
		TransformFunc: func(key, value string) (string, any) {
			mapped, ok := envKeys[strings.TrimPrefix(key, "TS_")]
			if !ok {
				return "", nil
			}
			return mapped, value
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	var cfg app.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// defaultConfigPath returns the conventional config file location, or ""
// when the user config dir cannot be resolved.
func defaultConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, "ts-trades", "config.json")
}
