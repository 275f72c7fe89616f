package config

import (
	"context"
	"io/fs"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables that point at configuration files.
const (
	EnvPrefix     = "SENTIMOJI_"
	EnvConfigFile = EnvPrefix + "CONFIG"
	EnvDotEnvFile = EnvPrefix + "ENV_FILE"
	defaultDotEnv = ".env"
)

// Load builds a Config by layering defaults, a .env file, an optional YAML
// file and environment variables.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. YAML file if SENTIMOJI_CONFIG is set
//  3. env (prefix SENTIMOJI_), including values read from the .env file
//
// The .env file (SENTIMOJI_ENV_FILE, default .env) never overrides variables
// already set in the process; a missing file is ignored.
func Load(_ context.Context) (*Config, error) {
	const op = "config.load"

	if err := loadDotEnv(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, op), ErrLoadConfig)
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "%s: read %s", op, path), ErrLoadConfig)
		}
	}

	// SENTIMOJI_QUEUE_SIZE -> queue_size; underscores are kept to match the tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.Mark(errors.Wrap(err, op), ErrLoadConfig)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Mark(errors.Wrap(err, op), ErrLoadConfig)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.CatalogSource = strings.ToLower(cfg.CatalogSource)
	cfg.CacheBackend = strings.ToLower(cfg.CacheBackend)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, op)
	}
	return &cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv(EnvDotEnvFile)
	if path == "" {
		path = defaultDotEnv
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.Wrapf(err, "read %s", path)
}
