package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load itself.
const (
	EnvPrefix     = "ROBOARENA_"
	EnvConfig     = EnvPrefix + "CONFIG"
	EnvDotenv     = EnvPrefix + "DOTENV"
	defaultDotenv = ".env"
)

// Load builds a Config by layering defaults, dotenv, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. .env file: ROBOARENA_DOTENV, else ./.env when present; never overrides
//     variables already set in the process environment
//  3. file (YAML) if ROBOARENA_CONFIG is set
//  4. env (prefix ROBOARENA_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	if err := loadDotenv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ROBOARENA_BLOB_STORE -> blob_store (flat keys, underscores preserved).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotenv() error {
	path := os.Getenv(EnvDotenv)
	if path == "" {
		if _, err := os.Stat(defaultDotenv); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = defaultDotenv
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.CompetitorsDir == "":
		return invalid("competitors_dir must not be empty")
	case c.EngineRounds <= 0:
		return invalid("engine_rounds must be positive")
	case c.BattlefieldWidth <= 0 || c.BattlefieldHeight <= 0:
		return invalid("battlefield dimensions must be positive")
	case c.PollIntervalSec <= 0:
		return invalid("poll_interval_sec must be positive")
	case c.ListPageSize <= 0:
		return invalid("list_page_size must be positive")
	case c.BattleQueueSize <= 0:
		return invalid("battle_queue_size must be positive")
	case c.BattleWorkers <= 0:
		return invalid("battle_workers must be positive")
	case c.MetricsRefreshSec <= 0:
		return invalid("metrics_refresh_sec must be positive")
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	}

	switch c.EngineKind {
	case EngineRobocode, EngineSim:
	default:
		return invalid("engine_kind must be %s or %s, got %q", EngineRobocode, EngineSim, c.EngineKind)
	}

	switch c.BlobStore {
	case BlobMemory:
	case BlobSQLite:
		if c.BlobSQLitePath == "" {
			return invalid("blob_sqlite_path is required for the sqlite blob store")
		}
	case BlobPostgres:
		if c.BlobPostgresDSN == "" {
			return invalid("blob_postgres_dsn is required for the postgres blob store")
		}
	default:
		return invalid("unknown blob_store %q", c.BlobStore)
	}

	if c.DiscoveryEnabled {
		if c.GitHubOrg == "" {
			return invalid("github_org is required when discovery is enabled")
		}
		if c.DiscoveryIntervalSec <= 0 {
			return invalid("discovery_interval_sec must be positive")
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
