// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - One Config is loaded at startup; components receive values through
//     their functional options, never by reading this package at runtime.
//   - Durations are expressed in whole seconds to keep env overrides simple.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Engine kinds.
const (
	EngineRobocode = "robocode"
	EngineSim      = "sim"
)

// Blob store backends.
const (
	BlobMemory   = "memory"
	BlobSQLite   = "sqlite"
	BlobPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CompetitorsDir is the root every competitor is written to and compiled in.
	CompetitorsDir string `koanf:"competitors_dir"`
	// LibsDir holds robocode.jar (and clojure.jar for Clojure competitors).
	LibsDir string `koanf:"libs_dir"`

	EngineKind        string `koanf:"engine_kind"`
	JavaBinary        string `koanf:"java_binary"`
	JavacBinary       string `koanf:"javac_binary"`
	EngineHome        string `koanf:"engine_home"`
	EngineRounds      int    `koanf:"engine_rounds"`
	BattlefieldWidth  int    `koanf:"battlefield_width"`
	BattlefieldHeight int    `koanf:"battlefield_height"`
	// EngineVersion is written into each competitor's metadata sidecar.
	EngineVersion string `koanf:"engine_version"`

	CompileTimeoutSec int `koanf:"compile_timeout_sec"`

	DiscoveryEnabled     bool   `koanf:"discovery_enabled"`
	DiscoveryIntervalSec int    `koanf:"discovery_interval_sec"`
	DiscoveryCooldownSec int    `koanf:"discovery_cooldown_sec"`
	GitHubAPIURL         string `koanf:"github_api_url"`
	GitHubRawURL         string `koanf:"github_raw_url"`
	GitHubOrg            string `koanf:"github_org"`
	GitHubToken          string `koanf:"github_token"`
	GitHubBranch         string `koanf:"github_branch"`

	PollIntervalSec int `koanf:"poll_interval_sec"`

	BlobStore       string `koanf:"blob_store"`
	BlobSQLitePath  string `koanf:"blob_sqlite_path"`
	BlobPostgresDSN string `koanf:"blob_postgres_dsn"`
	// BlobPrefix is the key namespace recordings are written under and listed from.
	BlobPrefix   string `koanf:"blob_prefix"`
	ListPageSize int    `koanf:"list_page_size"`

	BattleQueueSize int `koanf:"battle_queue_size"`
	BattleWorkers   int `koanf:"battle_workers"`

	// NotifyWebhookURL receives compile failure notices when set.
	NotifyWebhookURL string `koanf:"notify_webhook_url"`

	MetricsEnabled   bool   `koanf:"metrics_enabled"`
	MetricsNamespace string `koanf:"metrics_namespace"`
	// MetricsInstance labels every metric; empty leaves metrics unlabelled.
	MetricsInstance   string `koanf:"metrics_instance"`
	MetricsRefreshSec int    `koanf:"metrics_refresh_sec"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":8080",
		CompetitorsDir:       "robots",
		LibsDir:              "libs",
		EngineKind:           EngineSim,
		JavaBinary:           "java",
		JavacBinary:          "javac",
		EngineHome:           ".",
		EngineRounds:         10,
		BattlefieldWidth:     800,
		BattlefieldHeight:    600,
		EngineVersion:        "1.9.4.2",
		CompileTimeoutSec:    120,
		DiscoveryEnabled:     false,
		DiscoveryIntervalSec: 60,
		DiscoveryCooldownSec: 900,
		GitHubAPIURL:         "https://api.github.com",
		GitHubRawURL:         "https://raw.githubusercontent.com",
		GitHubBranch:         "master",
		PollIntervalSec:      60,
		BlobStore:            BlobMemory,
		BlobSQLitePath:       "roboarena.db",
		BlobPrefix:           "runs/",
		ListPageSize:         1000,
		BattleQueueSize:      16,
		BattleWorkers:        1,
		MetricsEnabled:       true,
		MetricsNamespace:     "roboarena",
		MetricsRefreshSec:    10,
	}
}

// CompileTimeout returns the per-compile deadline.
func (c *Config) CompileTimeout() time.Duration {
	return time.Duration(c.CompileTimeoutSec) * time.Second
}

// DiscoveryInterval returns the discovery tick period.
func (c *Config) DiscoveryInterval() time.Duration {
	return time.Duration(c.DiscoveryIntervalSec) * time.Second
}

// DiscoveryCooldown returns how long a robot-less repository is left alone.
func (c *Config) DiscoveryCooldown() time.Duration {
	return time.Duration(c.DiscoveryCooldownSec) * time.Second
}

// PollInterval returns the result store poll period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// MetricsRefresh returns how often gauges are sampled.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshSec) * time.Second
}
