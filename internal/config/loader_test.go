package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MiradoConsulting/RobocodeEngine/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EngineRounds, convey.ShouldEqual, 10)
				convey.So(cfg.BlobStore, convey.ShouldEqual, config.BlobMemory)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ROBOARENA_ADDR", ":9000")
			_ = os.Setenv("ROBOARENA_ENGINE_ROUNDS", "3")
			_ = os.Setenv("ROBOARENA_DISCOVERY_ENABLED", "true")
			_ = os.Setenv("ROBOARENA_GITHUB_ORG", "arena")
			_ = os.Setenv("ROBOARENA_BLOB_PREFIX", "battles/")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9000")
				convey.So(cfg.EngineRounds, convey.ShouldEqual, 3)
				convey.So(cfg.DiscoveryEnabled, convey.ShouldBeTrue)
				convey.So(cfg.GitHubOrg, convey.ShouldEqual, "arena")
				convey.So(cfg.BlobPrefix, convey.ShouldEqual, "battles/")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := writeTempFile(t, "config.yaml", `
addr: ":9090"
engine_kind: robocode
blob_store: sqlite
blob_sqlite_path: /tmp/arena.db
poll_interval_sec: 30
`)
			_ = os.Setenv("ROBOARENA_CONFIG", path)
			_ = os.Setenv("ROBOARENA_POLL_INTERVAL_SEC", "5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.EngineKind, convey.ShouldEqual, config.EngineRobocode)
				convey.So(cfg.BlobStore, convey.ShouldEqual, config.BlobSQLite)
				convey.So(cfg.BlobSQLitePath, convey.ShouldEqual, "/tmp/arena.db")
				convey.So(cfg.PollIntervalSec, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When a dotenv file is named", func() {
			path := writeTempFile(t, "arena.env", "ROBOARENA_GITHUB_BRANCH=main\nROBOARENA_LOG_FORMAT=json\n")
			_ = os.Setenv("ROBOARENA_DOTENV", path)
			_ = os.Setenv("ROBOARENA_LOG_FORMAT", "text")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then its values fill in without overriding the process environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.GitHubBranch, convey.ShouldEqual, "main")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			})
		})

		convey.Convey("When the named dotenv file is missing", func() {
			_ = os.Setenv("ROBOARENA_DOTENV", "/non/existent/arena.env")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			path := writeTempFile(t, "bad.yaml", `invalid: yaml: content: [`)
			_ = os.Setenv("ROBOARENA_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ROBOARENA_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("ROBOARENA_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("ROBOARENA_ENGINE_ROUNDS", "many")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"ROBOARENA_CONFIG",
		"ROBOARENA_DOTENV",
		"ROBOARENA_ADDR",
		"ROBOARENA_ENGINE_ROUNDS",
		"ROBOARENA_DISCOVERY_ENABLED",
		"ROBOARENA_GITHUB_ORG",
		"ROBOARENA_GITHUB_BRANCH",
		"ROBOARENA_BLOB_PREFIX",
		"ROBOARENA_POLL_INTERVAL_SEC",
		"ROBOARENA_LOG_FORMAT",
	} {
		_ = os.Unsetenv(key)
	}
}
