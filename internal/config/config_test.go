package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/matchsync/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var envKeys = []string{
	"MATCHSYNC_CONFIG",
	"MATCHSYNC_ADDR",
	"MATCHSYNC_SOURCE",
	"MATCHSYNC_API_TOKEN",
	"MATCHSYNC_BUDGET_MAX_CALLS",
	"MATCHSYNC_BUDGET_WINDOW",
	"MATCHSYNC_TELEGRAM_ENABLED",
	"MATCHSYNC_MONITOR_FAILURE_THRESHOLD",
}

func clearConfigEnvVars() {
	for _, k := range envKeys {
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it carries the canonical constants", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Source, convey.ShouldEqual, config.SourceDemo)
			convey.So(cfg.BudgetMaxCalls, convey.ShouldEqual, 25)
			convey.So(cfg.BudgetWindow, convey.ShouldEqual, time.Minute)
			convey.So(cfg.BudgetWaitCeiling, convey.ShouldEqual, time.Minute)
			convey.So(cfg.FetchMaxAttempts, convey.ShouldEqual, 3)
			convey.So(cfg.FallbackLookbackDays, convey.ShouldEqual, 3)
			convey.So(cfg.FallbackLookaheadDays, convey.ShouldEqual, 7)
			convey.So(cfg.CacheSweepInterval, convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.MonitorBackoffBase, convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.MonitorBackoffCeiling, convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.MonitorFailureThreshold, convey.ShouldEqual, 5)
			convey.So(cfg.MonitorTerminalGrace, convey.ShouldEqual, 30*time.Minute)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When football_data is selected without a token", func() {
			cfg.Source = config.SourceFootballData
			err := cfg.Validate()

			convey.Convey("Then it is invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "api_token")
			})
		})

		convey.Convey("When several values are out of range", func() {
			cfg.BudgetMaxCalls = 0
			cfg.MonitorBackoffCeiling = time.Second
			cfg.LogFormat = "xml"
			err := cfg.Validate()

			convey.Convey("Then every problem is reported", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "budget_max_calls")
				convey.So(err.Error(), convey.ShouldContainSubstring, "monitor_backoff_ceiling")
				convey.So(err.Error(), convey.ShouldContainSubstring, "log_format")
			})
		})

		convey.Convey("When telegram is enabled without credentials", func() {
			cfg.TelegramEnabled = true
			err := cfg.Validate()

			convey.Convey("Then it is invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "telegram_bot_token")
			})
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it loads the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.BudgetMaxCalls, convey.ShouldEqual, 25)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("MATCHSYNC_ADDR", ":8080")
			_ = os.Setenv("MATCHSYNC_BUDGET_MAX_CALLS", "10")
			_ = os.Setenv("MATCHSYNC_BUDGET_WINDOW", "30s")
			_ = os.Setenv("MATCHSYNC_MONITOR_FAILURE_THRESHOLD", "3")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env overrides the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BudgetMaxCalls, convey.ShouldEqual, 10)
				convey.So(cfg.BudgetWindow, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.MonitorFailureThreshold, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
addr: ":9090"
source: football_data
api_token: secret
api_timeout: 5s
notify_workers: 4
demo_seed: 42
`)
			_ = os.Setenv("MATCHSYNC_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then the file values apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Source, convey.ShouldEqual, config.SourceFootballData)
				convey.So(cfg.APIToken, convey.ShouldEqual, "secret")
				convey.So(cfg.APITimeout, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.NotifyWorkers, convey.ShouldEqual, 4)
				convey.So(cfg.DemoSeed, convey.ShouldEqual, 42)
			})

			convey.Convey("And env still wins over the file", func() {
				_ = os.Setenv("MATCHSYNC_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("MATCHSYNC_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the loaded values are invalid", func() {
			_ = os.Setenv("MATCHSYNC_SOURCE", "football_data")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects them", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
