// Package config defines service configuration and its defaults.
//
// Values are layered: defaults from New, then an optional YAML file, then
// MATCHSYNC_ environment variables. Keys are flat and match the koanf tags.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Data sources.
const (
	SourceFootballData = "football_data"
	SourceDemo         = "demo"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Source selects the match data source: football_data or demo.
	Source     string        `koanf:"source"`
	APIBaseURL string        `koanf:"api_base_url"`
	APIToken   string        `koanf:"api_token"`
	APITimeout time.Duration `koanf:"api_timeout"`

	BudgetMaxCalls    int           `koanf:"budget_max_calls"`
	BudgetWindow      time.Duration `koanf:"budget_window"`
	BudgetWaitCeiling time.Duration `koanf:"budget_wait_ceiling"`

	FetchMaxAttempts      int           `koanf:"fetch_max_attempts"`
	FetchRetryBase        time.Duration `koanf:"fetch_retry_base"`
	FallbackLookbackDays  int           `koanf:"fallback_lookback_days"`
	FallbackLookaheadDays int           `koanf:"fallback_lookahead_days"`

	CacheSweepInterval time.Duration `koanf:"cache_sweep_interval"`

	MonitorBackoffBase      time.Duration `koanf:"monitor_backoff_base"`
	MonitorBackoffCeiling   time.Duration `koanf:"monitor_backoff_ceiling"`
	MonitorFailureThreshold int           `koanf:"monitor_failure_threshold"`
	MonitorTerminalGrace    time.Duration `koanf:"monitor_terminal_grace"`

	NotifyQueueSize int `koanf:"notify_queue_size"`
	NotifyWorkers   int `koanf:"notify_workers"`

	TelegramEnabled  bool   `koanf:"telegram_enabled"`
	TelegramBotToken string `koanf:"telegram_bot_token"`
	TelegramChatID   string `koanf:"telegram_chat_id"`

	DemoSeed    int64 `koanf:"demo_seed"`
	DemoMatches int   `koanf:"demo_matches"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		ShutdownTimeout: 10 * time.Second,

		Source:     SourceDemo,
		APIBaseURL: "https://api.football-data.org/v4",
		APITimeout: 15 * time.Second,

		BudgetMaxCalls:    25,
		BudgetWindow:      60 * time.Second,
		BudgetWaitCeiling: 60 * time.Second,

		FetchMaxAttempts:      3,
		FetchRetryBase:        time.Second,
		FallbackLookbackDays:  3,
		FallbackLookaheadDays: 7,

		CacheSweepInterval: 5 * time.Minute,

		MonitorBackoffBase:      30 * time.Second,
		MonitorBackoffCeiling:   5 * time.Minute,
		MonitorFailureThreshold: 5,
		MonitorTerminalGrace:    30 * time.Minute,

		NotifyQueueSize: 1024,
		NotifyWorkers:   2,

		DemoSeed:    42,
		DemoMatches: 6,
	}
}

// Validate checks ranges and required combinations.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.Addr != "", "addr must not be empty")
	check(c.LogFormat == "text" || c.LogFormat == "json", "log_format must be text or json")
	check(c.Source == SourceFootballData || c.Source == SourceDemo, "source must be football_data or demo")
	if c.Source == SourceFootballData {
		check(c.APIBaseURL != "", "api_base_url is required for football_data")
		check(c.APIToken != "", "api_token is required for football_data")
	}
	check(c.APITimeout > 0, "api_timeout must be positive")
	check(c.BudgetMaxCalls > 0, "budget_max_calls must be positive")
	check(c.BudgetWindow > 0, "budget_window must be positive")
	check(c.BudgetWaitCeiling >= 0, "budget_wait_ceiling must not be negative")
	check(c.FetchMaxAttempts > 0, "fetch_max_attempts must be positive")
	check(c.FetchRetryBase > 0, "fetch_retry_base must be positive")
	check(c.FallbackLookbackDays >= 0, "fallback_lookback_days must not be negative")
	check(c.FallbackLookaheadDays >= 0, "fallback_lookahead_days must not be negative")
	check(c.CacheSweepInterval > 0, "cache_sweep_interval must be positive")
	check(c.MonitorBackoffBase > 0, "monitor_backoff_base must be positive")
	check(c.MonitorBackoffCeiling >= c.MonitorBackoffBase, "monitor_backoff_ceiling must be at least monitor_backoff_base")
	check(c.MonitorFailureThreshold > 0, "monitor_failure_threshold must be positive")
	check(c.MonitorTerminalGrace >= 0, "monitor_terminal_grace must not be negative")
	check(c.NotifyQueueSize > 0, "notify_queue_size must be positive")
	check(c.NotifyWorkers > 0, "notify_workers must be positive")
	if c.TelegramEnabled {
		check(c.TelegramBotToken != "", "telegram_bot_token is required when telegram_enabled")
		check(c.TelegramChatID != "", "telegram_chat_id is required when telegram_enabled")
	}
	check(c.DemoMatches > 0, "demo_matches must be positive")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
