package probe

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/matchsync/pkg/logger"
)

// SetupLogging initializes the global logger writing to stdout and, when
// logFile is set, to that file as well.
func SetupLogging(logFile, format string) error {
	var out io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}

	if err := logger.Init(logger.WithFormat(format), logger.WithWriter(out)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`matchsync probe
===============

Drives a running matchsync host through its HTTP API: picks relevant matches,
starts live-tracking sessions for players from their lineups, waits, then
checks tallies and stats.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the host (default "http://localhost:9080")
  -competition string
        Competition code for /matches/relevant (default: all)
  -sessions int
        Number of sessions to start (default 4)
  -players int
        Players tracked per session (default 3)
  -workers int
        Concurrent HTTP calls (default 4)
  -wait duration
        Time given to monitors before tallies are read (default 45s)
  -timeout duration
        HTTP request timeout (default 90s)
  -unobserved
        Mark every other session as not observing
  -keep
        Leave sessions running after the run
  -output string
        JSON report file (default: no file)
  -log string
        Also write logs to this file
  -log-format string
        text or json (default "text")
  -verbose
        Log every session
  -help
        Show this help message

Examples:
  # Probe a local demo host
  go run ./cmd/probe -wait 10s

  # Many sessions, half of them unobserved
  go run ./cmd/probe -sessions 20 -unobserved -output probe.json
`)
}
