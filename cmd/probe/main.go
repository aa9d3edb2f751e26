package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/matchsync/internal/probe"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the host")
		competition = flag.String("competition", "", "Competition code for /matches/relevant")
		sessions    = flag.Int("sessions", probe.DefaultSessions, "Number of sessions to start")
		players     = flag.Int("players", probe.DefaultPlayersPerSession, "Players tracked per session")
		workers     = flag.Int("workers", probe.DefaultWorkers, "Concurrent HTTP calls")
		wait        = flag.Duration("wait", probe.DefaultWait, "Time given to monitors before tallies are read")
		timeout     = flag.Duration("timeout", probe.DefaultTimeout, "HTTP request timeout")
		unobserved  = flag.Bool("unobserved", false, "Mark every other session as not observing")
		keep        = flag.Bool("keep", false, "Leave sessions running after the run")
		outputFile  = flag.String("output", "", "JSON report file")
		logFile     = flag.String("log", "", "Also write logs to this file")
		logFormat   = flag.String("log-format", "text", "text or json")
		verbose     = flag.Bool("verbose", false, "Log every session")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	if err := probe.SetupLogging(*logFile, *logFormat); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &probe.Config{
		BaseURL:           *baseURL,
		Competition:       *competition,
		Sessions:          *sessions,
		PlayersPerSession: *players,
		Workers:           *workers,
		Wait:              *wait,
		Timeout:           *timeout,
		Unobserved:        *unobserved,
		Keep:              *keep,
		OutputFile:        *outputFile,
		Verbose:           *verbose,
	}

	if _, err := probe.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
