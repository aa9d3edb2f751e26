package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchsync/pkg/logger"
)

// Run executes a complete probe and returns its report. The error is
// ErrVerification when the run finished but found problems.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	normalize(cfg)
	log := logger.Get().Named("probe")
	report := &Report{StartTime: time.Now()}

	log.Info(ctx, "starting matchsync probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("competition", cfg.Competition),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("playersPerSession", cfg.PlayersPerSession),
		logger.Int("workers", cfg.Workers),
		logger.Duration("wait", cfg.Wait),
		logger.Bool("unobserved", cfg.Unobserved))

	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check host health
	if err := client.Healthy(ctx); err != nil {
		return nil, fmt.Errorf("host health check failed: %w", err)
	}

	// Step 2: Pick matches and players
	matches, err := fetchMatches(ctx, client, cfg.Competition)
	if err != nil {
		return nil, fmt.Errorf("relevant matches: %w", err)
	}
	report.Matches = len(matches)
	if len(matches) == 0 {
		return nil, ErrNoMatches
	}
	plans := planSessions(cfg, matches, fetchLineups(ctx, client, matches))
	if len(plans) == 0 {
		return nil, fmt.Errorf("%w: no match has a lineup", ErrNoMatches)
	}
	report.SessionsPlanned = len(plans)

	// Step 3: Start sessions concurrently
	report.Results = startSessions(ctx, client, cfg, plans)
	for _, r := range report.Results {
		if r.Started {
			report.SessionsStarted++
		} else {
			report.SessionsFailed++
		}
	}

	// Step 4: Give monitors time to poll
	log.Info(ctx, "waiting for monitors", logger.Duration("wait", cfg.Wait))
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(cfg.Wait):
	}

	// Step 5: Read tallies and host stats
	if err := readTallies(ctx, client, cfg, report.Results); err != nil {
		return nil, fmt.Errorf("tally retrieval failed: %w", err)
	}
	if err := client.Get(ctx, "/stats", &report.Host); err != nil {
		return nil, fmt.Errorf("stats retrieval failed: %w", err)
	}

	// Step 6: Verify
	report.Problems = verify(report)
	for _, r := range report.Results {
		for _, t := range r.Tally {
			report.EventsRecorded += t.Total
		}
	}

	// Step 7: Clean up
	if !cfg.Keep {
		stopSessions(ctx, client, report.Results)
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)

	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	displayReport(ctx, report)

	if len(report.Problems) > 0 {
		return report, fmt.Errorf("%w: %d problems", ErrVerification, len(report.Problems))
	}
	log.Info(ctx, "probe completed successfully")
	return report, nil
}

func normalize(cfg *Config) {
	if cfg.Sessions <= 0 {
		cfg.Sessions = DefaultSessions
	}
	if cfg.PlayersPerSession <= 0 {
		cfg.PlayersPerSession = DefaultPlayersPerSession
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Wait < 0 {
		cfg.Wait = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
}

// startSessions starts every plan. Failures are recorded per session and do
// not abort the others.
func startSessions(ctx context.Context, client *HTTPClient, cfg *Config, plans []Plan) []Result {
	log := logger.Get().Named("probe")
	results := make([]Result, len(plans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, p := range plans {
		i, p := i, p
		results[i].Plan = p
		g.Go(func() error {
			err := client.StartSession(gctx, p)
			if err == nil && !p.Observing {
				err = client.SetObserving(gctx, p.SessionID, false)
			}
			if err != nil {
				results[i].Error = err.Error()
				log.Warn(gctx, "session failed", logger.String("session", p.SessionID), logger.Error(err))
				return nil
			}
			results[i].Started = true
			if cfg.Verbose {
				log.Info(gctx, "session started",
					logger.String("session", p.SessionID),
					logger.String("match", p.MatchID),
					logger.Int("players", len(p.Players)),
					logger.Bool("observing", p.Observing))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func readTallies(ctx context.Context, client *HTTPClient, cfg *Config, results []Result) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range results {
		if !results[i].Started {
			continue
		}
		i := i
		g.Go(func() error {
			var resp TallyResponse
			if err := client.Get(gctx, "/sessions/"+results[i].Plan.SessionID+"/tally", &resp); err != nil {
				return err
			}
			results[i].Tally = resp.Players
			return nil
		})
	}
	return g.Wait()
}

func stopSessions(ctx context.Context, client *HTTPClient, results []Result) {
	var wg sync.WaitGroup
	for _, r := range results {
		if !r.Started {
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := client.StopSession(ctx, id); err != nil {
				logger.Get().Warn(ctx, "failed to stop session", logger.String("session", id), logger.Error(err))
			}
		}(r.Plan.SessionID)
	}
	wg.Wait()
}

func saveReport(filename string, report *Report) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), reportFilePermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func displayReport(ctx context.Context, report *Report) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("matches", report.Matches),
		logger.Int("sessionsPlanned", report.SessionsPlanned),
		logger.Int("sessionsStarted", report.SessionsStarted),
		logger.Int("sessionsFailed", report.SessionsFailed),
		logger.Int("eventsRecorded", report.EventsRecorded),
		logger.Int("activeMonitors", report.Host.ActiveMonitors),
		logger.Int("budgetUsed", report.Host.BudgetUsed),
		logger.Int("budgetLimit", report.Host.BudgetLimit),
		logger.Int("problems", len(report.Problems)),
		logger.Duration("duration", report.Duration))
	for _, p := range report.Problems {
		logger.Get().Warn(ctx, "problem", logger.String("detail", p))
	}
}
