// Package service wires the live match synchronization components together
// and exposes the operations the HTTP API and game sessions use.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/matchsync/internal/adapters/gamestate"
	"github.com/okian/matchsync/internal/adapters/mq/queue"
	"github.com/okian/matchsync/internal/adapters/mq/worker"
	"github.com/okian/matchsync/internal/adapters/notify"
	"github.com/okian/matchsync/internal/adapters/notify/telegram"
	"github.com/okian/matchsync/internal/adapters/source"
	"github.com/okian/matchsync/internal/adapters/source/demo"
	"github.com/okian/matchsync/internal/adapters/source/footballdata"
	"github.com/okian/matchsync/internal/config"
	"github.com/okian/matchsync/internal/domain/budget"
	"github.com/okian/matchsync/internal/domain/cache"
	"github.com/okian/matchsync/internal/domain/fetch"
	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/internal/domain/monitor"
	"github.com/okian/matchsync/internal/domain/registry"
	"github.com/okian/matchsync/pkg/logger"
	"github.com/okian/matchsync/pkg/metrics"
)

// Stats is a point-in-time view of the service.
type Stats struct {
	Started         bool              `json:"started"`
	Source          string            `json:"source"`
	ActiveMonitors  int               `json:"active_monitors"`
	Sessions        []registry.Status `json:"sessions"`
	CacheEntries    int               `json:"cache_entries"`
	BudgetUsed      int               `json:"budget_used"`
	BudgetRemaining int               `json:"budget_remaining"`
	BudgetLimit     int               `json:"budget_limit"`
	BudgetWindow    string            `json:"budget_window"`
	QueueLength     int               `json:"queue_length"`
	Workers         int               `json:"workers"`
}

// Service owns the process-wide singletons: one budget tracker, one cache,
// one fetch coordinator and one monitor registry.
type Service struct {
	mu sync.RWMutex

	cfg      *config.Config
	src      source.Source
	notifier worker.Notifier
	clock    func() time.Time

	budget   *budget.Tracker
	cache    *cache.Cache
	fetcher  *fetch.Coordinator
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	tally    *gamestate.Tally
	registry *registry.Registry

	cancel  context.CancelFunc
	started bool

	logger logger.Logger
}

// New constructs a Service. A nil cfg uses config.New().
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) newSource() source.Source {
	if s.src != nil {
		return s.src
	}
	if s.cfg.Source == config.SourceFootballData {
		return footballdata.New(s.cfg.APIBaseURL, s.cfg.APIToken,
			footballdata.WithTimeout(s.cfg.APITimeout),
		)
	}
	opts := []demo.Option{
		demo.WithSeed(s.cfg.DemoSeed),
		demo.WithMatches(s.cfg.DemoMatches),
	}
	if s.clock != nil {
		opts = append(opts, demo.WithClock(s.clock))
	}
	return demo.New(opts...)
}

func (s *Service) newNotifier() (worker.Notifier, error) {
	if s.notifier != nil {
		return s.notifier, nil
	}
	if s.cfg.TelegramEnabled {
		n, err := telegram.New(s.cfg.TelegramBotToken, s.cfg.TelegramChatID)
		if err != nil {
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		return n, nil
	}
	return notify.NewLogNotifier(nil), nil
}

// Start builds and starts every component. Calling it on a started service
// is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting match sync service...", logger.String("source", s.cfg.Source))

	notifier, err := s.newNotifier()
	if err != nil {
		return err
	}
	src := s.newSource()

	budgetOpts := []budget.Option{
		budget.WithMaxCalls(s.cfg.BudgetMaxCalls),
		budget.WithWindow(s.cfg.BudgetWindow),
	}
	var cacheOpts []cache.Option
	fetchOpts := []fetch.Option{
		fetch.WithMaxAttempts(s.cfg.FetchMaxAttempts),
		fetch.WithRetryBase(s.cfg.FetchRetryBase),
		fetch.WithWaitCeiling(s.cfg.BudgetWaitCeiling),
		fetch.WithFallbackWindow(s.cfg.FallbackLookbackDays, s.cfg.FallbackLookaheadDays),
	}
	monitorOpts := []monitor.Option{
		monitor.WithBackoff(s.cfg.MonitorBackoffBase, s.cfg.MonitorBackoffCeiling),
		monitor.WithFailureThreshold(s.cfg.MonitorFailureThreshold),
		monitor.WithTerminalGrace(s.cfg.MonitorTerminalGrace),
	}
	if s.clock != nil {
		budgetOpts = append(budgetOpts, budget.WithClock(s.clock))
		cacheOpts = append(cacheOpts, cache.WithClock(s.clock))
		fetchOpts = append(fetchOpts, fetch.WithClock(s.clock))
		monitorOpts = append(monitorOpts, monitor.WithClock(s.clock))
	}

	// Background loops outlive the Start request and end in Stop.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.budget = budget.New(budgetOpts...)
	s.cache = cache.New(cacheOpts...)
	go s.cache.Run(runCtx, s.cfg.CacheSweepInterval)
	s.fetcher = fetch.New(src, s.cache, s.budget, fetchOpts...)

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.NotifyQueueSize))
	s.pool = worker.NewPool(s.cfg.NotifyWorkers, s.queue, notifier)
	s.pool.Start(runCtx)

	s.tally = gamestate.NewTally()
	s.registry = registry.New(s.fetcher, s.tally,
		registry.WithNotifications(s.queue),
		registry.WithMonitorOptions(monitorOpts...),
	)

	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "match sync service started",
		logger.Int("budget_max_calls", s.cfg.BudgetMaxCalls),
		logger.Duration("budget_window", s.cfg.BudgetWindow),
		logger.Int("notify_workers", s.pool.Size()),
		logger.Int("notify_queue_size", s.cfg.NotifyQueueSize),
	)
	return nil
}

// Stop stops every monitor, drains notifications and halts background loops.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping match sync service...")

	var firstErr error
	if err := s.registry.StopAll(ctx); err != nil {
		firstErr = err
		s.logger.Warn(ctx, "monitors did not stop in time", logger.Error(err))
	}
	if err := s.pool.Shutdown(ctx); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		s.logger.Warn(ctx, "notification workers did not drain", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "match sync service stopped")
	return firstErr
}

func (s *Service) running() (*registry.Registry, *fetch.Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.registry, s.fetcher, nil
}

// StartLiveTracking begins monitoring match for the session. Tracked players'
// events reach game state, onUpdate and, when unobserved, the notifiers.
func (s *Service) StartLiveTracking(ctx context.Context, sessionID string, match model.Match, players []model.PlayerRef, onUpdate registry.Listener) error {
	reg, _, err := s.running()
	if err != nil {
		return err
	}
	return reg.Start(ctx, registry.Session{
		ID:       sessionID,
		Match:    match,
		Players:  players,
		Listener: onUpdate,
	})
}

// TrackMatch resolves matchID through the coordinator and starts tracking it.
func (s *Service) TrackMatch(ctx context.Context, sessionID, matchID string, players []model.PlayerRef) (model.Match, error) {
	_, f, err := s.running()
	if err != nil {
		return model.Match{}, err
	}
	m, err := f.FetchMatchDetail(ctx, matchID)
	if err != nil {
		return model.Match{}, fmt.Errorf("resolve match %s: %w", matchID, err)
	}
	if err := s.StartLiveTracking(ctx, sessionID, m, players, nil); err != nil {
		return model.Match{}, err
	}
	return m, nil
}

// TodayMatches lists every match kicking off on the current UTC day.
func (s *Service) TodayMatches(ctx context.Context, competition string) ([]model.Match, error) {
	_, f, err := s.running()
	if err != nil {
		return nil, err
	}
	return f.FetchToday(ctx, competition)
}

// Lineup returns the published lineup of matchID, empty when none is out yet.
func (s *Service) Lineup(ctx context.Context, matchID string) (model.Lineup, error) {
	_, f, err := s.running()
	if err != nil {
		return model.Lineup{}, err
	}
	return f.FetchLineup(ctx, matchID)
}

// StopLiveTracking stops the session's monitor. It does not wait.
func (s *Service) StopLiveTracking(sessionID string) {
	reg, _, err := s.running()
	if err != nil {
		return
	}
	reg.Stop(sessionID)
}

// SetObserving reports whether the session exists after updating it.
func (s *Service) SetObserving(sessionID string, observing bool) bool {
	reg, _, err := s.running()
	if err != nil {
		return false
	}
	return reg.SetObserving(sessionID, observing)
}

// RelevantMatches runs the fallback chain. It never fails.
func (s *Service) RelevantMatches(ctx context.Context, competition string) []model.Match {
	_, f, err := s.running()
	if err != nil {
		return []model.Match{}
	}
	return f.FindRelevantMatches(ctx, competition)
}

// Tally returns what game state recorded for the session.
func (s *Service) Tally(sessionID string) []gamestate.PlayerTally {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return []gamestate.PlayerTally{}
	}
	return s.tally.Session(sessionID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:  s.started,
		Source:   s.cfg.Source,
		Sessions: []registry.Status{},
	}
	if !s.started {
		return stats
	}

	limit, window := s.budget.Limit()
	stats.ActiveMonitors = s.registry.ActiveCount()
	stats.Sessions = s.registry.Sessions()
	stats.CacheEntries = s.cache.Len()
	stats.BudgetUsed = s.budget.Len()
	stats.BudgetRemaining = s.budget.Remaining()
	stats.BudgetLimit = limit
	stats.BudgetWindow = window.String()
	stats.QueueLength = s.queue.Len(context.Background())
	stats.Workers = s.pool.Size()

	metrics.UpdateActiveMonitors(stats.ActiveMonitors)
	metrics.UpdateCacheSize(stats.CacheEntries)
	metrics.UpdateBudgetUsage(stats.BudgetUsed)
	return stats
}
