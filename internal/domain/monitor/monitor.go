// Package monitor polls one match for new events and forwards them.
//
// A Monitor moves Idle -> Polling -> (Polling | Backoff) -> Stopped. It
// stops when asked to, when consecutive failures reach the threshold, or
// when the match has been terminal for longer than the grace period.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/matchsync/internal/domain/dedupe"
	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
	"github.com/okian/matchsync/pkg/metrics"
)

// Default monitor configuration constants.
const (
	DefaultBackoffBase      = 30 * time.Second
	DefaultBackoffCeiling   = 5 * time.Minute
	DefaultFailureThreshold = 5
	DefaultTerminalGrace    = 30 * time.Minute

	minBudgetWait = time.Second
)

// Stop reasons.
const (
	ReasonRequested = "requested"
	ReasonFailures  = "failures"
	ReasonTerminal  = "terminal"
	ReasonCancelled = "cancelled"
)

// State is the monitor lifecycle state.
type State int32

// Monitor states.
const (
	StateIdle State = iota
	StatePolling
	StateBackoff
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Fetcher is the slice of the fetch coordinator a monitor needs.
type Fetcher interface {
	FetchEvents(ctx context.Context, matchID string) (model.MatchDetail, error)
	CanCall() bool
	TimeUntilNextSlot() time.Duration
}

// Listener receives updates carrying only events not delivered before.
// It must not call Stop on the monitor delivering to it.
type Listener func(ctx context.Context, u model.Update)

// Monitor polls a single match.
type Monitor struct {
	matchID  string
	fetcher  Fetcher
	listener Listener
	seen     dedupe.Deduper
	log      logger.Logger
	now      func() time.Time

	backoffBase      time.Duration
	backoffCeiling   time.Duration
	failureThreshold int
	terminalGrace    time.Duration

	stopped atomic.Bool
	done    chan struct{}

	// deliverMu spans the stopped check and the listener call.
	deliverMu sync.Mutex

	mu            sync.Mutex
	state         State
	failures      int
	last          model.Match
	terminalSince time.Time
	cancel        context.CancelFunc
	started       bool
	reason        string
}

// New creates an idle monitor for match.
func New(match model.Match, f Fetcher, listener Listener, opts ...Option) *Monitor {
	m := &Monitor{
		matchID:          match.ID,
		fetcher:          f,
		listener:         listener,
		now:              time.Now,
		backoffBase:      DefaultBackoffBase,
		backoffCeiling:   DefaultBackoffCeiling,
		failureThreshold: DefaultFailureThreshold,
		terminalGrace:    DefaultTerminalGrace,
		last:             match,
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.seen == nil {
		m.seen = dedupe.NewInMemoryDeduper()
	}
	if m.log == nil {
		m.log = logger.Get().Named("monitor")
	}
	return m
}

// MatchID returns the monitored match id.
func (m *Monitor) MatchID() string { return m.matchID }

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Failures returns the consecutive failure count.
func (m *Monitor) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// Last returns the most recent match snapshot.
func (m *Monitor) Last() model.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// StopReason returns why the monitor stopped, empty while running.
func (m *Monitor) StopReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// Done is closed once the monitor will not poll again and its loop, if any,
// has exited.
func (m *Monitor) Done() <-chan struct{} { return m.done }

// Start launches the polling loop. Only the first call on an idle monitor
// has an effect. Driving a monitor with Step alone never starts a loop.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.state == StateStopped {
		m.mu.Unlock()
		return
	}
	m.state = StatePolling
	m.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	m.log.Debug(ctx, "monitor started", logger.String("match_id", m.matchID))
	go m.run(loopCtx)
}

// Stop halts polling from any state. An in-flight fetch is cancelled and
// its result discarded. Once Stop returns the listener is not called again;
// a delivery already in progress is allowed to finish first. Stop does not
// wait for the loop to exit; use Done for that.
func (m *Monitor) Stop() {
	m.stop(ReasonRequested)
}

func (m *Monitor) stop(reason string) {
	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return
	}
	noLoop := !m.started
	m.state = StateStopped
	m.reason = reason
	m.stopped.Store(true)
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.deliverMu.Lock()
	//nolint:staticcheck // SA2001: waits out an in-flight delivery
	m.deliverMu.Unlock()

	if noLoop {
		close(m.done)
	}
	metrics.RecordMonitorStop(reason)
	m.log.Info(context.Background(), "monitor stopped",
		logger.String("match_id", m.matchID),
		logger.String("reason", reason),
		logger.Int("delivered_events", m.seen.Size()),
	)
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	for {
		delay := m.Step(ctx)
		if m.stopped.Load() {
			return
		}
		if ctx.Err() != nil {
			m.stop(ReasonCancelled)
			return
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			m.stop(ReasonCancelled)
			return
		case <-t.C:
		}
	}
}

// Step performs one poll and returns the delay before the next one. It does
// nothing once the monitor is stopped.
func (m *Monitor) Step(ctx context.Context) time.Duration {
	if m.stopped.Load() || ctx.Err() != nil {
		return 0
	}

	if !m.fetcher.CanCall() {
		metrics.RecordPoll("budget_wait")
		wait := m.fetcher.TimeUntilNextSlot()
		if wait < minBudgetWait {
			wait = minBudgetWait
		}
		return wait
	}

	detail, err := m.fetcher.FetchEvents(ctx, m.matchID)
	if m.stopped.Load() || ctx.Err() != nil {
		return 0
	}
	if err != nil {
		return m.onFailure(ctx, err)
	}
	return m.onSuccess(ctx, detail)
}

func (m *Monitor) onFailure(ctx context.Context, err error) time.Duration {
	metrics.RecordPoll("failure")

	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return 0
	}
	m.failures++
	failures := m.failures
	if failures < m.failureThreshold {
		m.state = StateBackoff
	}
	m.mu.Unlock()

	if failures >= m.failureThreshold {
		m.log.Warn(ctx, "giving up on match after repeated failures",
			logger.String("match_id", m.matchID),
			logger.Int("failures", failures),
			logger.Error(err),
		)
		m.stop(ReasonFailures)
		return 0
	}

	delay := min(m.backoffCeiling, m.backoffBase*time.Duration(failures))
	m.log.Warn(ctx, "poll failed",
		logger.String("match_id", m.matchID),
		logger.Int("failures", failures),
		logger.Duration("next", delay),
		logger.Error(err),
	)
	return delay
}

func (m *Monitor) onSuccess(ctx context.Context, d model.MatchDetail) time.Duration {
	metrics.RecordPoll("success")
	now := m.now()
	status := d.Match.Status

	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return 0
	}
	m.failures = 0
	m.state = StatePolling
	m.last = d.Match
	graceOver := false
	if status.IsTerminal() {
		if m.terminalSince.IsZero() {
			m.terminalSince = now
		}
		graceOver = now.Sub(m.terminalSince) >= m.terminalGrace
	} else {
		m.terminalSince = time.Time{}
	}
	m.mu.Unlock()

	fresh := make([]model.LiveEvent, 0, len(d.Events))
	for _, e := range d.Events {
		if e.ID == "" || m.seen.SeenAndRecord(ctx, e.ID) {
			continue
		}
		fresh = append(fresh, e)
	}
	if dup := len(d.Events) - len(fresh); dup > 0 {
		metrics.RecordEventsDuplicate(dup)
	}

	if len(fresh) > 0 {
		m.emit(ctx, model.Update{Match: d.Match, Events: fresh})
	}

	if graceOver {
		m.stop(ReasonTerminal)
		return 0
	}
	return NextInterval(status, d.Match.Kickoff.Sub(now))
}

func (m *Monitor) emit(ctx context.Context, u model.Update) {
	if m.listener == nil {
		return
	}
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	if m.stopped.Load() {
		return
	}
	m.log.Debug(ctx, "new events",
		logger.String("match_id", m.matchID),
		logger.Int("count", len(u.Events)),
	)
	m.listener(ctx, u)
}
