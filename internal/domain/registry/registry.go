// Package registry keeps at most one live monitor per game session.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/internal/domain/monitor"
	"github.com/okian/matchsync/pkg/logger"
	"github.com/okian/matchsync/pkg/metrics"
)

// DefaultStopTimeout bounds how long Start waits for a replaced monitor.
const DefaultStopTimeout = 5 * time.Second

// GameState records translated events for a session.
type GameState interface {
	RecordEvent(ctx context.Context, sessionID string, player model.PlayerRef, kind string) error
}

// Enqueuer accepts notifications without blocking. It reports false when
// the notification was dropped.
type Enqueuer interface {
	Enqueue(ctx context.Context, n model.Notification) bool
}

// Listener receives the deliveries of one session. It must not stop its
// own session synchronously.
type Listener func(ctx context.Context, u Update)

// Session describes what to track.
type Session struct {
	ID       string
	Match    model.Match
	Players  []model.PlayerRef
	Listener Listener
}

// Status is a read-only view of one registered session.
type Status struct {
	SessionID string `json:"session_id"`
	MatchID   string `json:"match_id"`
	State     string `json:"state"`
	Failures  int    `json:"failures"`
	Observing bool   `json:"observing"`
}

type handle struct {
	sessionID string
	mon       *monitor.Monitor
	players   roster
	listener  Listener
	observing *atomic.Bool
}

// Registry owns the monitors of all sessions.
type Registry struct {
	fetcher       monitor.Fetcher
	game          GameState
	notifications Enqueuer
	monitorOpts   []monitor.Option
	stopTimeout   time.Duration
	log           logger.Logger

	startMu sync.Mutex // serializes Start so replacement is never interleaved

	mu        sync.Mutex
	handles   map[string]*handle
	observing map[string]*atomic.Bool // outlives monitor replacement
}

// New creates an empty registry.
func New(f monitor.Fetcher, game GameState, opts ...Option) *Registry {
	r := &Registry{
		fetcher:     f,
		game:        game,
		stopTimeout: DefaultStopTimeout,
		handles:     make(map[string]*handle),
		observing:   make(map[string]*atomic.Bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("registry")
	}
	return r
}

// Start begins tracking s. An existing monitor for the same session is
// stopped and awaited first. The monitor outlives ctx; only Stop or StopAll
// end it.
func (r *Registry) Start(ctx context.Context, s Session) error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalidSession)
	}
	if s.Match.ID == "" {
		return fmt.Errorf("%w: session %s has no match", ErrInvalidSession, s.ID)
	}

	r.startMu.Lock()
	defer r.startMu.Unlock()

	r.mu.Lock()
	old := r.handles[s.ID]
	flag := r.observing[s.ID]
	r.mu.Unlock()

	if old != nil {
		old.mon.Stop()
		timer := time.NewTimer(r.stopTimeout)
		select {
		case <-old.mon.Done():
		case <-timer.C:
			r.log.Warn(ctx, "replaced monitor did not exit in time",
				logger.String("session_id", s.ID),
				logger.Duration("timeout", r.stopTimeout),
			)
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("replace monitor for session %s: %w", s.ID, ctx.Err())
		}
		timer.Stop()
	}

	h := &handle{
		sessionID: s.ID,
		players:   newRoster(s.Players),
		listener:  s.Listener,
	}
	h.mon = monitor.New(s.Match, r.fetcher, func(ctx context.Context, u model.Update) {
		r.deliver(ctx, h, u)
	}, r.monitorOpts...)

	// The replaced monitor's watcher may already have dropped the flag.
	if flag == nil {
		flag = &atomic.Bool{}
		flag.Store(true)
	}
	h.observing = flag

	r.mu.Lock()
	r.observing[s.ID] = flag
	r.handles[s.ID] = h
	n := len(r.handles)
	r.mu.Unlock()
	metrics.UpdateActiveMonitors(n)

	go r.watch(h)
	h.mon.Start(context.WithoutCancel(ctx))

	r.log.Info(ctx, "live tracking started",
		logger.String("session_id", s.ID),
		logger.String("match_id", s.Match.ID),
		logger.Int("players", len(s.Players)),
	)
	return nil
}

// watch removes h once its monitor has exited, unless it was replaced.
func (r *Registry) watch(h *handle) {
	<-h.mon.Done()

	r.mu.Lock()
	if r.handles[h.sessionID] == h {
		delete(r.handles, h.sessionID)
		delete(r.observing, h.sessionID)
	}
	n := len(r.handles)
	r.mu.Unlock()
	metrics.UpdateActiveMonitors(n)
}

// Stop cancels the session's monitor without waiting. Unknown ids are ignored.
func (r *Registry) Stop(sessionID string) {
	r.mu.Lock()
	h := r.handles[sessionID]
	r.mu.Unlock()

	if h != nil {
		h.mon.Stop()
	}
}

// StopAll stops every monitor and waits for them to exit or ctx to end.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	hs := make([]*handle, 0, len(r.handles))
	for _, h := range r.handles {
		hs = append(hs, h)
	}
	r.mu.Unlock()

	for _, h := range hs {
		h.mon.Stop()
	}
	for _, h := range hs {
		select {
		case <-h.mon.Done():
		case <-ctx.Done():
			return fmt.Errorf("stop monitors: %w", ctx.Err())
		}
	}
	return nil
}

// ActiveCount returns the number of registered sessions.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// SetObserving marks whether the user is looking at the session. Events for
// unobserved sessions also produce notifications. The flag survives a
// restart of the session's monitor. Reports whether the session exists.
func (r *Registry) SetObserving(sessionID string, observing bool) bool {
	r.mu.Lock()
	flag := r.observing[sessionID]
	r.mu.Unlock()

	if flag == nil {
		return false
	}
	flag.Store(observing)
	return true
}

// Monitor returns the session's monitor.
func (r *Registry) Monitor(sessionID string) (*monitor.Monitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[sessionID]
	if !ok {
		return nil, false
	}
	return h.mon, true
}

// Sessions returns the status of every registered session, ordered by id.
func (r *Registry) Sessions() []Status {
	r.mu.Lock()
	hs := make([]*handle, 0, len(r.handles))
	for _, h := range r.handles {
		hs = append(hs, h)
	}
	r.mu.Unlock()

	out := make([]Status, 0, len(hs))
	for _, h := range hs {
		out = append(out, Status{
			SessionID: h.sessionID,
			MatchID:   h.mon.MatchID(),
			State:     h.mon.State().String(),
			Failures:  h.mon.Failures(),
			Observing: h.observing.Load(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}
