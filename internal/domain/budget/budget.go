// Package budget tracks outbound API calls in a sliding time window so the
// process never exceeds the remote provider's request quota.
package budget

import (
	"sync"
	"time"

	"github.com/okian/matchsync/pkg/metrics"
)

// Default budget configuration constants.
const (
	DefaultMaxCalls = 25
	DefaultWindow   = 60 * time.Second
)

// Tracker is a sliding-window call counter shared by every fetch path.
// All operations prune records older than the window first.
type Tracker struct {
	mu       sync.Mutex
	calls    []time.Time // ascending
	maxCalls int
	window   time.Duration
	now      func() time.Time
}

// New creates a tracker allowing DefaultMaxCalls per DefaultWindow unless
// overridden by options.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		maxCalls: DefaultMaxCalls,
		window:   DefaultWindow,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.calls = make([]time.Time, 0, t.maxCalls)
	return t
}

// prune drops records that fell out of the window. Caller holds mu.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(t.calls) && !t.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		t.calls = append(t.calls[:0], t.calls[i:]...)
	}
}

// CanCall reports whether a call may be made now.
func (t *Tracker) CanCall() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())
	return len(t.calls) < t.maxCalls
}

// RecordCall appends a call record stamped with the current time.
func (t *Tracker) RecordCall() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.prune(now)
	t.calls = append(t.calls, now)
	metrics.UpdateBudgetUsage(len(t.calls))
}

// TryAcquire records a call if one is allowed and reports whether it did.
// Check and record happen under one lock so two callers cannot both take the
// last slot.
func (t *Tracker) TryAcquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.prune(now)
	if len(t.calls) >= t.maxCalls {
		return false
	}
	t.calls = append(t.calls, now)
	metrics.UpdateBudgetUsage(len(t.calls))
	return true
}

// TimeUntilNextSlot returns how long until a call becomes allowed; zero when
// under budget.
func (t *Tracker) TimeUntilNextSlot() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.prune(now)
	if len(t.calls) < t.maxCalls || len(t.calls) == 0 {
		return 0
	}
	wait := t.window - now.Sub(t.calls[0])
	if wait < 0 {
		return 0
	}
	return wait
}

// Remaining returns the number of calls still allowed in the current window.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())
	return t.maxCalls - len(t.calls)
}

// Len returns the number of calls recorded in the current window.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())
	return len(t.calls)
}

// Limit returns the configured maximum and window.
func (t *Tracker) Limit() (int, time.Duration) {
	return t.maxCalls, t.window
}
