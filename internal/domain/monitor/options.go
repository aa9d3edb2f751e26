package monitor

import (
	"time"

	"github.com/okian/matchsync/internal/domain/dedupe"
	"github.com/okian/matchsync/pkg/logger"
)

// Option applies a configuration option to the Monitor.
type Option func(*Monitor)

// WithBackoff sets the failure backoff unit and its ceiling.
func WithBackoff(base, ceiling time.Duration) Option {
	return func(m *Monitor) {
		if base > 0 {
			m.backoffBase = base
		}
		if ceiling > 0 {
			m.backoffCeiling = ceiling
		}
	}
}

// WithFailureThreshold sets how many consecutive failures stop the monitor.
func WithFailureThreshold(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.failureThreshold = n
		}
	}
}

// WithTerminalGrace sets how long a terminal match keeps being polled.
func WithTerminalGrace(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.terminalGrace = d
		}
	}
}

// WithDeduper replaces the seen-set.
func WithDeduper(d dedupe.Deduper) Option {
	return func(m *Monitor) {
		if d != nil {
			m.seen = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the monitor logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}
