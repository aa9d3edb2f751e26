package fetch

import (
	"time"

	"github.com/okian/matchsync/pkg/logger"
)

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithMaxAttempts sets how many times a transient failure is tried in total.
func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryBase sets the unit of the linear retry delay.
func WithRetryBase(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.retryBase = d
		}
	}
}

// WithWaitCeiling sets the longest wait for a budget slot or Retry-After.
func WithWaitCeiling(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.waitCeiling = d
		}
	}
}

// WithFallbackWindow sets the date window of the last relevant-match strategy.
func WithFallbackWindow(lookbackDays, lookaheadDays int) Option {
	return func(c *Coordinator) {
		if lookbackDays >= 0 {
			c.lookbackDays = lookbackDays
		}
		if lookaheadDays >= 0 {
			c.lookaheadDays = lookaheadDays
		}
	}
}

// WithClock replaces the time source used for date windows.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}
