package budget

import "time"

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithMaxCalls sets the number of calls allowed per window.
func WithMaxCalls(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxCalls = n
		}
	}
}

// WithWindow sets the sliding window length.
func WithWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.window = d
		}
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}
