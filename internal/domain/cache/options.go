package cache

import (
	"time"

	"github.com/okian/matchsync/pkg/logger"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		c.log = l
	}
}
