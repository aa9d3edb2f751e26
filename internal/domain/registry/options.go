package registry

import (
	"time"

	"github.com/okian/matchsync/internal/domain/monitor"
	"github.com/okian/matchsync/pkg/logger"
)

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithNotifications sets where notifications for unobserved sessions go.
func WithNotifications(q Enqueuer) Option {
	return func(r *Registry) {
		r.notifications = q
	}
}

// WithMonitorOptions is applied to every monitor the registry creates.
func WithMonitorOptions(opts ...monitor.Option) Option {
	return func(r *Registry) {
		r.monitorOpts = append(r.monitorOpts, opts...)
	}
}

// WithStopTimeout bounds the wait for a replaced monitor.
func WithStopTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.stopTimeout = d
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}
