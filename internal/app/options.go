package service

import (
	"time"

	"github.com/okian/matchsync/internal/adapters/mq/worker"
	"github.com/okian/matchsync/internal/adapters/source"
	"github.com/okian/matchsync/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource replaces the configured match data source.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.src = src
		}
	}
}

// WithNotifier replaces the configured notifier.
func WithNotifier(n worker.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock sets the time source shared by every component.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
