package telegram

import (
	"net/http"
	"time"

	"github.com/okian/matchsync/pkg/logger"
)

// Option applies a configuration option to the Notifier.
type Option func(*Notifier)

// WithAPIEndpoint overrides the Bot API endpoint format
// ("https://host/bot%s/%s").
func WithAPIEndpoint(endpoint string) Option {
	return func(n *Notifier) {
		if endpoint != "" {
			n.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the client used to reach the Bot API.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		if c != nil {
			n.client = c
		}
	}
}

// WithRetries sets how many send attempts are made and the linear delay base.
func WithRetries(attempts int, base time.Duration) Option {
	return func(n *Notifier) {
		if attempts > 0 {
			n.maxRetries = attempts
		}
		if base > 0 {
			n.retryDelayBase = base
		}
	}
}

// WithLogger sets the notifier logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.log = l
		}
	}
}
