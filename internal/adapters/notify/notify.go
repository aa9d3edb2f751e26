// Package notify holds Notifier implementations that need no remote service.
package notify

import (
	"context"

	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses the global one.
func NewLogNotifier(l logger.Logger) *LogNotifier {
	if l == nil {
		l = logger.Get().Named("notify")
	}
	return &LogNotifier{log: l}
}

// Notify logs n and never fails.
func (l *LogNotifier) Notify(ctx context.Context, n model.Notification) error {
	l.log.Info(ctx, "player event",
		logger.String("notification_id", n.ID),
		logger.String("session_id", n.SessionID),
		logger.String("match", n.MatchLabel),
		logger.String("kind", n.EventType),
		logger.String("player", n.PlayerName),
		logger.Time("created_at", n.CreatedAt),
	)
	return nil
}
