package monitor

import (
	"time"

	"github.com/okian/matchsync/internal/domain/model"
)

// Polling intervals by match status.
const (
	IntervalInProgress   = 30 * time.Second
	IntervalHalftime     = 60 * time.Second
	IntervalKickoffSoon  = 30 * time.Second
	IntervalUpcoming     = 5 * time.Minute
	IntervalCompleted    = 5 * time.Minute
	IntervalAbandoned    = 10 * time.Minute
	IntervalInterrupted  = 2 * time.Minute
	IntervalUnknown      = 2 * time.Minute
	kickoffSoonThreshold = 5 * time.Minute
)

// NextInterval returns the delay before the next poll of a match in status
// whose kickoff is untilKickoff away (negative once started).
func NextInterval(status model.MatchStatus, untilKickoff time.Duration) time.Duration {
	switch status {
	case model.StatusInProgress:
		return IntervalInProgress
	case model.StatusHalftime:
		return IntervalHalftime
	case model.StatusUpcoming:
		if untilKickoff < kickoffSoonThreshold {
			return IntervalKickoffSoon
		}
		return IntervalUpcoming
	case model.StatusCompleted:
		return IntervalCompleted
	case model.StatusPostponed, model.StatusCancelled:
		return IntervalAbandoned
	case model.StatusPaused, model.StatusSuspended:
		return IntervalInterrupted
	default:
		return IntervalUnknown
	}
}
