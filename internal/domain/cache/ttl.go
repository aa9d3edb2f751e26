package cache

import (
	"time"

	"github.com/okian/matchsync/internal/domain/model"
)

// Kind partitions the cache key space.
type Kind string

// Cache kinds.
const (
	KindMatch       Kind = "match"
	KindMatchDetail Kind = "match_detail"
	KindMatchList   Kind = "match_list"
	KindRoster      Kind = "roster"
)

// Expiry constants.
const (
	TTLTerminal = time.Hour
	TTLLive     = time.Minute
	TTLStalled  = 5 * time.Minute
	TTLUpcoming = 15 * time.Minute
	TTLUnknown  = 5 * time.Minute
	TTLList     = 5 * time.Minute
	TTLRoster   = 30 * time.Minute
)

// TTL returns the expiry for a payload of kind whose match is in status.
// It is total and always positive and finite.
func TTL(kind Kind, status model.MatchStatus) time.Duration {
	switch kind {
	case KindMatchList:
		return TTLList
	case KindRoster:
		return TTLRoster
	}
	return StatusTTL(status)
}

// StatusTTL returns the expiry for a single match snapshot in status.
func StatusTTL(status model.MatchStatus) time.Duration {
	switch {
	case status.IsTerminal():
		return TTLTerminal
	case status.IsLive():
		return TTLLive
	}
	switch status {
	case model.StatusPaused, model.StatusSuspended:
		return TTLStalled
	case model.StatusUpcoming:
		return TTLUpcoming
	default:
		return TTLUnknown
	}
}
