// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// MatchStatus is the lifecycle state of a match. It drives both cache expiry
// and polling cadence.
type MatchStatus string

// The closed set of match statuses.
const (
	StatusUpcoming   MatchStatus = "upcoming"
	StatusInProgress MatchStatus = "in_progress"
	StatusHalftime   MatchStatus = "halftime"
	StatusPaused     MatchStatus = "paused"
	StatusSuspended  MatchStatus = "suspended"
	StatusCompleted  MatchStatus = "completed"
	StatusPostponed  MatchStatus = "postponed"
	StatusCancelled  MatchStatus = "cancelled"
	StatusUnknown    MatchStatus = "unknown"
)

// AllStatuses lists every MatchStatus in lifecycle order.
var AllStatuses = []MatchStatus{
	StatusUpcoming,
	StatusInProgress,
	StatusHalftime,
	StatusPaused,
	StatusSuspended,
	StatusCompleted,
	StatusPostponed,
	StatusCancelled,
	StatusUnknown,
}

// ParseStatus maps a remote status string onto MatchStatus.
// Unrecognised values map to StatusUnknown.
func ParseStatus(s string) MatchStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SCHEDULED", "TIMED", "UPCOMING":
		return StatusUpcoming
	case "IN_PLAY", "LIVE", "IN_PROGRESS":
		return StatusInProgress
	case "HALFTIME", "HALF_TIME", "PAUSED":
		return StatusHalftime
	case "INTERRUPTED":
		return StatusPaused
	case "SUSPENDED":
		return StatusSuspended
	case "FINISHED", "COMPLETED", "AWARDED":
		return StatusCompleted
	case "POSTPONED":
		return StatusPostponed
	case "CANCELLED", "CANCELED":
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

// APIValues returns the remote filter values that select matches in status s.
func (s MatchStatus) APIValues() []string {
	switch s {
	case StatusUpcoming:
		return []string{"SCHEDULED", "TIMED"}
	case StatusInProgress:
		return []string{"LIVE", "IN_PLAY"}
	case StatusHalftime:
		return []string{"PAUSED"}
	case StatusPaused:
		return []string{"INTERRUPTED"}
	case StatusSuspended:
		return []string{"SUSPENDED"}
	case StatusCompleted:
		return []string{"FINISHED", "AWARDED"}
	case StatusPostponed:
		return []string{"POSTPONED"}
	case StatusCancelled:
		return []string{"CANCELLED"}
	default:
		return nil
	}
}

// IsLive reports whether play is underway or only briefly interrupted.
func (s MatchStatus) IsLive() bool {
	return s == StatusInProgress || s == StatusHalftime
}

// IsTerminal reports whether the match will not produce further play.
func (s MatchStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusPostponed || s == StatusCancelled
}

// TeamRef identifies a team.
type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CompetitionRef identifies a competition, e.g. {Code: "PL"}.
type CompetitionRef struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// Score is the full-time (or current) score, nil fields when not yet known.
type Score struct {
	Home *int `json:"home,omitempty"`
	Away *int `json:"away,omitempty"`
}

// Match is an immutable snapshot of a fixture. A re-fetch supersedes it;
// it is never mutated in place.
type Match struct {
	ID          string         `json:"id"`
	HomeTeam    TeamRef        `json:"home_team"`
	AwayTeam    TeamRef        `json:"away_team"`
	Competition CompetitionRef `json:"competition"`
	Kickoff     time.Time      `json:"kickoff"`
	Status      MatchStatus    `json:"status"`
	Score       Score          `json:"score"`
}

// Label returns a human readable "Home vs Away" label.
func (m Match) Label() string {
	home, away := m.HomeTeam.Name, m.AwayTeam.Name
	if home == "" {
		home = m.HomeTeam.ID
	}
	if away == "" {
		away = m.AwayTeam.ID
	}
	return home + " vs " + away
}

// Lineup is the published starting eleven (and bench) per side.
type Lineup struct {
	Home []PlayerRef `json:"home,omitempty"`
	Away []PlayerRef `json:"away,omitempty"`
}

// Players returns all players of both sides.
func (l Lineup) Players() []PlayerRef {
	out := make([]PlayerRef, 0, len(l.Home)+len(l.Away))
	out = append(out, l.Home...)
	return append(out, l.Away...)
}

// MatchDetail is a match snapshot with its events and optional lineup.
// Missing events or lineup are a valid state.
type MatchDetail struct {
	Match  Match       `json:"match"`
	Events []LiveEvent `json:"events,omitempty"`
	Lineup *Lineup     `json:"lineup,omitempty"`
}

// Roster is a team's squad.
type Roster struct {
	Team  TeamRef     `json:"team"`
	Squad []PlayerRef `json:"squad,omitempty"`
}
