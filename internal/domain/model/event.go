package model

import (
	"strconv"
	"strings"
	"time"
)

// EventType classifies a live event.
type EventType string

// Event types decoded from match payloads.
const (
	EventGoal            EventType = "goal"
	EventOwnGoal         EventType = "own_goal"
	EventPenaltyGoal     EventType = "penalty_goal"
	EventAssist          EventType = "assist"
	EventYellowCard      EventType = "yellow_card"
	EventRedCard         EventType = "red_card"
	EventSubstitutionIn  EventType = "substitution_in"
	EventSubstitutionOut EventType = "substitution_out"
)

// PlayerRef identifies a player. Either field may be empty on partial data.
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LiveEvent is one occurrence within a match. Identity is by ID.
type LiveEvent struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	Type      EventType `json:"type"`
	Minute    int       `json:"minute"`
	Player    PlayerRef `json:"player"`
	Team      TeamRef   `json:"team"`
	Timestamp time.Time `json:"timestamp"`
}

// EventID derives a deterministic identifier for an occurrence that arrived
// without one, so repeated fetches of the same record collapse.
func EventID(matchID string, t EventType, minute int, player PlayerRef) string {
	who := player.ID
	if who == "" {
		who = strings.ToLower(strings.Join(strings.Fields(player.Name), "_"))
	}
	return matchID + ":" + string(t) + ":" + strconv.Itoa(minute) + ":" + who
}

// Update is what a monitor emits: the latest snapshot plus events not
// delivered before by that monitor.
type Update struct {
	Match  Match       `json:"match"`
	Events []LiveEvent `json:"events"`
}

// Notification is a best-effort user notification about an event that
// happened while the session was not being observed.
type Notification struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	MatchLabel string    `json:"match_label"`
	EventType  string    `json:"event_type"`
	PlayerName string    `json:"player_name"`
	CreatedAt  time.Time `json:"created_at"`
}
