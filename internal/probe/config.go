package probe

import (
	"time"

	"github.com/okian/matchsync/internal/domain/model"
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL           string        // Base URL of the host
	Competition       string        // Competition code passed to /matches/relevant
	Sessions          int           // Number of sessions to start
	PlayersPerSession int           // Players tracked by each session
	Workers           int           // Concurrent HTTP calls
	Wait              time.Duration // Time given to monitors before tallies are read
	Timeout           time.Duration // HTTP request timeout
	Unobserved        bool          // Mark every other session as not observing
	Keep              bool          // Leave sessions running after the run
	OutputFile        string        // JSON report file
	Verbose           bool          // Log every session
}

// Plan is one session the probe starts.
type Plan struct {
	SessionID string            `json:"session_id"`
	MatchID   string            `json:"match_id"`
	Players   []model.PlayerRef `json:"players"`
	Observing bool              `json:"observing"`
}

// Tally mirrors one entry of GET /sessions/{id}/tally.
type Tally struct {
	Player model.PlayerRef `json:"player"`
	Kinds  map[string]int  `json:"kinds"`
	Total  int             `json:"total"`
}

// TallyResponse is the body of GET /sessions/{id}/tally.
type TallyResponse struct {
	SessionID string  `json:"session_id"`
	Players   []Tally `json:"players"`
}

// HostStats is the subset of GET /stats the probe checks.
type HostStats struct {
	Started         bool   `json:"started"`
	Source          string `json:"source"`
	ActiveMonitors  int    `json:"active_monitors"`
	CacheEntries    int    `json:"cache_entries"`
	BudgetUsed      int    `json:"budget_used"`
	BudgetRemaining int    `json:"budget_remaining"`
	BudgetLimit     int    `json:"budget_limit"`
	QueueLength     int    `json:"queue_length"`
}

// Result is what one session produced.
type Result struct {
	Plan    Plan    `json:"plan"`
	Started bool    `json:"started"`
	Error   string  `json:"error,omitempty"`
	Tally   []Tally `json:"tally,omitempty"`
}

// Report is the outcome of a probe run.
type Report struct {
	Matches         int           `json:"matches"`
	SessionsPlanned int           `json:"sessions_planned"`
	SessionsStarted int           `json:"sessions_started"`
	SessionsFailed  int           `json:"sessions_failed"`
	EventsRecorded  int           `json:"events_recorded"`
	Host            HostStats     `json:"host"`
	Results         []Result      `json:"results"`
	Problems        []string      `json:"problems,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Duration        time.Duration `json:"duration"`
}
