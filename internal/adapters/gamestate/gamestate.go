// Package gamestate keeps an in-memory tally of player events per session.
package gamestate

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/matchsync/internal/domain/model"
)

// PlayerTally counts the kinds recorded for one player.
type PlayerTally struct {
	Player model.PlayerRef `json:"player"`
	Kinds  map[string]int  `json:"kinds"`
	Total  int             `json:"total"`
}

// Tally is a concurrency-safe in-memory game state.
type Tally struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*PlayerTally
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{sessions: make(map[string]map[string]*PlayerTally)}
}

func playerKey(p model.PlayerRef) string {
	if p.ID != "" {
		return "id:" + p.ID
	}
	return "name:" + p.Name
}

// RecordEvent adds one occurrence of kind for player in the session.
func (t *Tally) RecordEvent(_ context.Context, sessionID string, player model.PlayerRef, kind string) error {
	if sessionID == "" || kind == "" || (player.ID == "" && player.Name == "") {
		return fmt.Errorf("%w: session=%q player=%+v kind=%q", ErrInvalidEvent, sessionID, player, kind)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	players, ok := t.sessions[sessionID]
	if !ok {
		players = make(map[string]*PlayerTally)
		t.sessions[sessionID] = players
	}
	key := playerKey(player)
	pt, ok := players[key]
	if !ok {
		pt = &PlayerTally{Player: player, Kinds: make(map[string]int)}
		players[key] = pt
	}
	pt.Kinds[kind]++
	pt.Total++
	return nil
}

// Session returns a copy of the session's tally ordered by player id then name.
func (t *Tally) Session(sessionID string) []PlayerTally {
	t.mu.RLock()
	defer t.mu.RUnlock()

	players := t.sessions[sessionID]
	out := make([]PlayerTally, 0, len(players))
	for _, pt := range players {
		kinds := make(map[string]int, len(pt.Kinds))
		for k, v := range pt.Kinds {
			kinds[k] = v
		}
		out = append(out, PlayerTally{Player: pt.Player, Kinds: kinds, Total: pt.Total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Player.ID != out[j].Player.ID {
			return out[i].Player.ID < out[j].Player.ID
		}
		return out[i].Player.Name < out[j].Player.Name
	})
	return out
}

// Reset forgets the session.
func (t *Tally) Reset(sessionID string) {
	t.mu.Lock()
	delete(t.sessions, sessionID)
	t.mu.Unlock()
}

// Sessions returns the number of sessions with recorded events.
func (t *Tally) Sessions() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
