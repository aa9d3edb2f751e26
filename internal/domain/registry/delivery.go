package registry

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
	"github.com/okian/matchsync/pkg/metrics"
)

// Game-state event kinds.
const (
	KindGoal       = "goal"
	KindOwnGoal    = "own_goal"
	KindAssist     = "assist"
	KindYellowCard = "yellow_card"
	KindRedCard    = "red_card"
	KindSubIn      = "sub_in"
	KindSubOut     = "sub_out"
)

// KindFor maps a live event type onto a game-state kind.
func KindFor(t model.EventType) (string, bool) {
	switch t {
	case model.EventGoal, model.EventPenaltyGoal:
		return KindGoal, true
	case model.EventOwnGoal:
		return KindOwnGoal, true
	case model.EventAssist:
		return KindAssist, true
	case model.EventYellowCard:
		return KindYellowCard, true
	case model.EventRedCard:
		return KindRedCard, true
	case model.EventSubstitutionIn:
		return KindSubIn, true
	case model.EventSubstitutionOut:
		return KindSubOut, true
	default:
		return "", false
	}
}

// Delivery is one event attributed to a tracked player.
type Delivery struct {
	Player model.PlayerRef `json:"player"`
	Kind   string          `json:"kind"`
	Event  model.LiveEvent `json:"event"`
}

// Update is what a session listener receives.
type Update struct {
	SessionID  string      `json:"session_id"`
	Match      model.Match `json:"match"`
	Deliveries []Delivery  `json:"deliveries"`
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// roster resolves event players against the session's tracked players.
type roster struct {
	byID   map[string]model.PlayerRef
	byName map[string]model.PlayerRef
}

func newRoster(players []model.PlayerRef) roster {
	r := roster{
		byID:   make(map[string]model.PlayerRef, len(players)),
		byName: make(map[string]model.PlayerRef, len(players)),
	}
	for _, p := range players {
		if p.ID != "" {
			r.byID[p.ID] = p
		}
		if n := normalizeName(p.Name); n != "" {
			r.byName[n] = p
		}
	}
	return r
}

func (r roster) resolve(p model.PlayerRef) (model.PlayerRef, bool) {
	if p.ID != "" {
		if tracked, ok := r.byID[p.ID]; ok {
			return tracked, true
		}
	}
	if n := normalizeName(p.Name); n != "" {
		if tracked, ok := r.byName[n]; ok {
			return tracked, true
		}
	}
	return model.PlayerRef{}, false
}

// deliver translates a monitor update for h and hands it to game state,
// the notification queue and the session listener.
func (r *Registry) deliver(ctx context.Context, h *handle, u model.Update) {
	out := Update{SessionID: h.sessionID, Match: u.Match}

	for _, e := range u.Events {
		kind, ok := KindFor(e.Type)
		if !ok {
			metrics.RecordEventDropped("unknown_type")
			continue
		}
		player, ok := h.players.resolve(e.Player)
		if !ok {
			metrics.RecordEventDropped("unresolved_player")
			r.log.Debug(ctx, "event for untracked player",
				logger.String("session_id", h.sessionID),
				logger.String("event_id", e.ID),
			)
			continue
		}

		if err := r.game.RecordEvent(ctx, h.sessionID, player, kind); err != nil {
			metrics.RecordEventDropped("gamestate_error")
			r.log.Warn(ctx, "game state rejected event",
				logger.String("session_id", h.sessionID),
				logger.String("event_id", e.ID),
				logger.Error(err),
			)
			continue
		}
		out.Deliveries = append(out.Deliveries, Delivery{Player: player, Kind: kind, Event: e})

		if !h.observing.Load() {
			r.notify(ctx, h, u.Match, player, kind)
		}
	}

	metrics.RecordEventsDelivered(len(out.Deliveries))
	if len(out.Deliveries) > 0 && h.listener != nil {
		h.listener(ctx, out)
	}
}

func (r *Registry) notify(ctx context.Context, h *handle, m model.Match, p model.PlayerRef, kind string) {
	if r.notifications == nil {
		return
	}
	n := model.Notification{
		ID:         uuid.NewString(),
		SessionID:  h.sessionID,
		MatchLabel: m.Label(),
		EventType:  kind,
		PlayerName: p.Name,
		CreatedAt:  time.Now().UTC(),
	}
	if !r.notifications.Enqueue(ctx, n) {
		metrics.RecordNotification("dropped")
		return
	}
	metrics.RecordNotification("queued")
}
