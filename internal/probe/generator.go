package probe

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
)

// fetchMatches asks the host for relevant matches.
func fetchMatches(ctx context.Context, client *HTTPClient, competition string) ([]model.Match, error) {
	path := "/matches/relevant"
	if competition != "" {
		path += "?competition=" + url.QueryEscape(competition)
	}
	var matches []model.Match
	if err := client.Get(ctx, path, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// fetchLineups loads the lineup of each match. Matches without a usable
// lineup are left out.
func fetchLineups(ctx context.Context, client *HTTPClient, matches []model.Match) map[string][]model.PlayerRef {
	out := make(map[string][]model.PlayerRef, len(matches))
	for _, m := range matches {
		var lineup model.Lineup
		if err := client.Get(ctx, "/matches/"+url.PathEscape(m.ID)+"/lineup", &lineup); err != nil {
			logger.Get().Warn(ctx, "lineup unavailable", logger.String("match", m.ID), logger.Error(err))
			continue
		}
		if players := lineup.Players(); len(players) > 0 {
			out[m.ID] = players
		}
	}
	return out
}

// planSessions spreads sessions round-robin over the matches that have a
// lineup. Each session tracks a different window of players so tallies of
// sessions on the same match differ.
func planSessions(cfg *Config, matches []model.Match, lineups map[string][]model.PlayerRef) []Plan {
	usable := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if len(lineups[m.ID]) > 0 {
			usable = append(usable, m)
		}
	}
	if len(usable) == 0 {
		return nil
	}

	plans := make([]Plan, 0, cfg.Sessions)
	for i := 0; i < cfg.Sessions; i++ {
		m := usable[i%len(usable)]
		players := lineups[m.ID]
		round := i / len(usable)

		n := min(cfg.PlayersPerSession, len(players))
		picked := make([]model.PlayerRef, 0, n)
		for j := 0; j < n; j++ {
			picked = append(picked, players[(round*n+j)%len(players)])
		}

		plans = append(plans, Plan{
			SessionID: uuid.NewString(),
			MatchID:   m.ID,
			Players:   picked,
			Observing: !(cfg.Unobserved && i%2 == 1),
		})
	}
	return plans
}
