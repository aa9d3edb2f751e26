// Package demo is a synthetic source.Source. Matches kick off relative to the
// clock and events appear as play minutes elapse, so the whole pipeline can
// run without network access or an API token.
package demo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/okian/matchsync/internal/adapters/source"
	"github.com/okian/matchsync/internal/domain/model"
)

// Default demo configuration constants.
const (
	DefaultSeed        = 42
	DefaultMatches     = 6
	DefaultCompetition = "DEMO"

	squadSize     = 14
	halfLength    = 45 * time.Minute
	breakLength   = 15 * time.Minute
	matchDuration = 2*halfLength + breakLength
)

var firstNames = []string{"Alex", "Bruno", "Carlos", "Dani", "Emil", "Femi", "Gio", "Hugo", "Ivan", "Jon", "Kai", "Luca", "Mats", "Nico", "Omar", "Pau"}
var lastNames = []string{"Silva", "Meyer", "Rossi", "Novak", "Berg", "Costa", "Dumont", "Eze", "Ferro", "Gray", "Holm", "Ito", "Jansen", "Kane", "Lund", "Moreau"}
var teamNames = []string{"Northside", "Harbor City", "Red Valley", "Old Port", "Lakeshore", "Highfield", "Riverside", "Stonebridge", "Westmoor", "Eastgate", "Kingsway", "Millbrook"}

type plannedEvent struct {
	minute int
	typ    model.EventType
	player model.PlayerRef
	team   model.TeamRef
}

type fixture struct {
	match  model.Match
	home   []model.PlayerRef
	away   []model.PlayerRef
	events []plannedEvent
}

// Source serves generated fixtures.
type Source struct {
	mu          sync.Mutex
	fixtures    map[string]*fixture
	order       []string
	rosters     map[string]model.Roster
	now         func() time.Time
	seed        int64
	count       int
	competition string
}

var _ source.Source = (*Source)(nil)

// New generates a deterministic set of fixtures around the current time.
func New(opts ...Option) *Source {
	s := &Source{
		now:         time.Now,
		seed:        DefaultSeed,
		count:       DefaultMatches,
		competition: DefaultCompetition,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.generate()
	return s
}

func (s *Source) generate() {
	rng := rand.New(rand.NewSource(s.seed)) //nolint:gosec // synthetic data
	now := s.now().UTC().Truncate(time.Minute)

	s.fixtures = make(map[string]*fixture, s.count)
	s.rosters = make(map[string]model.Roster, 2*s.count)

	squad := func(teamID string) []model.PlayerRef {
		out := make([]model.PlayerRef, squadSize)
		for i := range out {
			out[i] = model.PlayerRef{
				ID:   teamID + "-" + strconv.Itoa(i+1),
				Name: firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))],
			}
		}
		return out
	}

	// Kickoff offsets cycle through live, about-to-start, later and finished.
	offsets := []time.Duration{
		-20 * time.Minute,
		3 * time.Minute,
		-70 * time.Minute,
		90 * time.Minute,
		-3 * time.Hour,
		26 * time.Hour,
	}

	for i := 0; i < s.count; i++ {
		homeID := "t" + strconv.Itoa(2*i+1)
		awayID := "t" + strconv.Itoa(2*i+2)
		home := model.TeamRef{ID: homeID, Name: teamNames[(2*i)%len(teamNames)]}
		away := model.TeamRef{ID: awayID, Name: teamNames[(2*i+1)%len(teamNames)]}

		f := &fixture{
			match: model.Match{
				ID:          "demo-" + strconv.Itoa(i+1),
				HomeTeam:    home,
				AwayTeam:    away,
				Competition: model.CompetitionRef{Code: s.competition, Name: "Demo League"},
				Kickoff:     now.Add(offsets[i%len(offsets)]),
			},
			home: squad(homeID),
			away: squad(awayID),
		}
		f.events = plan(rng, f)

		s.fixtures[f.match.ID] = f
		s.order = append(s.order, f.match.ID)
		s.rosters[homeID] = model.Roster{Team: home, Squad: f.home}
		s.rosters[awayID] = model.Roster{Team: away, Squad: f.away}
	}
}

func plan(rng *rand.Rand, f *fixture) []plannedEvent {
	n := 4 + rng.Intn(5)
	out := make([]plannedEvent, 0, n+4)
	pick := func() ([]model.PlayerRef, model.TeamRef) {
		if rng.Intn(2) == 0 {
			return f.home, f.match.HomeTeam
		}
		return f.away, f.match.AwayTeam
	}

	for i := 0; i < n; i++ {
		minute := 1 + rng.Intn(90)
		squad, team := pick()
		p := squad[rng.Intn(11)]
		switch r := rng.Intn(10); {
		case r < 4:
			out = append(out, plannedEvent{minute, model.EventGoal, p, team})
			if a := squad[rng.Intn(11)]; a.ID != p.ID {
				out = append(out, plannedEvent{minute, model.EventAssist, a, team})
			}
		case r < 7:
			out = append(out, plannedEvent{minute, model.EventYellowCard, p, team})
		case r < 8:
			out = append(out, plannedEvent{minute, model.EventRedCard, p, team})
		default:
			sub := squad[11+rng.Intn(squadSize-11)]
			out = append(out,
				plannedEvent{minute, model.EventSubstitutionOut, p, team},
				plannedEvent{minute, model.EventSubstitutionIn, sub, team},
			)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].minute < out[j].minute })
	return out
}

// state derives status and the current play minute from elapsed time.
func state(kickoff, now time.Time) (model.MatchStatus, int) {
	elapsed := now.Sub(kickoff)
	switch {
	case elapsed < 0:
		return model.StatusUpcoming, 0
	case elapsed < halfLength:
		return model.StatusInProgress, int(elapsed / time.Minute)
	case elapsed < halfLength+breakLength:
		return model.StatusHalftime, 45
	case elapsed < matchDuration:
		return model.StatusInProgress, int((elapsed - breakLength) / time.Minute)
	default:
		return model.StatusCompleted, 90
	}
}

// snapshot returns the match as of now with its elapsed events. Caller holds mu.
func (s *Source) snapshot(f *fixture, now time.Time) (model.Match, []model.LiveEvent) {
	m := f.match
	status, minute := state(m.Kickoff, now)
	m.Status = status

	var events []model.LiveEvent
	home, away := 0, 0
	for _, pe := range f.events {
		if status == model.StatusUpcoming || pe.minute > minute {
			break
		}
		events = append(events, model.LiveEvent{
			ID:        model.EventID(m.ID, pe.typ, pe.minute, pe.player),
			MatchID:   m.ID,
			Type:      pe.typ,
			Minute:    pe.minute,
			Player:    pe.player,
			Team:      pe.team,
			Timestamp: m.Kickoff.Add(time.Duration(pe.minute) * time.Minute),
		})
		if pe.typ == model.EventGoal {
			if pe.team.ID == m.HomeTeam.ID {
				home++
			} else {
				away++
			}
		}
	}
	if status != model.StatusUpcoming {
		m.Score = model.Score{Home: &home, Away: &away}
	}
	return m, events
}

// Matches lists fixtures matching q.
func (s *Source) Matches(ctx context.Context, q source.MatchQuery) ([]model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, source.NewError(source.KindNetwork, "matches", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	want := make(map[model.MatchStatus]bool, len(q.Statuses))
	for _, st := range q.Statuses {
		want[st] = true
	}

	out := make([]model.Match, 0, len(s.order))
	for _, id := range s.order {
		m, _ := s.snapshot(s.fixtures[id], now)
		if len(want) > 0 && !want[m.Status] {
			continue
		}
		if q.Competition != "" && q.Competition != m.Competition.Code {
			continue
		}
		day := m.Kickoff.UTC().Truncate(24 * time.Hour)
		if !q.DateFrom.IsZero() && day.Before(q.DateFrom.UTC().Truncate(24*time.Hour)) {
			continue
		}
		if !q.DateTo.IsZero() && day.After(q.DateTo.UTC().Truncate(24*time.Hour)) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// MatchDetail returns a fixture with the events that have happened so far.
func (s *Source) MatchDetail(ctx context.Context, matchID string) (model.MatchDetail, error) {
	const op = "match"
	if matchID == "" {
		return model.MatchDetail{}, source.NewError(source.KindInvalidRequest, op, errors.New("empty match id"))
	}
	if err := ctx.Err(); err != nil {
		return model.MatchDetail{}, source.NewError(source.KindNetwork, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fixtures[matchID]
	if !ok {
		return model.MatchDetail{}, &source.Error{
			Kind:       source.KindServer,
			Op:         op,
			StatusCode: 404,
			Err:        fmt.Errorf("match %s not found", matchID),
		}
	}
	m, events := s.snapshot(f, s.now())
	return model.MatchDetail{
		Match:  m,
		Events: events,
		Lineup: &model.Lineup{
			Home: append([]model.PlayerRef(nil), f.home[:11]...),
			Away: append([]model.PlayerRef(nil), f.away[:11]...),
		},
	}, nil
}

// Team returns a generated squad.
func (s *Source) Team(ctx context.Context, teamID string) (model.Roster, error) {
	const op = "team"
	if teamID == "" {
		return model.Roster{}, source.NewError(source.KindInvalidRequest, op, errors.New("empty team id"))
	}
	if err := ctx.Err(); err != nil {
		return model.Roster{}, source.NewError(source.KindNetwork, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rosters[teamID]
	if !ok {
		return model.Roster{}, &source.Error{
			Kind:       source.KindServer,
			Op:         op,
			StatusCode: 404,
			Err:        fmt.Errorf("team %s not found", teamID),
		}
	}
	r.Squad = append([]model.PlayerRef(nil), r.Squad...)
	return r, nil
}
