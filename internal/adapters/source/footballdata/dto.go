package footballdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/matchsync/internal/domain/model"
)

// flexID accepts ids encoded as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// minuteWire accepts 17, "17", "17'" and stoppage time such as "45+2".
type minuteWire int

func (m *minuteWire) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		var n int
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*m = minuteWire(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.NewReplacer("'", "", "’", "", " ", "").Replace(s)
	total := 0
	for _, part := range strings.Split(s, "+") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return fmt.Errorf("minute %q: %w", s, errBadMinute)
		}
		total += n
	}
	*m = minuteWire(total)
	return nil
}

// decodeEach unmarshals every element on its own so one malformed record
// does not fail the batch. It returns the decoded records and how many
// were skipped.
func decodeEach[T any](raws []json.RawMessage) ([]T, int) {
	out := make([]T, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped
}

type matchList struct {
	Matches []json.RawMessage `json:"matches"`
}

type teamWire struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

type personWire struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

func (p *personWire) ref() (model.PlayerRef, bool) {
	if p == nil {
		return model.PlayerRef{}, false
	}
	ref := model.PlayerRef{ID: string(p.ID), Name: strings.TrimSpace(p.Name)}
	return ref, ref.ID != "" || ref.Name != ""
}

type scoreWire struct {
	FullTime struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"full_time"`
}

type goalWire struct {
	ID     flexID      `json:"id"`
	Minute *minuteWire `json:"minute"`
	Type   string      `json:"type"`
	Team   teamWire    `json:"team"`
	Scorer *personWire `json:"scorer"`
	Assist *personWire `json:"assist"`
}

type bookingWire struct {
	ID     flexID      `json:"id"`
	Minute *minuteWire `json:"minute"`
	Team   teamWire    `json:"team"`
	Player *personWire `json:"player"`
	Card   string      `json:"card"`
}

type substitutionWire struct {
	ID        flexID      `json:"id"`
	Minute    *minuteWire `json:"minute"`
	Team      teamWire    `json:"team"`
	PlayerOut *personWire `json:"player_out"`
	PlayerIn  *personWire `json:"player_in"`
}

type lineupWire struct {
	Home []json.RawMessage `json:"home"`
	Away []json.RawMessage `json:"away"`
}

type competitionWire struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type matchRecord struct {
	ID            flexID            `json:"id"`
	UTCDate       string            `json:"utc_date"`
	Status        string            `json:"status"`
	Competition   competitionWire   `json:"competition"`
	HomeTeam      teamWire          `json:"home_team"`
	AwayTeam      teamWire          `json:"away_team"`
	Score         scoreWire         `json:"score"`
	Goals         []json.RawMessage `json:"goals"`
	Bookings      []json.RawMessage `json:"bookings"`
	Substitutions []json.RawMessage `json:"substitutions"`
	Lineup        *lineupWire       `json:"lineup"`
}

type teamRecord struct {
	ID    flexID            `json:"id"`
	Name  string            `json:"name"`
	Squad []json.RawMessage `json:"squad"`
}

var (
	errNoID      = errors.New("missing id")
	errNoTeams   = errors.New("missing team")
	errNoKickoff = errors.New("missing utc_date")
	errBadMinute = errors.New("unparseable minute")
)

func (r *matchRecord) toModel() (model.Match, error) {
	if r.ID == "" {
		return model.Match{}, errNoID
	}
	if (r.HomeTeam.ID == "" && r.HomeTeam.Name == "") || (r.AwayTeam.ID == "" && r.AwayTeam.Name == "") {
		return model.Match{}, fmt.Errorf("match %s: %w", r.ID, errNoTeams)
	}
	if r.UTCDate == "" {
		return model.Match{}, fmt.Errorf("match %s: %w", r.ID, errNoKickoff)
	}
	kickoff, err := time.Parse(time.RFC3339, r.UTCDate)
	if err != nil {
		return model.Match{}, fmt.Errorf("match %s: utc_date: %w", r.ID, err)
	}

	return model.Match{
		ID:       string(r.ID),
		HomeTeam: model.TeamRef{ID: string(r.HomeTeam.ID), Name: r.HomeTeam.Name},
		AwayTeam: model.TeamRef{ID: string(r.AwayTeam.ID), Name: r.AwayTeam.Name},
		Competition: model.CompetitionRef{
			Code: r.Competition.Code,
			Name: r.Competition.Name,
		},
		Kickoff: kickoff.UTC(),
		Status:  model.ParseStatus(r.Status),
		Score: model.Score{
			Home: r.Score.FullTime.Home,
			Away: r.Score.FullTime.Away,
		},
	}, nil
}

// events flattens goals, bookings and substitutions into live events.
// Records that do not decode, or lack a minute or player, are skipped and
// counted.
func (r *matchRecord) events(m model.Match) ([]model.LiveEvent, int) {
	var out []model.LiveEvent

	goals, badGoals := decodeEach[goalWire](r.Goals)
	bookings, badBookings := decodeEach[bookingWire](r.Bookings)
	subs, badSubs := decodeEach[substitutionWire](r.Substitutions)
	skipped := badGoals + badBookings + badSubs

	add := func(id flexID, t model.EventType, minute minuteWire, p model.PlayerRef, team teamWire) {
		eid := string(id)
		if eid == "" {
			eid = model.EventID(m.ID, t, int(minute), p)
		} else {
			eid = m.ID + ":" + eid + ":" + string(t)
		}
		out = append(out, model.LiveEvent{
			ID:        eid,
			MatchID:   m.ID,
			Type:      t,
			Minute:    int(minute),
			Player:    p,
			Team:      model.TeamRef{ID: string(team.ID), Name: team.Name},
			Timestamp: m.Kickoff.Add(time.Duration(minute) * time.Minute),
		})
	}

	for _, g := range goals {
		scorer, ok := g.Scorer.ref()
		if !ok || g.Minute == nil {
			skipped++
			continue
		}
		add(g.ID, goalType(g.Type), *g.Minute, scorer, g.Team)
		if assist, ok := g.Assist.ref(); ok {
			add(g.ID, model.EventAssist, *g.Minute, assist, g.Team)
		}
	}

	for _, b := range bookings {
		p, ok := b.Player.ref()
		t, known := cardType(b.Card)
		if !ok || !known || b.Minute == nil {
			skipped++
			continue
		}
		add(b.ID, t, *b.Minute, p, b.Team)
	}

	for _, s := range subs {
		if s.Minute == nil {
			skipped++
			continue
		}
		off, okOff := s.PlayerOut.ref()
		on, okOn := s.PlayerIn.ref()
		if !okOff && !okOn {
			skipped++
			continue
		}
		if okOff {
			add(s.ID, model.EventSubstitutionOut, *s.Minute, off, s.Team)
		}
		if okOn {
			add(s.ID, model.EventSubstitutionIn, *s.Minute, on, s.Team)
		}
	}

	return out, skipped
}

func goalType(t string) model.EventType {
	switch strings.ToUpper(strings.TrimSpace(t)) {
	case "OWN", "OWN_GOAL":
		return model.EventOwnGoal
	case "PENALTY":
		return model.EventPenaltyGoal
	default:
		return model.EventGoal
	}
}

func cardType(card string) (model.EventType, bool) {
	switch strings.ToUpper(strings.TrimSpace(card)) {
	case "YELLOW", "YELLOW_CARD":
		return model.EventYellowCard, true
	case "RED", "RED_CARD", "YELLOW_RED", "YELLOW_RED_CARD":
		return model.EventRedCard, true
	default:
		return "", false
	}
}

// players decodes person records one by one, dropping malformed or empty
// entries.
func players(raws []json.RawMessage) []model.PlayerRef {
	in, _ := decodeEach[personWire](raws)
	out := make([]model.PlayerRef, 0, len(in))
	for i := range in {
		if p, ok := in[i].ref(); ok {
			out = append(out, p)
		}
	}
	return out
}
