package footballdata_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/matchsync/internal/adapters/source"
	"github.com/okian/matchsync/internal/adapters/source/footballdata"
	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

const listBody = `{"matches":[
  {"id": 101, "utc_date": "2024-05-01T19:00:00Z", "status": "IN_PLAY",
   "competition": {"code": "PL", "name": "Premier League"},
   "home_team": {"id": 1, "name": "Arsenal"}, "away_team": {"id": 2, "name": "Chelsea"},
   "score": {"full_time": {"home": 1, "away": 0}}},
  {"id": 102, "utc_date": "not-a-date", "status": "TIMED",
   "home_team": {"id": 3}, "away_team": {"id": 4}},
  {"id": "103", "utc_date": "2024-05-02T15:00:00Z", "status": "TIMED",
   "home_team": {"id": 5, "name": "Spurs"}, "away_team": {"id": 6, "name": "Everton"}}
]}`

const detailBody = `{"id": 101, "utc_date": "2024-05-01T19:00:00Z", "status": "PAUSED",
  "home_team": {"id": 1, "name": "Arsenal"}, "away_team": {"id": 2, "name": "Chelsea"},
  "goals": [
    {"minute": 17, "type": "REGULAR", "team": {"id": 1}, "scorer": {"id": 9, "name": "Saka"}, "assist": {"id": 8, "name": "Odegaard"}},
    {"minute": 30, "type": "OWN", "team": {"id": 2}, "scorer": {"name": "Silva"}},
    {"type": "PENALTY", "scorer": {"id": 7}}
  ],
  "bookings": [
    {"id": 55, "minute": 40, "team": {"id": 2}, "player": {"id": 20, "name": "James"}, "card": "YELLOW"},
    {"minute": 41, "player": {"id": 21}, "card": "GREEN"}
  ],
  "substitutions": [
    {"minute": 60, "team": {"id": 1}, "player_out": {"id": 9}, "player_in": {"id": 11, "name": "Martinelli"}}
  ],
  "lineup": {"home": [{"id": 9, "name": "Saka"}], "away": [{"id": 20, "name": "James"}, {}]}
}`

func TestMatches(t *testing.T) {
	Convey("Given a remote API returning a mixed batch", t, func() {
		var gotQuery, gotToken, gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.RawQuery
			gotToken = r.Header.Get("X-Auth-Token")
			_, _ = w.Write([]byte(listBody))
		}))
		defer srv.Close()

		c := footballdata.New(srv.URL, "secret")
		day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

		Convey("When listing live matches for a competition", func() {
			matches, err := c.Matches(context.Background(), source.MatchQuery{
				Statuses:    []model.MatchStatus{model.StatusInProgress},
				Competition: "PL",
				DateFrom:    day,
				DateTo:      day.AddDate(0, 0, 1),
			})

			Convey("Then the request carries filters and the token", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/matches")
				So(gotToken, ShouldEqual, "secret")
				So(gotQuery, ShouldContainSubstring, "competitions=PL")
				So(gotQuery, ShouldContainSubstring, "status=LIVE%2CIN_PLAY")
				So(gotQuery, ShouldContainSubstring, "dateFrom=2024-05-01")
				So(gotQuery, ShouldContainSubstring, "dateTo=2024-05-02")
			})

			Convey("And the malformed record is skipped", func() {
				So(len(matches), ShouldEqual, 2)
				So(matches[0].ID, ShouldEqual, "101")
				So(matches[0].Status, ShouldEqual, model.StatusInProgress)
				So(*matches[0].Score.Home, ShouldEqual, 1)
				So(matches[0].Competition.Code, ShouldEqual, "PL")
				So(matches[1].ID, ShouldEqual, "103")
				So(matches[1].Status, ShouldEqual, model.StatusUpcoming)
			})
		})
	})
}

func TestMatchDetail(t *testing.T) {
	Convey("Given a remote API returning one match with events", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/matches/101" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(detailBody))
		}))
		defer srv.Close()

		c := footballdata.New(srv.URL, "")

		Convey("When fetching the detail", func() {
			d, err := c.MatchDetail(context.Background(), "101")
			So(err, ShouldBeNil)

			byType := map[model.EventType][]model.LiveEvent{}
			for _, e := range d.Events {
				byType[e.Type] = append(byType[e.Type], e)
			}

			Convey("Then events are flattened with stable ids", func() {
				So(d.Match.Status, ShouldEqual, model.StatusHalftime)
				So(len(d.Events), ShouldEqual, 6)
				So(byType[model.EventGoal][0].ID, ShouldEqual, "101:goal:17:9")
				So(byType[model.EventAssist][0].Player.Name, ShouldEqual, "Odegaard")
				So(byType[model.EventOwnGoal][0].ID, ShouldEqual, "101:own_goal:30:silva")
				So(byType[model.EventYellowCard][0].ID, ShouldEqual, "101:55:yellow_card")
				So(len(byType[model.EventSubstitutionOut]), ShouldEqual, 1)
				So(byType[model.EventSubstitutionIn][0].Player.ID, ShouldEqual, "11")
				So(len(byType[model.EventPenaltyGoal]), ShouldEqual, 0)
			})

			Convey("And the lineup drops empty entries", func() {
				So(d.Lineup, ShouldNotBeNil)
				So(len(d.Lineup.Players()), ShouldEqual, 2)
			})

			Convey("And fetching twice yields identical ids", func() {
				again, err := c.MatchDetail(context.Background(), "101")
				So(err, ShouldBeNil)
				So(again.Events, ShouldResemble, d.Events)
			})
		})

		Convey("When the id is empty", func() {
			_, err := c.MatchDetail(context.Background(), "")

			Convey("Then it is an invalid request", func() {
				So(errors.Is(err, source.ErrInvalidRequest), ShouldBeTrue)
			})
		})

		Convey("When the match does not exist", func() {
			_, err := c.MatchDetail(context.Background(), "999")

			Convey("Then it is a non-retryable server error", func() {
				var se *source.Error
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Kind, ShouldEqual, source.KindServer)
				So(se.StatusCode, ShouldEqual, http.StatusNotFound)
				So(se.Retryable(), ShouldBeFalse)
			})
		})
	})
}

const quirkyListBody = `{"matches":[
  {"id": 201, "utc_date": "2024-05-01T19:00:00Z", "status": "IN_PLAY",
   "home_team": {"id": 1, "name": "Arsenal"}, "away_team": {"id": 2, "name": "Chelsea"},
   "goals": [{"minute": "17'", "type": "REGULAR", "team": {"id": 1}, "scorer": {"id": 9}}]},
  {"id": 202, "utc_date": "2024-05-01T19:00:00Z", "status": "IN_PLAY",
   "home_team": {"id": 3, "name": "Spurs"}, "away_team": {"id": 4, "name": "Everton"},
   "goals": {"minute": 5}},
  {"id": 203, "utc_date": "2024-05-01T19:00:00Z", "status": "IN_PLAY",
   "home_team": {"id": 5, "name": "Leeds"}, "away_team": {"id": 6, "name": "Fulham"},
   "score": "1-0"}
]}`

const quirkyDetailBody = `{"id": 301, "utc_date": "2024-05-01T19:00:00Z", "status": "IN_PLAY",
  "home_team": {"id": 1, "name": "Arsenal"}, "away_team": {"id": 2, "name": "Chelsea"},
  "goals": [
    {"minute": 12, "type": "REGULAR", "team": {"id": 1}, "scorer": {"id": 9, "name": "Saka"}},
    {"minute": "45+2", "type": "REGULAR", "team": {"id": 1}, "scorer": {"id": 10, "name": "Havertz"}},
    {"minute": true, "type": "REGULAR", "scorer": {"id": 11}},
    {"minute": "late", "type": "REGULAR", "scorer": {"id": 12}}
  ],
  "bookings": [
    {"minute": "90 + 3", "team": {"id": 2}, "player": {"id": 20}, "card": "RED"},
    {"minute": 50, "player": 21, "card": "YELLOW"}
  ],
  "substitutions": [
    {"minute": 60, "team": {"id": 1}, "player_out": {"id": 9}, "player_in": {"id": 14}},
    "not-a-record"
  ],
  "lineup": {"home": [{"id": 9, "name": "Saka"}, 42], "away": [{"id": 20}]}
}`

func TestMalformedRecords(t *testing.T) {
	Convey("Given a list where some matches have malformed fields", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(quirkyListBody))
		}))
		defer srv.Close()

		matches, err := footballdata.New(srv.URL, "").Matches(context.Background(), source.MatchQuery{})

		Convey("Then only those matches are dropped and the batch still succeeds", func() {
			So(err, ShouldBeNil)
			So(len(matches), ShouldEqual, 1)
			So(matches[0].ID, ShouldEqual, "201")
		})
	})

	Convey("Given a detail mixing valid, stoppage-time and malformed events", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(quirkyDetailBody))
		}))
		defer srv.Close()

		d, err := footballdata.New(srv.URL, "").MatchDetail(context.Background(), "301")

		Convey("Then the detail decodes", func() {
			So(err, ShouldBeNil)
			So(d.Match.ID, ShouldEqual, "301")
		})

		Convey("And stoppage-time minutes are summed", func() {
			ids := map[string]int{}
			for _, e := range d.Events {
				ids[e.ID] = e.Minute
			}
			So(ids, ShouldContainKey, "301:goal:12:9")
			So(ids["301:goal:47:10"], ShouldEqual, 47)
			So(ids["301:red_card:93:20"], ShouldEqual, 93)
		})

		Convey("And malformed records are skipped individually", func() {
			So(len(d.Events), ShouldEqual, 5)
			for _, e := range d.Events {
				So(e.Player.ID, ShouldNotBeIn, []string{"11", "12", "21"})
			}
		})

		Convey("And the lineup keeps its well-formed entries", func() {
			So(d.Lineup, ShouldNotBeNil)
			So(len(d.Lineup.Players()), ShouldEqual, 2)
		})
	})
}

func TestTeam(t *testing.T) {
	Convey("Given a team endpoint", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id": 57, "name": "Arsenal", "squad": [{"id": 9, "name": "Saka"}, {"id": 8, "name": "Odegaard"}]}`))
		}))
		defer srv.Close()

		roster, err := footballdata.New(srv.URL, "").Team(context.Background(), "57")

		Convey("Then the squad is decoded", func() {
			So(err, ShouldBeNil)
			So(roster.Team.ID, ShouldEqual, "57")
			So(len(roster.Squad), ShouldEqual, 2)
		})
	})
}

func TestErrorClassification(t *testing.T) {
	Convey("Given failing endpoints", t, func() {
		var status atomic.Int32
		var body atomic.Value
		body.Store("")
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if status.Load() == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "7")
			}
			w.WriteHeader(int(status.Load()))
			_, _ = w.Write([]byte(body.Load().(string)))
		}))
		defer srv.Close()
		c := footballdata.New(srv.URL, "")
		ctx := context.Background()

		Convey("When the API returns 429", func() {
			status.Store(http.StatusTooManyRequests)
			_, err := c.Matches(ctx, source.MatchQuery{})

			Convey("Then it is rate limited with the Retry-After delay", func() {
				var se *source.Error
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Kind, ShouldEqual, source.KindRateLimited)
				So(se.RetryAfter, ShouldEqual, 7*time.Second)
			})
		})

		Convey("When the API returns 503", func() {
			status.Store(http.StatusServiceUnavailable)
			body.Store("maintenance")
			_, err := c.Matches(ctx, source.MatchQuery{})

			Convey("Then it is a retryable server error carrying the body", func() {
				var se *source.Error
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Kind, ShouldEqual, source.KindServer)
				So(se.Body, ShouldEqual, "maintenance")
				So(se.Retryable(), ShouldBeTrue)
			})
		})

		Convey("When the body is not JSON", func() {
			status.Store(http.StatusOK)
			body.Store("<html>")
			_, err := c.Matches(ctx, source.MatchQuery{})

			Convey("Then it is a decoding error", func() {
				So(errors.Is(err, source.ErrDecoding), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unreachable server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := footballdata.New(url, "").Matches(context.Background(), source.MatchQuery{})

		Convey("Then it is a network error", func() {
			So(errors.Is(err, source.ErrNetwork), ShouldBeTrue)
			So(source.IsRetryable(err), ShouldBeTrue)
		})
	})
}

func TestCancellation(t *testing.T) {
	Convey("Given a slow server", t, func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		_, err := footballdata.New(srv.URL, "").MatchDetail(ctx, "1")

		Convey("Then cancelling the context aborts the request", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(time.Since(start), ShouldBeLessThan, 2*time.Second)
		})
	})
}
