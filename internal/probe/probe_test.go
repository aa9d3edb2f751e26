package probe

import (
	"testing"

	"github.com/okian/matchsync/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func refs(prefix string, n int) []model.PlayerRef {
	out := make([]model.PlayerRef, n)
	for i := range out {
		out[i] = model.PlayerRef{ID: prefix + string(rune('a'+i)), Name: prefix}
	}
	return out
}

func TestPlanSessions(t *testing.T) {
	Convey("Given two matches where only one has a lineup", t, func() {
		matches := []model.Match{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}}
		lineups := map[string][]model.PlayerRef{
			"m1": refs("x", 4),
			"m3": refs("y", 2),
		}

		Convey("When five sessions are planned", func() {
			cfg := &Config{Sessions: 5, PlayersPerSession: 3, Unobserved: true}
			plans := planSessions(cfg, matches, lineups)

			Convey("Then they rotate over matches with lineups", func() {
				So(len(plans), ShouldEqual, 5)
				So(plans[0].MatchID, ShouldEqual, "m1")
				So(plans[1].MatchID, ShouldEqual, "m3")
				So(plans[2].MatchID, ShouldEqual, "m1")
			})

			Convey("And session ids are unique", func() {
				seen := map[string]bool{}
				for _, p := range plans {
					So(seen[p.SessionID], ShouldBeFalse)
					seen[p.SessionID] = true
				}
			})

			Convey("And player windows shift per round and are capped by the lineup", func() {
				So(plans[0].Players, ShouldResemble, []model.PlayerRef{{ID: "xa", Name: "x"}, {ID: "xb", Name: "x"}, {ID: "xc", Name: "x"}})
				So(plans[2].Players, ShouldResemble, []model.PlayerRef{{ID: "xd", Name: "x"}, {ID: "xa", Name: "x"}, {ID: "xb", Name: "x"}})
				So(len(plans[1].Players), ShouldEqual, 2)
			})

			Convey("And every other session is unobserved", func() {
				So(plans[0].Observing, ShouldBeTrue)
				So(plans[1].Observing, ShouldBeFalse)
				So(plans[2].Observing, ShouldBeTrue)
			})
		})

		Convey("When no match has a lineup", func() {
			plans := planSessions(&Config{Sessions: 2, PlayersPerSession: 1}, matches, nil)

			Convey("Then nothing is planned", func() {
				So(plans, ShouldBeEmpty)
			})
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a report of one started session", t, func() {
		plan := Plan{SessionID: "s1", MatchID: "m1", Players: []model.PlayerRef{{ID: "p1"}}}
		report := &Report{
			SessionsStarted: 1,
			Host:            HostStats{Started: true, BudgetUsed: 3, BudgetLimit: 25},
			Results: []Result{{
				Plan:    plan,
				Started: true,
				Tally:   []Tally{{Player: model.PlayerRef{ID: "p1"}, Kinds: map[string]int{"goal": 2, "assist": 1}, Total: 3}},
			}},
		}

		Convey("When everything is consistent", func() {
			Convey("Then there are no problems", func() {
				So(verify(report), ShouldBeEmpty)
			})
		})

		Convey("When an untracked player is credited with a wrong total", func() {
			report.Results[0].Tally = append(report.Results[0].Tally, Tally{
				Player: model.PlayerRef{ID: "p9"},
				Kinds:  map[string]int{"goal": 1},
				Total:  2,
			})

			Convey("Then both are reported", func() {
				problems := verify(report)
				So(len(problems), ShouldEqual, 2)
				So(problems[0], ShouldContainSubstring, "untracked player p9")
				So(problems[1], ShouldContainSubstring, "total 2 != sum of kinds 1")
			})
		})

		Convey("When the host is over budget and a session failed", func() {
			report.Host.BudgetUsed = 30
			report.SessionsFailed = 1

			Convey("Then it is flagged", func() {
				problems := verify(report)
				So(problems, ShouldContain, "1 sessions failed to start")
				So(problems, ShouldContain, "budget used 30 exceeds limit 25")
			})
		})
	})
}
