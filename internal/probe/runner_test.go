package probe_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/matchsync/internal/adapters/http/api"
	service "github.com/okian/matchsync/internal/app"
	"github.com/okian/matchsync/internal/config"
	"github.com/okian/matchsync/internal/probe"
	"github.com/okian/matchsync/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestRunAgainstDemoHost(t *testing.T) {
	Convey("Given a demo host served over HTTP", t, func() {
		svc := service.New(config.New())
		So(svc.Start(context.Background()), ShouldBeNil)
		srv := httptest.NewServer(api.NewServer(svc, func() any { return svc.GetStats() }).Router())
		Reset(func() {
			srv.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = svc.Stop(ctx)
		})

		out := filepath.Join(t.TempDir(), "report.json")
		cfg := &probe.Config{
			BaseURL:           srv.URL,
			Sessions:          4,
			PlayersPerSession: 5,
			Wait:              200 * time.Millisecond,
			Timeout:           5 * time.Second,
			Unobserved:        true,
			OutputFile:        out,
		}

		Convey("When the probe runs", func() {
			report, err := probe.Run(context.Background(), cfg)

			Convey("Then every session starts and verifies", func() {
				So(err, ShouldBeNil)
				So(report.Matches, ShouldBeGreaterThan, 0)
				So(report.SessionsStarted, ShouldEqual, 4)
				So(report.SessionsFailed, ShouldEqual, 0)
				So(report.Host.Started, ShouldBeTrue)
				So(report.Host.ActiveMonitors, ShouldEqual, 4)
				So(report.Problems, ShouldBeEmpty)
			})

			Convey("And the report is written and sessions are stopped", func() {
				_, statErr := os.Stat(out)
				So(statErr, ShouldBeNil)
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) && svc.GetStats().ActiveMonitors != 0 {
					time.Sleep(10 * time.Millisecond)
				}
				So(svc.GetStats().ActiveMonitors, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a host that is down", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		Reset(srv.Close)

		Convey("When the probe runs", func() {
			_, err := probe.Run(context.Background(), &probe.Config{BaseURL: srv.URL, Timeout: time.Second})

			Convey("Then it fails the health check", func() {
				So(errors.Is(err, probe.ErrUnexpectedStatus), ShouldBeTrue)
			})
		})
	})

	Convey("Given a host without relevant matches", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {})
		mux.HandleFunc("/matches/relevant", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		})
		srv := httptest.NewServer(mux)
		Reset(srv.Close)

		Convey("When the probe runs", func() {
			_, err := probe.Run(context.Background(), &probe.Config{BaseURL: srv.URL, Timeout: time.Second})

			Convey("Then it reports there is nothing to track", func() {
				So(errors.Is(err, probe.ErrNoMatches), ShouldBeTrue)
			})
		})
	})
}
