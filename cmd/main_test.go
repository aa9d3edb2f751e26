package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	service "github.com/okian/matchsync/internal/app"
	"github.com/okian/matchsync/internal/config"
	"github.com/okian/matchsync/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			_ = os.Setenv("MATCHSYNC_ADDR", ":8080")
			_ = os.Setenv("MATCHSYNC_NOTIFY_WORKERS", "4")
			defer func() {
				_ = os.Unsetenv("MATCHSYNC_ADDR")
				_ = os.Unsetenv("MATCHSYNC_NOTIFY_WORKERS")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.NotifyWorkers, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the HTTP server is built", func() {
			srv := newHTTPServer(":0", http.NotFoundHandler())

			convey.Convey("Then the timeouts are set", func() {
				convey.So(srv.ReadTimeout, convey.ShouldEqual, readTimeout)
				convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
				convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})
		})

		convey.Convey("When the metrics updater runs against an idle service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			convey.Convey("Then it returns once the context ends", func() {
				convey.So(func() { startServiceMetricsUpdater(ctx, service.New(nil)) }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a demo configuration on a free port", t, func() {
		cfg := config.New()
		cfg.Addr = freeAddr(t)
		cfg.ShutdownTimeout = 2 * time.Second

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg) }()
		convey.Reset(cancel)

		convey.Convey("When the server is up", func() {
			var resp *http.Response
			var err error
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				resp, err = http.Get("http://" + cfg.Addr + "/stats")
				if err == nil {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.Convey("Then stats are served and cancellation stops it cleanly", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				cancel()
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return")
				}
			})
		})
	})
}
