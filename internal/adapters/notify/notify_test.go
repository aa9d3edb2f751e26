package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/okian/matchsync/internal/adapters/notify"
	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLogNotifier(t *testing.T) {
	Convey("Given a log notifier writing JSON", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.WithFormat("json"), logger.WithWriter(&buf)), ShouldBeNil)
		Reset(func() { _ = logger.Init() })

		n := notify.NewLogNotifier(nil)

		Convey("When a notification is sent", func() {
			err := n.Notify(context.Background(), model.Notification{
				ID:         "n1",
				SessionID:  "s1",
				MatchLabel: "Reds vs Blues",
				EventType:  "goal",
				PlayerName: "Ann Striker",
				CreatedAt:  time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC),
			})

			Convey("Then it is logged with its fields", func() {
				So(err, ShouldBeNil)
				out := buf.String()
				So(out, ShouldContainSubstring, `"session_id":"s1"`)
				So(out, ShouldContainSubstring, `"player":"Ann Striker"`)
				So(out, ShouldContainSubstring, `"kind":"goal"`)
			})
		})
	})
}
