package budget_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/matchsync/internal/domain/budget"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTracker(t *testing.T) {
	Convey("Given a tracker allowing 25 calls per minute", t, func() {
		clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
		tr := budget.New(budget.WithClock(clock.Now))

		Convey("When it is empty", func() {
			Convey("Then calls are allowed and no wait is needed", func() {
				So(tr.CanCall(), ShouldBeTrue)
				So(tr.TimeUntilNextSlot(), ShouldEqual, 0)
				So(tr.Remaining(), ShouldEqual, 25)
			})
		})

		Convey("When 25 calls are recorded within one second", func() {
			for i := 0; i < 25; i++ {
				tr.RecordCall()
				clock.Advance(40 * time.Millisecond)
			}

			Convey("Then the next call is refused", func() {
				So(tr.CanCall(), ShouldBeFalse)
				So(tr.TryAcquire(), ShouldBeFalse)
				So(tr.Len(), ShouldEqual, 25)
			})

			Convey("And the wait is bounded by the window", func() {
				wait := tr.TimeUntilNextSlot()
				So(wait, ShouldBeGreaterThan, 0)
				So(wait, ShouldBeLessThanOrEqualTo, time.Minute)
				So(wait, ShouldEqual, time.Minute-time.Second)
			})

			Convey("And after the window passes the oldest record expires", func() {
				clock.Advance(time.Minute - time.Second)
				So(tr.CanCall(), ShouldBeTrue)
				So(tr.TimeUntilNextSlot(), ShouldEqual, 0)
				So(tr.Remaining(), ShouldEqual, 1)
			})
		})

		Convey("When records age past the window", func() {
			tr.RecordCall()
			clock.Advance(61 * time.Second)

			Convey("Then they are pruned", func() {
				So(tr.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestTrackerConcurrency(t *testing.T) {
	Convey("Given a tracker with 10 slots", t, func() {
		tr := budget.New(budget.WithMaxCalls(10), budget.WithWindow(time.Hour))

		Convey("When 50 goroutines race for slots", func() {
			var granted atomic.Int64
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if tr.TryAcquire() {
						granted.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly 10 are granted", func() {
				So(granted.Load(), ShouldEqual, 10)
				So(tr.Len(), ShouldEqual, 10)
			})
		})
	})
}

func TestTrackerOptions(t *testing.T) {
	Convey("Given invalid options", t, func() {
		tr := budget.New(budget.WithMaxCalls(0), budget.WithWindow(-time.Second), budget.WithClock(nil))

		Convey("Then defaults are kept", func() {
			max, window := tr.Limit()
			So(max, ShouldEqual, budget.DefaultMaxCalls)
			So(window, ShouldEqual, budget.DefaultWindow)
		})
	})
}
