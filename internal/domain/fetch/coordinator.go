// Package fetch is the single path to the remote data source. Every call
// checks the cache first, then takes a slot from the shared call budget,
// then goes to the network with bounded retries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/matchsync/internal/adapters/source"
	"github.com/okian/matchsync/internal/domain/budget"
	"github.com/okian/matchsync/internal/domain/cache"
	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
	"github.com/okian/matchsync/pkg/metrics"
)

// Default coordinator configuration constants.
const (
	DefaultMaxAttempts   = 3
	DefaultRetryBase     = time.Second
	DefaultWaitCeiling   = 60 * time.Second
	DefaultLookbackDays  = 3
	DefaultLookaheadDays = 7

	minBudgetWait = 10 * time.Millisecond
)

// Coordinator mediates all remote reads.
type Coordinator struct {
	src    source.Source
	cache  *cache.Cache
	budget *budget.Tracker
	group  singleflight.Group
	log    logger.Logger
	now    func() time.Time

	maxAttempts   int
	retryBase     time.Duration
	waitCeiling   time.Duration
	lookbackDays  int
	lookaheadDays int
}

// New creates a coordinator over src sharing c and b with every other caller.
func New(src source.Source, c *cache.Cache, b *budget.Tracker, opts ...Option) *Coordinator {
	co := &Coordinator{
		src:           src,
		cache:         c,
		budget:        b,
		now:           time.Now,
		maxAttempts:   DefaultMaxAttempts,
		retryBase:     DefaultRetryBase,
		waitCeiling:   DefaultWaitCeiling,
		lookbackDays:  DefaultLookbackDays,
		lookaheadDays: DefaultLookaheadDays,
	}
	for _, opt := range opts {
		opt(co)
	}
	if co.log == nil {
		co.log = logger.Get().Named("fetch")
	}
	return co
}

// CanCall reports whether the shared budget has a free slot.
func (c *Coordinator) CanCall() bool { return c.budget.CanCall() }

// TimeUntilNextSlot reports how long until the shared budget frees a slot.
func (c *Coordinator) TimeUntilNextSlot() time.Duration { return c.budget.TimeUntilNextSlot() }

func (c *Coordinator) today() time.Time {
	return c.now().UTC().Truncate(24 * time.Hour)
}

// FetchLive lists matches currently in play.
func (c *Coordinator) FetchLive(ctx context.Context, competition string) ([]model.Match, error) {
	return c.fetchList(ctx, "live", source.MatchQuery{
		Statuses:    []model.MatchStatus{model.StatusInProgress, model.StatusHalftime},
		Competition: competition,
	})
}

// FetchUpcoming lists scheduled matches for today and tomorrow.
func (c *Coordinator) FetchUpcoming(ctx context.Context, competition string) ([]model.Match, error) {
	today := c.today()
	return c.fetchList(ctx, "upcoming", source.MatchQuery{
		Statuses:    []model.MatchStatus{model.StatusUpcoming},
		Competition: competition,
		DateFrom:    today,
		DateTo:      today.AddDate(0, 0, 1),
	})
}

// FetchToday lists every match kicking off today.
func (c *Coordinator) FetchToday(ctx context.Context, competition string) ([]model.Match, error) {
	today := c.today()
	return c.fetchList(ctx, "today", source.MatchQuery{
		Competition: competition,
		DateFrom:    today,
		DateTo:      today,
	})
}

// FetchDateRange lists matches with kickoff dates in [from, to].
func (c *Coordinator) FetchDateRange(ctx context.Context, competition string, from, to time.Time) ([]model.Match, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, source.NewError(source.KindInvalidRequest, "range",
			fmt.Errorf("invalid date range %s..%s", from.Format(source.DateLayout), to.Format(source.DateLayout)))
	}
	return c.fetchList(ctx, "range", source.MatchQuery{
		Competition: competition,
		DateFrom:    from,
		DateTo:      to,
	})
}

func listKey(name string, q source.MatchQuery) string {
	parts := []string{name, q.Competition}
	for _, s := range q.Statuses {
		parts = append(parts, string(s))
	}
	if !q.DateFrom.IsZero() {
		parts = append(parts, q.DateFrom.Format(source.DateLayout))
	}
	if !q.DateTo.IsZero() {
		parts = append(parts, q.DateTo.Format(source.DateLayout))
	}
	return strings.Join(parts, "|")
}

func (c *Coordinator) fetchList(ctx context.Context, name string, q source.MatchQuery) ([]model.Match, error) {
	key := listKey(name, q)
	if v, ok := cache.Lookup[[]model.Match](c.cache, cache.KindMatchList, key); ok {
		return v, nil
	}

	matches, err := load(ctx, c, "list:"+key, func(ctx context.Context) ([]model.Match, error) {
		if v, ok := cache.Lookup[[]model.Match](c.cache, cache.KindMatchList, key); ok {
			return v, nil
		}
		ms, err := withRetry(ctx, c, "matches", func(ctx context.Context) ([]model.Match, error) {
			return c.src.Matches(ctx, q)
		})
		if err != nil {
			return nil, err
		}
		c.cache.Put(cache.KindMatchList, key, ms, model.StatusUnknown)
		for _, m := range ms {
			c.cache.Put(cache.KindMatch, m.ID, m, m.Status)
		}
		return ms, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s matches: %w", name, err)
	}
	return matches, nil
}

// FetchMatchDetail returns a match snapshot.
func (c *Coordinator) FetchMatchDetail(ctx context.Context, matchID string) (model.Match, error) {
	if matchID == "" {
		return model.Match{}, source.NewError(source.KindInvalidRequest, "match", errors.New("empty match id"))
	}
	if m, ok := cache.Lookup[model.Match](c.cache, cache.KindMatch, matchID); ok {
		return m, nil
	}
	d, err := c.loadDetail(ctx, matchID)
	if err != nil {
		return model.Match{}, err
	}
	return d.Match, nil
}

// FetchEvents returns a match snapshot with all its events.
func (c *Coordinator) FetchEvents(ctx context.Context, matchID string) (model.MatchDetail, error) {
	if matchID == "" {
		return model.MatchDetail{}, source.NewError(source.KindInvalidRequest, "match", errors.New("empty match id"))
	}
	if d, ok := cache.Lookup[model.MatchDetail](c.cache, cache.KindMatchDetail, matchID); ok {
		return d, nil
	}
	return c.loadDetail(ctx, matchID)
}

// FetchLineup returns the published lineup. A missing lineup is empty, not an error.
func (c *Coordinator) FetchLineup(ctx context.Context, matchID string) (model.Lineup, error) {
	d, err := c.FetchEvents(ctx, matchID)
	if err != nil {
		return model.Lineup{}, err
	}
	if d.Lineup == nil {
		return model.Lineup{}, nil
	}
	return *d.Lineup, nil
}

func (c *Coordinator) loadDetail(ctx context.Context, matchID string) (model.MatchDetail, error) {
	d, err := load(ctx, c, "detail:"+matchID, func(ctx context.Context) (model.MatchDetail, error) {
		if d, ok := cache.Lookup[model.MatchDetail](c.cache, cache.KindMatchDetail, matchID); ok {
			return d, nil
		}
		d, err := withRetry(ctx, c, "match", func(ctx context.Context) (model.MatchDetail, error) {
			return c.src.MatchDetail(ctx, matchID)
		})
		if err != nil {
			return model.MatchDetail{}, err
		}
		c.cache.Put(cache.KindMatchDetail, matchID, d, d.Match.Status)
		c.cache.Put(cache.KindMatch, matchID, d.Match, d.Match.Status)
		return d, nil
	})
	if err != nil {
		return model.MatchDetail{}, fmt.Errorf("fetch match %s: %w", matchID, err)
	}
	return d, nil
}

// FetchRoster returns a team's squad.
func (c *Coordinator) FetchRoster(ctx context.Context, teamID string) (model.Roster, error) {
	if teamID == "" {
		return model.Roster{}, source.NewError(source.KindInvalidRequest, "team", errors.New("empty team id"))
	}
	if r, ok := cache.Lookup[model.Roster](c.cache, cache.KindRoster, teamID); ok {
		return r, nil
	}
	r, err := load(ctx, c, "roster:"+teamID, func(ctx context.Context) (model.Roster, error) {
		if r, ok := cache.Lookup[model.Roster](c.cache, cache.KindRoster, teamID); ok {
			return r, nil
		}
		r, err := withRetry(ctx, c, "team", func(ctx context.Context) (model.Roster, error) {
			return c.src.Team(ctx, teamID)
		})
		if err != nil {
			return model.Roster{}, err
		}
		c.cache.Put(cache.KindRoster, teamID, r, model.StatusUnknown)
		return r, nil
	})
	if err != nil {
		return model.Roster{}, fmt.Errorf("fetch team %s: %w", teamID, err)
	}
	return r, nil
}

// load collapses concurrent misses for key into one call. A follower whose
// leader was cancelled runs the call again under its own context.
func load[T any](ctx context.Context, c *Coordinator, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for rerun := 0; ; rerun++ {
		ch := c.group.DoChan(key, func() (any, error) {
			return fn(ctx)
		})
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				if isContextErr(res.Err) && ctx.Err() == nil && rerun < c.maxAttempts {
					continue
				}
				return zero, res.Err
			}
			return res.Val.(T), nil
		}
	}
}

// withRetry takes a budget slot before every attempt and retries transient
// failures with a delay growing linearly with the attempt number.
func withRetry[T any](ctx context.Context, c *Coordinator, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		if err := c.acquire(ctx, op); err != nil {
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}
		if !source.IsRetryable(err) || attempt >= c.maxAttempts {
			metrics.RecordErrorByComponent("fetch", source.KindOf(err).String())
			return zero, err
		}

		delay := c.retryBase * time.Duration(attempt)
		var se *source.Error
		if errors.As(err, &se) && se.Kind == source.KindRateLimited && se.RetryAfter > 0 {
			if se.RetryAfter > c.waitCeiling {
				metrics.RecordErrorByComponent("fetch", source.KindOf(err).String())
				return zero, err
			}
			delay = se.RetryAfter
		}
		metrics.RecordAPIRetry(source.KindOf(err).String())
		c.log.Warn(ctx, "retrying remote call",
			logger.String("op", op),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

// acquire takes one call slot, waiting for it when the wait is within the
// ceiling.
func (c *Coordinator) acquire(ctx context.Context, op string) error {
	for {
		if c.budget.TryAcquire() {
			return nil
		}
		wait := c.budget.TimeUntilNextSlot()
		if wait > c.waitCeiling {
			metrics.RecordBudgetDenied()
			return &source.Error{
				Kind:       source.KindRateLimited,
				Op:         op,
				RetryAfter: wait,
				Err:        fmt.Errorf("call budget exhausted for %s", wait),
			}
		}
		if wait < minBudgetWait {
			wait = minBudgetWait
		}
		metrics.RecordBudgetWait()
		c.log.Debug(ctx, "waiting for call budget",
			logger.String("op", op),
			logger.Duration("wait", wait),
		)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
