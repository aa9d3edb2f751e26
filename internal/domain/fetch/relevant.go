package fetch

import (
	"context"

	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
	"github.com/okian/matchsync/pkg/metrics"
)

// FindRelevantMatches returns live matches, else upcoming ones, else matches
// from a wider date window, else an empty slice. It never fails: strategy
// errors are logged and treated as empty results.
func (c *Coordinator) FindRelevantMatches(ctx context.Context, competition string) []model.Match {
	today := c.today()
	strategies := []struct {
		name string
		run  func() ([]model.Match, error)
	}{
		{"live", func() ([]model.Match, error) { return c.FetchLive(ctx, competition) }},
		{"upcoming", func() ([]model.Match, error) { return c.FetchUpcoming(ctx, competition) }},
		{"range", func() ([]model.Match, error) {
			return c.FetchDateRange(ctx, competition,
				today.AddDate(0, 0, -c.lookbackDays),
				today.AddDate(0, 0, c.lookaheadDays))
		}},
	}

	for _, s := range strategies {
		if ctx.Err() != nil {
			break
		}
		matches, err := s.run()
		if err != nil {
			c.log.Warn(ctx, "relevant match strategy failed",
				logger.String("strategy", s.name),
				logger.String("competition", competition),
				logger.Error(err),
			)
			continue
		}
		if len(matches) > 0 {
			metrics.RecordFallbackStrategy(s.name)
			return matches
		}
	}

	metrics.RecordFallbackStrategy("empty")
	return []model.Match{}
}
