package demo

import "time"

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithSeed fixes the generator seed.
func WithSeed(seed int64) Option {
	return func(s *Source) {
		s.seed = seed
	}
}

// WithMatches sets how many fixtures are generated.
func WithMatches(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.count = n
		}
	}
}

// WithCompetition sets the competition code of generated fixtures.
func WithCompetition(code string) Option {
	return func(s *Source) {
		if code != "" {
			s.competition = code
		}
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
	}
}
