// Package source defines the contract for reading match data from a provider.
package source

import (
	"context"
	"time"

	"github.com/okian/matchsync/internal/domain/model"
)

// DateLayout is the date format used in match queries.
const DateLayout = "2006-01-02"

// MatchQuery filters a match listing. Zero fields are not sent.
type MatchQuery struct {
	Statuses    []model.MatchStatus
	Competition string
	DateFrom    time.Time
	DateTo      time.Time
}

// Source reads match data. Implementations return *Error on failure.
type Source interface {
	Matches(ctx context.Context, q MatchQuery) ([]model.Match, error)
	MatchDetail(ctx context.Context, matchID string) (model.MatchDetail, error)
	Team(ctx context.Context, teamID string) (model.Roster, error)
}
