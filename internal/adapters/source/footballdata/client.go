// Package footballdata reads matches, events and squads from the remote
// football data HTTP API.
package footballdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/matchsync/internal/adapters/source"
	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
	"github.com/okian/matchsync/pkg/metrics"
)

// Default client configuration constants.
const (
	DefaultBaseURL = "https://api.football-data.org/v4"
	DefaultTimeout = 15 * time.Second

	authHeader   = "X-Auth-Token"
	maxErrorBody = 512
)

// Client is a football data API client. It implements source.Source.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	log        logger.Logger
}

var _ source.Source = (*Client)(nil)

// New creates a client for baseURL authenticated with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		timeout: DefaultTimeout,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.log == nil {
		c.log = logger.Get().Named("footballdata")
	}
	return c
}

// Matches lists matches filtered by q.
func (c *Client) Matches(ctx context.Context, q source.MatchQuery) ([]model.Match, error) {
	const op = "matches"

	params := url.Values{}
	var statuses []string
	for _, s := range q.Statuses {
		statuses = append(statuses, s.APIValues()...)
	}
	if len(statuses) > 0 {
		params.Set("status", strings.Join(statuses, ","))
	}
	if q.Competition != "" {
		params.Set("competitions", q.Competition)
	}
	if !q.DateFrom.IsZero() {
		params.Set("dateFrom", q.DateFrom.Format(source.DateLayout))
	}
	if !q.DateTo.IsZero() {
		params.Set("dateTo", q.DateTo.Format(source.DateLayout))
	}

	path := "/matches"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var body matchList
	if err := c.get(ctx, op, path, &body); err != nil {
		return nil, err
	}

	out := make([]model.Match, 0, len(body.Matches))
	for i, raw := range body.Matches {
		var rec matchRecord
		err := json.Unmarshal(raw, &rec)
		var m model.Match
		if err == nil {
			m, err = rec.toModel()
		}
		if err != nil {
			c.log.Warn(ctx, "skipping malformed match record",
				logger.Int("index", i),
				logger.Error(err),
			)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// MatchDetail returns one match with its events and lineup.
func (c *Client) MatchDetail(ctx context.Context, matchID string) (model.MatchDetail, error) {
	const op = "match"
	if strings.TrimSpace(matchID) == "" {
		return model.MatchDetail{}, source.NewError(source.KindInvalidRequest, op, errors.New("empty match id"))
	}

	var rec matchRecord
	if err := c.get(ctx, op, "/matches/"+url.PathEscape(matchID), &rec); err != nil {
		return model.MatchDetail{}, err
	}

	m, err := rec.toModel()
	if err != nil {
		return model.MatchDetail{}, source.NewError(source.KindDecoding, op, err)
	}

	events, skipped := rec.events(m)
	if skipped > 0 {
		c.log.Warn(ctx, "skipped malformed event records",
			logger.String("match_id", m.ID),
			logger.Int("skipped", skipped),
		)
	}

	detail := model.MatchDetail{Match: m, Events: events}
	if rec.Lineup != nil {
		detail.Lineup = &model.Lineup{
			Home: players(rec.Lineup.Home),
			Away: players(rec.Lineup.Away),
		}
	}
	return detail, nil
}

// Team returns a team's squad.
func (c *Client) Team(ctx context.Context, teamID string) (model.Roster, error) {
	const op = "team"
	if strings.TrimSpace(teamID) == "" {
		return model.Roster{}, source.NewError(source.KindInvalidRequest, op, errors.New("empty team id"))
	}

	var rec teamRecord
	if err := c.get(ctx, op, "/teams/"+url.PathEscape(teamID), &rec); err != nil {
		return model.Roster{}, err
	}
	if rec.ID == "" {
		return model.Roster{}, source.NewError(source.KindDecoding, op, errors.New("team without id"))
	}
	return model.Roster{
		Team:  model.TeamRef{ID: string(rec.ID), Name: rec.Name},
		Squad: players(rec.Squad),
	}, nil
}

// get issues a GET for path and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op, path string, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = source.KindOf(err).String()
		}
		metrics.RecordAPICall(op, outcome, time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return source.NewError(source.KindInvalidRequest, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(authHeader, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return source.NewError(source.KindNetwork, op, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug(ctx, "close response body", logger.Error(cerr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return source.NewError(source.KindNetwork, op, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &source.Error{
			Kind:       source.KindRateLimited,
			Op:         op,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b := string(body)
		if len(b) > maxErrorBody {
			b = b[:maxErrorBody]
		}
		return &source.Error{
			Kind:       source.KindServer,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       b,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return source.NewError(source.KindDecoding, op, err)
	}
	return nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Zero when absent.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
