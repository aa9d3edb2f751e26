// Package api exposes the operational HTTP API of the match sync host.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/okian/matchsync/internal/adapters/gamestate"
	"github.com/okian/matchsync/internal/adapters/http/swagger"
	"github.com/okian/matchsync/internal/adapters/source"
	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/internal/domain/registry"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// RelevantMatches runs the fallback chain and never fails.
	RelevantMatches(ctx context.Context, competition string) []model.Match
	TodayMatches(ctx context.Context, competition string) ([]model.Match, error)

	Lineup(ctx context.Context, matchID string) (model.Lineup, error)

	// TrackMatch starts live tracking of matchID for the session.
	TrackMatch(ctx context.Context, sessionID, matchID string, players []model.PlayerRef) (model.Match, error)
	StopLiveTracking(sessionID string)
	SetObserving(sessionID string, observing bool) bool

	// Tally exposes what game state recorded for the session.
	Tally(sessionID string) []gamestate.PlayerTally
}

// Server wires HTTP routes for the operational API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	matchesHandler  *MatchesHandler
	sessionsHandler *SessionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, stats StatsFunc) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(stats),
		matchesHandler:  NewMatchesHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
	}
}

// Router returns every route behind a permissive CORS policy.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)

	swagger.Register(r)
	r.HandleFunc("/healthz", s.healthHandler.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsHandler.HandleStats).Methods(http.MethodGet)
	r.HandleFunc("/matches/relevant", s.matchesHandler.HandleRelevant).Methods(http.MethodGet)
	r.HandleFunc("/matches/today", s.matchesHandler.HandleToday).Methods(http.MethodGet)
	r.HandleFunc("/matches/{id}/lineup", s.matchesHandler.HandleLineup).Methods(http.MethodGet)

	sessions := r.PathPrefix("/sessions/{id}").Subrouter()
	sessions.HandleFunc("/live", s.sessionsHandler.HandleStart).Methods(http.MethodPost)
	sessions.HandleFunc("/live", s.sessionsHandler.HandleStop).Methods(http.MethodDelete)
	sessions.HandleFunc("/observing", s.sessionsHandler.HandleObserving).Methods(http.MethodPut)
	sessions.HandleFunc("/tally", s.sessionsHandler.HandleTally).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	var se *source.Error
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, registry.ErrInvalidSession):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, source.ErrInvalidRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, source.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		return http.StatusNotFound, "not_found"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "timeout"
	case errors.As(err, &se):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusServiceUnavailable, "unavailable"
	}
}
