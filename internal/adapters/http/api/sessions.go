package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/okian/matchsync/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// SessionsHandler serves the live-tracking lifecycle of game sessions.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

type startRequest struct {
	MatchID string            `json:"match_id"`
	Players []model.PlayerRef `json:"players"`
}

func (s startRequest) validate() error {
	if strings.TrimSpace(s.MatchID) == "" {
		return fmt.Errorf("%w: missing match_id", ErrBadRequest)
	}
	if len(s.Players) == 0 {
		return fmt.Errorf("%w: players must not be empty", ErrBadRequest)
	}
	for i, p := range s.Players {
		if strings.TrimSpace(p.ID) == "" && strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: player %d has neither id nor name", ErrBadRequest, i)
		}
	}
	return nil
}

type startResponse struct {
	SessionID string      `json:"session_id"`
	Match     model.Match `json:"match"`
}

type observingRequest struct {
	Observing *bool `json:"observing"`
}

type tallyResponse struct {
	SessionID string `json:"session_id"`
	Players   any    `json:"players"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// HandleStart handles POST /sessions/{id}/live.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req startRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	m, err := h.deps.TrackMatch(r.Context(), id, strings.TrimSpace(req.MatchID), req.Players)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusAccepted, startResponse{SessionID: id, Match: m})
}

// HandleStop handles DELETE /sessions/{id}/live.
func (h *SessionsHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.deps.StopLiveTracking(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// HandleObserving handles PUT /sessions/{id}/observing.
func (h *SessionsHandler) HandleObserving(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req observingRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Observing == nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing observing", ErrBadRequest))
		return
	}
	if !h.deps.SetObserving(id, *req.Observing) {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("session %s is not tracked", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTally handles GET /sessions/{id}/tally.
func (h *SessionsHandler) HandleTally(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, tallyResponse{SessionID: id, Players: h.deps.Tally(id)})
}
