package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// MatchesHandler serves match listings.
type MatchesHandler struct {
	deps Dependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps Dependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// HandleRelevant handles GET /matches/relevant?competition=CODE. It always
// answers 200, with an empty list when nothing could be found.
func (h *MatchesHandler) HandleRelevant(w http.ResponseWriter, r *http.Request) {
	competition := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("competition")))
	writeJSON(w, http.StatusOK, h.deps.RelevantMatches(r.Context(), competition))
}

// HandleToday handles GET /matches/today?competition=CODE.
func (h *MatchesHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	competition := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("competition")))
	matches, err := h.deps.TodayMatches(r.Context(), competition)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// HandleLineup handles GET /matches/{id}/lineup.
func (h *MatchesHandler) HandleLineup(w http.ResponseWriter, r *http.Request) {
	lineup, err := h.deps.Lineup(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, lineup)
}
