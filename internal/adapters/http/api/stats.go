package api

import (
	"net/http"
)

// StatsFunc returns a JSON-encodable snapshot of the service.
type StatsFunc func() any

// StatsHandler handles stats requests.
type StatsHandler struct {
	stats StatsFunc
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(stats StatsFunc) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.stats())
}
