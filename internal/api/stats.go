package api

import (
	"net/http"

	"tourgen/pkg/tracker"
)

// StatsHandler exposes per-provider API and cache counters.
type StatsHandler struct {
	tracker *tracker.Tracker
}

// NewStatsHandler creates the handler.
func NewStatsHandler(t *tracker.Tracker) *StatsHandler {
	return &StatsHandler{tracker: t}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Snapshot())
}
