package api

import (
	"net/http"
	"time"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves service statistics with the process uptime added.
type StatsHandler struct {
	statsProvider StatsProvider
	started       time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, started: time.Now()}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.statsProvider.GetStats()
	out := make(map[string]interface{}, len(stats)+1)
	for k, v := range stats {
		out[k] = v
	}
	out["uptimeSeconds"] = int64(time.Since(h.started).Seconds())
	writeJSON(w, http.StatusOK, out)
}
