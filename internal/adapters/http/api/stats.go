package api

import (
	"net/http"
	"strings"
)

// StatsProvider exposes the live counters of the current or last run.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves the run counters.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats. An optional fields=a,b query narrows the
// response to the named counters; unknown names are ignored.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.provider.GetStats()
	if fields := r.URL.Query().Get("fields"); fields != "" {
		picked := make(map[string]any)
		for _, name := range strings.Split(fields, ",") {
			if v, ok := stats[strings.TrimSpace(name)]; ok {
				picked[strings.TrimSpace(name)] = v
			}
		}
		stats = picked
	}
	writeJSON(w, http.StatusOK, stats)
}
