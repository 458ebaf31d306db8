package handlers

import (
	"net/http"
	"strconv"

	"github.com/perflens/perflens/internal/monitor"
)

// RunsHandler handles GET /api/runs with optional ?limit= and ?since= (minutes).
func RunsHandler(mon *monitor.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		since, _ := strconv.Atoi(r.URL.Query().Get("since"))

		runs := mon.Recent(limit, since)
		writeJSON(w, http.StatusOK, map[string]any{
			"runs":  runs,
			"count": len(runs),
		})
	}
}

// RunStatsHandler handles GET /api/stats.
func RunStatsHandler(mon *monitor.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, mon.Stats())
	}
}

// ClearRunsHandler handles POST /api/runs/clear.
func ClearRunsHandler(mon *monitor.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mon.Clear(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to clear runs: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}
