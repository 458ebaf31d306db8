package handlers

import (
	"net/http"

	"github.com/perflens/perflens/internal/advisor"
	"github.com/perflens/perflens/internal/version"
)

// RootHandler handles GET /: service banner and endpoint map.
func RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "API Performance Bottleneck Analyzer",
			"status":  "running",
			"version": version.Version,
			"endpoints": map[string]string{
				"analyze":       "/analyze",
				"quick_analyze": "/quick-analyze",
				"health":        "/health",
				"runs":          "/api/runs",
				"stats":         "/api/stats",
				"metrics":       "/metrics",
			},
		})
	}
}

// HealthHandler handles GET /health. The analyzer has no failure modes; the
// advisor reports whether a provider is configured and credentialed.
func HealthHandler(adv *advisor.Advisor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		aiStatus := "connected"
		if err := adv.Ready(); err != nil {
			aiStatus = "error: " + err.Error()
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status":       "healthy",
			"log_analyzer": "ready",
			"ai_analyzer":  aiStatus,
			"version":      version.Version,
		})
	}
}
