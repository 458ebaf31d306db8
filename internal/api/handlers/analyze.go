package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/perflens/perflens/internal/advisor"
	"github.com/perflens/perflens/internal/analyzer"
	"github.com/perflens/perflens/internal/db/models"
	"github.com/perflens/perflens/internal/metrics"
	"github.com/perflens/perflens/internal/monitor"
)

// AnalyzeRequest is the /analyze request body. UseAI defaults to true when
// omitted.
type AnalyzeRequest struct {
	Logs  []analyzer.LogRecord `json:"logs" validate:"required,min=1,dive"`
	UseAI *bool                `json:"use_ai"`
}

// AnalyzeResponse pairs the analysis with the optional advice payload.
type AnalyzeResponse struct {
	Analysis          *analyzer.AnalysisResult `json:"analysis"`
	AIRecommendations *advisor.Recommendation  `json:"ai_recommendations"`
}

// AnalyzeHandler handles POST /analyze: full analysis plus optional advice
// generation. An advice failure never blocks the analysis result.
func AnalyzeHandler(a *analyzer.Analyzer, adv *advisor.Advisor, mon *monitor.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metrics.AnalyzeRuns.WithLabelValues("invalid_request").Inc()
			writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if len(req.Logs) == 0 {
			metrics.AnalyzeRuns.WithLabelValues("empty_input").Inc()
			writeError(w, http.StatusBadRequest, "No logs provided")
			return
		}
		if err := validate.Struct(&req); err != nil {
			metrics.AnalyzeRuns.WithLabelValues("invalid_request").Inc()
			writeError(w, http.StatusBadRequest, "Invalid log records: "+err.Error())
			return
		}

		result, err := a.Analyze(req.Logs)
		if err != nil {
			// Unreachable after the length check above, but the contract is
			// a client-visible failure either way.
			if errors.Is(err, analyzer.ErrNoRecords) {
				metrics.AnalyzeRuns.WithLabelValues("empty_input").Inc()
				writeError(w, http.StatusBadRequest, "No logs provided")
				return
			}
			writeError(w, http.StatusInternalServerError, "Analysis failed: "+err.Error())
			return
		}

		useAI := req.UseAI == nil || *req.UseAI

		var rec *advisor.Recommendation
		if useAI {
			issues := analyzer.ExtractIssues(result)
			rec = adv.Recommend(r.Context(), issues, result)
		}

		writeJSON(w, http.StatusOK, AnalyzeResponse{
			Analysis:          result,
			AIRecommendations: rec,
		})

		recordRun(mon, adv, result, rec, start)
	}
}

// QuickAnalyzeHandler handles POST /quick-analyze: bare log array in, summary
// out, no advice call.
func QuickAnalyzeHandler(a *analyzer.Analyzer, mon *monitor.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var logs []analyzer.LogRecord
		if err := json.NewDecoder(r.Body).Decode(&logs); err != nil {
			metrics.AnalyzeRuns.WithLabelValues("invalid_request").Inc()
			writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if len(logs) == 0 {
			metrics.AnalyzeRuns.WithLabelValues("empty_input").Inc()
			writeError(w, http.StatusBadRequest, "No logs provided")
			return
		}
		if err := validate.Struct(&AnalyzeRequest{Logs: logs}); err != nil {
			metrics.AnalyzeRuns.WithLabelValues("invalid_request").Inc()
			writeError(w, http.StatusBadRequest, "Invalid log records: "+err.Error())
			return
		}

		result, err := a.Analyze(logs)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Analysis failed: "+err.Error())
			return
		}

		var topSlow, topError *analyzer.EndpointSummary
		if len(result.SlowEndpoints) > 0 {
			topSlow = &result.SlowEndpoints[0]
		}
		if len(result.HighErrorEndpoints) > 0 {
			topError = &result.HighErrorEndpoints[0]
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"summary":            result.Summary,
			"top_slow_endpoint":  topSlow,
			"top_error_endpoint": topError,
			"total_logs":         result.TotalLogsAnalyzed,
		})

		recordRun(mon, nil, result, nil, start)
	}
}

func recordRun(mon *monitor.Monitor, adv *advisor.Advisor, result *analyzer.AnalysisResult, rec *advisor.Recommendation, start time.Time) {
	elapsed := time.Since(start)

	metrics.AnalyzeRuns.WithLabelValues("ok").Inc()
	metrics.LogsAnalyzed.Add(float64(result.TotalLogsAnalyzed))
	metrics.AnalyzeDuration.Observe(elapsed.Seconds())
	metrics.BottlenecksDetected.WithLabelValues("slow").Add(float64(result.Summary.SlowEndpointsCount))
	metrics.BottlenecksDetected.WithLabelValues("high_error").Add(float64(result.Summary.HighErrorEndpointsCount))
	metrics.BottlenecksDetected.WithLabelValues("db_heavy").Add(float64(result.Summary.DBHeavyEndpointsCount))

	if mon == nil {
		return
	}

	run := models.AnalysisRun{
		DurationMs:      elapsed.Milliseconds(),
		TotalLogs:       result.TotalLogsAnalyzed,
		UniqueEndpoints: result.UniqueEndpoints,
		SlowCount:       result.Summary.SlowEndpointsCount,
		HighErrorCount:  result.Summary.HighErrorEndpointsCount,
		DBHeavyCount:    result.Summary.DBHeavyEndpointsCount,
	}
	if rec != nil {
		run.AdviceStatus = rec.Status
		run.AdviceProvider = adv.ProviderID()
		run.Error = rec.Error
	}
	mon.Record(run)

	log.Printf("[API] Analyzed %d logs across %d endpoints in %s (slow=%d high_error=%d db_heavy=%d)",
		result.TotalLogsAnalyzed, result.UniqueEndpoints, elapsed,
		result.Summary.SlowEndpointsCount, result.Summary.HighErrorEndpointsCount, result.Summary.DBHeavyEndpointsCount)
}
