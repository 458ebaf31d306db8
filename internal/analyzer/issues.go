package analyzer

import (
	"fmt"
	"strconv"
)

// issuesPerCategory caps how many endpoints per category are rendered into
// issue strings for the advice prompt.
const issuesPerCategory = 3

// ExtractIssues renders the most severe findings of a result as one-line
// issue strings, slow endpoints first, then high-error, then db-heavy.
// An empty slice means no significant bottlenecks were detected and callers
// should skip advice generation entirely.
func ExtractIssues(result *AnalysisResult) []string {
	var issues []string

	for _, ep := range capIssues(result.SlowEndpoints) {
		issues = append(issues, fmt.Sprintf(
			"Slow endpoint: %s - Avg: %sms, P95: %sms, DB Queries: %s",
			ep.Endpoint,
			formatMetric(ep.AvgResponseTimeMs),
			formatMetric(ep.P95ResponseTimeMs),
			formatMetric(ep.AvgDBQueries),
		))
	}

	for _, ep := range capIssues(result.HighErrorEndpoints) {
		issues = append(issues, fmt.Sprintf(
			"High error rate: %s - Error rate: %.1f%%, Total errors: %d",
			ep.Endpoint, ep.ErrorRate*100, ep.TotalErrors,
		))
	}

	for _, ep := range capIssues(result.DBHeavyEndpoints) {
		issues = append(issues, fmt.Sprintf(
			"DB-heavy endpoint: %s - Avg %s queries per request",
			ep.Endpoint, formatMetric(ep.AvgDBQueries),
		))
	}

	return issues
}

func capIssues(endpoints []EndpointSummary) []EndpointSummary {
	if len(endpoints) > issuesPerCategory {
		return endpoints[:issuesPerCategory]
	}
	return endpoints
}

// formatMetric renders an already-rounded metric without trailing zeros, so
// the embedded value matches the summary field exactly.
func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
