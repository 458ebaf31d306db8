// Package metrics exposes Prometheus instrumentation for analysis runs and
// advice generation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalyzeRuns counts completed analysis runs by outcome
	// ("ok", "empty_input", "invalid_request").
	AnalyzeRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perflens_analyze_runs_total",
			Help: "Total number of analysis runs by outcome",
		},
		[]string{"outcome"},
	)

	// LogsAnalyzed counts individual log records consumed by analysis runs.
	LogsAnalyzed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "perflens_logs_analyzed_total",
			Help: "Total number of log records analyzed",
		},
	)

	// AnalyzeDuration tracks end-to-end analysis run latency.
	AnalyzeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "perflens_analyze_duration_seconds",
			Help:    "Duration of analysis runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AdviceRequests counts advice provider calls by provider and status.
	AdviceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perflens_advice_requests_total",
			Help: "Total number of advice generation calls by provider and status",
		},
		[]string{"provider", "status"},
	)

	// BottlenecksDetected counts qualifying endpoints by category
	// ("slow", "high_error", "db_heavy").
	BottlenecksDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perflens_bottlenecks_detected_total",
			Help: "Total number of bottleneck endpoints detected by category",
		},
		[]string{"category"},
	)
)
