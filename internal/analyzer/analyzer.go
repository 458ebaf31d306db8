package analyzer

import (
	"errors"
	"math"
	"sort"
)

const (
	// DefaultSlowThresholdMs is the average response time above which an
	// endpoint is classified as slow.
	DefaultSlowThresholdMs = 500

	// DefaultErrorRateThreshold is the error fraction above which an
	// endpoint is classified as high-error.
	DefaultErrorRateThreshold = 0.05

	// dbHeavyThreshold is fixed: more than 5 queries per request on average.
	dbHeavyThreshold = 5

	// topEndpoints caps each ranked list in the result.
	topEndpoints = 5
)

// ErrNoRecords is returned by Analyze when the input batch is empty.
var ErrNoRecords = errors.New("no log records provided")

// LogRecord is a single API request log entry. Method and Timestamp are
// accepted for caller convenience but not used by the analysis.
type LogRecord struct {
	Endpoint       string  `json:"endpoint"`
	ResponseTimeMs float64 `json:"response_time_ms" validate:"gte=0"`
	StatusCode     int     `json:"status_code"`
	DBQueryCount   int     `json:"db_query_count" validate:"gte=0"`
	Method         string  `json:"method,omitempty"`
	Timestamp      string  `json:"timestamp,omitempty"`
}

// EndpointSummary holds derived per-endpoint statistics. Float fields are
// rounded for presentation; classification happens before rounding.
type EndpointSummary struct {
	Endpoint          string  `json:"endpoint"`
	TotalRequests     int     `json:"total_requests"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
	P95ResponseTimeMs float64 `json:"p95_response_time_ms"`
	ErrorRate         float64 `json:"error_rate"`
	AvgDBQueries      float64 `json:"avg_db_queries"`
	TotalErrors       int     `json:"total_errors"`
}

// CategoryCounts counts every qualifying endpoint per category, not just the
// top entries returned in the ranked lists.
type CategoryCounts struct {
	SlowEndpointsCount      int `json:"slow_endpoints_count"`
	HighErrorEndpointsCount int `json:"high_error_endpoints_count"`
	DBHeavyEndpointsCount   int `json:"db_heavy_endpoints_count"`
}

// AnalysisResult is the output of a single Analyze call. Each ranked list is
// sorted descending by its triggering metric and capped at 5 entries; an
// endpoint may appear in any number of lists.
type AnalysisResult struct {
	TotalLogsAnalyzed  int               `json:"total_logs_analyzed"`
	UniqueEndpoints    int               `json:"unique_endpoints"`
	SlowEndpoints      []EndpointSummary `json:"slow_endpoints"`
	HighErrorEndpoints []EndpointSummary `json:"high_error_endpoints"`
	DBHeavyEndpoints   []EndpointSummary `json:"db_heavy_endpoints"`
	Summary            CategoryCounts    `json:"summary"`
}

// Analyzer classifies API log batches into performance bottleneck categories.
// Configuration is immutable after construction, so a single instance is safe
// for any number of concurrent Analyze calls.
type Analyzer struct {
	slowThresholdMs    float64
	errorRateThreshold float64
}

// New creates an Analyzer with the given thresholds. The values are taken at
// face value; a zero slow threshold classifies every endpoint with a positive
// average response time as slow.
func New(slowThresholdMs, errorRateThreshold float64) *Analyzer {
	return &Analyzer{
		slowThresholdMs:    slowThresholdMs,
		errorRateThreshold: errorRateThreshold,
	}
}

// NewDefault creates an Analyzer with the default thresholds.
func NewDefault() *Analyzer {
	return New(DefaultSlowThresholdMs, DefaultErrorRateThreshold)
}

// endpointAccumulator collects running totals for one endpoint group. It
// lives only for the duration of a single Analyze call.
type endpointAccumulator struct {
	count         int
	totalTime     float64
	errors        int
	dbQueries     int
	responseTimes []float64
}

// group carries the unrounded metrics used for classification and ordering
// alongside the rounded summary that ends up in the result.
type group struct {
	avgTime      float64
	errorRate    float64
	avgDBQueries float64
	summary      EndpointSummary
}

// Analyze groups records by endpoint, computes per-endpoint statistics and
// classifies each endpoint against the configured thresholds. It is pure:
// identical input and configuration always yield an identical result.
func (a *Analyzer) Analyze(records []LogRecord) (*AnalysisResult, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	stats := make(map[string]*endpointAccumulator)
	// Track first-seen order so iteration (and therefore sort tie-breaking)
	// is deterministic; Go map order is not.
	order := make([]string, 0, len(records))

	for _, rec := range records {
		endpoint := rec.Endpoint
		if endpoint == "" {
			endpoint = "unknown"
		}

		acc, ok := stats[endpoint]
		if !ok {
			acc = &endpointAccumulator{}
			stats[endpoint] = acc
			order = append(order, endpoint)
		}

		acc.count++
		acc.totalTime += rec.ResponseTimeMs
		acc.responseTimes = append(acc.responseTimes, rec.ResponseTimeMs)
		acc.dbQueries += rec.DBQueryCount
		if rec.StatusCode >= 400 {
			acc.errors++
		}
	}

	var slow, highError, dbHeavy []group

	for _, endpoint := range order {
		acc := stats[endpoint]
		n := float64(acc.count)
		avgTime := acc.totalTime / n
		errorRate := float64(acc.errors) / n
		avgDBQueries := float64(acc.dbQueries) / n
		p95 := percentile95(acc.responseTimes)

		g := group{
			avgTime:      avgTime,
			errorRate:    errorRate,
			avgDBQueries: avgDBQueries,
			summary: EndpointSummary{
				Endpoint:          endpoint,
				TotalRequests:     acc.count,
				AvgResponseTimeMs: round2(avgTime),
				P95ResponseTimeMs: round2(p95),
				ErrorRate:         round3(errorRate),
				AvgDBQueries:      round2(avgDBQueries),
				TotalErrors:       acc.errors,
			},
		}

		// Strict comparisons: exactly at the threshold does not qualify.
		if avgTime > a.slowThresholdMs {
			slow = append(slow, g)
		}
		if errorRate > a.errorRateThreshold {
			highError = append(highError, g)
		}
		if avgDBQueries > dbHeavyThreshold {
			dbHeavy = append(dbHeavy, g)
		}
	}

	sort.SliceStable(slow, func(i, j int) bool { return slow[i].avgTime > slow[j].avgTime })
	sort.SliceStable(highError, func(i, j int) bool { return highError[i].errorRate > highError[j].errorRate })
	sort.SliceStable(dbHeavy, func(i, j int) bool { return dbHeavy[i].avgDBQueries > dbHeavy[j].avgDBQueries })

	return &AnalysisResult{
		TotalLogsAnalyzed:  len(records),
		UniqueEndpoints:    len(stats),
		SlowEndpoints:      topSummaries(slow),
		HighErrorEndpoints: topSummaries(highError),
		DBHeavyEndpoints:   topSummaries(dbHeavy),
		Summary: CategoryCounts{
			SlowEndpointsCount:      len(slow),
			HighErrorEndpointsCount: len(highError),
			DBHeavyEndpointsCount:   len(dbHeavy),
		},
	}, nil
}

// percentile95 returns the nearest-rank 95th percentile: the element at index
// floor(n*0.95) of the ascending-sorted times, clamped to the last element.
// For n == 1 this is the single value itself.
func percentile95(times []float64) float64 {
	sorted := make([]float64, len(times))
	copy(sorted, times)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topSummaries(groups []group) []EndpointSummary {
	if len(groups) > topEndpoints {
		groups = groups[:topEndpoints]
	}
	result := make([]EndpointSummary, 0, len(groups))
	for _, g := range groups {
		result = append(result, g.summary)
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
