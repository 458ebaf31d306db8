package models

// AnalysisRun stores the summary of one analyze call for monitoring. The
// ingested log records themselves are never persisted.
type AnalysisRun struct {
	ID              string `gorm:"primaryKey" json:"id"`
	Timestamp       int64  `gorm:"index" json:"timestamp"`
	DurationMs      int64  `json:"duration_ms"`
	TotalLogs       int    `json:"total_logs"`
	UniqueEndpoints int    `json:"unique_endpoints"`
	SlowCount       int    `json:"slow_count"`
	HighErrorCount  int    `json:"high_error_count"`
	DBHeavyCount    int    `json:"db_heavy_count"`
	AdviceStatus    string `gorm:"index" json:"advice_status,omitempty"`
	AdviceProvider  string `json:"advice_provider,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Bottlenecked reports whether any endpoint crossed a threshold in this run.
func (r *AnalysisRun) Bottlenecked() bool {
	return r.SlowCount > 0 || r.HighErrorCount > 0 || r.DBHeavyCount > 0
}

// RunStats holds aggregated statistics over recorded analysis runs.
type RunStats struct {
	TotalRuns      int64 `json:"total_runs"`
	HealthyRuns    int64 `json:"healthy_runs"`
	BottleneckRuns int64 `json:"bottleneck_runs"`
}
