package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/perflens/perflens/internal/advisor"
	"github.com/perflens/perflens/internal/analyzer"
	"github.com/perflens/perflens/internal/db"
	"github.com/perflens/perflens/internal/monitor"
)

type stubProvider struct {
	advice string
	err    error
	calls  int
}

func (s *stubProvider) ID() string      { return "stub" }
func (s *stubProvider) IsEnabled() bool { return true }

func (s *stubProvider) GenerateAdvice(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.advice, s.err
}

func newTestMonitor(t *testing.T) *monitor.Monitor {
	t.Helper()
	database, err := db.InitDB(filepath.Join(t.TempDir(), "handlers_test.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	return monitor.NewMonitor(database)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func logsBody(useAI bool, logs ...analyzer.LogRecord) string {
	payload, _ := json.Marshal(map[string]any{"logs": logs, "use_ai": useAI})
	return string(payload)
}

func TestAnalyzeHandler_FullResponse(t *testing.T) {
	provider := &stubProvider{advice: "add caching"}
	handler := AnalyzeHandler(analyzer.NewDefault(), advisor.New(provider), newTestMonitor(t))

	var logs []analyzer.LogRecord
	for i := 0; i < 4; i++ {
		logs = append(logs, analyzer.LogRecord{Endpoint: "/api/slow", ResponseTimeMs: 900, StatusCode: 200, DBQueryCount: 7})
	}

	rr := postJSON(t, handler, logsBody(true, logs...))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Analysis.TotalLogsAnalyzed != 4 || resp.Analysis.UniqueEndpoints != 1 {
		t.Fatalf("analysis totals wrong: %+v", resp.Analysis)
	}
	if resp.Analysis.Summary.SlowEndpointsCount != 1 || resp.Analysis.Summary.DBHeavyEndpointsCount != 1 {
		t.Fatalf("summary wrong: %+v", resp.Analysis.Summary)
	}
	if resp.AIRecommendations == nil || resp.AIRecommendations.Status != advisor.StatusBottlenecks {
		t.Fatalf("expected bottlenecks_detected recommendation, got %+v", resp.AIRecommendations)
	}
	if resp.AIRecommendations.AIAnalysis != "add caching" {
		t.Fatalf("ai_analysis = %q", resp.AIRecommendations.AIAnalysis)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
}

func TestAnalyzeHandler_EmptyLogs(t *testing.T) {
	handler := AnalyzeHandler(analyzer.NewDefault(), advisor.New(nil), newTestMonitor(t))

	rr := postJSON(t, handler, `{"logs": []}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "No logs provided") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestAnalyzeHandler_InvalidBody(t *testing.T) {
	handler := AnalyzeHandler(analyzer.NewDefault(), advisor.New(nil), newTestMonitor(t))

	rr := postJSON(t, handler, `{"logs": "nope"`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestAnalyzeHandler_NegativeResponseTimeRejected(t *testing.T) {
	handler := AnalyzeHandler(analyzer.NewDefault(), advisor.New(nil), newTestMonitor(t))

	rr := postJSON(t, handler, `{"logs":[{"endpoint":"/a","response_time_ms":-5,"status_code":200}]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for negative response time", rr.Code)
	}
}

// Advice is skipped entirely when nothing crosses a threshold.
func TestAnalyzeHandler_HealthySkipsProvider(t *testing.T) {
	provider := &stubProvider{advice: "unused"}
	handler := AnalyzeHandler(analyzer.NewDefault(), advisor.New(provider), newTestMonitor(t))

	rr := postJSON(t, handler, logsBody(true, analyzer.LogRecord{Endpoint: "/fast", ResponseTimeMs: 10, StatusCode: 200}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AIRecommendations.Status != advisor.StatusHealthy {
		t.Fatalf("status = %q, want healthy", resp.AIRecommendations.Status)
	}
	if provider.calls != 0 {
		t.Fatal("provider must not be called for a healthy result")
	}
}

// Provider failure surfaces as an advice error status with the analysis intact.
func TestAnalyzeHandler_AdviceFailureKeepsAnalysis(t *testing.T) {
	provider := &stubProvider{err: &advisor.ProviderError{Provider: "stub", Status: 503, Err: fmt.Errorf("upstream down")}}
	handler := AnalyzeHandler(analyzer.NewDefault(), advisor.New(provider), newTestMonitor(t))

	rr := postJSON(t, handler, logsBody(true, analyzer.LogRecord{Endpoint: "/slow", ResponseTimeMs: 900, StatusCode: 200}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, advice failure must not fail the request", rr.Code)
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Analysis == nil || resp.Analysis.Summary.SlowEndpointsCount != 1 {
		t.Fatalf("analysis missing or wrong: %+v", resp.Analysis)
	}
	if resp.AIRecommendations.Status != advisor.StatusError {
		t.Fatalf("advice status = %q, want error", resp.AIRecommendations.Status)
	}
}

func TestAnalyzeHandler_UseAIFalse(t *testing.T) {
	provider := &stubProvider{advice: "unused"}
	handler := AnalyzeHandler(analyzer.NewDefault(), advisor.New(provider), newTestMonitor(t))

	rr := postJSON(t, handler, logsBody(false, analyzer.LogRecord{Endpoint: "/slow", ResponseTimeMs: 900, StatusCode: 200}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AIRecommendations != nil {
		t.Fatalf("expected no recommendations with use_ai=false, got %+v", resp.AIRecommendations)
	}
	if provider.calls != 0 {
		t.Fatal("provider must not be called with use_ai=false")
	}
}

// use_ai omitted defaults to true.
func TestAnalyzeHandler_UseAIDefaultsTrue(t *testing.T) {
	provider := &stubProvider{advice: "tune the pool"}
	handler := AnalyzeHandler(analyzer.NewDefault(), advisor.New(provider), newTestMonitor(t))

	rr := postJSON(t, handler, `{"logs":[{"endpoint":"/slow","response_time_ms":900,"status_code":200}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1 (use_ai defaults to true)", provider.calls)
	}
}

func TestAnalyzeHandler_RecordsRun(t *testing.T) {
	mon := newTestMonitor(t)
	handler := AnalyzeHandler(analyzer.NewDefault(), advisor.New(nil), mon)

	rr := postJSON(t, handler, logsBody(false, analyzer.LogRecord{Endpoint: "/slow", ResponseTimeMs: 900, StatusCode: 500}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	stats := mon.Stats()
	if stats.TotalRuns != 1 || stats.BottleneckRuns != 1 {
		t.Fatalf("monitor stats = %+v", stats)
	}
	runs := mon.Recent(1, 0)
	if len(runs) != 1 || runs[0].TotalLogs != 1 || runs[0].SlowCount != 1 || runs[0].HighErrorCount != 1 {
		t.Fatalf("recorded run wrong: %+v", runs)
	}
}

func TestQuickAnalyzeHandler(t *testing.T) {
	handler := QuickAnalyzeHandler(analyzer.NewDefault(), newTestMonitor(t))

	body := `[
		{"endpoint":"/slow","response_time_ms":900,"status_code":200},
		{"endpoint":"/errors","response_time_ms":50,"status_code":500}
	]`
	req := httptest.NewRequest(http.MethodPost, "/quick-analyze", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Summary          analyzer.CategoryCounts   `json:"summary"`
		TopSlowEndpoint  *analyzer.EndpointSummary `json:"top_slow_endpoint"`
		TopErrorEndpoint *analyzer.EndpointSummary `json:"top_error_endpoint"`
		TotalLogs        int                       `json:"total_logs"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalLogs != 2 {
		t.Errorf("total_logs = %d, want 2", resp.TotalLogs)
	}
	if resp.TopSlowEndpoint == nil || resp.TopSlowEndpoint.Endpoint != "/slow" {
		t.Errorf("top_slow_endpoint = %+v", resp.TopSlowEndpoint)
	}
	if resp.TopErrorEndpoint == nil || resp.TopErrorEndpoint.Endpoint != "/errors" {
		t.Errorf("top_error_endpoint = %+v", resp.TopErrorEndpoint)
	}
}

func TestQuickAnalyzeHandler_EmptyArray(t *testing.T) {
	handler := QuickAnalyzeHandler(analyzer.NewDefault(), newTestMonitor(t))

	req := httptest.NewRequest(http.MethodPost, "/quick-analyze", strings.NewReader(`[]`))
	rr := httptest.NewRecorder()
	handler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
