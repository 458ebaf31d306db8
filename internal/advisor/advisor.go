package advisor

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/perflens/perflens/internal/analyzer"
	"github.com/perflens/perflens/internal/metrics"
	"github.com/perflens/perflens/internal/util"
)

// Recommendation statuses surfaced alongside an analysis result.
const (
	StatusHealthy     = "healthy"
	StatusBottlenecks = "bottlenecks_detected"
	StatusError       = "error"
	StatusDisabled    = "disabled"
)

// ErrMissingCredentials indicates a provider was selected but has no API
// credentials configured.
var ErrMissingCredentials = errors.New("missing API credentials")

// Provider generates free-form remediation advice for a prompt. One
// implementation exists per advice backend; selection happens at construction
// time, never inside the core.
type Provider interface {
	ID() string
	IsEnabled() bool
	GenerateAdvice(ctx context.Context, prompt string) (string, error)
}

// ProviderError wraps a backend failure (credentials, network, rate limit)
// with the provider identity and upstream HTTP status when known.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider %s: upstream status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Recommendation is the advice payload returned next to an AnalysisResult.
type Recommendation struct {
	Status         string   `json:"status"`
	Message        string   `json:"message,omitempty"`
	AIAnalysis     string   `json:"ai_analysis,omitempty"`
	IssuesAnalyzed int      `json:"issues_analyzed,omitempty"`
	RawIssues      []string `json:"raw_issues,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Advisor turns extracted issues into remediation advice via its provider.
type Advisor struct {
	provider Provider
}

// New creates an Advisor. A nil provider is valid and yields disabled
// recommendations.
func New(provider Provider) *Advisor {
	return &Advisor{provider: provider}
}

// Ready reports whether the advisor can reach a configured provider.
func (a *Advisor) Ready() error {
	if a == nil || a.provider == nil {
		return errors.New("no advice provider configured")
	}
	if !a.provider.IsEnabled() {
		return &ProviderError{Provider: a.provider.ID(), Err: ErrMissingCredentials}
	}
	return nil
}

// ProviderID returns the configured provider id, or empty when disabled.
func (a *Advisor) ProviderID() string {
	if a == nil || a.provider == nil {
		return ""
	}
	return a.provider.ID()
}

// Recommend generates advice for the given issues. An empty issue list means
// no significant bottlenecks: the provider is not called at all. Provider
// failures are reported in the recommendation status, never as an error, so a
// failed advice call can never block returning the analysis result.
func (a *Advisor) Recommend(ctx context.Context, issues []string, result *analyzer.AnalysisResult) *Recommendation {
	if len(issues) == 0 {
		return &Recommendation{
			Status:  StatusHealthy,
			Message: "No significant bottlenecks detected",
		}
	}

	if err := a.Ready(); err != nil {
		return &Recommendation{
			Status:  StatusDisabled,
			Message: err.Error(),
		}
	}

	prompt := BuildPrompt(issues, result)
	advice, err := a.provider.GenerateAdvice(ctx, prompt)
	if err != nil {
		log.Printf("[Advisor] %s advice call failed: %v", a.provider.ID(), err)
		metrics.AdviceRequests.WithLabelValues(a.provider.ID(), StatusError).Inc()
		return &Recommendation{
			Status:  StatusError,
			Error:   err.Error(),
			Message: "Failed to get AI analysis",
		}
	}

	log.Printf("[Advisor] %s advice generated for %d issues: %s",
		a.provider.ID(), len(issues), util.TruncateLog(advice, util.DefaultLogMaxLen))
	metrics.AdviceRequests.WithLabelValues(a.provider.ID(), StatusBottlenecks).Inc()

	return &Recommendation{
		Status:         StatusBottlenecks,
		AIAnalysis:     advice,
		IssuesAnalyzed: len(issues),
		RawIssues:      issues,
	}
}
