package advisor

import (
	"fmt"
	"strings"

	"github.com/perflens/perflens/internal/analyzer"
)

// SystemPrompt frames the model as a backend performance engineer. Backends
// send it alongside the user prompt in whatever shape their API expects.
const SystemPrompt = "You are an expert backend performance engineer specializing in API optimization, " +
	"database query optimization, and microservices architecture. Analyze API performance bottlenecks " +
	"and provide actionable, code-level recommendations."

// BuildPrompt renders the detected issues and overall statistics into the
// analysis prompt sent to the advice provider.
func BuildPrompt(issues []string, result *analyzer.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("Analyze these API performance bottlenecks and provide detailed recommendations:\n\n")
	b.WriteString("DETECTED ISSUES:\n")
	for i, issue := range issues {
		fmt.Fprintf(&b, "%d. %s\n", i+1, issue)
	}

	b.WriteString("\nOVERALL STATISTICS:\n")
	fmt.Fprintf(&b, "- Total logs analyzed: %d\n", result.TotalLogsAnalyzed)
	fmt.Fprintf(&b, "- Unique endpoints: %d\n", result.UniqueEndpoints)
	fmt.Fprintf(&b, "- Slow endpoints: %d\n", result.Summary.SlowEndpointsCount)
	fmt.Fprintf(&b, "- High error rate endpoints: %d\n", result.Summary.HighErrorEndpointsCount)
	fmt.Fprintf(&b, "- DB-heavy endpoints: %d\n", result.Summary.DBHeavyEndpointsCount)

	b.WriteString(`
Please provide:

1. **ROOT CAUSE ANALYSIS**: What's likely causing each bottleneck?

2. **IMMEDIATE FIXES** (Quick wins):
   - Caching strategies
   - Index recommendations
   - Query optimization tips

3. **CODE-LEVEL SUGGESTIONS**:
   - Example code snippets for optimization
   - Specific database index recommendations
   - API design improvements

4. **ARCHITECTURE RECOMMENDATIONS**:
   - Should any endpoints be async?
   - Microservice decomposition suggestions
   - Load balancing considerations

5. **MONITORING IMPROVEMENTS**:
   - What additional metrics to track
   - Alert thresholds to set

Format your response in clear sections with actionable items.`)

	return b.String()
}
