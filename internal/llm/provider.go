// Package llm produces an optional advisory digest of an analysis
// report. The digest never feeds back into detection; it is rendered
// in a clearly separated section.
package llm

import (
	"context"
	"fmt"

	"github.com/vigilpt/vigil/internal/model"
)

// Provider is one LLM backend
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates an advisory digest of the report
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest is the input for digest generation
type SummarizeRequest struct {
	Report model.Report

	// Prompt overrides the default prompt when set
	Prompt string

	// Model picks a provider-specific model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse is the digest output
type SummarizeResponse struct {
	Summary    string
	Model      string
	TokensUsed int
}

// BuildPrompt constructs the default digest prompt. The rules keep the
// model descriptive: it may only restate findings that are already in
// the report, never add suspicions of its own.
func BuildPrompt(report model.Report) string {
	prompt := fmt.Sprintf(`You are summarizing an automated public-procurement analysis report.

CRITICAL RULES:
1. ONLY describe the findings listed below. DO NOT invent findings, names or amounts.
2. DO NOT accuse anyone of wrongdoing. These are statistical patterns, not proof.
3. Use phrases like "the analysis flagged..." or "N contracts matched the pattern...".
4. If there are no findings, say the run was clean.

Run summary:
- Contracts analyzed: %d
- Records skipped: %d
- Pattern findings: %d
- Conflict-of-interest findings: %d

Findings:
`, report.Contracts, report.Skipped, len(report.Findings), len(report.Conflicts))

	for i, f := range report.Findings {
		if i >= 10 {
			prompt += fmt.Sprintf("... and %d more findings\n", len(report.Findings)-10)
			break
		}
		prompt += fmt.Sprintf("- [%s/%s] %s\n", f.Severity, f.Pattern, f.Description)
	}
	for i, c := range report.Conflicts {
		if i >= 10 {
			prompt += fmt.Sprintf("... and %d more conflicts\n", len(report.Conflicts)-10)
			break
		}
		prompt += fmt.Sprintf("- [%s/%s] %s\n", c.Severity, c.Rationale, c.Description)
	}

	prompt += "\nProvide a 3-4 sentence digest for a journalist triaging these results."
	return prompt
}
