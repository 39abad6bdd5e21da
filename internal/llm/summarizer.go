package llm

import (
	"context"
	"fmt"

	"github.com/vigilpt/vigil/internal/model"
)

// Summarizer wraps an optional provider. A nil provider means the
// feature is off and GenerateSummary returns nothing.
type Summarizer struct {
	provider Provider
	config   model.LLMConfig
}

// NewSummarizer builds a summarizer from configuration. An empty
// provider name disables the feature.
func NewSummarizer(cfg model.LLMConfig) (*Summarizer, error) {
	s := &Summarizer{config: cfg}

	switch cfg.Provider {
	case "":
		return s, nil
	case "openai":
		provider, err := NewOpenAIProvider(cfg)
		if err != nil {
			return nil, fmt.Errorf("create openai provider: %w", err)
		}
		s.provider = provider
		return s, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the active provider's name, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary produces an advisory digest for the report. Failures
// degrade to warnings instead of failing the run: the digest is a
// convenience, the findings are the product.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.Report) (*model.AdvisorySummary, error) {
	if s.provider == nil {
		return nil, nil
	}

	summary := &model.AdvisorySummary{
		Provider: s.provider.Name(),
		Model:    s.config.Model,
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("provider %s is not available; digest skipped", s.provider.Name()))
		return summary, nil
	}

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:    report,
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("digest generation failed: %v", err))
		return summary, nil
	}

	summary.Model = resp.Model
	summary.SummaryMD = resp.Summary
	summary.Warnings = append(summary.Warnings,
		fmt.Sprintf("tokens used: %d", resp.TokensUsed))
	return summary, nil
}
