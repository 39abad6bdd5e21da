// Package pipeline wires contract loading, pattern detection, conflict
// analysis and rendering into one run.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/vigilpt/vigil/internal/alert"
	"github.com/vigilpt/vigil/internal/conflict"
	"github.com/vigilpt/vigil/internal/detect"
	"github.com/vigilpt/vigil/internal/llm"
	"github.com/vigilpt/vigil/internal/model"
	"github.com/vigilpt/vigil/internal/registry"
	"github.com/vigilpt/vigil/internal/report"
	"github.com/vigilpt/vigil/internal/source"
)

// Pipeline orchestrates a complete analysis run
type Pipeline struct {
	config     *model.Config
	registry   *registry.Registry
	analyzer   *conflict.Analyzer
	alerts     *alert.Manager
	summarizer *llm.Summarizer // nil when disabled
	runs       *detect.RunStore
}

// New creates a pipeline from configuration. The association registry
// is loaded from cfg.RegistryPath when set.
func New(cfg *model.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := registry.New()
	if cfg.RegistryPath != "" {
		if err := reg.Load(cfg.RegistryPath); err != nil {
			return nil, fmt.Errorf("load registry: %w", err)
		}
	}

	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(cfg.LLM)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: LLM provider unavailable: %v\n", err)
		} else {
			summarizer = s
		}
	}

	classifier := conflict.NewKeywordClassifier(cfg.Classifier)
	return &Pipeline{
		config:     cfg,
		registry:   reg,
		analyzer:   conflict.NewAnalyzer(reg, classifier),
		alerts:     alert.NewManager(),
		summarizer: summarizer,
		runs:       detect.NewRunStore(),
	}, nil
}

// Registry exposes the association registry for management commands
func (p *Pipeline) Registry() *registry.Registry {
	return p.registry
}

// Alerts exposes the watchlist manager
func (p *Pipeline) Alerts() *alert.Manager {
	return p.alerts
}

// Run retrieves a stored run result by id
func (p *Pipeline) Run(id string) (*detect.RunResult, bool) {
	return p.runs.Get(id)
}

// Analyze runs the detectors and the conflict analyzer over a contract
// snapshot and assembles the report. sourceName labels the dataset in
// the output.
func (p *Pipeline) Analyze(ctx context.Context, sourceName string, contracts []model.Contract) (*model.Report, error) {
	run, err := detect.Run(ctx, contracts, p.config)
	if err != nil {
		return nil, fmt.Errorf("run detectors: %w", err)
	}
	p.runs.Put(run)

	conflicts, err := p.analyzer.Analyze(ctx, run.RunID, contracts)
	if err != nil {
		return nil, fmt.Errorf("analyze conflicts: %w", err)
	}

	p.alerts.Evaluate(contracts)

	rep := &model.Report{
		RunID:       run.RunID,
		Source:      sourceName,
		GeneratedAt: run.StartedAt,
		Contracts:   run.Contracts,
		Skipped:     run.Skipped,
		Elapsed:     run.Elapsed,
		Findings:    run.Findings,
		Conflicts:   conflicts,
	}

	// Advisory digest comes last and never alters findings
	if p.summarizer != nil && p.summarizer.IsEnabled() {
		advisory, err := p.summarizer.GenerateSummary(ctx, *rep)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: advisory summary failed: %v\n", err)
		} else if advisory != nil {
			rep.Advisory = advisory
		}
	}

	return rep, nil
}

// AnalyzeProvider loads contracts from a provider and analyzes them
func (p *Pipeline) AnalyzeProvider(ctx context.Context, sourceName string, provider source.Provider) (*model.Report, error) {
	contracts, err := provider.Contracts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load contracts: %w", err)
	}
	return p.Analyze(ctx, sourceName, contracts)
}

// AnalyzeFile analyzes one CSV export; it satisfies the batch worker's
// Analyzer interface.
func (p *Pipeline) AnalyzeFile(ctx context.Context, path string) (*model.Report, error) {
	return p.AnalyzeProvider(ctx, path, source.NewCSVProvider(path))
}

// RenderReport writes the report to the optional JSON and Markdown
// paths and prints the text summary to stdout
func (p *Pipeline) RenderReport(rep *model.Report, jsonPath, mdPath string) error {
	if err := p.RenderFiles(rep, jsonPath, mdPath); err != nil {
		return err
	}
	return (&report.TextRenderer{}).Render(os.Stdout, rep)
}

// RenderFiles writes the report to the optional JSON and Markdown paths
// without the stdout summary. Batch runs use this to keep stdout quiet.
func (p *Pipeline) RenderFiles(rep *model.Report, jsonPath, mdPath string) error {
	if jsonPath != "" {
		if err := renderToFile(&report.JSONRenderer{}, jsonPath, rep); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if p.config.Output.Verbose {
			fmt.Fprintf(os.Stderr, "wrote %s\n", jsonPath)
		}
	}
	if mdPath != "" {
		if err := renderToFile(&report.MarkdownRenderer{IncludeFooter: p.config.Output.IncludeFooter}, mdPath, rep); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if p.config.Output.Verbose {
			fmt.Fprintf(os.Stderr, "wrote %s\n", mdPath)
		}
	}
	return nil
}

func renderToFile(r report.Renderer, path string, rep *model.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Render(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
