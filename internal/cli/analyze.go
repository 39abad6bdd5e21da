package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vigilpt/vigil/internal/alert"
	"github.com/vigilpt/vigil/internal/model"
	"github.com/vigilpt/vigil/internal/pipeline"
)

// isTaxID reports whether a watch argument looks like a NIF
func isTaxID(s string) bool {
	if len(s) != 9 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var (
	outJSON      string
	outMD        string
	timeout      time.Duration
	registryPath string
	disabled     []string
	directCap    string
	consultCap   string
	windowDays   int
	llmEnabled   bool
	llmModel     string
	watchNames   []string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <contracts.csv>",
	Short: "Analyze a contracts export for suspicious patterns",
	Long: `Analyze runs every enabled detector over a contracts CSV export
and cross-references the association registry for conflicts of interest.

Example:
  vigil analyze contratos_2024.csv
  vigil analyze contratos_2024.csv --json report.json --md report.md
  vigil analyze contratos_2024.csv --disable computed_round_value
  vigil analyze contratos_2024.csv --llm --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().StringVar(&registryPath, "registry", "", "association registry file (default: $HOME/.vigil/registry.json)")
	analyzeCmd.Flags().StringSliceVar(&disabled, "disable", nil, "detectors to disable")
	analyzeCmd.Flags().StringVar(&directCap, "direct-award-cap", "", "override the direct award cap (EUR)")
	analyzeCmd.Flags().StringVar(&consultCap, "prior-consultation-cap", "", "override the prior consultation cap (EUR)")
	analyzeCmd.Flags().IntVar(&windowDays, "window-days", 0, "override the detection window in days")
	analyzeCmd.Flags().StringSliceVar(&watchNames, "watch", nil, "entity names (or NIFs) to raise alerts for")

	analyzeCmd.Flags().BoolVar(&llmEnabled, "llm", false, "generate an advisory LLM digest")
	analyzeCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

// buildConfig assembles the run configuration from defaults and flags
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.Output.Verbose = verbose

	cfg.RegistryPath = registryPath
	if cfg.RegistryPath == "" {
		cfg.RegistryPath = defaultRegistryPath()
	}

	for _, name := range disabled {
		cfg.Detector.Enabled[name] = false
	}
	if directCap != "" {
		v, err := decimal.NewFromString(directCap)
		if err != nil {
			return nil, fmt.Errorf("invalid --direct-award-cap: %w", err)
		}
		cfg.Detector.DirectAwardCap = v
	}
	if consultCap != "" {
		v, err := decimal.NewFromString(consultCap)
		if err != nil {
			return nil, fmt.Errorf("invalid --prior-consultation-cap: %w", err)
		}
		cfg.Detector.PriorConsultationCap = v
	}
	if windowDays > 0 {
		cfg.Detector.WindowDays = windowDays
	}

	if llmEnabled {
		cfg.LLM.Provider = "openai"
		cfg.LLM.Model = llmModel
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", path)
		fmt.Fprintf(os.Stderr, "Registry:  %s\n", cfg.RegistryPath)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	for _, name := range watchNames {
		entry := alert.WatchEntry{Name: name, Active: true}
		if isTaxID(name) {
			entry.TaxID = name
		}
		if err := p.Alerts().Watch(entry); err != nil {
			return err
		}
	}

	rep, err := p.AnalyzeFile(ctx, path)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	for _, a := range p.Alerts().Unread() {
		fmt.Fprintf(os.Stderr, "⚠ [%s] %s\n", a.Kind, a.Message)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Analyzed %d contracts (%d skipped)\n", rep.Contracts, rep.Skipped)
		fmt.Fprintf(os.Stderr, "✓ %d pattern findings, %d conflicts\n", len(rep.Findings), len(rep.Conflicts))
		fmt.Fprintln(os.Stderr)
	}

	if err := p.RenderReport(rep, outJSON, outMD); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
