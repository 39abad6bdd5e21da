package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigilpt/vigil/internal/pipeline"
	"github.com/vigilpt/vigil/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Analyze multiple contract exports in parallel",
	Long: `Batch analyzes many contract CSV exports concurrently:
- Read file paths from a manifest (one per line, # for comments)
- Analyze files in parallel with a configurable worker count
- Write a JSON and a Markdown report per file

Example:
  vigil batch exports.txt
  vigil batch exports.txt --concurrency 8 --output-dir ./reports
  vigil batch exports.txt --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./vigil-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&registryPath, "registry", "", "association registry file (default: $HOME/.vigil/registry.json)")
	batchCmd.Flags().StringSliceVar(&disabled, "disable", nil, "detectors to disable")
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Vigil Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Manifest:   %s\n", manifest)
	fmt.Fprintf(os.Stderr, "  Workers:    %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir: %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:    %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Concurrency.Workers = concurrency

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(p, concurrency)

	results, err := processor.ProcessManifest(ctx, manifest)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing %d files with %d workers...\n", len(results), concurrency)
	fmt.Fprintf(os.Stderr, "\n")

	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}
		successCount++

		slug := reportSlug(result.Path)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")
		if err := p.RenderFiles(result.Report, jsonPath, mdPath); err != nil {
			failureCount++
			successCount--
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, err)
			continue
		}

		fmt.Fprintf(os.Stderr, "✓ %s (%d contracts, %d findings, %d conflicts)\n",
			result.Path, result.Report.Contracts, len(result.Report.Findings), len(result.Report.Conflicts))
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:    %d files\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:  %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures: %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d files failed", failureCount, len(results))
	}
	return nil
}

// reportSlug derives a filesystem-safe report name from a contracts path
func reportSlug(path string) string {
	s := filepath.Base(path)
	s = strings.TrimSuffix(s, filepath.Ext(s))

	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "-",
	)
	s = replacer.Replace(s)

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "report"
	}
	return s
}
