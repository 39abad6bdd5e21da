package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vigilpt/vigil/internal/model"
)

// Analyzer runs one full analysis over a contracts file
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path string) (*model.Report, error)
}

// AnalyzeJob analyzes one contracts export
type AnalyzeJob struct {
	Path     string
	Analyzer Analyzer
}

// Execute implements Job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	report, err := j.Analyzer.AnalyzeFile(ctx, j.Path)
	return &AnalyzeResult{Path: j.Path, Report: report, Error: err}
}

// AnalyzeResult is the outcome for one file
type AnalyzeResult struct {
	Path   string
	Report *model.Report
	Error  error
}

// Err implements Result
func (r *AnalyzeResult) Err() error {
	return r.Error
}

// BatchProcessor analyzes many contract files concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{analyzer: analyzer, concurrency: concurrency}
}

// ProcessFiles analyzes every path and returns the results ordered by
// path, so batch output is stable regardless of completion order
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*AnalyzeResult {
	if len(paths) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	stop := context.AfterFunc(ctx, pool.Shutdown)
	defer stop()

	for _, path := range paths {
		pool.Submit(&AnalyzeJob{Path: path, Analyzer: b.analyzer})
	}

	raw := pool.Wait()
	results := make([]*AnalyzeResult, 0, len(raw))
	for _, r := range raw {
		results = append(results, r.(*AnalyzeResult))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results
}

// ProcessManifest reads a manifest of contract files and analyzes them
func (b *BatchProcessor) ProcessManifest(ctx context.Context, manifestPath string) ([]*AnalyzeResult, error) {
	paths, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return b.ProcessFiles(ctx, paths), nil
}

// ReadManifest reads file paths from a manifest, one per line. Blank
// lines and # comments are skipped, duplicates collapsed.
func ReadManifest(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return paths, nil
}
