package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vigilpt/vigil/internal/model"
)

// stubAnalyzer implements Analyzer
type stubAnalyzer struct {
	shouldErr bool
}

func (a *stubAnalyzer) AnalyzeFile(ctx context.Context, path string) (*model.Report, error) {
	time.Sleep(5 * time.Millisecond)
	if a.shouldErr {
		return nil, errors.New("analysis error")
	}
	return &model.Report{RunID: "run", Source: path, Contracts: 1}, nil
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessFiles_AllSucceed(t *testing.T) {
	p := NewBatchProcessor(&stubAnalyzer{}, 2)

	paths := []string{"b.csv", "a.csv", "c.csv"}
	results := p.ProcessFiles(context.Background(), paths)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Results come back in path order, not completion order
	for i, want := range []string{"a.csv", "b.csv", "c.csv"} {
		if results[i].Path != want {
			t.Errorf("position %d: expected %s, got %s", i, want, results[i].Path)
		}
	}
	for _, r := range results {
		if r.Err() != nil {
			t.Errorf("unexpected error for %s: %v", r.Path, r.Err())
		}
		if r.Report == nil || r.Report.Source != r.Path {
			t.Errorf("report misattributed for %s: %+v", r.Path, r.Report)
		}
	}
}

func TestProcessFiles_ErrorsDoNotStopBatch(t *testing.T) {
	p := NewBatchProcessor(&stubAnalyzer{shouldErr: true}, 2)

	results := p.ProcessFiles(context.Background(), []string{"x.csv"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Err() == nil {
		t.Error("expected error surfaced in result")
	}
	if results[0].Report != nil {
		t.Error("expected nil report on error")
	}
}

func TestProcessFiles_Empty(t *testing.T) {
	p := NewBatchProcessor(&stubAnalyzer{}, 2)
	if results := p.ProcessFiles(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestProcessManifest(t *testing.T) {
	path := writeManifest(t, "a.csv\n# comment\n\nb.csv\na.csv\n")
	p := NewBatchProcessor(&stubAnalyzer{}, 2)

	results, err := p.ProcessManifest(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessManifest: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results after dedup, got %d", len(results))
	}
}

func TestProcessManifest_MissingFile(t *testing.T) {
	p := NewBatchProcessor(&stubAnalyzer{}, 2)
	if _, err := p.ProcessManifest(context.Background(), "no_such_manifest.txt"); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestReadManifest(t *testing.T) {
	path := writeManifest(t, "data/jan.csv\n# skip me\n\n  data/feb.csv  \ndata/jan.csv\n")

	paths, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}

	want := []string{"data/jan.csv", "data/feb.csv"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %d: %v", len(want), len(paths), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
}
