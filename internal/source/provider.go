// Package source loads contracts from BASE portal exports and from the
// portal's search API. Both paths normalize into model.Contract so the
// detectors never see portal field names.
package source

import (
	"context"
	"fmt"
	"os"

	"github.com/vigilpt/vigil/internal/model"
)

// Provider supplies contracts for an analysis run
type Provider interface {
	Contracts(ctx context.Context) ([]model.Contract, error)
}

// LoadStats summarizes a CSV load
type LoadStats struct {
	Rows    int // Data rows seen
	Loaded  int // Contracts produced
	Skipped int // Rows without a usable contract id
}

// CSVProvider reads a contracts export downloaded from the open-data
// portal. Field names vary between dataset vintages, so headers are
// resolved through aliases.
type CSVProvider struct {
	Path string

	stats LoadStats
}

// NewCSVProvider creates a provider for a contracts CSV export
func NewCSVProvider(path string) *CSVProvider {
	return &CSVProvider{Path: path}
}

// Contracts implements Provider
func (p *CSVProvider) Contracts(ctx context.Context) ([]model.Contract, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("open contracts export: %w", err)
	}
	defer func() { _ = f.Close() }()

	contracts, stats, err := ParseCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.Path, err)
	}
	p.stats = stats
	return contracts, nil
}

// Stats returns counters from the most recent load
func (p *CSVProvider) Stats() LoadStats {
	return p.stats
}

// StaticProvider wraps an in-memory contract slice; used by batch jobs
// that already hold parsed contracts.
type StaticProvider struct {
	Items []model.Contract
}

// Contracts implements Provider
func (p *StaticProvider) Contracts(context.Context) ([]model.Contract, error) {
	return p.Items, nil
}

var _ Provider = (*CSVProvider)(nil)
var _ Provider = (*StaticProvider)(nil)
