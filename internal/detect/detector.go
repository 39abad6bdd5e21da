package detect

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vigilpt/vigil/internal/match"
	"github.com/vigilpt/vigil/internal/model"
)

// Detector is one independent suspicious-pattern rule. Detectors never
// mutate the contract snapshot; running order is irrelevant.
type Detector interface {
	// Name returns the detector name used in the enabled-set
	Name() string

	// Detect analyzes the snapshot and returns findings plus the ids of
	// contracts it had to skip for missing or malformed fields.
	Detect(ctx context.Context, contracts []model.Contract, cfg *model.DetectorConfig) ([]model.Finding, []string)
}

// RunResult is the outcome of one pipeline run, keyed by RunID so that
// concurrent or repeated analyses never clobber each other.
type RunResult struct {
	RunID     string
	Findings  []model.Finding
	Contracts int
	Skipped   int // Contracts excluded by at least one detector
	Elapsed   time.Duration
	StartedAt time.Time
}

// All returns every detector in registration order
func All() []Detector {
	return []Detector{
		&ValueNearThreshold{},
		&IllegalFragmentation{},
		&RepeatedAwards{},
		&ProcedureMismatch{},
		&ComputedRoundValue{},
	}
}

// Run executes the enabled detectors over an immutable contract snapshot.
// Cancellation is checked between detector passes; group-processing
// detectors additionally check between contract groups. A bad record only
// affects its own contribution — the run itself never aborts.
func Run(ctx context.Context, contracts []model.Contract, cfg *model.Config) (*RunResult, error) {
	start := time.Now()

	result := &RunResult{
		RunID:     uuid.NewString(),
		Contracts: len(contracts),
		StartedAt: start.UTC(),
	}

	skipped := make(map[string]struct{})

	for _, det := range All() {
		if !cfg.DetectorEnabled(det.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		findings, skippedIDs := det.Detect(ctx, contracts, &cfg.Detector)
		result.Findings = append(result.Findings, findings...)
		for _, id := range skippedIDs {
			skipped[id] = struct{}{}
		}
	}

	for i := range result.Findings {
		result.Findings[i].GeneratedAt = result.StartedAt
	}

	sortFindings(result.Findings)

	result.Skipped = len(skipped)
	result.Elapsed = time.Since(start)
	return result, nil
}

// sortFindings orders findings by severity (desc) then by lowest related
// contract id (asc) for deterministic presentation
func sortFindings(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if r1, r2 := findings[i].Severity.Rank(), findings[j].Severity.Rank(); r1 != r2 {
			return r1 > r2
		}
		if a, b := lowestID(findings[i]), lowestID(findings[j]); a != b {
			return a < b
		}
		return findings[i].Pattern < findings[j].Pattern
	})
}

func lowestID(f model.Finding) string {
	if len(f.ContractIDs) == 0 {
		return ""
	}
	low := f.ContractIDs[0]
	for _, id := range f.ContractIDs[1:] {
		if id < low {
			low = id
		}
	}
	return low
}

// pairKey identifies a contracting-authority/contractor pair. Tax ids take
// precedence over normalized names when present.
func pairKey(c model.Contract) string {
	return partyKey(c.Authority) + "|" + partyKey(c.Contractor)
}

func partyKey(p model.Party) string {
	if p.TaxID != "" {
		return "nif:" + p.TaxID
	}
	return "name:" + match.Normalize(p.Name)
}

// groupByPair buckets contracts by authority/contractor pair, preserving
// input order inside each bucket. Keys come back sorted so group iteration
// is deterministic.
func groupByPair(contracts []model.Contract, usable func(model.Contract) bool, skipped *[]string) (map[string][]model.Contract, []string) {
	groups := make(map[string][]model.Contract)
	for _, c := range contracts {
		if !usable(c) {
			*skipped = append(*skipped, c.ID)
			continue
		}
		key := pairKey(c)
		groups[key] = append(groups[key], c)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return groups, keys
}

func sortedIDs(contracts []model.Contract) []string {
	ids := make([]string, len(contracts))
	for i, c := range contracts {
		ids[i] = c.ID
	}
	sort.Strings(ids)
	return ids
}
