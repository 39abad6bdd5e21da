package detect

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vigilpt/vigil/internal/model"
)

// RepeatedAwards flags authority/contractor pairs awarded more contracts
// inside the rolling window than the configured threshold allows
type RepeatedAwards struct{}

// Name implements Detector
func (d *RepeatedAwards) Name() string { return model.DetectorRepeatedAwards }

// Detect implements Detector
func (d *RepeatedAwards) Detect(ctx context.Context, contracts []model.Contract, cfg *model.DetectorConfig) ([]model.Finding, []string) {
	var findings []model.Finding
	var skipped []string

	usable := func(c model.Contract) bool { return c.HasDate() }
	groups, keys := groupByPair(contracts, usable, &skipped)

	window := time.Duration(cfg.WindowDays) * 24 * time.Hour
	threshold := cfg.RepeatedAwardThreshold

	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}

		group := groups[key]
		if len(group) <= threshold {
			continue
		}

		sort.Slice(group, func(i, j int) bool {
			return group[i].PublicationDate.Before(group[j].PublicationDate)
		})

		for i := range group {
			end := group[i].PublicationDate.Add(window)

			var bucket []model.Contract
			for _, c := range group[i:] {
				if c.PublicationDate.After(end) {
					break
				}
				bucket = append(bucket, c)
			}

			if len(bucket) > threshold {
				first := bucket[0]
				findings = append(findings, model.Finding{
					Pattern:     model.PatternRepeatedAwards,
					Severity:    model.SeverityMedium,
					ContractIDs: sortedIDs(bucket),
					Description: fmt.Sprintf(
						"%d awards from %q to %q within %d days (threshold %d)",
						len(bucket), first.Authority.Name, first.Contractor.Name, cfg.WindowDays, threshold),
					Data: map[string]interface{}{
						"awards":    len(bucket),
						"threshold": threshold,
						"window":    cfg.WindowDays,
					},
				})
				break // One finding per pair
			}
		}
	}

	return findings, skipped
}
