package detect

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vigilpt/vigil/internal/model"
)

// IllegalFragmentation flags groups of small contracts between the same
// authority/contractor pair whose combined value exceeds the direct-award
// cap inside a rolling window — one economic need split to stay under the
// lighter procedure.
type IllegalFragmentation struct{}

// Name implements Detector
func (d *IllegalFragmentation) Name() string { return model.DetectorIllegalFragmentation }

// Detect implements Detector
func (d *IllegalFragmentation) Detect(ctx context.Context, contracts []model.Contract, cfg *model.DetectorConfig) ([]model.Finding, []string) {
	var findings []model.Finding
	var skipped []string

	usable := func(c model.Contract) bool { return c.HasValue() && c.HasDate() }
	groups, keys := groupByPair(contracts, usable, &skipped)

	window := time.Duration(cfg.WindowDays) * 24 * time.Hour
	cap := cfg.DirectAwardCap

	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}

		// Only individually-below-cap contracts can form a fragmentation set
		group := groups[key]
		var small []model.Contract
		for _, c := range group {
			if c.Value.LessThan(cap) {
				small = append(small, c)
			}
		}
		if len(small) < 2 {
			continue
		}

		sort.Slice(small, func(i, j int) bool {
			return small[i].PublicationDate.Before(small[j].PublicationDate)
		})

		if f, ok := fragmentInWindow(small, window, cap); ok {
			findings = append(findings, f)
		}
	}

	return findings, skipped
}

// fragmentInWindow slides over date-sorted contracts and reports the first
// window whose members sum above the cap. One finding per pair.
func fragmentInWindow(small []model.Contract, window time.Duration, cap decimal.Decimal) (model.Finding, bool) {
	for i := range small {
		end := small[i].PublicationDate.Add(window)

		var bucket []model.Contract
		total := decimal.Zero
		for _, c := range small[i:] {
			if c.PublicationDate.After(end) {
				break
			}
			bucket = append(bucket, c)
			total = total.Add(c.Value)
		}

		if len(bucket) >= 2 && total.GreaterThan(cap) {
			first := bucket[0]
			return model.Finding{
				Pattern:     model.PatternIllegalFragmentation,
				Severity:    model.SeverityHigh,
				ContractIDs: sortedIDs(bucket),
				Description: fmt.Sprintf(
					"Possible fragmentation: %d contracts between %q and %q totaling €%s (direct-award cap €%s)",
					len(bucket), first.Authority.Name, first.Contractor.Name, total, cap),
				Data: map[string]interface{}{
					"contracts":   len(bucket),
					"total_value": total.String(),
					"cap":         cap.String(),
					"window_from": bucket[0].PublicationDate.Format("2006-01-02"),
				},
			}, true
		}
	}
	return model.Finding{}, false
}
