package detect

import (
	"context"
	"fmt"

	"github.com/vigilpt/vigil/internal/model"
)

// ComputedRoundValue flags values that are exact multiples of a large round
// unit sitting within tolerance of a tier cap — a sign the amount was
// back-calculated to land under the cap rather than priced from need.
type ComputedRoundValue struct{}

// Name implements Detector
func (d *ComputedRoundValue) Name() string { return model.DetectorComputedRoundValue }

// Detect implements Detector
func (d *ComputedRoundValue) Detect(ctx context.Context, contracts []model.Contract, cfg *model.DetectorConfig) ([]model.Finding, []string) {
	var findings []model.Finding
	var skipped []string

	caps := tierCaps(cfg)

	for _, c := range contracts {
		if !c.HasValue() {
			skipped = append(skipped, c.ID)
			continue
		}

		if !c.Value.Mod(cfg.RoundUnit).IsZero() {
			continue
		}

		for _, cap := range caps {
			distance := cap.Sub(c.Value)
			if distance.IsNegative() || distance.GreaterThan(cfg.RoundTolerance) {
				continue
			}

			findings = append(findings, model.Finding{
				Pattern:     model.PatternComputedRoundValue,
				Severity:    model.SeverityMedium,
				ContractIDs: []string{c.ID},
				Description: fmt.Sprintf(
					"Round value €%s (multiple of €%s) sits €%s under the €%s cap",
					c.Value, cfg.RoundUnit, distance, cap),
				Data: map[string]interface{}{
					"value":    c.Value.String(),
					"unit":     cfg.RoundUnit.String(),
					"cap":      cap.String(),
					"distance": distance.String(),
				},
			})
			break
		}
	}

	return findings, skipped
}
