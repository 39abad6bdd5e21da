package detect

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vigilpt/vigil/internal/model"
)

// ValueNearThreshold flags contracts whose value sits just under a legal
// procedure tier ceiling — the classic sign of a value engineered to stay
// inside a lighter procedure.
type ValueNearThreshold struct{}

// Name implements Detector
func (d *ValueNearThreshold) Name() string { return model.DetectorValueNearThreshold }

// Detect implements Detector. A value exactly on a cap belongs to the next
// tier and is surfaced as a borderline finding for manual review.
func (d *ValueNearThreshold) Detect(ctx context.Context, contracts []model.Contract, cfg *model.DetectorConfig) ([]model.Finding, []string) {
	var findings []model.Finding
	var skipped []string

	caps := tierCaps(cfg)
	epsilon := cfg.NearThresholdEpsilon
	tightBand := epsilon.Div(decimal.NewFromInt(10))

	for _, c := range contracts {
		if !c.HasValue() {
			skipped = append(skipped, c.ID)
			continue
		}

		cap, ok := smallestCapAtOrAbove(c.Value, caps)
		if !ok {
			continue // Above every tier, nothing to dodge
		}

		distance := cap.Sub(c.Value)
		if distance.GreaterThan(epsilon) {
			continue
		}

		severity := model.SeverityMedium
		if distance.LessThanOrEqual(tightBand) {
			severity = model.SeverityHigh
		}

		borderline := distance.IsZero()
		desc := fmt.Sprintf("Value €%s sits €%s below the €%s procedure cap", c.Value, distance, cap)
		if borderline {
			desc = fmt.Sprintf("Value €%s lands exactly on the €%s procedure cap (borderline, belongs to the next tier)", c.Value, cap)
		}

		findings = append(findings, model.Finding{
			Pattern:     model.PatternValueNearThreshold,
			Severity:    severity,
			ContractIDs: []string{c.ID},
			Description: desc,
			Borderline:  borderline,
			Data: map[string]interface{}{
				"value":    c.Value.String(),
				"cap":      cap.String(),
				"distance": distance.String(),
				"epsilon":  epsilon.String(),
			},
		})
	}

	return findings, skipped
}

// tierCaps returns the configured caps in ascending order
func tierCaps(cfg *model.DetectorConfig) []decimal.Decimal {
	caps := []decimal.Decimal{cfg.DirectAwardCap, cfg.PriorConsultationCap}
	if caps[0].GreaterThan(caps[1]) {
		caps[0], caps[1] = caps[1], caps[0]
	}
	return caps
}

// smallestCapAtOrAbove finds the tier ceiling the value is pressed against
func smallestCapAtOrAbove(value decimal.Decimal, caps []decimal.Decimal) (decimal.Decimal, bool) {
	for _, cap := range caps {
		if value.LessThanOrEqual(cap) {
			return cap, true
		}
	}
	return decimal.Decimal{}, false
}
