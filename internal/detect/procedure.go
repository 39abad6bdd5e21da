package detect

import (
	"context"
	"fmt"

	"github.com/vigilpt/vigil/internal/model"
)

// ProcedureMismatch flags contracts whose value requires a public tender but
// which were awarded under a lighter procedure. Over-escalation (a tender
// where none was required) is legal and not flagged.
type ProcedureMismatch struct{}

// Name implements Detector
func (d *ProcedureMismatch) Name() string { return model.DetectorProcedureMismatch }

// Detect implements Detector
func (d *ProcedureMismatch) Detect(ctx context.Context, contracts []model.Contract, cfg *model.DetectorConfig) ([]model.Finding, []string) {
	var findings []model.Finding
	var skipped []string

	for _, c := range contracts {
		if !c.HasValue() {
			skipped = append(skipped, c.ID)
			continue
		}

		// A value exactly on the cap already belongs to the tender tier
		if c.Value.LessThan(cfg.PriorConsultationCap) {
			continue
		}
		if c.Procedure == model.ProcedurePublicTender {
			continue
		}

		findings = append(findings, model.Finding{
			Pattern:     model.PatternProcedureMismatch,
			Severity:    model.SeverityHigh,
			ContractIDs: []string{c.ID},
			Description: fmt.Sprintf(
				"€%s contract awarded via %s — value above €%s requires a public tender",
				c.Value, c.Procedure, cfg.PriorConsultationCap),
			Data: map[string]interface{}{
				"value":     c.Value.String(),
				"cap":       cfg.PriorConsultationCap.String(),
				"procedure": string(c.Procedure),
			},
		})
	}

	return findings, skipped
}
