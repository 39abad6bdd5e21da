// Package report renders analysis output for people and machines.
// Findings arrive already sorted; renderers never reorder them.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vigilpt/vigil/internal/model"
)

// Renderer writes a report in one output format
type Renderer interface {
	Render(w io.Writer, r *model.Report) error
}

// NewRenderer picks a renderer by format name
func NewRenderer(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "text", "":
		return &TextRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// JSONRenderer emits the full report for downstream tooling
type JSONRenderer struct{}

// Render implements Renderer
func (jr *JSONRenderer) Render(w io.Writer, r *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// TextRenderer prints a compact terminal summary grouped by severity
type TextRenderer struct{}

// Render implements Renderer
func (tr *TextRenderer) Render(w io.Writer, r *model.Report) error {
	fmt.Fprintf(w, "Run %s — %d contracts analyzed, %d skipped, %s\n",
		r.RunID, r.Contracts, r.Skipped, r.Elapsed.Round(time.Millisecond))

	if len(r.Findings) == 0 && len(r.Conflicts) == 0 {
		fmt.Fprintln(w, "No suspicious patterns found.")
		return nil
	}

	for _, severity := range severityOrder() {
		group := findingsWith(r.Findings, severity)
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d)\n", strings.ToUpper(string(severity)), len(group))
		for _, f := range group {
			marker := ""
			if f.Borderline {
				marker = " [borderline]"
			}
			fmt.Fprintf(w, "  [%s]%s %s\n", f.Pattern, marker, f.Description)
			fmt.Fprintf(w, "    contracts: %s\n", strings.Join(f.ContractIDs, ", "))
		}
	}

	if len(r.Conflicts) > 0 {
		fmt.Fprintf(w, "\nCONFLICTS OF INTEREST (%d)\n", len(r.Conflicts))
		for _, c := range r.Conflicts {
			fmt.Fprintf(w, "  [%s/%s] %s\n", c.Severity, c.Rationale, c.Description)
		}
	}

	if r.Advisory != nil && r.Advisory.SummaryMD != "" {
		fmt.Fprintf(w, "\nAdvisory summary (%s, non-authoritative):\n%s\n",
			r.Advisory.Model, r.Advisory.SummaryMD)
	}
	return nil
}

// MarkdownRenderer writes a shareable report document
type MarkdownRenderer struct {
	IncludeFooter bool
}

// Render implements Renderer
func (mr *MarkdownRenderer) Render(w io.Writer, r *model.Report) error {
	fmt.Fprintf(w, "# Procurement analysis %s\n\n", r.RunID)
	if r.Source != "" {
		fmt.Fprintf(w, "Source: `%s`\n\n", r.Source)
	}
	fmt.Fprintf(w, "- Contracts analyzed: %d\n- Skipped: %d\n- Findings: %d\n- Conflicts: %d\n\n",
		r.Contracts, r.Skipped, len(r.Findings), len(r.Conflicts))

	if len(r.Findings) > 0 {
		fmt.Fprintln(w, "## Suspicious patterns")
		fmt.Fprintln(w)
		for _, severity := range severityOrder() {
			group := findingsWith(r.Findings, severity)
			if len(group) == 0 {
				continue
			}
			fmt.Fprintf(w, "### %s\n\n", capitalize(string(severity)))
			for _, f := range group {
				fmt.Fprintf(w, "- **%s** — %s (contracts: %s)\n",
					f.Pattern, f.Description, strings.Join(f.ContractIDs, ", "))
			}
			fmt.Fprintln(w)
		}
	}

	if len(r.Conflicts) > 0 {
		fmt.Fprintln(w, "## Conflicts of interest")
		fmt.Fprintln(w)
		for _, c := range r.Conflicts {
			fmt.Fprintf(w, "- **%s** (%s) — %s\n", c.Severity, c.Rationale, c.Description)
		}
		fmt.Fprintln(w)
	}

	if r.Advisory != nil && r.Advisory.SummaryMD != "" {
		fmt.Fprintln(w, "## Advisory summary")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "_Generated by a language model; not part of the detection output._")
		fmt.Fprintln(w)
		fmt.Fprintln(w, r.Advisory.SummaryMD)
	}

	if mr.IncludeFooter {
		fmt.Fprintf(w, "\n---\n\n_Report generated by vigil on %s. Findings are starting points for investigation, not accusations._\n",
			r.GeneratedAt.Format("2006-01-02"))
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func severityOrder() []model.Severity {
	return []model.Severity{
		model.SeverityCritical,
		model.SeverityHigh,
		model.SeverityMedium,
		model.SeverityLow,
	}
}

func findingsWith(findings []model.Finding, severity model.Severity) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if f.Severity == severity {
			out = append(out, f)
		}
	}
	return out
}
