package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/vigilpt/vigil/internal/model"
)

func sampleReport() *model.Report {
	return &model.Report{
		RunID:       "run-1",
		Source:      "contratos_2024.csv",
		GeneratedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Contracts:   10,
		Skipped:     2,
		Elapsed:     125 * time.Millisecond,
		Findings: []model.Finding{
			{
				Pattern:     model.PatternValueNearThreshold,
				Severity:    model.SeverityHigh,
				ContractIDs: []string{"c1"},
				Description: "value 74999 sits 1 below the direct award cap",
			},
			{
				Pattern:     model.PatternRepeatedAwards,
				Severity:    model.SeverityMedium,
				ContractIDs: []string{"c2", "c3"},
				Description: "4 awards to the same contractor within 365 days",
			},
		},
		Conflicts: []model.ConflictFinding{
			{
				PersonName:  "João Silva",
				CompanyName: "Obras Norte",
				ContractID:  "c1",
				Severity:    model.SeverityCritical,
				Rationale:   model.RationaleSameEntitySelfAward,
				Description: "self award",
			},
		},
	}
}

func TestNewRenderer(t *testing.T) {
	for _, format := range []string{"json", "markdown", "md", "text", ""} {
		if _, err := NewRenderer(format); err != nil {
			t.Errorf("NewRenderer(%q): %v", format, err)
		}
	}
	if _, err := NewRenderer("yamlish"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestJSONRenderer_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONRenderer{}).Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render: %v", err)
	}

	var decoded model.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.RunID != "run-1" || len(decoded.Findings) != 2 || len(decoded.Conflicts) != 1 {
		t.Errorf("report lost in encoding: %+v", decoded)
	}
}

func TestTextRenderer_GroupsBySeverity(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextRenderer{}).Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	highAt := strings.Index(out, "HIGH (1)")
	mediumAt := strings.Index(out, "MEDIUM (1)")
	if highAt < 0 || mediumAt < 0 {
		t.Fatalf("missing severity sections:\n%s", out)
	}
	if highAt > mediumAt {
		t.Error("high severity must render before medium")
	}
	if !strings.Contains(out, "CONFLICTS OF INTEREST (1)") {
		t.Errorf("conflicts section missing:\n%s", out)
	}
	if !strings.Contains(out, "c2, c3") {
		t.Errorf("contract ids missing:\n%s", out)
	}
}

func TestTextRenderer_CleanRun(t *testing.T) {
	var buf bytes.Buffer
	r := &model.Report{RunID: "run-2", Contracts: 5}
	if err := (&TextRenderer{}).Render(&buf, r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "No suspicious patterns found") {
		t.Errorf("expected clean-run message:\n%s", buf.String())
	}
}

func TestMarkdownRenderer_Sections(t *testing.T) {
	var buf bytes.Buffer
	rep := sampleReport()
	rep.Advisory = &model.AdvisorySummary{Model: "gpt-4o-mini", SummaryMD: "Two patterns stand out."}

	if err := (&MarkdownRenderer{}).Render(&buf, rep); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Procurement analysis run-1",
		"## Suspicious patterns",
		"### High",
		"## Conflicts of interest",
		"## Advisory summary",
		"not part of the detection output",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}
