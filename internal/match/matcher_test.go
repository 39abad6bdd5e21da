package match

import (
	"testing"

	"github.com/vigilpt/vigil/internal/model"
)

func TestNormalize_CollapsesPunctuationAndCase(t *testing.T) {
	got := Normalize("  Construções  Silva, Lda. ")
	want := "construções silva lda"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestTaxIDOrName_PrefersTaxID(t *testing.T) {
	s := NewStrategy()

	party := model.Party{Name: "Obras Norte", TaxID: "501234567"}

	if !s.Matches(party, "obras norte lda", "501234567") {
		t.Error("expected tax id match to win despite different names")
	}
	if s.Matches(party, "Obras Norte", "509999999") {
		t.Error("expected tax id mismatch to override equal names")
	}
}

func TestTaxIDOrName_FallsBackToNormalizedName(t *testing.T) {
	s := NewStrategy()

	party := model.Party{Name: "OBRAS   norte, LDA"}

	if !s.Matches(party, "Obras Norte Lda", "") {
		t.Error("expected normalized names to match")
	}
	if s.Matches(party, "Obras Sul Lda", "") {
		t.Error("expected different names not to match")
	}
}

func TestTaxIDOrName_EmptyNamesNeverMatch(t *testing.T) {
	s := NewStrategy()

	if s.Matches(model.Party{}, "", "") {
		t.Error("empty party must not match empty query")
	}
}

func TestContains_PartialMatch(t *testing.T) {
	if !Contains("Câmara Municipal de Braga", "braga") {
		t.Error("expected case-insensitive partial match")
	}
	if Contains("Câmara Municipal de Braga", "porto") {
		t.Error("unexpected match")
	}
}
