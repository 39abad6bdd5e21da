package match

import (
	"strings"
	"unicode"

	"github.com/vigilpt/vigil/internal/model"
)

// Strategy decides whether a contract party refers to a named entity.
// Name-based resolution is approximate; keeping it behind an interface lets
// stricter entity resolution be substituted without touching detector or
// analyzer logic.
type Strategy interface {
	// Matches reports whether the party refers to the entity identified by
	// name and optional tax id.
	Matches(party model.Party, name, taxID string) bool
}

// TaxIDOrName matches on exact tax id when both sides carry one, and falls
// back to normalized-name comparison otherwise.
type TaxIDOrName struct{}

// NewStrategy returns the default matching strategy
func NewStrategy() Strategy {
	return TaxIDOrName{}
}

// Matches implements Strategy
func (TaxIDOrName) Matches(party model.Party, name, taxID string) bool {
	if taxID != "" && party.TaxID != "" {
		return party.TaxID == taxID
	}
	pn := Normalize(party.Name)
	tn := Normalize(name)
	if pn == "" || tn == "" {
		return false
	}
	return pn == tn
}

// Contains reports whether the normalized needle occurs inside the
// normalized haystack. Used for partial name searches and the name-overlap
// heuristic of the conflict analyzer.
func Contains(haystack, needle string) bool {
	h := Normalize(haystack)
	n := Normalize(needle)
	if h == "" || n == "" {
		return false
	}
	return strings.Contains(h, n)
}

// Normalize canonicalizes an entity name for comparison: lowercase, punctuation
// replaced by spaces, whitespace collapsed. Diacritics are preserved — BASE
// records spell them consistently.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}
