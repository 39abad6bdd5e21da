package conflict

import (
	"strings"

	"github.com/vigilpt/vigil/internal/match"
	"github.com/vigilpt/vigil/internal/model"
)

// PublicEntityClassifier decides whether a contracting authority is a public
// body. It is an injected capability: the legal entity-recognition policy
// can evolve per jurisdiction without touching the analyzer's traversal.
type PublicEntityClassifier interface {
	IsPublic(party model.Party) bool
}

// KeywordClassifier recognizes public entities by configured name keywords
// and an optional set of known public-body tax ids
type KeywordClassifier struct {
	keywords []string
	taxIDs   map[string]bool
}

// NewKeywordClassifier builds a classifier from configuration
func NewKeywordClassifier(cfg model.ClassifierConfig) *KeywordClassifier {
	c := &KeywordClassifier{
		keywords: make([]string, 0, len(cfg.PublicKeywords)),
		taxIDs:   make(map[string]bool, len(cfg.PublicTaxIDs)),
	}
	for _, kw := range cfg.PublicKeywords {
		if normalized := match.Normalize(kw); normalized != "" {
			c.keywords = append(c.keywords, normalized)
		}
	}
	for _, id := range cfg.PublicTaxIDs {
		if id = strings.TrimSpace(id); id != "" {
			c.taxIDs[id] = true
		}
	}
	return c
}

// IsPublic implements PublicEntityClassifier
func (c *KeywordClassifier) IsPublic(party model.Party) bool {
	if party.TaxID != "" && c.taxIDs[party.TaxID] {
		return true
	}

	name := match.Normalize(party.Name)
	if name == "" {
		return false
	}
	for _, kw := range c.keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
