package model

import (
	"strings"
	"time"
)

// RelationType categorizes how a person relates to a company
type RelationType string

const (
	RelationOwner    RelationType = "owner"    // Dono
	RelationPartner  RelationType = "partner"  // Sócio
	RelationEmployee RelationType = "employee" // Gerente/funcionário
	RelationOther    RelationType = "other"
)

// ParseRelation maps a raw relation label (including the Portuguese labels
// used in association spreadsheets) to a RelationType
func ParseRelation(raw string) (RelationType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "owner", "dono", "dona", "proprietário", "proprietario":
		return RelationOwner, true
	case "partner", "sócio", "socio", "sócia", "socia":
		return RelationPartner, true
	case "employee", "gerente", "administrador", "funcionário", "funcionario":
		return RelationEmployee, true
	case "other", "outro", "outra":
		return RelationOther, true
	}
	return "", false
}

// ValidRelation reports whether r is one of the recognized relation types
func ValidRelation(r RelationType) bool {
	switch r {
	case RelationOwner, RelationPartner, RelationEmployee, RelationOther:
		return true
	}
	return false
}

// Person is an officeholder or private individual tracked by the registry.
// Persons are created only by explicit association entries, never inferred
// from contract records.
type Person struct {
	Name              string `json:"name"` // Canonical key
	PoliticalPosition string `json:"political_position,omitempty"`
	Party             string `json:"party,omitempty"`
	OfficeEntity      string `json:"office_entity,omitempty"` // Public body bound to the office
}

// Company is a contractor-side entity, upserted on first reference
type Company struct {
	Name  string `json:"name"` // Canonical key
	TaxID string `json:"tax_id,omitempty"`
}

// Association is a directional person→company relation
type Association struct {
	PersonName  string       `json:"person_name"`
	CompanyName string       `json:"company_name"`
	Relation    RelationType `json:"relation"`
	Percentage  float64      `json:"percentage,omitempty"` // Ownership share, 0-100
	Source      string       `json:"source,omitempty"`
	Confidence  string       `json:"confidence,omitempty"`
	AddedAt     time.Time    `json:"added_at"`
}
