package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProcedureType identifies the procurement procedure used to award a contract
type ProcedureType string

const (
	ProcedureDirectAward       ProcedureType = "direct_award"       // Ajuste direto
	ProcedurePriorConsultation ProcedureType = "prior_consultation" // Consulta prévia
	ProcedurePublicTender      ProcedureType = "public_tender"      // Concurso público
	ProcedureOther             ProcedureType = "other"
)

// ParseProcedureType maps a raw procedure string (including the Portuguese
// labels used by the BASE portal) to a ProcedureType
func ParseProcedureType(raw string) ProcedureType {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "ajuste") || strings.Contains(s, "direct"):
		return ProcedureDirectAward
	case strings.Contains(s, "consulta") || strings.Contains(s, "consultation"):
		return ProcedurePriorConsultation
	case strings.Contains(s, "concurso") || strings.Contains(s, "tender"):
		return ProcedurePublicTender
	default:
		return ProcedureOther
	}
}

// Party is one side of a contract: a contracting authority or a contractor
type Party struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id,omitempty"` // NIF, optional
}

// Contract is a single public-procurement contract record.
// Records are read-only input to the analysis core; the storage layer owns them.
type Contract struct {
	ID                string          `json:"id"` // Stable portal identifier
	Authority         Party           `json:"authority"`
	Contractor        Party           `json:"contractor"`
	Value             decimal.Decimal `json:"value"` // Contract value in EUR
	PublicationDate   time.Time       `json:"publication_date"`
	Procedure         ProcedureType   `json:"procedure"`
	ContractType      string          `json:"contract_type,omitempty"`
	Description       string          `json:"description,omitempty"`
	District          string          `json:"district,omitempty"`
	County            string          `json:"county,omitempty"`
	CPVCode           string          `json:"cpv_code,omitempty"`
	ExecutionTermDays int             `json:"execution_term_days,omitempty"`
}

// HasValue reports whether the contract carries a usable monetary value
func (c Contract) HasValue() bool {
	return c.Value.IsPositive()
}

// HasDate reports whether the contract carries a usable publication date
func (c Contract) HasDate() bool {
	return !c.PublicationDate.IsZero()
}
