package model

import "time"

// PatternType classifies a suspicious contracting pattern
type PatternType string

const (
	PatternValueNearThreshold   PatternType = "value_near_threshold"  // Value engineered just under a tier cap
	PatternIllegalFragmentation PatternType = "illegal_fragmentation" // Split contracts dodging a cap
	PatternRepeatedAwards       PatternType = "repeated_awards"       // Same pair awarded too often
	PatternProcedureMismatch    PatternType = "procedure_mismatch"    // Procedure too weak for the value
	PatternComputedRoundValue   PatternType = "computed_round_value"  // Round value back-calculated near a cap
)

// Severity grades a finding for presentation and triage
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a sortable weight for the severity (higher is more severe)
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Finding is one suspicious-pattern hit. Findings are ephemeral: recomputed
// on every run and never the source of truth.
type Finding struct {
	Pattern     PatternType            `json:"pattern"`
	Severity    Severity               `json:"severity"`
	ContractIDs []string               `json:"contract_ids"` // Ordered, non-empty
	Description string                 `json:"description"`
	Borderline  bool                   `json:"borderline,omitempty"` // Value sits exactly on a tier cap
	Data        map[string]interface{} `json:"data,omitempty"`       // Transparent detection inputs
	GeneratedAt time.Time              `json:"generated_at"`
}

// ConflictRationale explains why a conflict finding was emitted
type ConflictRationale string

const (
	RationaleSameEntitySelfAward              ConflictRationale = "same_entity_self_award"
	RationalePoliticalOfficeHolderBeneficiary ConflictRationale = "political_office_holder_beneficiary"
)

// ConflictFinding links an officeholder, an associated company and a contract
type ConflictFinding struct {
	PersonName  string            `json:"person_name"`
	Position    string            `json:"position,omitempty"`
	CompanyName string            `json:"company_name"`
	ContractID  string            `json:"contract_id"`
	Authority   string            `json:"authority"`
	Severity    Severity          `json:"severity"` // high or critical
	Rationale   ConflictRationale `json:"rationale"`
	Description string            `json:"description"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Report is the complete output of one analysis run
type Report struct {
	RunID       string            `json:"run_id"`
	Source      string            `json:"source,omitempty"` // Dataset the contracts came from
	GeneratedAt time.Time         `json:"generated_at"`
	Contracts   int               `json:"contracts"` // Records analyzed
	Skipped     int               `json:"skipped"`   // Records excluded by at least one detector
	Elapsed     time.Duration     `json:"elapsed_ns"`
	Findings    []Finding         `json:"findings"`
	Conflicts   []ConflictFinding `json:"conflicts,omitempty"`

	Advisory *AdvisorySummary `json:"advisory,omitempty"` // Optional LLM digest, never affects findings
}

// AdvisorySummary is an optional LLM-generated digest of a report.
// It is advisory only and clearly separated from detection output.
type AdvisorySummary struct {
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	SummaryMD string   `json:"summary_md,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}
