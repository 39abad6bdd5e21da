package model

import (
	"fmt"
	"runtime"
	"time"

	"github.com/shopspring/decimal"
)

// Detector names, used in the enabled-set and in finding provenance
const (
	DetectorValueNearThreshold   = "value_near_threshold"
	DetectorIllegalFragmentation = "illegal_fragmentation"
	DetectorRepeatedAwards       = "repeated_awards"
	DetectorProcedureMismatch    = "procedure_mismatch"
	DetectorComputedRoundValue   = "computed_round_value"
)

// DetectorNames lists every known detector in presentation order
func DetectorNames() []string {
	return []string{
		DetectorValueNearThreshold,
		DetectorIllegalFragmentation,
		DetectorRepeatedAwards,
		DetectorProcedureMismatch,
		DetectorComputedRoundValue,
	}
}

// ConfigError reports an invalid configuration; it fails a save before any
// run can observe the bad values
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// DetectorConfig holds the legal thresholds and detection tuning.
// Immutable for the duration of one run.
type DetectorConfig struct {
	Enabled map[string]bool `yaml:"enabled"` // Per-detector switch

	// Legal procedure tier caps (Código dos Contratos Públicos, goods/services)
	DirectAwardCap       decimal.Decimal `yaml:"direct_award_cap"`
	PriorConsultationCap decimal.Decimal `yaml:"prior_consultation_cap"`

	WindowDays             int             `yaml:"window_days"`              // Rolling window for grouping detectors
	RepeatedAwardThreshold int             `yaml:"repeated_award_threshold"` // Awards above this count get flagged
	NearThresholdEpsilon   decimal.Decimal `yaml:"near_threshold_epsilon"`   // EUR distance below a cap considered suspicious
	RoundUnit              decimal.Decimal `yaml:"round_unit"`               // Divisor for the round-value detector
	RoundTolerance         decimal.Decimal `yaml:"round_tolerance"`          // EUR distance from a cap for round values
}

// HTTPConfig holds portal client settings
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty"`
	NoProxy           string        `yaml:"no_proxy,omitempty"`
}

// CacheConfig holds portal response cache settings
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

// ClassifierConfig configures public-entity recognition for the conflict
// analyzer. The keyword set is injected so the legal policy can evolve
// without touching traversal logic.
type ClassifierConfig struct {
	PublicKeywords []string `yaml:"public_keywords"`
	PublicTaxIDs   []string `yaml:"public_tax_ids,omitempty"` // Known public-body NIFs
}

// LLMConfig configures the optional advisory summarizer
type LLMConfig struct {
	Provider  string `yaml:"provider,omitempty"` // "" disables
	Model     string `yaml:"model,omitempty"`
	APIKey    string `yaml:"-"`
	BaseURL   string `yaml:"base_url,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
}

// ConcurrencyConfig controls batch analysis parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose"`
	IncludeFooter bool `yaml:"include_footer"`
}

// Config is the complete vigil configuration
type Config struct {
	Detector   DetectorConfig   `yaml:"detector"`
	HTTP       HTTPConfig       `yaml:"http"`
	Cache      CacheConfig      `yaml:"cache"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
	LLM         LLMConfig         `yaml:"llm"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`

	RegistryPath string `yaml:"registry_path"` // Association snapshot file
}

// DefaultConfig returns the built-in defaults. Caps follow the Portuguese
// Código dos Contratos Públicos tiers for goods and services.
func DefaultConfig() *Config {
	enabled := make(map[string]bool, len(DetectorNames()))
	for _, name := range DetectorNames() {
		enabled[name] = true
	}

	return &Config{
		Detector: DetectorConfig{
			Enabled:                enabled,
			DirectAwardCap:         decimal.NewFromInt(75000),
			PriorConsultationCap:   decimal.NewFromInt(214000),
			WindowDays:             365,
			RepeatedAwardThreshold: 3,
			NearThresholdEpsilon:   decimal.NewFromInt(3750), // 5% of the direct-award cap
			RoundUnit:              decimal.NewFromInt(1000),
			RoundTolerance:         decimal.NewFromInt(1000),
		},
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "Vigil/0.1 (+https://github.com/vigilpt/vigil)",
			MaxBodyBytes:      4_000_000,
			RequestsPerSecond: 2,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     "",
			TTL:     24 * time.Hour,
		},
		Classifier: ClassifierConfig{
			PublicKeywords: []string{
				"câmara", "municipio", "município", "junta", "freguesia",
				"assembleia", "governo", "ministério", "secretaria",
				"instituto", "agência", "autarquia", "direção-geral",
				"hospital", "universidade",
			},
		},
		LLM: LLMConfig{
			MaxTokens: 1000,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
		RegistryPath: "",
	}
}

// Validate checks tier monotonicity and tuning sanity. It must pass before a
// config is saved or a run starts.
func (c *Config) Validate() error {
	d := c.Detector

	if !d.DirectAwardCap.IsPositive() {
		return &ConfigError{Field: "detector.direct_award_cap", Reason: "must be positive"}
	}
	if d.PriorConsultationCap.LessThanOrEqual(d.DirectAwardCap) {
		return &ConfigError{
			Field:  "detector.prior_consultation_cap",
			Reason: fmt.Sprintf("must exceed direct_award_cap (%s)", d.DirectAwardCap),
		}
	}
	if !d.NearThresholdEpsilon.IsPositive() {
		return &ConfigError{Field: "detector.near_threshold_epsilon", Reason: "must be positive"}
	}
	if d.WindowDays <= 0 {
		return &ConfigError{Field: "detector.window_days", Reason: "must be positive"}
	}
	if d.RepeatedAwardThreshold <= 0 {
		return &ConfigError{Field: "detector.repeated_award_threshold", Reason: "must be positive"}
	}
	if !d.RoundUnit.IsPositive() {
		return &ConfigError{Field: "detector.round_unit", Reason: "must be positive"}
	}
	if d.RoundTolerance.IsNegative() {
		return &ConfigError{Field: "detector.round_tolerance", Reason: "must not be negative"}
	}
	for name := range d.Enabled {
		if !knownDetector(name) {
			return &ConfigError{Field: "detector.enabled", Reason: fmt.Sprintf("unknown detector %q", name)}
		}
	}
	return nil
}

// DetectorEnabled reports whether a detector participates in a run
func (c *Config) DetectorEnabled(name string) bool {
	if c.Detector.Enabled == nil {
		return true
	}
	enabled, ok := c.Detector.Enabled[name]
	if !ok {
		return true
	}
	return enabled
}

func knownDetector(name string) bool {
	for _, n := range DetectorNames() {
		if n == name {
			return true
		}
	}
	return false
}
