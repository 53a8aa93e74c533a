package entity

// PatternType identifies one of the behavioral pattern detectors
type PatternType string

const (
	PatternPeriodicTransfers    PatternType = "periodic_transfers"
	PatternRoundNumberTransfers PatternType = "round_number_transfers"
	PatternDistributor          PatternType = "distributor_pattern"
	PatternCollector            PatternType = "collector_pattern"
	PatternWhaleTransfers       PatternType = "whale_transfers"
	PatternAccumulation         PatternType = "accumulation_pattern"
	PatternDistribution         PatternType = "distribution_pattern"
	PatternBurstActivity        PatternType = "burst_activity"
	PatternCyclicalBehavior     PatternType = "cyclical_behavior"
)

// PatternImportance is the fixed display tier assigned per pattern type
type PatternImportance string

const (
	ImportanceLow    PatternImportance = "low"
	ImportanceMedium PatternImportance = "medium"
	ImportanceHigh   PatternImportance = "high"
)

// Pattern is the result of one detector. Only detected patterns are
// surfaced to callers.
type Pattern struct {
	Type        PatternType            `json:"type"`
	IsDetected  bool                   `json:"is_detected"`
	Confidence  float64                `json:"confidence"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Description string                 `json:"description"`
	Importance  PatternImportance      `json:"importance"`
}

// WalletProfile is the behavior categorization derived from detected
// pattern types
type WalletProfile struct {
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Behaviors  []string `json:"behaviors"`
}

// RiskLevel is one of the five advisory risk bands
type RiskLevel string

const (
	RiskMinimal RiskLevel = "Minimal"
	RiskVeryLow RiskLevel = "Very Low"
	RiskLow     RiskLevel = "Low"
	RiskMedium  RiskLevel = "Medium"
	RiskHigh    RiskLevel = "High"
)

// RiskAssessment is the heuristic risk score for an address. It is
// advisory evidence weighting, not a guarantee.
type RiskAssessment struct {
	Score             float64   `json:"score"`
	Level             RiskLevel `json:"level"`
	RiskFactors       []string  `json:"risk_factors"`
	ProtectiveFactors []string  `json:"protective_factors"`
}

// PatternAnalysis bundles the full pattern detector output
type PatternAnalysis struct {
	Patterns []Pattern      `json:"patterns"`
	Profile  WalletProfile  `json:"profile"`
	Risk     RiskAssessment `json:"risk"`
}
