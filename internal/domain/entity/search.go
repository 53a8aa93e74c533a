package entity

import "time"

// SavedSearch is one remembered analysis target. The store keeps the 20
// most recent entries and replaces the whole set on write.
type SavedSearch struct {
	Address  string    `json:"address"`
	Label    string    `json:"label,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
	LastUsed time.Time `json:"last_used"`
}

// Annotation is a user note attached to a partner address, persisted
// alongside saved searches
type Annotation struct {
	Address string    `json:"address"`
	Note    string    `json:"note"`
	Tags    []string  `json:"tags,omitempty"`
	Updated time.Time `json:"updated"`
}

// AnalysisSummary is the full pipeline output for one address
type AnalysisSummary struct {
	Address     string             `json:"address"`
	Network     string             `json:"network"`
	AnalyzedAt  time.Time          `json:"analyzed_at"`
	Partners    []*TransferPartner `json:"partners"`
	Patterns    PatternAnalysis    `json:"patterns"`
	Gas         *GasAnalysis       `json:"gas,omitempty"`
	Clusters    ClusterAnalysis    `json:"clusters"`
	Graph       TransferGraph      `json:"graph"`
	Tree        TreeNode           `json:"tree"`
	Activity    ActivityGrid       `json:"activity"`
	IsContract  bool               `json:"is_contract"`
	RecordCount int                `json:"record_count"`
}
