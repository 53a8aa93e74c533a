package entity

import "time"

// AnomalyAlert is the event published when an analysis surfaces anomaly
// flags or an elevated risk band
type AnomalyAlert struct {
	Address        string    `json:"address"`
	Network        string    `json:"network"`
	RiskLevel      RiskLevel `json:"risk_level"`
	RiskScore      float64   `json:"risk_score"`
	AnomalousCount int       `json:"anomalous_count"`
	PatternTypes   []string  `json:"pattern_types"`
	DetectedAt     time.Time `json:"detected_at"`
}
