package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates which side of a transfer the analyzed address was on
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// TransferMetadata carries optional metadata attached to a raw transfer
type TransferMetadata struct {
	BlockTimestamp string `json:"blockTimestamp"`
}

// RawTransfer represents one asset transfer as returned by the upstream API
type RawTransfer struct {
	Hash     string            `json:"hash"`
	From     string            `json:"from"`
	To       string            `json:"to"`
	Value    string            `json:"value"`
	Asset    string            `json:"asset"`
	BlockNum string            `json:"blockNum"`
	Metadata *TransferMetadata `json:"metadata,omitempty"`
}

// TransferPage holds both directions of an address's transfer history
type TransferPage struct {
	Sent     []RawTransfer `json:"sent"`
	Received []RawTransfer `json:"received"`
}

// TransferRecord is one directed value movement after normalization.
// Timestamp is nil when the upstream metadata was unavailable; time-based
// analyzers must exclude such records rather than error.
type TransferRecord struct {
	Hash         string          `json:"hash"`
	BlockNum     string          `json:"block_num"`
	Value        decimal.Decimal `json:"value"`
	Asset        string          `json:"asset"`
	Direction    Direction       `json:"direction"`
	Counterparty string          `json:"counterparty"`
	Timestamp    *time.Time      `json:"timestamp,omitempty"`
}

// TransferPartner aggregates all transfers exchanged with one counterparty
// address. Built fresh on every analysis run and never mutated afterwards,
// except to attach the anomaly result and a user annotation.
type TransferPartner struct {
	Address       string           `json:"address"`
	TotalSent     decimal.Decimal  `json:"total_sent"`
	TotalReceived decimal.Decimal  `json:"total_received"`
	Transactions  []TransferRecord `json:"transactions"`
	Anomalies     *AnomalyResult   `json:"anomalies,omitempty"`
	Annotation    string           `json:"annotation,omitempty"`
}

// TotalVolume returns the combined sent and received value for sorting
func (p *TransferPartner) TotalVolume() decimal.Decimal {
	return p.TotalSent.Add(p.TotalReceived)
}

// LargeTransfer is a single transaction flagged as statistically large
type LargeTransfer struct {
	TxHash string          `json:"tx_hash"`
	Value  decimal.Decimal `json:"value"`
	Ratio  float64         `json:"ratio"`
}

// AnomalyResult holds the per-partner anomaly signals. HasAnomalies is
// derived from the three signals and is exposed as a method so it can
// never go stale.
type AnomalyResult struct {
	LargeTransfers   []LargeTransfer `json:"large_transfers"`
	UnusualFrequency bool            `json:"unusual_frequency"`
	IrregularPattern bool            `json:"irregular_pattern"`
}

// HasAnomalies reports whether any of the three anomaly signals fired
func (a *AnomalyResult) HasAnomalies() bool {
	if a == nil {
		return false
	}
	return len(a.LargeTransfers) > 0 || a.UnusualFrequency || a.IrregularPattern
}

// MarshalJSON includes the derived has_anomalies field for API consumers
func (a *AnomalyResult) MarshalJSON() ([]byte, error) {
	type alias AnomalyResult
	return json.Marshal(struct {
		*alias
		HasAnomalies bool `json:"has_anomalies"`
	}{(*alias)(a), a.HasAnomalies()})
}
