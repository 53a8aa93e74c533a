package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// GasReceipt is the subset of a transaction receipt the analyzer consumes.
// A nil receipt means the lookup found nothing (old or pending transaction).
type GasReceipt struct {
	GasUsed           uint64 `json:"gas_used"`
	EffectiveGasPrice uint64 `json:"effective_gas_price"`
	GasLimit          uint64 `json:"gas_limit"`
	CumulativeGasUsed uint64 `json:"cumulative_gas_used"`
	Status            uint64 `json:"status"`
	BlockNumber       uint64 `json:"block_number"`
}

// GasRecord joins a transaction with its receipt data. Only transactions
// whose receipt lookup succeeded with a non-zero gasUsed become records.
type GasRecord struct {
	Hash              string          `json:"hash"`
	GasUsed           uint64          `json:"gas_used"`
	EffectiveGasPrice uint64          `json:"effective_gas_price"`
	GasLimit          uint64          `json:"gas_limit"`
	GasFee            decimal.Decimal `json:"gas_fee"`
	Timestamp         *time.Time      `json:"timestamp,omitempty"`
}

// GasBucket is one bar of the equal-width gas-used distribution. Bucket
// boundaries span the observed min-max of the current sample only, so
// labels are sample-relative and not comparable across addresses.
type GasBucket struct {
	Label string `json:"label"`
	Min   uint64 `json:"min"`
	Max   uint64 `json:"max"`
	Count int    `json:"count"`
}

// GasPoint is one entry of the ascending gas time series
type GasPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	GasUsed   uint64          `json:"gas_used"`
	GasPrice  uint64          `json:"gas_price"`
	GasFee    decimal.Decimal `json:"gas_fee"`
}

// OptimizationTip is one rule-derived gas recommendation
type OptimizationTip struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// GasAnalysis is the aggregate gas statistics structure. A zero value with
// empty slices is the defined result for an empty record list.
type GasAnalysis struct {
	TransactionCount int               `json:"transaction_count"`
	TotalGasUsed     uint64            `json:"total_gas_used"`
	TotalGasFee      decimal.Decimal   `json:"total_gas_fee"`
	AverageGasUsed   float64           `json:"average_gas_used"`
	MedianGasUsed    float64           `json:"median_gas_used"`
	AverageGasPrice  float64           `json:"average_gas_price"`
	Distribution     []GasBucket       `json:"distribution"`
	TimeSeries       []GasPoint        `json:"time_series"`
	GasEfficiency    float64           `json:"gas_efficiency"`
	TotalWastage     decimal.Decimal   `json:"total_wastage"`
	Tips             []OptimizationTip `json:"tips"`
}
