package service

import (
	"context"
	"errors"

	"eoa-transfer-analyzer/internal/domain/entity"
)

// ErrInvalidAddress marks a rejected input address. The HTTP layer maps
// it to a client error instead of an upstream failure.
var ErrInvalidAddress = errors.New("invalid ethereum address")

// TransferClient is the upstream blockchain data API the pipeline
// consumes. Implementations live in infrastructure; tests use fakes.
type TransferClient interface {
	// FetchTransfers returns both directions of an address's history
	FetchTransfers(ctx context.Context, address string) (*entity.TransferPage, error)

	// FetchTransactionReceipt returns the receipt for a transaction, or
	// nil when none exists (old or pending transactions)
	FetchTransactionReceipt(ctx context.Context, hash string) (*entity.GasReceipt, error)

	// FetchCode returns the bytecode at an address, empty for an EOA
	FetchCode(ctx context.Context, address string) (string, error)
}

// AnalysisService runs the full analytics pipeline for an address
type AnalysisService interface {
	// AnalyzeAddress fetches the transfer history and derives partners,
	// anomalies, patterns, gas statistics, clusters, and the
	// visualization structures
	AnalyzeAddress(ctx context.Context, address string) (*entity.AnalysisSummary, error)
}

// AlertPublisher pushes anomaly alerts to downstream consumers.
// Publishing is best effort; failures never abort an analysis.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *entity.AnomalyAlert) error
}
