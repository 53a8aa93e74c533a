package service

import (
	"context"
	"strings"

	"eoa-transfer-analyzer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// CodeFetcher is the single upstream call the classifier needs
type CodeFetcher interface {
	FetchCode(ctx context.Context, address string) (string, error)
}

// AccountClassifier distinguishes externally-owned accounts from
// contracts by bytecode presence
type AccountClassifier struct {
	fetcher CodeFetcher
	logger  *logger.Logger
}

// NewAccountClassifier creates a new account classifier
func NewAccountClassifier(fetcher CodeFetcher, logger *logger.Logger) *AccountClassifier {
	return &AccountClassifier{
		fetcher: fetcher,
		logger:  logger.WithComponent("account-classifier"),
	}
}

// IsContract reports whether the address carries bytecode. A failed
// lookup degrades to EOA rather than failing the analysis.
func (c *AccountClassifier) IsContract(ctx context.Context, address string) bool {
	code, err := c.fetcher.FetchCode(ctx, address)
	if err != nil {
		c.logger.Warn("Bytecode lookup failed, assuming EOA",
			zap.String("address", address),
			zap.Error(err))
		return false
	}
	code = strings.TrimPrefix(strings.ToLower(code), "0x")
	return code != ""
}
