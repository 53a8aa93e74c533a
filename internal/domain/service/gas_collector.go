package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"eoa-transfer-analyzer/internal/domain/entity"
	"eoa-transfer-analyzer/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxGasReceipts caps how many receipts one analysis fetches, respecting
// upstream rate limits
const MaxGasReceipts = 50

// ReceiptFetcher is the single upstream call the collector needs
type ReceiptFetcher interface {
	FetchTransactionReceipt(ctx context.Context, hash string) (*entity.GasReceipt, error)
}

// GasRecordCollector joins transactions with their receipts. Receipt
// lookups are independent reads, so they fan out concurrently with a
// bounded worker count; a failed or empty lookup drops that transaction
// from gas analysis and the batch continues.
type GasRecordCollector struct {
	fetcher     ReceiptFetcher
	logger      *logger.Logger
	concurrency int
}

// NewGasRecordCollector creates a collector with the given fan-out width
func NewGasRecordCollector(fetcher ReceiptFetcher, concurrency int, logger *logger.Logger) *GasRecordCollector {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &GasRecordCollector{
		fetcher:     fetcher,
		logger:      logger.WithComponent("gas-collector"),
		concurrency: concurrency,
	}
}

// Collect fetches receipts for up to MaxGasReceipts of the most recent
// records and returns the joined gas records in record order
func (c *GasRecordCollector) Collect(ctx context.Context, records []entity.TransferRecord) []entity.GasRecord {
	if len(records) > MaxGasReceipts {
		records = mostRecent(records, MaxGasReceipts)
	}

	results := make([]*entity.GasRecord, len(records))
	var mu sync.Mutex

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, record := range records {
		g.Go(func() error {
			receipt, err := c.fetcher.FetchTransactionReceipt(groupCtx, record.Hash)
			if err != nil {
				c.logger.Warn("Receipt fetch failed, dropping transaction from gas analysis",
					zap.String("hash", record.Hash),
					zap.Error(err))
				return nil
			}
			if receipt == nil || receipt.GasUsed == 0 {
				return nil
			}

			fee := decimal.NewFromUint64(receipt.GasUsed).
				Mul(decimal.NewFromUint64(receipt.EffectiveGasPrice)).
				Div(weiPerEther)

			mu.Lock()
			results[i] = &entity.GasRecord{
				Hash:              record.Hash,
				GasUsed:           receipt.GasUsed,
				EffectiveGasPrice: receipt.EffectiveGasPrice,
				GasLimit:          receipt.GasLimit,
				GasFee:            fee,
				Timestamp:         record.Timestamp,
			}
			mu.Unlock()
			return nil
		})
	}

	// Workers swallow their own errors, so Wait only observes ctx cancellation
	_ = g.Wait()

	collected := make([]entity.GasRecord, 0, len(records))
	for _, r := range results {
		if r != nil {
			collected = append(collected, *r)
		}
	}
	return collected
}

// mostRecent picks the n newest records. Merged histories interleave sent
// and received transfers, so recency has to come from the records
// themselves: the timestamp when both sides carry one, the block number
// otherwise.
func mostRecent(records []entity.TransferRecord, n int) []entity.TransferRecord {
	ordered := make([]entity.TransferRecord, len(records))
	copy(ordered, records)

	sort.SliceStable(ordered, func(i, j int) bool {
		ti, tj := ordered[i].Timestamp, ordered[j].Timestamp
		if ti != nil && tj != nil {
			return ti.After(*tj)
		}
		return blockNumber(ordered[i].BlockNum) > blockNumber(ordered[j].BlockNum)
	})
	return ordered[:n]
}

func blockNumber(hex string) uint64 {
	n, err := strconv.ParseUint(strings.TrimPrefix(hex, "0x"), 16, 64)
	if err != nil {
		return 0
	}
	return n
}
