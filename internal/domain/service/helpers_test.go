package service

import (
	"fmt"
	"time"

	"eoa-transfer-analyzer/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// Test fixtures shared across the analyzer tests.

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func txRecord(hash string, value float64, direction entity.Direction, counterparty string, ts *time.Time) entity.TransferRecord {
	return entity.TransferRecord{
		Hash:         hash,
		BlockNum:     "0x1",
		Value:        decimal.NewFromFloat(value),
		Asset:        "ETH",
		Direction:    direction,
		Counterparty: counterparty,
		Timestamp:    ts,
	}
}

func at(offset time.Duration) *time.Time {
	t := testEpoch.Add(offset)
	return &t
}

// timestampedSeries builds n sent records spaced by the given interval
func timestampedSeries(n int, interval time.Duration, value float64) []entity.TransferRecord {
	records := make([]entity.TransferRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, txRecord(
			fmt.Sprintf("0xts%02d", i), value, entity.DirectionSent, "0xpartner",
			at(time.Duration(i)*interval)))
	}
	return records
}

func rawTransfer(hash, from, to, value string, ts string) entity.RawTransfer {
	raw := entity.RawTransfer{
		Hash:     hash,
		From:     from,
		To:       to,
		Value:    value,
		Asset:    "ETH",
		BlockNum: "0x10",
	}
	if ts != "" {
		raw.Metadata = &entity.TransferMetadata{BlockTimestamp: ts}
	}
	return raw
}
