package service

import (
	"sort"
	"strings"
	"time"

	"eoa-transfer-analyzer/internal/domain/entity"
	"eoa-transfer-analyzer/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PartnerAggregator groups raw sent/received transfers by counterparty
// address and accumulates per-partner totals
type PartnerAggregator struct {
	logger *logger.Logger
}

// NewPartnerAggregator creates a new partner aggregator
func NewPartnerAggregator(logger *logger.Logger) *PartnerAggregator {
	return &PartnerAggregator{
		logger: logger.WithComponent("partner-aggregator"),
	}
}

// Aggregate scans both directions of a transfer page once and produces one
// TransferPartner per counterparty, sorted descending by combined volume.
// Records without a counterparty address are skipped; unparseable values
// count as zero. Totals are accumulated in fixed-point decimals so that
// many small transfers cannot drift.
func (a *PartnerAggregator) Aggregate(page *entity.TransferPage) []*entity.TransferPartner {
	partners := make(map[string]*entity.TransferPartner)

	for _, raw := range page.Sent {
		a.accumulate(partners, raw, entity.DirectionSent, raw.To)
	}
	for _, raw := range page.Received {
		a.accumulate(partners, raw, entity.DirectionReceived, raw.From)
	}

	result := make([]*entity.TransferPartner, 0, len(partners))
	for _, p := range partners {
		result = append(result, p)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TotalVolume().GreaterThan(result[j].TotalVolume())
	})

	return result
}

func (a *PartnerAggregator) accumulate(partners map[string]*entity.TransferPartner,
	raw entity.RawTransfer, direction entity.Direction, counterparty string) {

	counterparty = strings.ToLower(strings.TrimSpace(counterparty))
	if counterparty == "" {
		a.logger.Warn("Skipping transfer without counterparty",
			zap.String("hash", raw.Hash),
			zap.String("direction", string(direction)))
		return
	}

	partner, ok := partners[counterparty]
	if !ok {
		partner = &entity.TransferPartner{
			Address:       counterparty,
			TotalSent:     decimal.Zero,
			TotalReceived: decimal.Zero,
		}
		partners[counterparty] = partner
	}

	value := parseValue(raw.Value)
	record := entity.TransferRecord{
		Hash:         raw.Hash,
		BlockNum:     raw.BlockNum,
		Value:        value,
		Asset:        assetOrDefault(raw.Asset),
		Direction:    direction,
		Counterparty: counterparty,
		Timestamp:    parseBlockTimestamp(raw.Metadata),
	}
	partner.Transactions = append(partner.Transactions, record)

	switch direction {
	case entity.DirectionSent:
		partner.TotalSent = partner.TotalSent.Add(value)
	case entity.DirectionReceived:
		partner.TotalReceived = partner.TotalReceived.Add(value)
	}
}

// MergeRecords flattens a transfer page into one direction-tagged record
// list, preserving scan order (sent first, then received)
func (a *PartnerAggregator) MergeRecords(page *entity.TransferPage) []entity.TransferRecord {
	records := make([]entity.TransferRecord, 0, len(page.Sent)+len(page.Received))
	for _, raw := range page.Sent {
		records = append(records, entity.TransferRecord{
			Hash:         raw.Hash,
			BlockNum:     raw.BlockNum,
			Value:        parseValue(raw.Value),
			Asset:        assetOrDefault(raw.Asset),
			Direction:    entity.DirectionSent,
			Counterparty: strings.ToLower(strings.TrimSpace(raw.To)),
			Timestamp:    parseBlockTimestamp(raw.Metadata),
		})
	}
	for _, raw := range page.Received {
		records = append(records, entity.TransferRecord{
			Hash:         raw.Hash,
			BlockNum:     raw.BlockNum,
			Value:        parseValue(raw.Value),
			Asset:        assetOrDefault(raw.Asset),
			Direction:    entity.DirectionReceived,
			Counterparty: strings.ToLower(strings.TrimSpace(raw.From)),
			Timestamp:    parseBlockTimestamp(raw.Metadata),
		})
	}
	return records
}

func parseValue(raw string) decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func assetOrDefault(asset string) string {
	if asset == "" {
		return "ETH"
	}
	return asset
}

func parseBlockTimestamp(meta *entity.TransferMetadata) *time.Time {
	if meta == nil || meta.BlockTimestamp == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, meta.BlockTimestamp)
	if err != nil {
		return nil
	}
	return &ts
}
