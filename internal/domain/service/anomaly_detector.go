package service

import (
	"sort"
	"time"

	"eoa-transfer-analyzer/internal/domain/entity"
)

// AnomalyThresholds are the tunable knobs of the anomaly detector
type AnomalyThresholds struct {
	// LargeTransferSigma is the stddev multiple above the mean that flags
	// a transfer as large
	LargeTransferSigma float64
	// FrequencyCV is the interval coefficient-of-variation above which
	// timing counts as unusual
	FrequencyCV float64
	// CashOutMultiple flags the most recent transfer when it exceeds this
	// multiple of the mean of all prior transfers
	CashOutMultiple float64
}

// DefaultAnomalyThresholds returns the standard detector configuration
func DefaultAnomalyThresholds() AnomalyThresholds {
	return AnomalyThresholds{
		LargeTransferSigma: 2.0,
		FrequencyCV:        1.5,
		CashOutMultiple:    5.0,
	}
}

// AnomalyDetector flags statistically large transfers, irregular timing,
// and build-up-then-cash-out shapes per transfer partner
type AnomalyDetector struct {
	thresholds AnomalyThresholds
}

// NewAnomalyDetector creates a detector with the given thresholds
func NewAnomalyDetector(thresholds AnomalyThresholds) *AnomalyDetector {
	return &AnomalyDetector{thresholds: thresholds}
}

// Detect computes the anomaly result for one partner's transactions.
// Sparse histories below the per-signal minimums produce a clean result,
// never an error.
func (d *AnomalyDetector) Detect(transactions []entity.TransferRecord) *entity.AnomalyResult {
	result := &entity.AnomalyResult{
		LargeTransfers: []entity.LargeTransfer{},
	}

	result.LargeTransfers = d.detectLargeTransfers(transactions)
	result.UnusualFrequency = d.detectUnusualFrequency(transactions)
	result.IrregularPattern = d.detectIrregularPattern(transactions)

	return result
}

// detectLargeTransfers flags transfers above mean + sigma*stddev. Needs at
// least three transfers and a non-zero spread, so an account whose values
// are all identical is never flagged.
func (d *AnomalyDetector) detectLargeTransfers(transactions []entity.TransferRecord) []entity.LargeTransfer {
	flagged := []entity.LargeTransfer{}
	if len(transactions) < 3 {
		return flagged
	}

	values := recordValues(transactions)
	mean := Mean(values)
	stddev := StdDev(values)
	if stddev <= 0 {
		return flagged
	}

	threshold := mean + d.thresholds.LargeTransferSigma*stddev
	for i, tx := range transactions {
		if values[i] > threshold {
			flagged = append(flagged, entity.LargeTransfer{
				TxHash: tx.Hash,
				Value:  tx.Value,
				Ratio:  (values[i] - mean) / stddev,
			})
		}
	}
	return flagged
}

// detectUnusualFrequency computes the coefficient of variation of
// successive inter-arrival intervals over the timestamped transfers
func (d *AnomalyDetector) detectUnusualFrequency(transactions []entity.TransferRecord) bool {
	times := recordTimes(transactions)
	if len(times) < 3 {
		return false
	}

	intervals := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals = append(intervals, times[i].Sub(times[i-1]).Seconds())
	}

	return CoefficientOfVariation(intervals) > d.thresholds.FrequencyCV
}

// detectIrregularPattern compares the most recent transfer against the
// mean of everything before it, a simple build-up-then-cash-out shape
func (d *AnomalyDetector) detectIrregularPattern(transactions []entity.TransferRecord) bool {
	if len(transactions) < 4 {
		return false
	}

	values := recordValues(transactions)
	last := values[len(values)-1]
	priorMean := Mean(values[:len(values)-1])
	if priorMean <= 0 {
		return false
	}

	return last > d.thresholds.CashOutMultiple*priorMean
}

func recordValues(transactions []entity.TransferRecord) []float64 {
	values := make([]float64, len(transactions))
	for i, tx := range transactions {
		values[i] = tx.Value.InexactFloat64()
	}
	return values
}

// recordTimes returns the non-nil timestamps sorted ascending. Records
// without a timestamp are excluded from time-based inference.
func recordTimes(transactions []entity.TransferRecord) []time.Time {
	times := make([]time.Time, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Timestamp != nil {
			times = append(times, *tx.Timestamp)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}
