package service

import (
	"fmt"
	"sort"

	"eoa-transfer-analyzer/internal/domain/entity"

	"github.com/shopspring/decimal"
)

const gasDistributionBuckets = 5

// weiPerEther converts wei quantities to native currency units
var weiPerEther = decimal.New(1, 18)

// GasTipThresholds are the tunable knobs of the optimization tip rules
type GasTipThresholds struct {
	// LowEfficiencyPercent is the efficiency floor below which the
	// reduce-gas-limit tip fires
	LowEfficiencyPercent float64
	// HighGasUnits marks a transaction as gas-heavy
	HighGasUnits uint64
	// HighGasShare is the fraction of gas-heavy transactions above which
	// the contract-interaction tip fires
	HighGasShare float64
	// HourlyRatio is the cheapest/most-expensive hourly price ratio above
	// which the timing tip fires
	HourlyRatio float64
	// MinSeriesPoints is the minimum time-series length for hourly tips
	MinSeriesPoints int
}

// DefaultGasTipThresholds returns the standard tip rule configuration
func DefaultGasTipThresholds() GasTipThresholds {
	return GasTipThresholds{
		LowEfficiencyPercent: 80,
		HighGasUnits:         100_000,
		HighGasShare:         0.3,
		HourlyRatio:          1.3,
		MinSeriesPoints:      5,
	}
}

// GasAnalyzer derives aggregate statistics and rule-based optimization
// tips from receipt-joined gas records
type GasAnalyzer struct {
	thresholds GasTipThresholds
}

// NewGasAnalyzer creates a gas analyzer with the given tip thresholds
func NewGasAnalyzer(thresholds GasTipThresholds) *GasAnalyzer {
	return &GasAnalyzer{thresholds: thresholds}
}

// Analyze computes the full gas statistics structure. An empty record
// list yields the zeroed structure with empty slices, never an error.
func (g *GasAnalyzer) Analyze(records []entity.GasRecord) *entity.GasAnalysis {
	analysis := &entity.GasAnalysis{
		TotalGasFee:  decimal.Zero,
		TotalWastage: decimal.Zero,
		Distribution: []entity.GasBucket{},
		TimeSeries:   []entity.GasPoint{},
		Tips:         []entity.OptimizationTip{},
	}
	if len(records) == 0 {
		return analysis
	}

	analysis.TransactionCount = len(records)

	gasUsed := make([]float64, len(records))
	gasPrices := make([]float64, len(records))
	var totalUsed, totalLimit uint64
	wastageWei := decimal.Zero

	for i, r := range records {
		gasUsed[i] = float64(r.GasUsed)
		gasPrices[i] = float64(r.EffectiveGasPrice)
		totalUsed += r.GasUsed
		totalLimit += r.GasLimit
		analysis.TotalGasFee = analysis.TotalGasFee.Add(r.GasFee)

		if r.GasLimit > r.GasUsed {
			headroom := decimal.NewFromUint64(r.GasLimit - r.GasUsed)
			price := decimal.NewFromUint64(r.EffectiveGasPrice)
			wastageWei = wastageWei.Add(headroom.Mul(price))
		}
	}

	analysis.TotalGasUsed = totalUsed
	analysis.AverageGasUsed = Mean(gasUsed)
	analysis.MedianGasUsed = Median(gasUsed)
	analysis.AverageGasPrice = Mean(gasPrices)
	analysis.TotalWastage = wastageWei.Div(weiPerEther)
	analysis.GasEfficiency = gasEfficiency(totalUsed, totalLimit)
	analysis.Distribution = buildDistribution(records)
	analysis.TimeSeries = buildTimeSeries(records)
	analysis.Tips = g.buildTips(analysis, records)

	return analysis
}

// gasEfficiency is the used/limit percentage, clamped to [0,100] and 0
// when no record carried a gas limit
func gasEfficiency(totalUsed, totalLimit uint64) float64 {
	if totalLimit == 0 {
		return 0
	}
	eff := float64(totalUsed) / float64(totalLimit) * 100
	if eff < 0 {
		return 0
	}
	if eff > 100 {
		return 100
	}
	return eff
}

// buildDistribution spreads gas-used across five equal-width buckets over
// the observed min-max range of this sample
func buildDistribution(records []entity.GasRecord) []entity.GasBucket {
	min, max := records[0].GasUsed, records[0].GasUsed
	for _, r := range records[1:] {
		if r.GasUsed < min {
			min = r.GasUsed
		}
		if r.GasUsed > max {
			max = r.GasUsed
		}
	}

	// Integer boundaries with the remainder spread across buckets keep the
	// widths within one unit of each other even on narrow ranges
	span := max - min
	buckets := make([]entity.GasBucket, gasDistributionBuckets)
	for i := range buckets {
		lo := min + span*uint64(i)/gasDistributionBuckets
		hi := min + span*uint64(i+1)/gasDistributionBuckets
		buckets[i] = entity.GasBucket{
			Label: fmt.Sprintf("%d-%d", lo, hi),
			Min:   lo,
			Max:   hi,
		}
	}

	if span == 0 {
		buckets[0].Count = len(records)
		return buckets
	}

	for _, r := range records {
		idx := gasDistributionBuckets - 1
		for i := range buckets {
			if r.GasUsed >= buckets[i].Min && r.GasUsed < buckets[i].Max {
				idx = i
				break
			}
		}
		buckets[idx].Count++
	}

	return buckets
}

// buildTimeSeries returns the timestamped records sorted ascending
func buildTimeSeries(records []entity.GasRecord) []entity.GasPoint {
	series := make([]entity.GasPoint, 0, len(records))
	for _, r := range records {
		if r.Timestamp == nil {
			continue
		}
		series = append(series, entity.GasPoint{
			Timestamp: *r.Timestamp,
			GasUsed:   r.GasUsed,
			GasPrice:  r.EffectiveGasPrice,
			GasFee:    r.GasFee,
		})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
	return series
}

// buildTips applies the rule set and pads with generic advice so callers
// always receive at least two tips
func (g *GasAnalyzer) buildTips(analysis *entity.GasAnalysis, records []entity.GasRecord) []entity.OptimizationTip {
	tips := []entity.OptimizationTip{}

	if analysis.GasEfficiency > 0 && analysis.GasEfficiency < g.thresholds.LowEfficiencyPercent {
		tips = append(tips, entity.OptimizationTip{
			Title:    "Reduce gas limits",
			Severity: "high",
			Description: fmt.Sprintf(
				"Only %.1f%% of the gas limit is used on average; lowering limits would free %s in held-back fees",
				analysis.GasEfficiency, analysis.TotalWastage.StringFixed(6)),
		})
	}

	if len(records) > 0 {
		heavy := 0
		for _, r := range records {
			if r.GasUsed > g.thresholds.HighGasUnits {
				heavy++
			}
		}
		if float64(heavy)/float64(len(records)) > g.thresholds.HighGasShare {
			tips = append(tips, entity.OptimizationTip{
				Title:    "Simplify contract interactions",
				Severity: "medium",
				Description: fmt.Sprintf(
					"%d of %d transactions burn more than %d gas; batching or simpler call paths would cut fees",
					heavy, analysis.TransactionCount, g.thresholds.HighGasUnits),
			})
		}
	}

	if tip, ok := g.cheapestHourTip(analysis.TimeSeries); ok {
		tips = append(tips, tip)
	}

	generic := []entity.OptimizationTip{
		{
			Title:       "Watch network congestion",
			Severity:    "low",
			Description: "Base fees track network load; submitting during quiet periods lowers the effective gas price",
		},
		{
			Title:       "Use EIP-1559 fee caps",
			Severity:    "low",
			Description: "Setting a max fee and priority fee avoids overpaying when the base fee drops mid-inclusion",
		},
	}
	for _, tip := range generic {
		if len(tips) >= 2 {
			break
		}
		tips = append(tips, tip)
	}

	return tips
}

// cheapestHourTip buckets gas prices by UTC hour of day and recommends
// the cheapest hour when the hourly spread is wide enough
func (g *GasAnalyzer) cheapestHourTip(series []entity.GasPoint) (entity.OptimizationTip, bool) {
	if len(series) < g.thresholds.MinSeriesPoints {
		return entity.OptimizationTip{}, false
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, p := range series {
		hour := p.Timestamp.UTC().Hour()
		sums[hour] += float64(p.GasPrice)
		counts[hour]++
	}

	cheapHour, dearHour := -1, -1
	var cheapAvg, dearAvg float64
	for hour, sum := range sums {
		avg := sum / float64(counts[hour])
		if cheapHour == -1 || avg < cheapAvg {
			cheapHour, cheapAvg = hour, avg
		}
		if dearHour == -1 || avg > dearAvg {
			dearHour, dearAvg = hour, avg
		}
	}

	if cheapAvg <= 0 || dearAvg/cheapAvg <= g.thresholds.HourlyRatio {
		return entity.OptimizationTip{}, false
	}

	return entity.OptimizationTip{
		Title:    "Shift transactions to cheaper hours",
		Severity: "medium",
		Description: fmt.Sprintf(
			"Gas around %02d:00 UTC averages %.1fx the price at %02d:00 UTC; scheduling non-urgent transfers there saves fees",
			dearHour, dearAvg/cheapAvg, cheapHour),
	}, true
}
