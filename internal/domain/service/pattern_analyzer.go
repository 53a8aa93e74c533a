package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"eoa-transfer-analyzer/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// Detector sample minimums. Below these each detector returns a clean
// not-detected result rather than guessing from noise.
const (
	minPeriodicSamples = 5
	minRoundSamples    = 3
	minFanSamples      = 5
	minWhaleSamples    = 5
	minTrendSamples    = 10
	minBurstSamples    = 5
	minCyclicalSamples = 10
)

var patternImportance = map[entity.PatternType]entity.PatternImportance{
	entity.PatternPeriodicTransfers:    entity.ImportanceMedium,
	entity.PatternRoundNumberTransfers: entity.ImportanceLow,
	entity.PatternDistributor:          entity.ImportanceHigh,
	entity.PatternCollector:            entity.ImportanceHigh,
	entity.PatternWhaleTransfers:       entity.ImportanceHigh,
	entity.PatternAccumulation:         entity.ImportanceMedium,
	entity.PatternDistribution:         entity.ImportanceMedium,
	entity.PatternBurstActivity:        entity.ImportanceMedium,
	entity.PatternCyclicalBehavior:     entity.ImportanceLow,
}

// PatternAnalyzer runs the independent behavioral detectors over the full
// transaction set and derives a wallet categorization and risk score
type PatternAnalyzer struct{}

// NewPatternAnalyzer creates a new pattern analyzer
func NewPatternAnalyzer() *PatternAnalyzer {
	return &PatternAnalyzer{}
}

// Analyze runs every detector and aggregates the detected patterns, the
// wallet profile, and the advisory risk assessment
func (p *PatternAnalyzer) Analyze(records []entity.TransferRecord) entity.PatternAnalysis {
	detectors := []func([]entity.TransferRecord) entity.Pattern{
		p.detectPeriodicTransfers,
		p.detectRoundNumbers,
		p.detectDistributor,
		p.detectCollector,
		p.detectWhaleTransfers,
		p.detectTrend,
		p.detectBurstActivity,
		p.detectCyclicalBehavior,
	}

	patterns := []entity.Pattern{}
	for _, detect := range detectors {
		if pattern := detect(records); pattern.IsDetected {
			pattern.Importance = patternImportance[pattern.Type]
			patterns = append(patterns, pattern)
		}
	}

	return entity.PatternAnalysis{
		Patterns: patterns,
		Profile:  categorizeWallet(patterns),
		Risk:     scoreRisk(patterns),
	}
}

// detectPeriodicTransfers flags regular scheduling: enough timestamped
// transfers whose inter-arrival intervals barely vary
func (p *PatternAnalyzer) detectPeriodicTransfers(records []entity.TransferRecord) entity.Pattern {
	pattern := entity.Pattern{Type: entity.PatternPeriodicTransfers}

	times := recordTimes(records)
	if len(times) < minPeriodicSamples {
		return pattern
	}

	intervals := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals = append(intervals, times[i].Sub(times[i-1]).Seconds())
	}

	// A zero mean means every transfer shares one timestamp; there is no
	// schedule to measure. A zero CV over a real span is the strongest
	// periodic signal, confidence 100.
	avg := Mean(intervals)
	if avg <= 0 {
		return pattern
	}
	cv := StdDev(intervals) / avg
	if cv >= 0.5 {
		return pattern
	}

	avgInterval := time.Duration(avg) * time.Second
	pattern.IsDetected = true
	pattern.Confidence = 100 * (1 - cv)
	pattern.Details = map[string]interface{}{
		"interval_cv":      cv,
		"average_interval": avgInterval.String(),
		"sample_count":     len(times),
	}
	pattern.Description = fmt.Sprintf("Transfers recur on a near-regular schedule, roughly every %s", avgInterval)
	return pattern
}

// detectRoundNumbers flags a majority of human-picked amounts: values
// that are clean multiples of 0.1 or 0.5
func (p *PatternAnalyzer) detectRoundNumbers(records []entity.TransferRecord) entity.Pattern {
	pattern := entity.Pattern{Type: entity.PatternRoundNumberTransfers}

	values := make([]decimal.Decimal, 0, len(records))
	for _, r := range records {
		if !r.Value.IsZero() {
			values = append(values, r.Value)
		}
	}
	if len(values) < minRoundSamples {
		return pattern
	}

	round := 0
	for _, v := range values {
		if isRoundValue(v) {
			round++
		}
	}

	share := 100 * float64(round) / float64(len(values))
	if share <= 60 {
		return pattern
	}

	pattern.IsDetected = true
	pattern.Confidence = share
	pattern.Details = map[string]interface{}{
		"round_count":   round,
		"value_count":   len(values),
		"round_percent": share,
	}
	pattern.Description = fmt.Sprintf("%.0f%% of transfer amounts are round numbers, suggesting manual or scheduled payments", share)
	return pattern
}

// detectDistributor flags fan-out: many sends spread across many distinct
// recipients
func (p *PatternAnalyzer) detectDistributor(records []entity.TransferRecord) entity.Pattern {
	pattern := entity.Pattern{Type: entity.PatternDistributor}

	sent := 0
	recipients := make(map[string]struct{})
	for _, r := range records {
		if r.Direction == entity.DirectionSent {
			sent++
			if r.Counterparty != "" {
				recipients[r.Counterparty] = struct{}{}
			}
		}
	}

	if sent < minFanSamples || len(recipients) < minFanSamples {
		return pattern
	}

	pattern.IsDetected = true
	pattern.Confidence = math.Min(100, 100*float64(len(recipients))/float64(sent))
	pattern.Details = map[string]interface{}{
		"sent_count":        sent,
		"unique_recipients": len(recipients),
	}
	pattern.Description = fmt.Sprintf("Funds fan out to %d distinct recipients across %d sends", len(recipients), sent)
	return pattern
}

// detectCollector flags fan-in: many receives from many distinct senders
func (p *PatternAnalyzer) detectCollector(records []entity.TransferRecord) entity.Pattern {
	pattern := entity.Pattern{Type: entity.PatternCollector}

	received := 0
	senders := make(map[string]struct{})
	for _, r := range records {
		if r.Direction == entity.DirectionReceived {
			received++
			if r.Counterparty != "" {
				senders[r.Counterparty] = struct{}{}
			}
		}
	}

	if received < minFanSamples || len(senders) < minFanSamples {
		return pattern
	}

	pattern.IsDetected = true
	pattern.Confidence = math.Min(100, 100*float64(len(senders))/float64(received))
	pattern.Details = map[string]interface{}{
		"received_count": received,
		"unique_senders": len(senders),
	}
	pattern.Description = fmt.Sprintf("Funds fan in from %d distinct senders across %d receives", len(senders), received)
	return pattern
}

// detectWhaleTransfers flags any transfer beyond mean + 3 stddev of the
// account's value distribution
func (p *PatternAnalyzer) detectWhaleTransfers(records []entity.TransferRecord) entity.Pattern {
	pattern := entity.Pattern{Type: entity.PatternWhaleTransfers}

	values := recordValues(records)
	if len(values) < minWhaleSamples {
		return pattern
	}

	mean := Mean(values)
	stddev := StdDev(values)
	if stddev <= 0 {
		return pattern
	}

	threshold := mean + 3*stddev
	whales := 0
	largest := 0.0
	for _, v := range values {
		if v > threshold {
			whales++
			if v > largest {
				largest = v
			}
		}
	}
	if whales == 0 {
		return pattern
	}

	pattern.IsDetected = true
	pattern.Confidence = 85
	pattern.Details = map[string]interface{}{
		"whale_count": whales,
		"largest":     largest,
		"threshold":   threshold,
	}
	pattern.Description = fmt.Sprintf("%d transfer(s) dwarf the account's typical size, the largest at %.4f", whales, largest)
	return pattern
}

// detectTrend fits the cumulative balance against transaction index; a
// strong linear fit marks sustained accumulation or distribution
func (p *PatternAnalyzer) detectTrend(records []entity.TransferRecord) entity.Pattern {
	pattern := entity.Pattern{Type: entity.PatternAccumulation}

	timestamped := make([]entity.TransferRecord, 0, len(records))
	for _, r := range records {
		if r.Timestamp != nil && !r.Value.IsZero() {
			timestamped = append(timestamped, r)
		}
	}
	if len(timestamped) < minTrendSamples {
		return pattern
	}

	sort.SliceStable(timestamped, func(i, j int) bool {
		return timestamped[i].Timestamp.Before(*timestamped[j].Timestamp)
	})

	balance := decimal.Zero
	cumulative := make([]float64, len(timestamped))
	for i, r := range timestamped {
		if r.Direction == entity.DirectionReceived {
			balance = balance.Add(r.Value)
		} else {
			balance = balance.Sub(r.Value)
		}
		cumulative[i] = balance.InexactFloat64()
	}

	fit := LinearRegression(cumulative)
	if math.Abs(fit.RSquared) <= 0.5 {
		return pattern
	}

	if fit.Slope < 0 {
		pattern.Type = entity.PatternDistribution
	}
	pattern.IsDetected = true
	pattern.Confidence = math.Abs(fit.RSquared) * 100
	pattern.Details = map[string]interface{}{
		"slope":     fit.Slope,
		"r_squared": fit.RSquared,
	}
	if fit.Slope >= 0 {
		pattern.Description = "Balance trends steadily upward, consistent with long-term accumulation"
	} else {
		pattern.Description = "Balance trends steadily downward, consistent with ongoing distribution"
	}
	return pattern
}

// detectBurstActivity looks for runs of at least three consecutive
// transfers whose gaps are far below the account's average spacing
func (p *PatternAnalyzer) detectBurstActivity(records []entity.TransferRecord) entity.Pattern {
	pattern := entity.Pattern{Type: entity.PatternBurstActivity}

	times := recordTimes(records)
	if len(times) < minBurstSamples {
		return pattern
	}

	span := times[len(times)-1].Sub(times[0]).Seconds()
	if span <= 0 {
		return pattern
	}
	expectedGap := span / float64(len(times)-1)

	bursts := 0
	run := 1
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1]).Seconds()
		if gap < 0.3*expectedGap {
			run++
		} else {
			if run >= 3 {
				bursts++
			}
			run = 1
		}
	}
	if run >= 3 {
		bursts++
	}
	if bursts == 0 {
		return pattern
	}

	pattern.IsDetected = true
	pattern.Confidence = 75
	pattern.Details = map[string]interface{}{
		"burst_runs":       bursts,
		"expected_gap_sec": expectedGap,
	}
	pattern.Description = fmt.Sprintf("Activity arrives in %d rapid burst(s) far denser than the account's usual cadence", bursts)
	return pattern
}

// detectCyclicalBehavior measures whether activity concentrates on
// particular weekdays
func (p *PatternAnalyzer) detectCyclicalBehavior(records []entity.TransferRecord) entity.Pattern {
	pattern := entity.Pattern{Type: entity.PatternCyclicalBehavior}

	times := recordTimes(records)
	if len(times) < minCyclicalSamples {
		return pattern
	}

	counts := make([]float64, 7)
	for _, t := range times {
		counts[int(t.UTC().Weekday())]++
	}

	cv := CoefficientOfVariation(counts)
	if cv <= 0.5 {
		return pattern
	}

	peak := 0
	for day := range counts {
		if counts[day] > counts[peak] {
			peak = day
		}
	}

	pattern.IsDetected = true
	pattern.Confidence = math.Min(85, cv*100)
	pattern.Details = map[string]interface{}{
		"weekday_cv": cv,
		"peak_day":   time.Weekday(peak).String(),
	}
	pattern.Description = fmt.Sprintf("Activity clusters on particular weekdays, peaking on %s", time.Weekday(peak))
	return pattern
}

// roundStep matches amounts with at most one decimal place, i.e. clean
// multiples of 0.1 (which covers multiples of 0.5 as well)
var roundStep = decimal.New(1, -1)

// isRoundValue reports whether an amount is a round human-picked number.
// Decimal arithmetic keeps the modulo exact where float math would not be.
func isRoundValue(v decimal.Decimal) bool {
	return v.Mod(roundStep).IsZero()
}
