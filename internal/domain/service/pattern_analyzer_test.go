package service

import (
	"fmt"
	"testing"
	"time"

	"eoa-transfer-analyzer/internal/domain/entity"
)

func TestDetectPeriodicTransfers(t *testing.T) {
	analyzer := NewPatternAnalyzer()

	t.Run("near-regular schedule detected", func(t *testing.T) {
		// Hourly cadence with one slightly late arrival keeps the
		// interval CV small but non-zero
		records := []entity.TransferRecord{
			txRecord("0x1", 1, entity.DirectionSent, "0xa", at(0)),
			txRecord("0x2", 1, entity.DirectionSent, "0xa", at(time.Hour)),
			txRecord("0x3", 1, entity.DirectionSent, "0xa", at(2*time.Hour)),
			txRecord("0x4", 1, entity.DirectionSent, "0xa", at(3*time.Hour)),
			txRecord("0x5", 1, entity.DirectionSent, "0xa", at(4*time.Hour+6*time.Minute)),
		}

		pattern := analyzer.detectPeriodicTransfers(records)
		if !pattern.IsDetected {
			t.Fatal("regular cadence not detected")
		}
		if pattern.Confidence <= 50 || pattern.Confidence >= 100 {
			t.Errorf("confidence = %v, want within (50,100)", pattern.Confidence)
		}
	})

	t.Run("perfectly regular schedule is the strongest signal", func(t *testing.T) {
		records := timestampedSeries(6, time.Hour, 1)

		pattern := analyzer.detectPeriodicTransfers(records)
		if !pattern.IsDetected {
			t.Fatal("exact hourly cadence not detected")
		}
		if !almostEqual(pattern.Confidence, 100, 1e-9) {
			t.Errorf("confidence = %v, want 100 for zero interval variance", pattern.Confidence)
		}
	})

	t.Run("single-batch identical timestamps stay quiet", func(t *testing.T) {
		// Every transfer in one instant leaves no schedule to measure
		records := []entity.TransferRecord{
			txRecord("0x1", 1, entity.DirectionSent, "0xa", at(0)),
			txRecord("0x2", 1, entity.DirectionSent, "0xa", at(0)),
			txRecord("0x3", 1, entity.DirectionSent, "0xa", at(0)),
			txRecord("0x4", 1, entity.DirectionSent, "0xa", at(0)),
			txRecord("0x5", 1, entity.DirectionSent, "0xa", at(0)),
		}
		if analyzer.detectPeriodicTransfers(records).IsDetected {
			t.Error("zero-span history flagged as periodic")
		}
	})

	t.Run("erratic timing stays quiet", func(t *testing.T) {
		records := []entity.TransferRecord{
			txRecord("0x1", 1, entity.DirectionSent, "0xa", at(0)),
			txRecord("0x2", 1, entity.DirectionSent, "0xa", at(time.Minute)),
			txRecord("0x3", 1, entity.DirectionSent, "0xa", at(48*time.Hour)),
			txRecord("0x4", 1, entity.DirectionSent, "0xa", at(49*time.Hour)),
			txRecord("0x5", 1, entity.DirectionSent, "0xa", at(300*time.Hour)),
		}
		if analyzer.detectPeriodicTransfers(records).IsDetected {
			t.Error("erratic cadence flagged as periodic")
		}
	})
}

func TestDetectRoundNumbers(t *testing.T) {
	analyzer := NewPatternAnalyzer()

	t.Run("round majority detected", func(t *testing.T) {
		records := []entity.TransferRecord{
			txRecord("0x1", 0.5, entity.DirectionSent, "0xa", nil),
			txRecord("0x2", 1, entity.DirectionSent, "0xa", nil),
			txRecord("0x3", 1.5, entity.DirectionSent, "0xa", nil),
			txRecord("0x4", 2, entity.DirectionSent, "0xa", nil),
			txRecord("0x5", 0.33, entity.DirectionSent, "0xa", nil),
		}

		pattern := analyzer.detectRoundNumbers(records)
		if !pattern.IsDetected {
			t.Fatal("80 percent round amounts not detected")
		}
		if !almostEqual(pattern.Confidence, 80, 1e-9) {
			t.Errorf("confidence = %v, want 80", pattern.Confidence)
		}
	})

	t.Run("mixed amounts stay quiet", func(t *testing.T) {
		records := []entity.TransferRecord{
			txRecord("0x1", 0.1337, entity.DirectionSent, "0xa", nil),
			txRecord("0x2", 1, entity.DirectionSent, "0xa", nil),
			txRecord("0x3", 0.0421, entity.DirectionSent, "0xa", nil),
			txRecord("0x4", 2.71828, entity.DirectionSent, "0xa", nil),
		}
		if analyzer.detectRoundNumbers(records).IsDetected {
			t.Error("non-round majority flagged")
		}
	})

	t.Run("zero values excluded from the share", func(t *testing.T) {
		records := []entity.TransferRecord{
			txRecord("0x1", 0, entity.DirectionSent, "0xa", nil),
			txRecord("0x2", 0, entity.DirectionSent, "0xa", nil),
			txRecord("0x3", 1, entity.DirectionSent, "0xa", nil),
			txRecord("0x4", 2, entity.DirectionSent, "0xa", nil),
		}
		// Only two non-zero values, below the sample minimum
		if analyzer.detectRoundNumbers(records).IsDetected {
			t.Error("two usable values should be below the minimum")
		}
	})
}

func TestDetectFanPatterns(t *testing.T) {
	analyzer := NewPatternAnalyzer()

	t.Run("pure fan-out without fan-in", func(t *testing.T) {
		records := make([]entity.TransferRecord, 0, 7)
		for i := 0; i < 7; i++ {
			records = append(records, txRecord(
				fmt.Sprintf("0x%d", i), 1, entity.DirectionSent,
				fmt.Sprintf("0xr%d", i), nil))
		}

		distributor := analyzer.detectDistributor(records)
		if !distributor.IsDetected {
			t.Fatal("7 sends to 7 recipients not detected as fan-out")
		}
		if !almostEqual(distributor.Confidence, 100, 1e-9) {
			t.Errorf("distributor confidence = %v, want 100", distributor.Confidence)
		}
		if analyzer.detectCollector(records).IsDetected {
			t.Error("send-only history detected as fan-in")
		}
	})

	t.Run("fan-in confidence scales with uniqueness", func(t *testing.T) {
		records := make([]entity.TransferRecord, 0, 6)
		for i := 0; i < 6; i++ {
			sender := fmt.Sprintf("0xs%d", i%5) // one repeat sender
			records = append(records, txRecord(
				fmt.Sprintf("0x%d", i), 1, entity.DirectionReceived, sender, nil))
		}

		collector := analyzer.detectCollector(records)
		if !collector.IsDetected {
			t.Fatal("6 receives from 5 senders not detected as fan-in")
		}
		if !almostEqual(collector.Confidence, 100.0*5/6, 1e-6) {
			t.Errorf("collector confidence = %v, want %v", collector.Confidence, 100.0*5/6)
		}
	})

	t.Run("repeated recipient below minimum stays quiet", func(t *testing.T) {
		records := make([]entity.TransferRecord, 0, 6)
		for i := 0; i < 6; i++ {
			records = append(records, txRecord(
				fmt.Sprintf("0x%d", i), 1, entity.DirectionSent, "0xsame", nil))
		}
		if analyzer.detectDistributor(records).IsDetected {
			t.Error("six sends to one recipient flagged as fan-out")
		}
	})
}

func TestDetectWhaleTransfers(t *testing.T) {
	analyzer := NewPatternAnalyzer()

	t.Run("extreme outlier detected", func(t *testing.T) {
		records := make([]entity.TransferRecord, 0, 15)
		for i := 0; i < 14; i++ {
			records = append(records, txRecord(
				fmt.Sprintf("0x%d", i), 1, entity.DirectionSent, "0xa", nil))
		}
		records = append(records, txRecord("0xwhale", 1000, entity.DirectionSent, "0xa", nil))

		pattern := analyzer.detectWhaleTransfers(records)
		if !pattern.IsDetected {
			t.Fatal("1000x outlier not detected")
		}
		if pattern.Confidence != 85 {
			t.Errorf("confidence = %v, want 85", pattern.Confidence)
		}
		if pattern.Details["whale_count"] != 1 {
			t.Errorf("whale count = %v, want 1", pattern.Details["whale_count"])
		}
	})

	t.Run("uniform values stay quiet", func(t *testing.T) {
		records := timestampedSeries(8, time.Hour, 5)
		if analyzer.detectWhaleTransfers(records).IsDetected {
			t.Error("uniform history flagged as whale activity")
		}
	})
}

func TestDetectTrend(t *testing.T) {
	analyzer := NewPatternAnalyzer()

	build := func(direction entity.Direction) []entity.TransferRecord {
		records := make([]entity.TransferRecord, 0, 10)
		for i := 0; i < 10; i++ {
			records = append(records, txRecord(
				fmt.Sprintf("0x%d", i), 5, direction, "0xa",
				at(time.Duration(i)*time.Hour)))
		}
		return records
	}

	t.Run("steady inflow is accumulation", func(t *testing.T) {
		pattern := analyzer.detectTrend(build(entity.DirectionReceived))
		if !pattern.IsDetected {
			t.Fatal("steady inflow not detected")
		}
		if pattern.Type != entity.PatternAccumulation {
			t.Errorf("type = %s, want accumulation", pattern.Type)
		}
		if !almostEqual(pattern.Confidence, 100, 1e-6) {
			t.Errorf("confidence = %v, want 100 for a perfect fit", pattern.Confidence)
		}
	})

	t.Run("steady outflow is distribution", func(t *testing.T) {
		pattern := analyzer.detectTrend(build(entity.DirectionSent))
		if !pattern.IsDetected {
			t.Fatal("steady outflow not detected")
		}
		if pattern.Type != entity.PatternDistribution {
			t.Errorf("type = %s, want distribution", pattern.Type)
		}
	})

	t.Run("alternating flow stays quiet", func(t *testing.T) {
		records := make([]entity.TransferRecord, 0, 12)
		for i := 0; i < 12; i++ {
			direction := entity.DirectionReceived
			if i%2 == 1 {
				direction = entity.DirectionSent
			}
			records = append(records, txRecord(
				fmt.Sprintf("0x%d", i), 5, direction, "0xa",
				at(time.Duration(i)*time.Hour)))
		}
		if analyzer.detectTrend(records).IsDetected {
			t.Error("oscillating balance flagged as a trend")
		}
	})
}

func TestDetectBurstActivity(t *testing.T) {
	analyzer := NewPatternAnalyzer()

	t.Run("tight run inside a sparse history", func(t *testing.T) {
		offsets := []time.Duration{
			0, 10 * time.Second, 20 * time.Second, 30 * time.Second, 40 * time.Second,
			24 * time.Hour, 48 * time.Hour, 72 * time.Hour, 96 * time.Hour, 120 * time.Hour,
		}
		records := make([]entity.TransferRecord, 0, len(offsets))
		for i, off := range offsets {
			records = append(records, txRecord(
				fmt.Sprintf("0x%d", i), 1, entity.DirectionSent, "0xa", at(off)))
		}

		pattern := analyzer.detectBurstActivity(records)
		if !pattern.IsDetected {
			t.Fatal("five-transfer burst not detected")
		}
		if pattern.Details["burst_runs"] != 1 {
			t.Errorf("burst runs = %v, want 1", pattern.Details["burst_runs"])
		}
	})

	t.Run("even spacing stays quiet", func(t *testing.T) {
		records := timestampedSeries(10, time.Hour, 1)
		if analyzer.detectBurstActivity(records).IsDetected {
			t.Error("even cadence flagged as bursty")
		}
	})
}

func TestDetectCyclicalBehavior(t *testing.T) {
	analyzer := NewPatternAnalyzer()

	t.Run("single-weekday concentration detected", func(t *testing.T) {
		records := timestampedSeries(12, 7*24*time.Hour, 1)

		pattern := analyzer.detectCyclicalBehavior(records)
		if !pattern.IsDetected {
			t.Fatal("weekly concentration not detected")
		}
		if pattern.Confidence != 85 {
			t.Errorf("confidence = %v, want capped 85", pattern.Confidence)
		}
		// testEpoch is a Friday
		if pattern.Details["peak_day"] != "Friday" {
			t.Errorf("peak day = %v, want Friday", pattern.Details["peak_day"])
		}
	})

	t.Run("daily activity stays quiet", func(t *testing.T) {
		records := timestampedSeries(14, 24*time.Hour, 1)
		if analyzer.detectCyclicalBehavior(records).IsDetected {
			t.Error("evenly spread weekdays flagged as cyclical")
		}
	})
}

func TestAnalyzeSurfacesOnlyDetectedPatterns(t *testing.T) {
	analysis := NewPatternAnalyzer().Analyze(nil)

	if len(analysis.Patterns) != 0 {
		t.Errorf("empty history produced %d patterns", len(analysis.Patterns))
	}
	if analysis.Profile.Category != "Unknown" {
		t.Errorf("category = %s, want Unknown", analysis.Profile.Category)
	}
	if analysis.Risk.Score != 50 {
		t.Errorf("risk score = %v, want neutral 50", analysis.Risk.Score)
	}
}

func TestCategorizeWallet(t *testing.T) {
	detected := func(types ...entity.PatternType) []entity.Pattern {
		patterns := make([]entity.Pattern, len(types))
		for i, pt := range types {
			patterns[i] = entity.Pattern{Type: pt, IsDetected: true}
		}
		return patterns
	}

	tests := []struct {
		name     string
		patterns []entity.Pattern
		want     string
	}{
		{"bursts plus fan-out", detected(entity.PatternBurstActivity, entity.PatternDistributor), "Market Maker"},
		{"whale transfers alone", detected(entity.PatternWhaleTransfers), "Trader"},
		{"scheduled fan-out", detected(entity.PatternDistributor, entity.PatternPeriodicTransfers), "Payment Processor"},
		{"pure accumulation", detected(entity.PatternAccumulation), "Long-term Investor"},
		{"accumulation while selling off", detected(entity.PatternAccumulation, entity.PatternDistribution), "General User"},
		{"scheduled round payments", detected(entity.PatternPeriodicTransfers, entity.PatternRoundNumberTransfers), "Salary/Regular Payment Account"},
		{"only weekday cycle", detected(entity.PatternCyclicalBehavior), "General User"},
		{"nothing detected", nil, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := categorizeWallet(tt.patterns)
			if profile.Category != tt.want {
				t.Errorf("category = %s, want %s", profile.Category, tt.want)
			}
		})
	}
}

func TestCategorizeWalletConfidence(t *testing.T) {
	profile := categorizeWallet([]entity.Pattern{
		{Type: entity.PatternBurstActivity},
		{Type: entity.PatternDistributor},
	})
	// Two matched behaviors on top of the 50 baseline
	if profile.Confidence != 70 {
		t.Errorf("confidence = %v, want 70", profile.Confidence)
	}

	unknown := categorizeWallet(nil)
	if unknown.Confidence != 0 {
		t.Errorf("unknown confidence = %v, want 0", unknown.Confidence)
	}
}

func TestScoreRisk(t *testing.T) {
	patterns := func(types ...entity.PatternType) []entity.Pattern {
		result := make([]entity.Pattern, len(types))
		for i, pt := range types {
			result[i] = entity.Pattern{Type: pt}
		}
		return result
	}

	tests := []struct {
		name      string
		patterns  []entity.Pattern
		wantScore float64
		wantLevel entity.RiskLevel
	}{
		{"neutral baseline", nil, 50, entity.RiskLow},
		{"risky stack", patterns(entity.PatternWhaleTransfers, entity.PatternBurstActivity, entity.PatternDistributor), 83, entity.RiskHigh},
		{"protective stack", patterns(entity.PatternPeriodicTransfers, entity.PatternCyclicalBehavior, entity.PatternRoundNumberTransfers), 20, entity.RiskVeryLow},
		{"mixed evidence", patterns(entity.PatternWhaleTransfers, entity.PatternPeriodicTransfers), 50, entity.RiskLow},
		{"unknown types ignored", patterns(entity.PatternAccumulation, entity.PatternCollector), 50, entity.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk := scoreRisk(tt.patterns)
			if !almostEqual(risk.Score, tt.wantScore, 1e-9) {
				t.Errorf("score = %v, want %v", risk.Score, tt.wantScore)
			}
			if risk.Level != tt.wantLevel {
				t.Errorf("level = %s, want %s", risk.Level, tt.wantLevel)
			}
		})
	}
}

func TestScoreRiskBounds(t *testing.T) {
	// Stack every weighted pattern twice; the clamp keeps the score in range
	doubled := []entity.Pattern{}
	for pt := range riskWeights {
		doubled = append(doubled, entity.Pattern{Type: pt}, entity.Pattern{Type: pt})
	}

	risk := scoreRisk(doubled)
	if risk.Score < 0 || risk.Score > 100 {
		t.Errorf("score = %v, want within [0,100]", risk.Score)
	}
}
