package service

import (
	"eoa-transfer-analyzer/internal/domain/entity"
)

// Behavior labels derived from detected pattern types. The categorization
// table below matches on these rather than on raw pattern types.
const (
	behaviorTrading      = "frequent_trading"
	behaviorDistribution = "distribution"
	behaviorCollection   = "collection"
	behaviorRegular      = "regular_schedule"
	behaviorRoundAmounts = "round_amounts"
	behaviorAccumulation = "accumulation"
	behaviorSellingOff   = "selling_off"
	behaviorWeekdayCycle = "weekday_cycle"
)

// categorizeWallet maps the detected pattern set to a behavior label via
// a fixed priority table. Confidence starts at 50 and grows 10 per
// matched behavior, capped at 95.
func categorizeWallet(patterns []entity.Pattern) entity.WalletProfile {
	detected := make(map[entity.PatternType]bool, len(patterns))
	for _, p := range patterns {
		detected[p.Type] = true
	}

	behaviors := []string{}
	add := func(cond bool, label string) {
		if cond {
			behaviors = append(behaviors, label)
		}
	}
	add(detected[entity.PatternBurstActivity] || detected[entity.PatternWhaleTransfers], behaviorTrading)
	add(detected[entity.PatternDistributor], behaviorDistribution)
	add(detected[entity.PatternCollector], behaviorCollection)
	add(detected[entity.PatternPeriodicTransfers], behaviorRegular)
	add(detected[entity.PatternRoundNumberTransfers], behaviorRoundAmounts)
	add(detected[entity.PatternAccumulation], behaviorAccumulation)
	add(detected[entity.PatternDistribution], behaviorSellingOff)
	add(detected[entity.PatternCyclicalBehavior], behaviorWeekdayCycle)

	has := func(label string) bool {
		for _, b := range behaviors {
			if b == label {
				return true
			}
		}
		return false
	}

	var category string
	switch {
	case has(behaviorTrading) && has(behaviorDistribution):
		category = "Market Maker"
	case has(behaviorTrading):
		category = "Trader"
	case has(behaviorDistribution) && has(behaviorRegular):
		category = "Payment Processor"
	case has(behaviorAccumulation) && !has(behaviorSellingOff):
		category = "Long-term Investor"
	case has(behaviorRegular) && has(behaviorRoundAmounts):
		category = "Salary/Regular Payment Account"
	case len(behaviors) > 0:
		category = "General User"
	default:
		return entity.WalletProfile{Category: "Unknown", Behaviors: []string{}}
	}

	confidence := 50 + 10*float64(len(behaviors))
	if confidence > 95 {
		confidence = 95
	}

	return entity.WalletProfile{
		Category:   category,
		Confidence: confidence,
		Behaviors:  behaviors,
	}
}

// riskWeight pairs a pattern type with its score delta and the wording
// shown to the user
type riskWeight struct {
	delta  float64
	factor string
}

var riskWeights = map[entity.PatternType]riskWeight{
	entity.PatternWhaleTransfers:       {15, "Outsized whale transfers dwarf the account's typical size"},
	entity.PatternBurstActivity:        {10, "Activity arrives in dense bursts rather than spread out"},
	entity.PatternDistributor:          {8, "High fan-out to many distinct recipients"},
	entity.PatternRoundNumberTransfers: {-5, "Round payment amounts suggest routine human activity"},
	entity.PatternPeriodicTransfers:    {-15, "Transfers follow a predictable regular schedule"},
	entity.PatternCyclicalBehavior:     {-10, "Activity follows a weekday routine"},
}

// scoreRisk starts from a neutral baseline of 50 and applies the fixed
// per-pattern weights, clamping to [0,100]. The result is advisory
// evidence weighting, never a guarantee.
func scoreRisk(patterns []entity.Pattern) entity.RiskAssessment {
	score := 50.0
	riskFactors := []string{}
	protective := []string{}

	for _, p := range patterns {
		w, ok := riskWeights[p.Type]
		if !ok {
			continue
		}
		score += w.delta
		if w.delta > 0 {
			riskFactors = append(riskFactors, w.factor)
		} else {
			protective = append(protective, w.factor)
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return entity.RiskAssessment{
		Score:             score,
		Level:             riskBand(score),
		RiskFactors:       riskFactors,
		ProtectiveFactors: protective,
	}
}

func riskBand(score float64) entity.RiskLevel {
	switch {
	case score < 20:
		return entity.RiskMinimal
	case score < 40:
		return entity.RiskVeryLow
	case score < 60:
		return entity.RiskLow
	case score < 80:
		return entity.RiskMedium
	default:
		return entity.RiskHigh
	}
}
