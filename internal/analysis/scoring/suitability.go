package scoring

import (
	"fmt"
	"strings"

	"signal-engine/internal/models"
)

// Overall-call floors on the best profile's 0-100 score.
const (
	CallStrongBuyFloor = 80.0
	CallBuyFloor       = 60.0
	CallNeutralFloor   = 40.0
	CallSellFloor      = 20.0
)

// MinProfileCoverage is the share of a profile's criteria that must be
// evaluated before it can be chosen as the best fit.
const MinProfileCoverage = 0.5

// SuitabilityInput is the technical and fundamental picture of one symbol.
// A nil Technical or Fundamentals means that side is unavailable.
type SuitabilityInput struct {
	Symbol       string
	Technical    *models.TechnicalRecord
	Fundamentals *models.Fundamentals
	Rating       *models.FundamentalRating
}

// criterion is one suitability check. available is false when its inputs are missing.
type criterion struct {
	label string
	check func(SuitabilityInput) (pass, available bool)
}

func fundamental(get func(models.Fundamentals) models.Float, test func(float64) bool) func(SuitabilityInput) (bool, bool) {
	return func(in SuitabilityInput) (bool, bool) {
		if in.Fundamentals == nil {
			return false, false
		}
		v, ok := get(*in.Fundamentals).Get()
		if !ok {
			return false, false
		}
		return test(v), true
	}
}

func technical(test func(models.IndicatorSnapshot) (bool, bool)) func(SuitabilityInput) (bool, bool) {
	return func(in SuitabilityInput) (bool, bool) {
		if in.Technical == nil {
			return false, false
		}
		return test(in.Technical.Snapshot)
	}
}

// priceAgainst compares the close with a level scaled by factor.
func priceAgainst(level func(models.IndicatorSnapshot) models.Float, factor float64, above bool) func(SuitabilityInput) (bool, bool) {
	return technical(func(s models.IndicatorSnapshot) (bool, bool) {
		v, ok := level(s).Get()
		if !ok {
			return false, false
		}
		if above {
			return s.Close > v*factor, true
		}
		return s.Close <= v*factor, true
	})
}

func snapSMA50(s models.IndicatorSnapshot) models.Float  { return s.MovingAverages.SMA50 }
func snapSMA200(s models.IndicatorSnapshot) models.Float { return s.MovingAverages.SMA200 }

var profileCriteria = map[models.InvestorProfile][]criterion{
	models.ProfileValue: {
		{"P/E below 20", fundamental(func(f models.Fundamentals) models.Float { return f.PE }, func(v float64) bool { return v > 0 && v < 20 })},
		{"P/B below 3", fundamental(func(f models.Fundamentals) models.Float { return f.PB }, func(v float64) bool { return v > 0 && v < 3 })},
		{"dividend yield at least 1%", fundamental(func(f models.Fundamentals) models.Float { return f.DividendYield }, func(v float64) bool { return v >= 1 })},
		{"price within 10% of 200-day average", priceAgainst(snapSMA200, 1.10, false)},
		{"RSI below 50", technical(func(s models.IndicatorSnapshot) (bool, bool) {
			v, ok := s.RSI.Get()
			return ok && v < 50, ok
		})},
	},
	models.ProfileGrowth: {
		{"earnings growth at least 15%", fundamental(func(f models.Fundamentals) models.Float { return f.EarningsGrowth }, func(v float64) bool { return v >= 15 })},
		{"revenue growth at least 15%", fundamental(func(f models.Fundamentals) models.Float { return f.RevenueGrowth }, func(v float64) bool { return v >= 15 })},
		{"ROE at least 15%", fundamental(func(f models.Fundamentals) models.Float { return f.ROE }, func(v float64) bool { return v >= 15 })},
		{"price above 50-day average", priceAgainst(snapSMA50, 1, true)},
		{"MACD histogram positive", technical(func(s models.IndicatorSnapshot) (bool, bool) {
			v, ok := s.MACD.Histogram.Get()
			return ok && v > 0, ok
		})},
	},
	models.ProfileMomentum: {
		{"price above 50-day average", priceAgainst(snapSMA50, 1, true)},
		{"price above 200-day average", priceAgainst(snapSMA200, 1, true)},
		{"50-day average above 200-day average", technical(func(s models.IndicatorSnapshot) (bool, bool) {
			fast, ok1 := s.MovingAverages.SMA50.Get()
			slow, ok2 := s.MovingAverages.SMA200.Get()
			if !ok1 || !ok2 {
				return false, false
			}
			return fast > slow, true
		})},
		{"RSI between 50 and 70", technical(func(s models.IndicatorSnapshot) (bool, bool) {
			v, ok := s.RSI.Get()
			return ok && v >= 50 && v <= 70, ok
		})},
		{"composite score at least BUY", func(in SuitabilityInput) (bool, bool) {
			if in.Technical == nil {
				return false, false
			}
			return in.Technical.Composite.Score >= BuyScore, true
		}},
		{"Supertrend bullish", technical(func(s models.IndicatorSnapshot) (bool, bool) {
			if s.Supertrend.Direction == "" {
				return false, false
			}
			return s.Supertrend.Direction == models.Bullish, true
		})},
	},
	models.ProfileQuality: {
		{"ROE at least 15%", fundamental(func(f models.Fundamentals) models.Float { return f.ROE }, func(v float64) bool { return v >= 15 })},
		{"debt-to-equity at most 0.5", fundamental(func(f models.Fundamentals) models.Float { return f.DebtToEquity }, func(v float64) bool { return v >= 0 && v <= 0.5 })},
		{"profit margin at least 15%", fundamental(func(f models.Fundamentals) models.Float { return f.ProfitMargin }, func(v float64) bool { return v >= 15 })},
		{"current ratio at least 1.5", fundamental(func(f models.Fundamentals) models.Float { return f.CurrentRatio }, func(v float64) bool { return v >= 1.5 })},
		{"fundamental tier GOOD or better", func(in SuitabilityInput) (bool, bool) {
			if in.Rating == nil || !in.Rating.Rated {
				return false, false
			}
			return in.Rating.Tier.Rank() >= models.TierGood.Rank(), true
		}},
	},
	models.ProfileDividend: {
		{"dividend yield at least 3%", fundamental(func(f models.Fundamentals) models.Float { return f.DividendYield }, func(v float64) bool { return v >= 3 })},
		{"payout ratio at most 60%", fundamental(func(f models.Fundamentals) models.Float { return f.PayoutRatio }, func(v float64) bool { return v >= 0 && v <= 60 })},
		{"debt-to-equity at most 1", fundamental(func(f models.Fundamentals) models.Float { return f.DebtToEquity }, func(v float64) bool { return v >= 0 && v <= 1 })},
		{"price above 200-day average", priceAgainst(snapSMA200, 1, true)},
	},
}

// SuitabilityEngine scores a symbol against every investor archetype.
type SuitabilityEngine struct{}

// NewSuitabilityEngine creates a new suitability engine.
func NewSuitabilityEngine() *SuitabilityEngine {
	return &SuitabilityEngine{}
}

// Recommend evaluates every profile. Only profiles with at least
// MinProfileCoverage of their criteria evaluated compete for best fit. Ties on
// score go to the profile with more evaluated criteria, then to the earlier
// profile in models.Profiles.
func (e *SuitabilityEngine) Recommend(in SuitabilityInput) models.InvestorRecommendation {
	if in.Fundamentals != nil && in.Fundamentals.Empty() {
		in.Fundamentals = nil
	}

	rec := models.InvestorRecommendation{
		Symbol:     in.Symbol,
		PerProfile: make(map[models.InvestorProfile]models.ProfileScore, len(models.Profiles)),
	}
	if in.Technical != nil {
		rec.TechnicalLabel = in.Technical.Composite.Label
	}
	if in.Rating != nil && in.Rating.Rated {
		rec.FundamentalTier = in.Rating.Tier
	}

	if in.Technical == nil && in.Fundamentals == nil {
		rec.InsufficientData = true
		rec.Rationale = "insufficient data: no technical or fundamental inputs"
		return rec
	}

	var best *models.ProfileScore
	totalEvaluated := 0
	for _, p := range models.Profiles {
		ps := scoreProfile(p, profileCriteria[p], in)
		rec.PerProfile[p] = ps
		totalEvaluated += ps.Evaluated
		if !covered(ps) {
			continue
		}
		if best == nil || ps.Score > best.Score || (ps.Score == best.Score && ps.Evaluated > best.Evaluated) {
			chosen := ps
			best = &chosen
		}
	}

	if totalEvaluated == 0 {
		rec.InsufficientData = true
		rec.Rationale = "insufficient data: no criteria could be evaluated"
		return rec
	}
	if best == nil {
		rec.InsufficientData = true
		rec.Rationale = fmt.Sprintf("insufficient data: no profile has %.0f%% of its criteria evaluated", MinProfileCoverage*100)
		return rec
	}

	rec.BestProfile = best.Profile
	rec.OverallCall = callFor(best.Score)
	rec.Rationale = fmt.Sprintf("best fit %s (%.0f/100, %d of %d criteria passed)",
		best.Profile, best.Score, best.Passed, best.Evaluated)
	return rec
}

func scoreProfile(p models.InvestorProfile, criteria []criterion, in SuitabilityInput) models.ProfileScore {
	ps := models.ProfileScore{Profile: p, Criteria: len(criteria)}
	var passed, failed, missing []string
	for _, c := range criteria {
		pass, available := c.check(in)
		switch {
		case !available:
			missing = append(missing, c.label)
		case pass:
			ps.Passed++
			ps.Evaluated++
			passed = append(passed, c.label)
		default:
			ps.Evaluated++
			failed = append(failed, c.label)
		}
	}
	if ps.Evaluated > 0 {
		ps.Score = float64(ps.Passed) / float64(ps.Evaluated) * 100
	}

	var parts []string
	if len(passed) > 0 {
		parts = append(parts, "passed: "+strings.Join(passed, ", "))
	}
	if len(failed) > 0 {
		parts = append(parts, "failed: "+strings.Join(failed, ", "))
	}
	if len(missing) > 0 {
		parts = append(parts, "data not available: "+strings.Join(missing, ", "))
	}
	ps.Rationale = strings.Join(parts, "; ")
	return ps
}

func covered(ps models.ProfileScore) bool {
	if ps.Evaluated == 0 || ps.Criteria == 0 {
		return false
	}
	return float64(ps.Evaluated)/float64(ps.Criteria) >= MinProfileCoverage
}

func callFor(score float64) models.SignalLabel {
	switch {
	case score >= CallStrongBuyFloor:
		return models.StrongBuy
	case score >= CallBuyFloor:
		return models.Buy
	case score >= CallNeutralFloor:
		return models.Neutral
	case score >= CallSellFloor:
		return models.Sell
	}
	return models.StrongSell
}
