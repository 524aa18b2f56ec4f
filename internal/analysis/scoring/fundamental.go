package scoring

import (
	"signal-engine/internal/models"
)

// Ratio weights in the fundamental aggregate.
const (
	WeightPE             = 0.20
	WeightROE            = 0.20
	WeightDebtToEquity   = 0.15
	WeightEarningsGrowth = 0.15
	WeightRevenueGrowth  = 0.10
	WeightProfitMargin   = 0.10
	WeightCurrentRatio   = 0.10
)

// Tier floors on the 0-4 weighted band score.
const (
	TierExcellentFloor = 3.5
	TierGoodFloor      = 2.75
	TierAverageFloor   = 2.0
	TierPoorFloor      = 1.0
)

// MaxBandScore is the best score a single ratio can earn.
const MaxBandScore = 4

// ratioRule scores one ratio into a 0-4 band.
type ratioRule struct {
	name   string
	weight float64
	value  func(models.Fundamentals) models.Float
	band   func(float64) int
}

// atLeast scores higher values better: v >= floors[0] earns 4, v >= floors[1] earns 3, and so on.
func atLeast(floors ...float64) func(float64) int {
	return func(v float64) int {
		for i, f := range floors {
			if v >= f {
				return MaxBandScore - i
			}
		}
		return 0
	}
}

// atMost scores lower values better: v <= ceilings[0] earns 4, and so on.
// Negative values earn 0.
func atMost(ceilings ...float64) func(float64) int {
	return func(v float64) int {
		if v < 0 {
			return 0
		}
		for i, c := range ceilings {
			if v <= c {
				return MaxBandScore - i
			}
		}
		return 0
	}
}

var ratioRules = []ratioRule{
	{name: "pe", weight: WeightPE, value: func(f models.Fundamentals) models.Float { return f.PE },
		band: func(v float64) int {
			// loss-making companies have no meaningful P/E
			if v <= 0 {
				return 0
			}
			return atMost(15, 20, 30, 50)(v)
		}},
	{name: "roe", weight: WeightROE, value: func(f models.Fundamentals) models.Float { return f.ROE },
		band: atLeast(20, 15, 10, 5)},
	{name: "debt_to_equity", weight: WeightDebtToEquity, value: func(f models.Fundamentals) models.Float { return f.DebtToEquity },
		band: atMost(0.3, 0.5, 1, 2)},
	{name: "earnings_growth", weight: WeightEarningsGrowth, value: func(f models.Fundamentals) models.Float { return f.EarningsGrowth },
		band: atLeast(20, 10, 5, 0)},
	{name: "revenue_growth", weight: WeightRevenueGrowth, value: func(f models.Fundamentals) models.Float { return f.RevenueGrowth },
		band: atLeast(15, 10, 5, 0)},
	{name: "profit_margin", weight: WeightProfitMargin, value: func(f models.Fundamentals) models.Float { return f.ProfitMargin },
		band: atLeast(20, 15, 10, 5)},
	{name: "current_ratio", weight: WeightCurrentRatio, value: func(f models.Fundamentals) models.Float { return f.CurrentRatio },
		band: atLeast(2, 1.5, 1.2, 1)},
}

// FundamentalScorer maps fundamental ratios to a quality tier.
type FundamentalScorer struct{}

// NewFundamentalScorer creates a new fundamental scorer.
func NewFundamentalScorer() *FundamentalScorer {
	return &FundamentalScorer{}
}

// Rate scores each ratio independently and aggregates the present ones by weight.
// Missing ratios are excluded from the aggregate and flagged on their component.
func (s *FundamentalScorer) Rate(f models.Fundamentals) models.FundamentalRating {
	rating := models.FundamentalRating{
		Symbol:     f.Symbol,
		Components: make([]models.RatingComponent, 0, len(ratioRules)),
	}

	var weighted, totalWeight float64
	for _, r := range ratioRules {
		c := models.RatingComponent{Name: r.name, Value: r.value(f), Weight: r.weight}
		v, ok := c.Value.Get()
		if !ok {
			c.Missing = true
			rating.Components = append(rating.Components, c)
			continue
		}
		c.BandScore = r.band(v)
		weighted += float64(c.BandScore) * r.weight
		totalWeight += r.weight
		rating.Components = append(rating.Components, c)
	}

	if totalWeight == 0 {
		return rating
	}

	rating.Rated = true
	rating.Score = weighted / totalWeight
	rating.Tier = tierFor(rating.Score)
	return rating
}

// MissingComponents lists the names of ratios that were unavailable.
func MissingComponents(r models.FundamentalRating) []string {
	var names []string
	for _, c := range r.Components {
		if c.Missing {
			names = append(names, c.Name)
		}
	}
	return names
}

func tierFor(score float64) models.RatingTier {
	switch {
	case score >= TierExcellentFloor:
		return models.TierExcellent
	case score >= TierGoodFloor:
		return models.TierGood
	case score >= TierAverageFloor:
		return models.TierAverage
	case score >= TierPoorFloor:
		return models.TierPoor
	}
	return models.TierWeak
}
