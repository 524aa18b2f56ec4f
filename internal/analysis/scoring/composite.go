// Package scoring reduces detector outputs and fundamentals into ordinal calls.
package scoring

import (
	"signal-engine/internal/models"
)

// Composite rule weights.
const (
	WeightPriceVsSMA200 = 2
	WeightPriceVsEMA50  = 1
	WeightRSI           = 2
	WeightMACDHistogram = 1
	WeightCross         = 2
	WeightVolumeSpike   = 1
)

// Composite label thresholds.
const (
	StrongBuyScore  = 5
	BuyScore        = 2
	SellScore       = -2
	StrongSellScore = -5
)

// Default RSI bands.
const (
	DefaultRSIOversold   = 30.0
	DefaultRSIOverbought = 70.0
)

// Contribution keys, one per rule.
const (
	RulePriceVsSMA200 = "price_vs_sma200"
	RulePriceVsEMA50  = "price_vs_ema50"
	RuleRSI           = "rsi"
	RuleMACDHistogram = "macd_histogram"
	RuleGoldenDeath   = "golden_death_cross"
	RuleVolumeSpike   = "volume_spike"
)

// DetectorOutputs is everything the composite scorer sees for one symbol-day.
type DetectorOutputs struct {
	Snapshot    models.IndicatorSnapshot
	Crosses     []models.CrossEvent
	VolumeSpike *models.VolumeSpike
}

// RSIBands are the oversold and overbought levels.
type RSIBands struct {
	Oversold   float64
	Overbought float64
}

// DefaultRSIBands returns the 30/70 bands.
func DefaultRSIBands() RSIBands {
	return RSIBands{Oversold: DefaultRSIOversold, Overbought: DefaultRSIOverbought}
}

// Rule maps the day's outputs to a signed contribution. Missing inputs contribute 0.
type Rule struct {
	Name     string
	Evaluate func(DetectorOutputs) int
}

// CompositeScorer is a table of independent rules summed into one score.
type CompositeScorer struct {
	rules []Rule
}

// NewCompositeScorer creates the scorer with the standard rule table.
func NewCompositeScorer(bands RSIBands) *CompositeScorer {
	return &CompositeScorer{rules: Rules(bands)}
}

// Rules returns the standard rule table in evaluation order.
func Rules(bands RSIBands) []Rule {
	return []Rule{
		{Name: RulePriceVsSMA200, Evaluate: priceVs(WeightPriceVsSMA200, func(s models.IndicatorSnapshot) models.Float {
			return s.MovingAverages.SMA200
		})},
		{Name: RulePriceVsEMA50, Evaluate: priceVs(WeightPriceVsEMA50, func(s models.IndicatorSnapshot) models.Float {
			return s.MovingAverages.EMA50
		})},
		{Name: RuleRSI, Evaluate: func(out DetectorOutputs) int {
			rsi, ok := out.Snapshot.RSI.Get()
			switch {
			case !ok:
				return 0
			case rsi < bands.Oversold:
				return WeightRSI
			case rsi > bands.Overbought:
				return -WeightRSI
			}
			return 0
		}},
		{Name: RuleMACDHistogram, Evaluate: func(out DetectorOutputs) int {
			hist, ok := out.Snapshot.MACD.Histogram.Get()
			if !ok {
				return 0
			}
			return sign(hist) * WeightMACDHistogram
		}},
		{Name: RuleGoldenDeath, Evaluate: func(out DetectorOutputs) int {
			for _, e := range out.Crosses {
				switch e.Kind {
				case models.CrossGolden:
					return WeightCross
				case models.CrossDeath:
					return -WeightCross
				}
			}
			return 0
		}},
		{Name: RuleVolumeSpike, Evaluate: func(out DetectorOutputs) int {
			if out.VolumeSpike != nil {
				return WeightVolumeSpike
			}
			return 0
		}},
	}
}

func priceVs(weight int, level func(models.IndicatorSnapshot) models.Float) func(DetectorOutputs) int {
	return func(out DetectorOutputs) int {
		v, ok := level(out.Snapshot).Get()
		if !ok {
			return 0
		}
		return sign(out.Snapshot.Close-v) * weight
	}
}

// Score evaluates every rule and labels the total.
func (c *CompositeScorer) Score(out DetectorOutputs) models.CompositeSignal {
	contributions := make(map[string]int, len(c.rules))
	total := 0
	for _, r := range c.rules {
		v := r.Evaluate(out)
		contributions[r.Name] = v
		total += v
	}
	return models.CompositeSignal{
		Symbol:        out.Snapshot.Symbol,
		Date:          out.Snapshot.AsOf,
		Score:         total,
		Label:         Label(total),
		Contributions: contributions,
	}
}

// Label maps a composite score to its label.
func Label(score int) models.SignalLabel {
	switch {
	case score >= StrongBuyScore:
		return models.StrongBuy
	case score >= BuyScore:
		return models.Buy
	case score <= StrongSellScore:
		return models.StrongSell
	case score <= SellScore:
		return models.Sell
	}
	return models.Neutral
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
