package models

import "time"

// Fundamentals is the record of named ratios for a symbol. Any ratio may be absent.
// Percent-valued ratios (ROE, growth, margin, yield, payout) are expressed in percent.
type Fundamentals struct {
	Symbol         string    `json:"symbol"`
	AsOf           time.Time `json:"as_of"`
	PE             Float     `json:"pe"`
	PB             Float     `json:"pb"`
	ROE            Float     `json:"roe"`
	DebtToEquity   Float     `json:"debt_to_equity"`
	EarningsGrowth Float     `json:"earnings_growth"`
	RevenueGrowth  Float     `json:"revenue_growth"`
	ProfitMargin   Float     `json:"profit_margin"`
	CurrentRatio   Float     `json:"current_ratio"`
	DividendYield  Float     `json:"dividend_yield"`
	PayoutRatio    Float     `json:"payout_ratio"`
}

// Empty reports whether no ratio is present.
func (f Fundamentals) Empty() bool {
	for _, v := range []Float{f.PE, f.PB, f.ROE, f.DebtToEquity, f.EarningsGrowth,
		f.RevenueGrowth, f.ProfitMargin, f.CurrentRatio, f.DividendYield, f.PayoutRatio} {
		if v.Valid() {
			return false
		}
	}
	return true
}

// RatingTier is the quality tier of a fundamental rating.
type RatingTier string

const (
	TierExcellent RatingTier = "EXCELLENT"
	TierGood      RatingTier = "GOOD"
	TierAverage   RatingTier = "AVERAGE"
	TierPoor      RatingTier = "POOR"
	TierWeak      RatingTier = "WEAK"
)

// Rank orders tiers from WEAK (1) to EXCELLENT (5). Unknown tiers rank 0.
func (t RatingTier) Rank() int {
	switch t {
	case TierExcellent:
		return 5
	case TierGood:
		return 4
	case TierAverage:
		return 3
	case TierPoor:
		return 2
	case TierWeak:
		return 1
	}
	return 0
}

// RatingComponent is one ratio's contribution to a fundamental rating.
type RatingComponent struct {
	Name      string  `json:"name"`
	Value     Float   `json:"value"`
	BandScore int     `json:"band_score"`
	Weight    float64 `json:"weight"`
	Missing   bool    `json:"missing"`
}

// FundamentalRating is the tiered quality rating of a symbol.
// Rated is false when every ratio was unavailable.
type FundamentalRating struct {
	Symbol     string            `json:"symbol"`
	Tier       RatingTier        `json:"tier,omitempty"`
	Score      float64           `json:"score"`
	Rated      bool              `json:"rated"`
	Components []RatingComponent `json:"components"`
}
