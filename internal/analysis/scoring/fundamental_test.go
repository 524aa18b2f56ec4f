package scoring

import (
	"math"
	"testing"

	"signal-engine/internal/models"
)

func TestFundamentalBands(t *testing.T) {
	tests := []struct {
		rule  string
		value float64
		want  int
	}{
		{"pe", 12, 4},
		{"pe", 18, 3},
		{"pe", 25, 2},
		{"pe", 45, 1},
		{"pe", 80, 0},
		{"pe", -5, 0},
		{"roe", 22, 4},
		{"roe", 4, 0},
		{"debt_to_equity", 0, 4},
		{"debt_to_equity", 0.8, 2},
		{"debt_to_equity", 3, 0},
		{"debt_to_equity", -1, 0},
		{"earnings_growth", -3, 0},
		{"earnings_growth", 0, 1},
		{"current_ratio", 1.6, 3},
	}
	for _, tt := range tests {
		var rule *ratioRule
		for i := range ratioRules {
			if ratioRules[i].name == tt.rule {
				rule = &ratioRules[i]
			}
		}
		if rule == nil {
			t.Fatalf("no rule %s", tt.rule)
		}
		if got := rule.band(tt.value); got != tt.want {
			t.Errorf("%s(%g) = %d, want %d", tt.rule, tt.value, got, tt.want)
		}
	}
}

func TestRateExcellent(t *testing.T) {
	f := models.Fundamentals{
		Symbol:         "ACME",
		PE:             models.Some(12),
		ROE:            models.Some(25),
		DebtToEquity:   models.Some(0.2),
		EarningsGrowth: models.Some(30),
		RevenueGrowth:  models.Some(20),
		ProfitMargin:   models.Some(22),
		CurrentRatio:   models.Some(2.5),
	}
	r := NewFundamentalScorer().Rate(f)
	if !r.Rated || r.Tier != models.TierExcellent || math.Abs(r.Score-4) > 1e-9 {
		t.Errorf("rating = %+v, want EXCELLENT with score 4", r)
	}
}

func TestRateExcludesMissing(t *testing.T) {
	// Only ROE and P/E present: (4*0.2 + 2*0.2) / 0.4 = 3.0 -> GOOD
	f := models.Fundamentals{Symbol: "ACME", ROE: models.Some(21), PE: models.Some(25)}
	r := NewFundamentalScorer().Rate(f)

	if !r.Rated {
		t.Fatal("expected a rating")
	}
	if math.Abs(r.Score-3.0) > 1e-9 {
		t.Errorf("score = %f, want 3.0", r.Score)
	}
	if r.Tier != models.TierGood {
		t.Errorf("tier = %s, want GOOD", r.Tier)
	}
	missing := MissingComponents(r)
	if len(missing) != 5 {
		t.Errorf("missing = %v, want 5 components", missing)
	}
}

func TestRateAllMissing(t *testing.T) {
	r := NewFundamentalScorer().Rate(models.Fundamentals{Symbol: "NONE"})
	if r.Rated || r.Tier != "" {
		t.Errorf("rating = %+v, want unrated", r)
	}
	if len(r.Components) != len(ratioRules) {
		t.Errorf("components = %d, want %d", len(r.Components), len(ratioRules))
	}
}

func TestTierFloors(t *testing.T) {
	tests := []struct {
		score float64
		want  models.RatingTier
	}{
		{4, models.TierExcellent},
		{3.5, models.TierExcellent},
		{3.0, models.TierGood},
		{2.0, models.TierAverage},
		{1.0, models.TierPoor},
		{0.5, models.TierWeak},
	}
	for _, tt := range tests {
		if got := tierFor(tt.score); got != tt.want {
			t.Errorf("tierFor(%g) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
