package scoring

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"signal-engine/internal/analysis/indicators"
	"signal-engine/internal/models"
)

var asOf = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func baseSnapshot() models.IndicatorSnapshot {
	return models.IndicatorSnapshot{Symbol: "ACME", AsOf: asOf, Close: 100}
}

func TestCompositeRules(t *testing.T) {
	scorer := NewCompositeScorer(DefaultRSIBands())

	tests := []struct {
		name   string
		mutate func(*DetectorOutputs)
		rule   string
		want   int
	}{
		{"price above SMA200", func(o *DetectorOutputs) { o.Snapshot.MovingAverages.SMA200 = models.Some(90) }, RulePriceVsSMA200, 2},
		{"price below SMA200", func(o *DetectorOutputs) { o.Snapshot.MovingAverages.SMA200 = models.Some(110) }, RulePriceVsSMA200, -2},
		{"SMA200 missing", func(o *DetectorOutputs) {}, RulePriceVsSMA200, 0},
		{"price above EMA50", func(o *DetectorOutputs) { o.Snapshot.MovingAverages.EMA50 = models.Some(95) }, RulePriceVsEMA50, 1},
		{"price below EMA50", func(o *DetectorOutputs) { o.Snapshot.MovingAverages.EMA50 = models.Some(105) }, RulePriceVsEMA50, -1},
		{"RSI overbought", func(o *DetectorOutputs) { o.Snapshot.RSI = models.Some(72) }, RuleRSI, -2},
		{"RSI oversold", func(o *DetectorOutputs) { o.Snapshot.RSI = models.Some(25) }, RuleRSI, 2},
		{"RSI at 70 is neutral", func(o *DetectorOutputs) { o.Snapshot.RSI = models.Some(70) }, RuleRSI, 0},
		{"RSI missing", func(o *DetectorOutputs) {}, RuleRSI, 0},
		{"MACD histogram positive", func(o *DetectorOutputs) { o.Snapshot.MACD.Histogram = models.Some(0.4) }, RuleMACDHistogram, 1},
		{"MACD histogram negative", func(o *DetectorOutputs) { o.Snapshot.MACD.Histogram = models.Some(-0.4) }, RuleMACDHistogram, -1},
		{"golden cross", func(o *DetectorOutputs) {
			o.Crosses = []models.CrossEvent{{Kind: models.CrossMA50}, {Kind: models.CrossGolden, Direction: models.Bullish}}
		}, RuleGoldenDeath, 2},
		{"death cross", func(o *DetectorOutputs) {
			o.Crosses = []models.CrossEvent{{Kind: models.CrossDeath, Direction: models.Bearish}}
		}, RuleGoldenDeath, -2},
		{"volume spike", func(o *DetectorOutputs) { o.VolumeSpike = &models.VolumeSpike{SpikePercent: 150} }, RuleVolumeSpike, 1},
		{"no volume spike", func(o *DetectorOutputs) {}, RuleVolumeSpike, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := DetectorOutputs{Snapshot: baseSnapshot()}
			tt.mutate(&out)
			signal := scorer.Score(out)
			if got := signal.Contributions[tt.rule]; got != tt.want {
				t.Errorf("%s contribution = %d, want %d", tt.rule, got, tt.want)
			}
			if signal.Score != tt.want {
				t.Errorf("score = %d, want %d", signal.Score, tt.want)
			}
		})
	}
}

func TestLabelThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  models.SignalLabel
	}{
		{9, models.StrongBuy},
		{5, models.StrongBuy},
		{4, models.Buy},
		{2, models.Buy},
		{1, models.Neutral},
		{0, models.Neutral},
		{-1, models.Neutral},
		{-2, models.Sell},
		{-4, models.Sell},
		{-5, models.StrongSell},
		{-9, models.StrongSell},
	}
	for _, tt := range tests {
		if got := Label(tt.score); got != tt.want {
			t.Errorf("Label(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestCompositeRisingSeriesScenario(t *testing.T) {
	bars := make([]models.Bar, 201)
	for i := range bars {
		price := 100 + float64(i)
		bars[i] = models.Bar{
			Date:   asOf.AddDate(0, 0, i-200),
			Open:   price,
			High:   price + 0.5,
			Low:    price - 0.5,
			Close:  price,
			Volume: 10000,
		}
	}

	snap, err := indicators.NewCalculator(indicators.DefaultSettings()).Snapshot("RISE", bars)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.MovingAverages.SMA200.Valid() {
		t.Fatal("SMA200 should be available")
	}

	signal := NewCompositeScorer(DefaultRSIBands()).Score(DetectorOutputs{Snapshot: snap})
	if signal.Contributions[RulePriceVsSMA200] != WeightPriceVsSMA200 {
		t.Errorf("price_vs_sma200 = %d, want +%d", signal.Contributions[RulePriceVsSMA200], WeightPriceVsSMA200)
	}
	if signal.Contributions[RuleVolumeSpike] != 0 {
		t.Error("flat volume should not contribute a spike")
	}
}

func TestProperty_CompositeDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	scorer := NewCompositeScorer(DefaultRSIBands())

	properties.Property("identical inputs yield identical signals", prop.ForAll(
		func(close, sma200, ema50, rsi, hist float64, spike bool) bool {
			out := DetectorOutputs{Snapshot: baseSnapshot()}
			out.Snapshot.Close = close
			out.Snapshot.MovingAverages.SMA200 = models.Some(sma200)
			out.Snapshot.MovingAverages.EMA50 = models.Some(ema50)
			out.Snapshot.RSI = models.Some(rsi)
			out.Snapshot.MACD.Histogram = models.Some(hist)
			if spike {
				out.VolumeSpike = &models.VolumeSpike{}
			}
			a := scorer.Score(out)
			b := NewCompositeScorer(DefaultRSIBands()).Score(out)
			return reflect.DeepEqual(a, b) && a.Label == Label(a.Score)
		},
		gen.Float64Range(50, 150),
		gen.Float64Range(50, 150),
		gen.Float64Range(50, 150),
		gen.Float64Range(0, 100),
		gen.Float64Range(-2, 2),
		gen.Bool(),
	))

	properties.Property("missing SMA200 never contributes", prop.ForAll(
		func(close, rsi float64) bool {
			out := DetectorOutputs{Snapshot: baseSnapshot()}
			out.Snapshot.Close = close
			out.Snapshot.RSI = models.Some(rsi)
			return scorer.Score(out).Contributions[RulePriceVsSMA200] == 0
		},
		gen.Float64Range(1, 1000),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}
