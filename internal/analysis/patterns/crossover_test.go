package patterns

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"signal-engine/internal/models"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func snapshot(date time.Time, close float64, sma50, sma200 models.Float) models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		Symbol: "ACME",
		AsOf:   date,
		Close:  close,
		MovingAverages: models.MovingAverages{
			SMA50:  sma50,
			SMA200: sma200,
		},
	}
}

func pairOf(prev, today models.IndicatorSnapshot) models.SnapshotPair {
	return models.SnapshotPair{Today: today, Previous: &prev}
}

func findEvent(events []models.CrossEvent, kind models.CrossKind) (models.CrossEvent, bool) {
	for _, e := range events {
		if e.Kind == kind {
			return e, true
		}
	}
	return models.CrossEvent{}, false
}

func TestCrossoverBullishMA50(t *testing.T) {
	d := NewCrossoverDetector()
	prev := snapshot(day0, 98, models.Some(100), models.None())
	today := snapshot(day0.AddDate(0, 0, 1), 102, models.Some(100), models.None())

	events := d.Detect(pairOf(prev, today))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Kind != models.CrossMA50 || e.Direction != models.Bullish {
		t.Errorf("event = %s/%s, want ma50_cross/bullish", e.Kind, e.Direction)
	}
	if e.ReferenceLevel != 100 || e.MagnitudePercent != 2 {
		t.Errorf("reference %f magnitude %f, want 100 and 2", e.ReferenceLevel, e.MagnitudePercent)
	}
	if !e.Date.Equal(today.AsOf) {
		t.Errorf("event date = %v, want %v", e.Date, today.AsOf)
	}
}

func TestCrossoverNoChangeNoEvent(t *testing.T) {
	d := NewCrossoverDetector()
	prev := snapshot(day0, 105, models.Some(100), models.Some(90))
	today := snapshot(day0.AddDate(0, 0, 1), 110, models.Some(101), models.Some(91))

	if events := d.Detect(pairOf(prev, today)); len(events) != 0 {
		t.Errorf("expected no events, got %+v", events)
	}
}

func TestCrossoverMissingIndicatorIsSilent(t *testing.T) {
	d := NewCrossoverDetector()
	tests := []struct {
		name  string
		prev  models.IndicatorSnapshot
		today models.IndicatorSnapshot
	}{
		{"missing yesterday", snapshot(day0, 98, models.None(), models.None()), snapshot(day0.AddDate(0, 0, 1), 102, models.Some(100), models.None())},
		{"missing today", snapshot(day0, 98, models.Some(100), models.None()), snapshot(day0.AddDate(0, 0, 1), 102, models.None(), models.None())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if events := d.Detect(pairOf(tt.prev, tt.today)); len(events) != 0 {
				t.Errorf("expected no events, got %+v", events)
			}
		})
	}

	if events := d.Detect(models.SnapshotPair{Today: snapshot(day0, 100, models.Some(90), models.Some(80))}); events != nil {
		t.Errorf("single snapshot should yield no events, got %+v", events)
	}
}

func TestCrossoverBothAveragesSameDay(t *testing.T) {
	d := NewCrossoverDetector()
	prev := snapshot(day0, 95, models.Some(100), models.Some(99))
	today := snapshot(day0.AddDate(0, 0, 1), 105, models.Some(100), models.Some(99))

	events := d.Detect(pairOf(prev, today))
	ma50, ok50 := findEvent(events, models.CrossMA50)
	ma200, ok200 := findEvent(events, models.CrossMA200)
	if !ok50 || !ok200 {
		t.Fatalf("expected both ma50 and ma200 events, got %+v", events)
	}
	if ma200.ReferenceLevel != 99 {
		t.Errorf("ma200 reference = %f, want 99", ma200.ReferenceLevel)
	}
	if ma50.ReferenceLevel != 100 {
		t.Errorf("ma50 reference = %f, want 100", ma50.ReferenceLevel)
	}
}

func TestGoldenAndDeathCross(t *testing.T) {
	d := NewCrossoverDetector()

	prev := snapshot(day0, 120, models.Some(99), models.Some(100))
	today := snapshot(day0.AddDate(0, 0, 1), 120, models.Some(101), models.Some(100))
	golden, ok := findEvent(d.Detect(pairOf(prev, today)), models.CrossGolden)
	if !ok || golden.Direction != models.Bullish {
		t.Fatalf("expected bullish golden cross, got %+v", golden)
	}
	if golden.MagnitudePercent != 1 {
		t.Errorf("golden magnitude = %f, want 1", golden.MagnitudePercent)
	}

	death, ok := findEvent(d.Detect(pairOf(today, snapshot(day0.AddDate(0, 0, 2), 80, models.Some(99), models.Some(100)))), models.CrossDeath)
	if !ok || death.Direction != models.Bearish {
		t.Fatalf("expected bearish death cross, got %+v", death)
	}
}

func TestSupertrendFlip(t *testing.T) {
	d := NewCrossoverDetector()
	prev := snapshot(day0, 100, models.None(), models.None())
	prev.Supertrend = models.Supertrend{Value: models.Some(95), Direction: models.Bullish}
	today := snapshot(day0.AddDate(0, 0, 1), 93, models.None(), models.None())
	today.Supertrend = models.Supertrend{Value: models.Some(99), Direction: models.Bearish}

	e, ok := findEvent(d.Detect(pairOf(prev, today)), models.CrossSupertrend)
	if !ok || e.Direction != models.Bearish {
		t.Fatalf("expected bearish supertrend flip, got %+v", e)
	}
}

func TestProperty_CrossIffSignChange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	d := NewCrossoverDetector()

	properties.Property("ma50 event iff sign(price-sma50) changes", prop.ForAll(
		func(p0, i0, p1, i1 float64) bool {
			prev := snapshot(day0, p0, models.Some(i0), models.None())
			today := snapshot(day0.AddDate(0, 0, 1), p1, models.Some(i1), models.None())
			_, emitted := findEvent(d.Detect(pairOf(prev, today)), models.CrossMA50)
			return emitted == (sign(p0-i0) != sign(p1-i1))
		},
		gen.Float64Range(50, 150),
		gen.Float64Range(50, 150),
		gen.Float64Range(50, 150),
		gen.Float64Range(50, 150),
	))

	properties.Property("golden/death event iff sign(sma50-sma200) changes", prop.ForAll(
		func(f0, s0, f1, s1 float64) bool {
			prev := snapshot(day0, 100, models.Some(f0), models.Some(s0))
			today := snapshot(day0.AddDate(0, 0, 1), 100, models.Some(f1), models.Some(s1))
			events := d.Detect(pairOf(prev, today))
			_, golden := findEvent(events, models.CrossGolden)
			_, death := findEvent(events, models.CrossDeath)
			changed := sign(f0-s0) != sign(f1-s1)
			return (golden || death) == changed && !(golden && death)
		},
		gen.Float64Range(50, 150),
		gen.Float64Range(50, 150),
		gen.Float64Range(50, 150),
		gen.Float64Range(50, 150),
	))

	properties.TestingRun(t)
}
