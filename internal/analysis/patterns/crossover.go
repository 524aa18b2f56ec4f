// Package patterns detects discrete technical events from indicator snapshots and bars.
package patterns

import (
	"signal-engine/internal/models"
)

// pairing compares a subject series against a reference series.
type pairing struct {
	kind      models.CrossKind
	subject   func(models.IndicatorSnapshot) models.Float
	reference func(models.IndicatorSnapshot) models.Float
}

func closePrice(s models.IndicatorSnapshot) models.Float { return models.Some(s.Close) }
func sma50(s models.IndicatorSnapshot) models.Float      { return s.MovingAverages.SMA50 }
func sma200(s models.IndicatorSnapshot) models.Float     { return s.MovingAverages.SMA200 }
func supertrendLine(s models.IndicatorSnapshot) models.Float {
	return s.Supertrend.Value
}

// pairings is the fixed evaluation order of cross checks.
// The golden/death pairing resolves its kind from the direction.
var pairings = []pairing{
	{kind: models.CrossMA50, subject: closePrice, reference: sma50},
	{kind: models.CrossMA200, subject: closePrice, reference: sma200},
	{kind: models.CrossSupertrend, subject: closePrice, reference: supertrendLine},
	{kind: models.CrossGolden, subject: sma50, reference: sma200},
}

// CrossoverDetector emits cross events on the day a relationship changes side.
type CrossoverDetector struct{}

// NewCrossoverDetector creates a new crossover detector.
func NewCrossoverDetector() *CrossoverDetector {
	return &CrossoverDetector{}
}

func (d *CrossoverDetector) Name() string {
	return "CrossoverDetector"
}

// Detect compares today's snapshot against the previous one. A pairing with
// either side unavailable on either day emits nothing. A symbol crossing
// several levels on the same day yields one event per level.
func (d *CrossoverDetector) Detect(pair models.SnapshotPair) []models.CrossEvent {
	if pair.Previous == nil {
		return nil
	}

	var events []models.CrossEvent
	for _, p := range pairings {
		prevSubject, ok1 := p.subject(*pair.Previous).Get()
		prevRef, ok2 := p.reference(*pair.Previous).Get()
		subject, ok3 := p.subject(pair.Today).Get()
		ref, ok4 := p.reference(pair.Today).Get()
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}

		dir, crossed := Crossed(prevSubject-prevRef, subject-ref)
		if !crossed {
			continue
		}
		magnitude, ok := percentDiff(subject, ref).Get()
		if !ok {
			continue
		}

		kind := p.kind
		if kind == models.CrossGolden && dir == models.Bearish {
			kind = models.CrossDeath
		}

		events = append(events, models.CrossEvent{
			Symbol:           pair.Today.Symbol,
			Date:             pair.Today.AsOf,
			Kind:             kind,
			Direction:        dir,
			ReferenceLevel:   ref,
			MagnitudePercent: magnitude,
		})
	}
	return events
}

// Crossed reports whether the sign of a difference changed between two days,
// and the direction of the change. Zero is its own side.
func Crossed(prevDiff, diff float64) (models.Direction, bool) {
	prev, curr := sign(prevDiff), sign(diff)
	if prev == curr {
		return "", false
	}
	if curr > prev {
		return models.Bullish, true
	}
	return models.Bearish, true
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

// percentDiff returns (value-base)/base*100, absent when base is zero.
func percentDiff(value, base float64) models.Float {
	if base == 0 {
		return models.None()
	}
	return models.Some((value - base) / base * 100)
}
