package trading

import (
	"fmt"
	"sort"

	"signal-engine/internal/models"
)

// DefaultProximityPercent is the warning band around a trigger level.
const DefaultProximityPercent = 5.0

// ExitEvaluator classifies a position's enabled exit criteria into alerts.
type ExitEvaluator struct {
	proximity float64
}

// NewExitEvaluator creates an evaluator with the given proximity band in percent.
// A non-positive band uses the default.
func NewExitEvaluator(proximityPercent float64) *ExitEvaluator {
	if proximityPercent <= 0 {
		proximityPercent = DefaultProximityPercent
	}
	return &ExitEvaluator{proximity: proximityPercent}
}

// Evaluate returns one alert per enabled criterion ordered critical, warning,
// info, keeping criterion order within a severity. A nil snapshot marks every
// criterion as data not available. Closed positions produce no alerts.
func (e *ExitEvaluator) Evaluate(pos models.Position, snap *models.IndicatorSnapshot) []models.ExitAlert {
	if pos.Status == models.PositionClosed {
		return nil
	}

	var alerts []models.ExitAlert
	for _, c := range Enabled(pos.ExitCriteria) {
		alerts = append(alerts, e.evaluate(c, pos, snap))
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
	return alerts
}

func (e *ExitEvaluator) evaluate(c Criterion, pos models.Position, snap *models.IndicatorSnapshot) models.ExitAlert {
	alert := models.ExitAlert{
		PositionID:          pos.ID,
		Symbol:              pos.Symbol,
		TriggeringCriterion: string(c),
	}
	if snap == nil {
		return unavailable(alert, "no current price")
	}
	alert.CurrentPrice = snap.Close

	switch c {
	case CriterionStopLoss:
		return e.below(alert, pos.StopLoss, "stop-loss")
	case CriterionTarget:
		return e.above(alert, pos.Target, "target")
	case CriterionBelowEMA50:
		return e.below(alert, snap.MovingAverages.EMA50, "50-day EMA")
	case CriterionBelowSMA100:
		return e.below(alert, snap.MovingAverages.SMA100, "100-day SMA")
	case CriterionBelowSMA200:
		return e.below(alert, snap.MovingAverages.SMA200, "200-day SMA")
	case CriterionSupertrendBearish:
		return e.supertrend(alert, snap.Supertrend)
	case CriterionCustomPrice:
		return e.below(alert, pos.ExitCriteria.CustomPrice, "custom exit price")
	}
	return unavailable(alert, "unknown criterion")
}

// below handles downside triggers: strictly under the level is critical,
// at or within the band above it is a warning.
func (e *ExitEvaluator) below(alert models.ExitAlert, level models.Float, name string) models.ExitAlert {
	lv, ok := level.Get()
	if !ok || lv <= 0 {
		return unavailable(alert, name)
	}
	price := alert.CurrentPrice
	alert.TriggerLevel = level
	alert.DistancePercent = models.Some((price - lv) / lv * 100)

	switch {
	case price < lv:
		alert.Severity = models.SeverityCritical
		alert.Kind = models.AlertBreached
		alert.Message = fmt.Sprintf("%s breached: price %.2f is below %.2f", name, price, lv)
	case price <= lv*(1+e.proximity/100):
		alert.Severity = models.SeverityWarning
		alert.Kind = models.AlertApproaching
		alert.Message = fmt.Sprintf("price %.2f is within %.1f%% of %s %.2f", price, e.proximity, name, lv)
	default:
		alert.Severity = models.SeverityInfo
		alert.Kind = models.AlertSafe
		alert.Message = fmt.Sprintf("price %.2f is safely above %s %.2f", price, name, lv)
	}
	return alert
}

// above handles the upside target: strictly over the level is critical,
// at or within the band below it is a warning.
func (e *ExitEvaluator) above(alert models.ExitAlert, level models.Float, name string) models.ExitAlert {
	lv, ok := level.Get()
	if !ok || lv <= 0 {
		return unavailable(alert, name)
	}
	price := alert.CurrentPrice
	alert.TriggerLevel = level
	alert.DistancePercent = models.Some((price - lv) / lv * 100)

	switch {
	case price > lv:
		alert.Severity = models.SeverityCritical
		alert.Kind = models.AlertBreached
		alert.Message = fmt.Sprintf("%s reached: price %.2f is above %.2f", name, price, lv)
	case price >= lv*(1-e.proximity/100):
		alert.Severity = models.SeverityWarning
		alert.Kind = models.AlertApproaching
		alert.Message = fmt.Sprintf("price %.2f is within %.1f%% of %s %.2f", price, e.proximity, name, lv)
	default:
		alert.Severity = models.SeverityInfo
		alert.Kind = models.AlertSafe
		alert.Message = fmt.Sprintf("price %.2f is below %s %.2f", price, name, lv)
	}
	return alert
}

func (e *ExitEvaluator) supertrend(alert models.ExitAlert, st models.Supertrend) models.ExitAlert {
	line, ok := st.Value.Get()
	if !ok || st.Direction == "" || line <= 0 {
		return unavailable(alert, "Supertrend")
	}
	price := alert.CurrentPrice
	alert.TriggerLevel = st.Value
	alert.DistancePercent = models.Some((price - line) / line * 100)

	switch {
	case st.Direction == models.Bearish:
		alert.Severity = models.SeverityCritical
		alert.Kind = models.AlertBreached
		alert.Message = fmt.Sprintf("Supertrend turned bearish: line %.2f above price %.2f", line, price)
	case price <= line*(1+e.proximity/100):
		alert.Severity = models.SeverityWarning
		alert.Kind = models.AlertApproaching
		alert.Message = fmt.Sprintf("price %.2f is within %.1f%% of the Supertrend line %.2f", price, e.proximity, line)
	default:
		alert.Severity = models.SeverityInfo
		alert.Kind = models.AlertSafe
		alert.Message = fmt.Sprintf("Supertrend bullish with line %.2f", line)
	}
	return alert
}

func unavailable(alert models.ExitAlert, what string) models.ExitAlert {
	alert.Severity = models.SeverityInfo
	alert.Kind = models.AlertDataUnavailable
	alert.Message = fmt.Sprintf("%s: data not available", what)
	return alert
}
