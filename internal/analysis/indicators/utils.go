package indicators

import (
	"errors"
	"math"

	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
)

var (
	// ErrInsufficientData is returned when the series is shorter than the lookback.
	ErrInsufficientData = apperrors.ErrInsufficientHistory
	// ErrInvalidPeriod is returned when the period is invalid.
	ErrInvalidPeriod = errors.New("invalid period")
)

// nan is the warmup and invalid-numeric marker in indicator series.
var nan = math.NaN()

// abs returns the absolute value of a float64.
func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// sum calculates the sum of a slice of float64.
func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// mean calculates the arithmetic mean of a slice of float64.
// An empty slice has no mean and yields NaN.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return nan
	}
	return sum(values) / float64(len(values))
}

// stdDev calculates the population standard deviation of a slice of float64.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return nan
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// ratio divides num by den, yielding NaN for a zero or non-finite denominator.
func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return nan
	}
	return num / den
}

// trueRange calculates the true range for a bar.
func trueRange(current, previous models.Bar) float64 {
	highLow := current.High - current.Low
	highClose := abs(current.High - previous.Close)
	lowClose := abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}

// closePrices extracts close prices from bars.
func closePrices(bars []models.Bar) []float64 {
	prices := make([]float64, len(bars))
	for i, b := range bars {
		prices[i] = b.Close
	}
	return prices
}

// volumes extracts volumes from bars as float64.
func volumes(bars []models.Bar) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = float64(b.Volume)
	}
	return vols
}

// nanSeries returns a series of length n filled with NaN.
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = nan
	}
	return out
}

// at returns series[i] as an optional value; out of range and NaN are absent.
func at(series []float64, i int) models.Float {
	if i < 0 || i >= len(series) {
		return models.None()
	}
	return models.Some(series[i])
}
