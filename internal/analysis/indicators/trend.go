package indicators

import (
	"fmt"
	"math"

	"signal-engine/internal/models"
)

// SMA calculates Simple Moving Average.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string {
	return fmt.Sprintf("SMA_%d", s.period)
}

func (s *SMA) Period() int {
	return s.period
}

func (s *SMA) Calculate(bars []models.Bar) ([]float64, error) {
	if s.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < s.period {
		return nil, ErrInsufficientData
	}
	return CalculateSMA(closePrices(bars), s.period), nil
}

// CalculateSMA calculates SMA on raw values. Warmup entries are NaN.
func CalculateSMA(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}

	result := nanSeries(len(values))
	for i := period - 1; i < len(values); i++ {
		result[i] = mean(values[i-period+1 : i+1])
	}
	return result
}

// EMA calculates Exponential Moving Average.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator.
func NewEMA(period int) *EMA {
	return &EMA{period: period}
}

func (e *EMA) Name() string {
	return fmt.Sprintf("EMA_%d", e.period)
}

func (e *EMA) Period() int {
	return e.period
}

func (e *EMA) Calculate(bars []models.Bar) ([]float64, error) {
	if e.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < e.period {
		return nil, ErrInsufficientData
	}
	return CalculateEMA(closePrices(bars), e.period), nil
}

// CalculateEMA calculates EMA on raw values (helper for other indicators).
// The first value is the SMA of the first period values; earlier entries are NaN.
func CalculateEMA(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}

	result := nanSeries(len(values))
	multiplier := 2.0 / float64(period+1)

	result[period-1] = mean(values[:period])

	for i := period; i < len(values); i++ {
		result[i] = (values[i]-result[i-1])*multiplier + result[i-1]
	}

	return result
}

// MACD calculates Moving Average Convergence Divergence.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator. The usual periods are (12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

func (m *MACD) Period() int {
	return m.slowPeriod + m.signalPeriod - 1
}

func (m *MACD) Calculate(bars []models.Bar) (map[string][]float64, error) {
	if m.fastPeriod <= 0 || m.slowPeriod <= 0 || m.signalPeriod <= 0 || m.fastPeriod >= m.slowPeriod {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < m.Period() {
		return nil, ErrInsufficientData
	}

	n := len(bars)
	closes := closePrices(bars)
	fastEMA := CalculateEMA(closes, m.fastPeriod)
	slowEMA := CalculateEMA(closes, m.slowPeriod)

	// MACD Line = Fast EMA - Slow EMA
	macdLine := nanSeries(n)
	for i := m.slowPeriod - 1; i < n; i++ {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	// Signal Line = EMA of MACD Line
	signalLine := nanSeries(n)
	startIdx := m.slowPeriod - 1
	signalEMA := CalculateEMA(macdLine[startIdx:], m.signalPeriod)
	for i, v := range signalEMA {
		signalLine[startIdx+i] = v
	}

	histogram := nanSeries(n)
	for i := m.Period() - 1; i < n; i++ {
		histogram[i] = macdLine[i] - signalLine[i]
	}

	return map[string][]float64{
		"macd":      macdLine,
		"signal":    signalLine,
		"histogram": histogram,
	}, nil
}

// SuperTrend calculates the SuperTrend indicator.
type SuperTrend struct {
	atrPeriod  int
	multiplier float64
}

// NewSuperTrend creates a new SuperTrend indicator.
func NewSuperTrend(atrPeriod int, multiplier float64) *SuperTrend {
	return &SuperTrend{
		atrPeriod:  atrPeriod,
		multiplier: multiplier,
	}
}

func (s *SuperTrend) Name() string {
	return fmt.Sprintf("SuperTrend_%d_%.1f", s.atrPeriod, s.multiplier)
}

// Period returns the bars needed for the first value, which is when the ATR seeds.
func (s *SuperTrend) Period() int {
	return s.atrPeriod + 1
}

// Calculate returns the trend line and its direction (1 bullish, -1 bearish).
// The line sits below price in an uptrend and flips above it when a close breaks the lower band.
func (s *SuperTrend) Calculate(bars []models.Bar) (map[string][]float64, error) {
	if s.atrPeriod <= 0 || s.multiplier <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < s.Period() {
		return nil, ErrInsufficientData
	}

	n := len(bars)
	atrValues, err := NewATR(s.atrPeriod).Calculate(bars)
	if err != nil {
		return nil, err
	}

	superTrend := nanSeries(n)
	direction := nanSeries(n)
	upperBand := nanSeries(n)
	lowerBand := nanSeries(n)

	start := s.atrPeriod
	for i := start; i < n; i++ {
		hl2 := (bars[i].High + bars[i].Low) / 2
		upperBand[i] = hl2 + s.multiplier*atrValues[i]
		lowerBand[i] = hl2 - s.multiplier*atrValues[i]

		if i == start {
			if bars[i].Close > upperBand[i] {
				superTrend[i] = lowerBand[i]
				direction[i] = 1
			} else {
				superTrend[i] = upperBand[i]
				direction[i] = -1
			}
			continue
		}

		// Bands only tighten while the prior close stays inside them
		if lowerBand[i] < lowerBand[i-1] && bars[i-1].Close > lowerBand[i-1] {
			lowerBand[i] = lowerBand[i-1]
		}
		if upperBand[i] > upperBand[i-1] && bars[i-1].Close < upperBand[i-1] {
			upperBand[i] = upperBand[i-1]
		}

		if direction[i-1] < 0 {
			if bars[i].Close > upperBand[i] {
				superTrend[i] = lowerBand[i]
				direction[i] = 1
			} else {
				superTrend[i] = upperBand[i]
				direction[i] = -1
			}
		} else {
			if bars[i].Close < lowerBand[i] {
				superTrend[i] = upperBand[i]
				direction[i] = -1
			} else {
				superTrend[i] = lowerBand[i]
				direction[i] = 1
			}
		}

		if math.IsNaN(superTrend[i]) {
			direction[i] = nan
		}
	}

	return map[string][]float64{
		"supertrend": superTrend,
		"direction":  direction,
	}, nil
}
