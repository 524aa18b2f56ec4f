// Package indicators provides technical indicator calculations over daily bars.
package indicators

import (
	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
)

// Indicator defines the interface for single-value technical indicators.
// Calculate returns a series aligned with bars; entries before Period()-1 are NaN.
type Indicator interface {
	Name() string
	Calculate(bars []models.Bar) ([]float64, error)
	Period() int
}

// MultiValueIndicator defines the interface for indicators that return multiple values.
type MultiValueIndicator interface {
	Name() string
	Calculate(bars []models.Bar) (map[string][]float64, error)
	Period() int
}

// Settings holds the lookbacks used to build a snapshot.
type Settings struct {
	EMAShort             int
	EMAMedium            int
	Trend                int
	SMAMedium            int
	SMALong              int
	RSIPeriod            int
	MACDFast             int
	MACDSlow             int
	MACDSignal           int
	BollingerPeriod      int
	BollingerStdDev      float64
	SuperTrendPeriod     int
	SuperTrendMultiplier float64
	VolumePeriod         int
}

// DefaultSettings returns the standard lookbacks.
func DefaultSettings() Settings {
	return Settings{
		EMAShort:             9,
		EMAMedium:            21,
		Trend:                50,
		SMAMedium:            100,
		SMALong:              200,
		RSIPeriod:            14,
		MACDFast:             12,
		MACDSlow:             26,
		MACDSignal:           9,
		BollingerPeriod:      20,
		BollingerStdDev:      2.0,
		SuperTrendPeriod:     10,
		SuperTrendMultiplier: 3.0,
		VolumePeriod:         20,
	}
}

// Calculator builds indicator snapshots from a bar series.
type Calculator struct {
	ema9      Indicator
	ema21     Indicator
	sma50     Indicator
	ema50     Indicator
	sma100    Indicator
	sma200    Indicator
	rsi       Indicator
	volume    Indicator
	macd      MultiValueIndicator
	bollinger MultiValueIndicator
	trend     MultiValueIndicator
}

// NewCalculator creates a calculator for the given settings.
func NewCalculator(s Settings) *Calculator {
	return &Calculator{
		ema9:      NewEMA(s.EMAShort),
		ema21:     NewEMA(s.EMAMedium),
		sma50:     NewSMA(s.Trend),
		ema50:     NewEMA(s.Trend),
		sma100:    NewSMA(s.SMAMedium),
		sma200:    NewSMA(s.SMALong),
		rsi:       NewRSI(s.RSIPeriod),
		volume:    NewVolumeBaseline(s.VolumePeriod),
		macd:      NewMACD(s.MACDFast, s.MACDSlow, s.MACDSignal),
		bollinger: NewBollingerBands(s.BollingerPeriod, s.BollingerStdDev),
		trend:     NewSuperTrend(s.SuperTrendPeriod, s.SuperTrendMultiplier),
	}
}

// series holds every indicator series for one bar window.
type series struct {
	bars   []models.Bar
	single map[Indicator][]float64
	multi  map[MultiValueIndicator]map[string][]float64
}

func (c *Calculator) compute(bars []models.Bar) *series {
	s := &series{
		bars:   bars,
		single: make(map[Indicator][]float64),
		multi:  make(map[MultiValueIndicator]map[string][]float64),
	}
	for _, ind := range []Indicator{c.ema9, c.ema21, c.sma50, c.ema50, c.sma100, c.sma200, c.rsi, c.volume} {
		// Insufficient history leaves the series out; the field is then absent.
		if values, err := ind.Calculate(bars); err == nil {
			s.single[ind] = values
		}
	}
	for _, ind := range []MultiValueIndicator{c.macd, c.bollinger, c.trend} {
		if values, err := ind.Calculate(bars); err == nil {
			s.multi[ind] = values
		}
	}
	return s
}

func (s *series) value(ind Indicator, i int) models.Float {
	return at(s.single[ind], i)
}

func (s *series) band(ind MultiValueIndicator, key string, i int) models.Float {
	values, ok := s.multi[ind]
	if !ok {
		return models.None()
	}
	return at(values[key], i)
}

func (c *Calculator) snapshotAt(symbol string, s *series, i int) models.IndicatorSnapshot {
	bar := s.bars[i]
	snap := models.IndicatorSnapshot{
		Symbol: symbol,
		AsOf:   bar.Date,
		Close:  bar.Close,
		Volume: bar.Volume,
		Bars:   i + 1,
		MovingAverages: models.MovingAverages{
			EMA9:   s.value(c.ema9, i),
			EMA21:  s.value(c.ema21, i),
			SMA50:  s.value(c.sma50, i),
			EMA50:  s.value(c.ema50, i),
			SMA100: s.value(c.sma100, i),
			SMA200: s.value(c.sma200, i),
		},
		RSI: s.value(c.rsi, i),
		MACD: models.MACDBands{
			Line:      s.band(c.macd, "macd", i),
			Signal:    s.band(c.macd, "signal", i),
			Histogram: s.band(c.macd, "histogram", i),
		},
		Bollinger: models.BollingerBands{
			Upper:    s.band(c.bollinger, "upper", i),
			Middle:   s.band(c.bollinger, "middle", i),
			Lower:    s.band(c.bollinger, "lower", i),
			PercentB: s.band(c.bollinger, "percent_b", i),
		},
		VolumeBaseline: s.value(c.volume, i),
	}

	line := s.band(c.trend, "supertrend", i)
	if dir, ok := s.band(c.trend, "direction", i).Get(); ok && line.Valid() {
		snap.Supertrend.Value = line
		if dir > 0 {
			snap.Supertrend.Direction = models.Bullish
		} else {
			snap.Supertrend.Direction = models.Bearish
		}
	}

	return snap
}

// Snapshot returns the indicator snapshot for the most recent bar.
func (c *Calculator) Snapshot(symbol string, bars []models.Bar) (models.IndicatorSnapshot, error) {
	if err := validateBars(symbol, bars); err != nil {
		return models.IndicatorSnapshot{}, err
	}
	s := c.compute(bars)
	return c.snapshotAt(symbol, s, len(bars)-1), nil
}

// Pair returns the snapshots for the most recent bar and the one before it
// from a single pass over the series.
func (c *Calculator) Pair(symbol string, bars []models.Bar) (models.SnapshotPair, error) {
	if err := validateBars(symbol, bars); err != nil {
		return models.SnapshotPair{}, err
	}
	s := c.compute(bars)
	pair := models.SnapshotPair{Today: c.snapshotAt(symbol, s, len(bars)-1)}
	if len(bars) > 1 {
		prev := c.snapshotAt(symbol, s, len(bars)-2)
		pair.Previous = &prev
	}
	return pair, nil
}

// History returns one snapshot per bar, oldest first.
func (c *Calculator) History(symbol string, bars []models.Bar) ([]models.IndicatorSnapshot, error) {
	if err := validateBars(symbol, bars); err != nil {
		return nil, err
	}
	s := c.compute(bars)
	out := make([]models.IndicatorSnapshot, len(bars))
	for i := range bars {
		out[i] = c.snapshotAt(symbol, s, i)
	}
	return out, nil
}

func validateBars(symbol string, bars []models.Bar) error {
	if len(bars) == 0 {
		return apperrors.NewDataError("bars", symbol, "empty series", ErrInsufficientData)
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return apperrors.NewDataError("bars", symbol, "bars not in ascending date order", nil)
		}
	}
	return nil
}
