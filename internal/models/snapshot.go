package models

import "time"

// MovingAverages holds the named moving averages of an indicator snapshot.
type MovingAverages struct {
	EMA9   Float `json:"ema_9"`
	EMA21  Float `json:"ema_21"`
	SMA50  Float `json:"sma_50"`
	EMA50  Float `json:"ema_50"`
	SMA100 Float `json:"sma_100"`
	SMA200 Float `json:"sma_200"`
}

// MACDBands holds the MACD line, signal line and histogram.
type MACDBands struct {
	Line      Float `json:"line"`
	Signal    Float `json:"signal"`
	Histogram Float `json:"histogram"`
}

// BollingerBands holds the volatility envelope.
type BollingerBands struct {
	Upper  Float `json:"upper"`
	Middle Float `json:"middle"`
	Lower  Float `json:"lower"`
	// PercentB is the close's position in the band: 0 at Lower, 1 at Upper.
	PercentB Float `json:"percent_b"`
}

// Supertrend holds the trend line value and its direction.
// Direction is empty when Value is absent.
type Supertrend struct {
	Value     Float     `json:"value"`
	Direction Direction `json:"direction,omitempty"`
}

// IndicatorSnapshot is the typed indicator state of a symbol as of one bar.
// Fields whose lookback exceeds the available history are absent.
type IndicatorSnapshot struct {
	Symbol         string         `json:"symbol"`
	AsOf           time.Time      `json:"as_of"`
	Close          float64        `json:"close"`
	Volume         int64          `json:"volume"`
	Bars           int            `json:"bars"`
	MovingAverages MovingAverages `json:"moving_averages"`
	RSI            Float          `json:"rsi"`
	MACD           MACDBands      `json:"macd"`
	Bollinger      BollingerBands `json:"bollinger"`
	Supertrend     Supertrend     `json:"supertrend"`
	VolumeBaseline Float          `json:"volume_baseline"`
}

// SnapshotPair carries today's snapshot with the previous bar's snapshot.
// Previous is nil when the series has a single bar.
type SnapshotPair struct {
	Today    IndicatorSnapshot
	Previous *IndicatorSnapshot
}
