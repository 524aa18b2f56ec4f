package models

import (
	"fmt"
	"time"
)

// CrossKind identifies which relationship a cross event tracks.
type CrossKind string

const (
	CrossMA50       CrossKind = "ma50_cross"
	CrossMA200      CrossKind = "ma200_cross"
	CrossSupertrend CrossKind = "supertrend_flip"
	CrossGolden     CrossKind = "golden_cross"
	CrossDeath      CrossKind = "death_cross"
)

// CrossEvent is emitted on the day a price/indicator relationship changes side.
type CrossEvent struct {
	Symbol           string    `json:"symbol"`
	Date             time.Time `json:"date"`
	Kind             CrossKind `json:"kind"`
	Direction        Direction `json:"direction"`
	ReferenceLevel   float64   `json:"reference_level"`
	MagnitudePercent float64   `json:"magnitude_percent"`
}

// VolumeSpike is emitted when a day's volume exceeds its baseline by the configured multiple.
type VolumeSpike struct {
	Symbol             string    `json:"symbol"`
	Date               time.Time `json:"date"`
	TodayVolume        int64     `json:"today_volume"`
	BaselineVolume     float64   `json:"baseline_volume"`
	SpikePercent       float64   `json:"spike_percent"`
	PriceChangePercent Float     `json:"price_change_percent"`
}

// BoxStatus is the lifecycle status of a consolidation box.
type BoxStatus string

const (
	BoxActive        BoxStatus = "active"
	BoxBroken        BoxStatus = "broken"
	BoxFalseBreakout BoxStatus = "false_breakout"
	BoxBreakdown     BoxStatus = "breakdown"
)

// Terminal reports whether the status ends the box's lifecycle.
func (s BoxStatus) Terminal() bool {
	return s == BoxBroken || s == BoxFalseBreakout || s == BoxBreakdown
}

// ConsolidationBox is a Darvas-style price range and its breakout outcome.
type ConsolidationBox struct {
	Symbol            string     `json:"symbol"`
	FormationDate     time.Time  `json:"formation_date"`
	BoxHigh           float64    `json:"box_high"`
	BoxLow            float64    `json:"box_low"`
	ConsolidationDays int        `json:"consolidation_days"`
	Status            BoxStatus  `json:"status"`
	BreakoutLevel     Float      `json:"breakout_level"`
	BreakoutDate      *time.Time `json:"breakout_date,omitempty"`
	ResolvedDate      *time.Time `json:"resolved_date,omitempty"`
	VolumeConfirmed   bool       `json:"volume_confirmed"`
}

// ID returns the pattern id used to key box records.
func (b ConsolidationBox) ID() string {
	return fmt.Sprintf("%s:%s", b.Symbol, DateKey(b.FormationDate))
}

// BoxEventKind names a consolidation-box lifecycle transition.
type BoxEventKind string

const (
	BoxFormed          BoxEventKind = "formed"
	BoxBreakoutPending BoxEventKind = "breakout_pending"
	BoxPendingExpired  BoxEventKind = "pending_expired"
	BoxBrokenOut       BoxEventKind = "broken"
	BoxFailed          BoxEventKind = "false_breakout"
	BoxBrokenDown      BoxEventKind = "breakdown"
)

// BoxEvent records one lifecycle transition with the box as it stood afterwards.
type BoxEvent struct {
	Date time.Time        `json:"date"`
	Kind BoxEventKind     `json:"kind"`
	Box  ConsolidationBox `json:"box"`
}

// CompositeSignal is the day's reduced technical call.
type CompositeSignal struct {
	Symbol        string         `json:"symbol"`
	Date          time.Time      `json:"date"`
	Score         int            `json:"score"`
	Label         SignalLabel    `json:"label"`
	Contributions map[string]int `json:"contributions"`
}

// TechnicalRecord is the per-symbol, per-day output record suitable for upsert by date and symbol.
type TechnicalRecord struct {
	Snapshot  IndicatorSnapshot `json:"snapshot"`
	Composite CompositeSignal   `json:"composite"`
}
