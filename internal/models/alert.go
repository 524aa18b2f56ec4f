package models

import "time"

// PositionStatus represents whether a position is open or closed.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// ExitCriteria are the user-selected exit conditions of a position.
type ExitCriteria struct {
	StopLoss          bool  `json:"stop_loss"`
	Target            bool  `json:"target"`
	BelowEMA50        bool  `json:"below_ema_50"`
	BelowSMA100       bool  `json:"below_sma_100"`
	BelowSMA200       bool  `json:"below_sma_200"`
	SupertrendBearish bool  `json:"supertrend_bearish"`
	CustomPrice       Float `json:"custom_price"`
}

// Position is a stored holding. The engine reads it and never mutates it.
type Position struct {
	ID           string         `json:"id"`
	Symbol       string         `json:"symbol"`
	EntryPrice   float64        `json:"entry_price"`
	Quantity     int            `json:"quantity"`
	StopLoss     Float          `json:"stop_loss"`
	Target       Float          `json:"target"`
	ExitCriteria ExitCriteria   `json:"exit_criteria"`
	Status       PositionStatus `json:"status"`
	OpenedAt     time.Time      `json:"opened_at"`
}

// Severity ranks exit alerts.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities critical (0) before warning (1) before info (2).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	}
	return 2
}

// AlertKind separates "condition evaluated" from "data missing".
type AlertKind string

const (
	AlertBreached        AlertKind = "breached"
	AlertApproaching     AlertKind = "approaching"
	AlertSafe            AlertKind = "safe"
	AlertDataUnavailable AlertKind = "data_unavailable"
)

// ExitAlert is the ephemeral outcome of evaluating one exit criterion.
type ExitAlert struct {
	PositionID          string    `json:"position_id"`
	Symbol              string    `json:"symbol"`
	Severity            Severity  `json:"severity"`
	Kind                AlertKind `json:"kind"`
	TriggeringCriterion string    `json:"triggering_criterion"`
	Message             string    `json:"message"`
	TriggerLevel        Float     `json:"trigger_level"`
	CurrentPrice        float64   `json:"current_price"`
	DistancePercent     Float     `json:"distance_percent"`
}
