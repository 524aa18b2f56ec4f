// Package trading evaluates stored positions against their exit criteria.
// It reads positions and indicator snapshots and never mutates either.
package trading

import (
	"context"

	"signal-engine/internal/models"
)

// PositionReader exposes the stored positions.
type PositionReader interface {
	ListPositions(ctx context.Context, status models.PositionStatus) ([]models.Position, error)
	GetPosition(ctx context.Context, id string) (*models.Position, error)
}

// SnapshotReader exposes the latest technical record of a symbol.
type SnapshotReader interface {
	LatestTechnicalRecord(ctx context.Context, symbol string) (*models.TechnicalRecord, error)
}

// Criterion names an exit condition.
type Criterion string

const (
	CriterionStopLoss          Criterion = "stop_loss"
	CriterionTarget            Criterion = "target"
	CriterionBelowEMA50        Criterion = "below_ema_50"
	CriterionBelowSMA100       Criterion = "below_sma_100"
	CriterionBelowSMA200       Criterion = "below_sma_200"
	CriterionSupertrendBearish Criterion = "supertrend_bearish"
	CriterionCustomPrice       Criterion = "custom_price"
)

// Criteria lists every criterion in evaluation order.
var Criteria = []Criterion{
	CriterionStopLoss,
	CriterionTarget,
	CriterionBelowEMA50,
	CriterionBelowSMA100,
	CriterionBelowSMA200,
	CriterionSupertrendBearish,
	CriterionCustomPrice,
}

// PositionAlerts groups the alerts of one position.
type PositionAlerts struct {
	Position models.Position    `json:"position"`
	Alerts   []models.ExitAlert `json:"alerts"`
}
