package trading

import (
	"context"
	"fmt"

	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/logging"
	"signal-engine/internal/metrics"
	"signal-engine/internal/models"
)

// Monitor sweeps stored positions and evaluates their exit criteria against
// the latest technical record of each symbol.
type Monitor struct {
	positions PositionReader
	snapshots SnapshotReader
	evaluator *ExitEvaluator
	metrics   *metrics.Metrics
}

// NewMonitor creates a position monitor. m may be nil.
func NewMonitor(positions PositionReader, snapshots SnapshotReader, evaluator *ExitEvaluator, m *metrics.Metrics) *Monitor {
	if evaluator == nil {
		evaluator = NewExitEvaluator(DefaultProximityPercent)
	}
	return &Monitor{
		positions: positions,
		snapshots: snapshots,
		evaluator: evaluator,
		metrics:   m,
	}
}

// Sweep evaluates every open position. A missing snapshot degrades that
// position's alerts to data not available; it never fails the sweep.
func (m *Monitor) Sweep(ctx context.Context) ([]PositionAlerts, error) {
	log := logging.WithOperation(logging.FromContext(ctx), "position_sweep")

	positions, err := m.positions.ListPositions(ctx, models.PositionOpen)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	cache := make(map[string]*models.IndicatorSnapshot)
	out := make([]PositionAlerts, 0, len(positions))
	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		snap, ok := cache[pos.Symbol]
		if !ok {
			snap = m.latest(ctx, pos.Symbol)
			cache[pos.Symbol] = snap
		}
		out = append(out, m.evaluate(pos, snap))
	}

	critical := 0
	for _, pa := range out {
		for _, a := range pa.Alerts {
			if a.Severity == models.SeverityCritical {
				critical++
			}
		}
	}
	log.Info().Int("positions", len(out)).Int("critical", critical).Msg("Position sweep completed")
	return out, nil
}

// Check evaluates a single position by id.
func (m *Monitor) Check(ctx context.Context, id string) (PositionAlerts, error) {
	pos, err := m.positions.GetPosition(ctx, id)
	if err != nil {
		return PositionAlerts{}, fmt.Errorf("get position %s: %w", id, err)
	}
	if pos == nil {
		return PositionAlerts{}, apperrors.NewDataError("position", id, "position not found", apperrors.ErrDataNotFound)
	}
	return m.evaluate(*pos, m.latest(ctx, pos.Symbol)), nil
}

func (m *Monitor) latest(ctx context.Context, symbol string) *models.IndicatorSnapshot {
	rec, err := m.snapshots.LatestTechnicalRecord(ctx, symbol)
	if err != nil || rec == nil {
		if err != nil && !apperrors.Is(err, apperrors.ErrDataNotFound) {
			logger := logging.WithSymbol(logging.FromContext(ctx), symbol)
			logger.Warn().Err(err).Msg("Latest technical record unavailable")
		}
		return nil
	}
	return &rec.Snapshot
}

func (m *Monitor) evaluate(pos models.Position, snap *models.IndicatorSnapshot) PositionAlerts {
	alerts := m.evaluator.Evaluate(pos, snap)
	for _, a := range alerts {
		m.metrics.ExitAlert(string(a.Severity))
	}
	return PositionAlerts{Position: pos, Alerts: alerts}
}
