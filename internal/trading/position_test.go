package trading

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/logging"
	"signal-engine/internal/metrics"
	"signal-engine/internal/models"
)

type memPositions struct {
	positions []models.Position
	err       error
}

func (m *memPositions) ListPositions(_ context.Context, status models.PositionStatus) ([]models.Position, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Position
	for _, p := range m.positions {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPositions) GetPosition(_ context.Context, id string) (*models.Position, error) {
	for _, p := range m.positions {
		if p.ID == id {
			pos := p
			return &pos, nil
		}
	}
	return nil, nil
}

type memRecords struct {
	records map[string]models.TechnicalRecord
	calls   int
	err     error
}

func (m *memRecords) LatestTechnicalRecord(_ context.Context, symbol string) (*models.TechnicalRecord, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	rec, ok := m.records[symbol]
	if !ok {
		return nil, apperrors.NewDataError("technical_record", symbol, "no record", apperrors.ErrDataNotFound)
	}
	return &rec, nil
}

func TestMonitorSweep(t *testing.T) {
	open := stopLossPosition(90)
	second := stopLossPosition(90)
	second.ID = "pos-2"
	closed := stopLossPosition(90)
	closed.ID = "pos-3"
	closed.Status = models.PositionClosed
	orphan := stopLossPosition(40)
	orphan.ID = "pos-4"
	orphan.Symbol = "NODATA"

	positions := &memPositions{positions: []models.Position{open, second, closed, orphan}}
	records := &memRecords{records: map[string]models.TechnicalRecord{
		"ACME": {Snapshot: *snapshotAt(88)},
	}}
	m := metrics.New()
	monitor := NewMonitor(positions, records, NewExitEvaluator(5), m)

	got, err := monitor.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected three open positions, got %d", len(got))
	}
	if records.calls != 2 {
		t.Errorf("expected one lookup per symbol, got %d", records.calls)
	}
	for _, pa := range got[:2] {
		if pa.Alerts[0].Severity != models.SeverityCritical {
			t.Errorf("%s: expected critical, got %s", pa.Position.ID, pa.Alerts[0].Severity)
		}
	}
	if got[2].Alerts[0].Kind != models.AlertDataUnavailable {
		t.Errorf("position without data: got %+v", got[2].Alerts[0])
	}
}

func TestMonitorSweepListError(t *testing.T) {
	boom := errors.New("db down")
	monitor := NewMonitor(&memPositions{err: boom}, &memRecords{}, nil, nil)
	if _, err := monitor.Sweep(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected list error, got %v", err)
	}
}

func TestMonitorCheck(t *testing.T) {
	positions := &memPositions{positions: []models.Position{stopLossPosition(90)}}
	records := &memRecords{records: map[string]models.TechnicalRecord{
		"ACME": {Snapshot: *snapshotAt(93)},
	}}
	monitor := NewMonitor(positions, records, nil, nil)

	pa, err := monitor.Check(context.Background(), "pos-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(pa.Alerts) != 1 || pa.Alerts[0].Severity != models.SeverityWarning {
		t.Errorf("alerts = %+v", pa.Alerts)
	}

	if _, err := monitor.Check(context.Background(), "missing"); !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("expected ErrDataNotFound, got %v", err)
	}
}

func TestMonitorCheckLogsRecordFailure(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), zerolog.New(&buf))

	positions := &memPositions{positions: []models.Position{stopLossPosition(90)}}
	monitor := NewMonitor(positions, &memRecords{err: errors.New("disk I/O error")}, nil, nil)

	pa, err := monitor.Check(ctx, "pos-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(pa.Alerts) != 1 || pa.Alerts[0].Kind != models.AlertDataUnavailable {
		t.Errorf("alerts = %+v", pa.Alerts)
	}
	line := buf.String()
	if !strings.Contains(line, `"level":"warn"`) || !strings.Contains(line, `"symbol":"ACME"`) {
		t.Errorf("expected a symbol-scoped warning, got %q", line)
	}
}
