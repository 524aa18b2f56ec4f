// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"signal-engine/internal/analysis/patterns"
	"signal-engine/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Bars
	SaveBars(ctx context.Context, symbol string, bars []models.Bar) error
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
	GetBarsFreshness(ctx context.Context, symbol string) (time.Time, error)
	Symbols(ctx context.Context) ([]string, error)

	// Fundamentals
	SaveFundamentals(ctx context.Context, f models.Fundamentals) error
	GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error)

	// Technical records, one per symbol and day
	SaveTechnicalRecord(ctx context.Context, rec models.TechnicalRecord) error
	LatestTechnicalRecord(ctx context.Context, symbol string) (*models.TechnicalRecord, error)
	LatestTechnicalRecords(ctx context.Context) ([]models.TechnicalRecord, error)

	// Events
	SaveCrossEvents(ctx context.Context, events []models.CrossEvent) error
	GetCrossEvents(ctx context.Context, filter EventFilter) ([]models.CrossEvent, error)
	SaveVolumeSpike(ctx context.Context, spike models.VolumeSpike) error
	GetVolumeSpikes(ctx context.Context, filter EventFilter) ([]models.VolumeSpike, error)
	SaveBoxEvents(ctx context.Context, events []models.BoxEvent) error
	GetBoxes(ctx context.Context, filter EventFilter) ([]models.ConsolidationBox, error)

	// Consolidation state carried between runs
	LoadBoxState(ctx context.Context, symbol string) (patterns.BoxState, error)
	SaveBoxState(ctx context.Context, state patterns.BoxState) error

	// Positions
	SavePosition(ctx context.Context, pos models.Position) error
	GetPosition(ctx context.Context, id string) (*models.Position, error)
	ListPositions(ctx context.Context, status models.PositionStatus) ([]models.Position, error)

	// Sync
	GetLastSync(dataType string) time.Time
	SetLastSync(dataType string, t time.Time) error

	// Lifecycle
	Close() error
}

// EventFilter represents filters for querying stored events.
type EventFilter struct {
	Symbol string
	Since  time.Time
	Limit  int
}
