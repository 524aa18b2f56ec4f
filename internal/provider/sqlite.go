package provider

import (
	"context"
	"time"

	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
)

// StoreProvider serves bars and fundamentals previously imported into the store.
type StoreProvider struct {
	bars         BarReader
	fundamentals FundamentalsReader
}

// NewStoreProvider creates a provider backed by the local database.
func NewStoreProvider(bars BarReader, fundamentals FundamentalsReader) *StoreProvider {
	return &StoreProvider{bars: bars, fundamentals: fundamentals}
}

func (p *StoreProvider) Name() string { return "sqlite" }

// FetchBars returns stored bars. No bars at all is reported as ErrDataNotFound.
func (p *StoreProvider) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	bars, err := p.bars.GetBars(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, apperrors.NewDataError("bars", symbol, "no stored bars", apperrors.ErrDataNotFound)
	}
	return bars, nil
}

func (p *StoreProvider) FetchFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	return p.fundamentals.GetFundamentals(ctx, symbol)
}
