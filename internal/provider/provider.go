// Package provider supplies daily bars and fundamental ratios to the engine.
// Providers are pure readers; Guard wraps them with a timeout, retries and a
// per-provider circuit breaker.
package provider

import (
	"context"
	"time"

	"signal-engine/internal/models"
)

// BarProvider returns ascending daily bars for a symbol.
type BarProvider interface {
	Name() string
	FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
}

// FundamentalsProvider returns the latest ratios for a symbol. A symbol with no
// ratios yields an error wrapping errors.ErrDataNotFound.
type FundamentalsProvider interface {
	Name() string
	FetchFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error)
}

// BarReader is the subset of the store the SQLite provider reads bars from.
type BarReader interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
}

// FundamentalsReader is the subset of the store the SQLite provider reads ratios from.
type FundamentalsReader interface {
	GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error)
}
