package engine

import (
	"context"
	"errors"
	"time"

	"signal-engine/internal/analysis/scoring"
	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/logging"
	"signal-engine/internal/models"
)

// Recommendation combines the fundamental rating with investor suitability.
type Recommendation struct {
	Symbol       string                        `json:"symbol"`
	Fundamentals *models.Fundamentals          `json:"fundamentals,omitempty"`
	Rating       *models.FundamentalRating     `json:"rating,omitempty"`
	Technical    *models.TechnicalRecord       `json:"technical,omitempty"`
	Investor     models.InvestorRecommendation `json:"investor"`
}

// Recommend rates the symbol's fundamentals and scores it against every
// investor profile. The latest stored technical record is used when present,
// otherwise the symbol is analyzed first. Missing inputs degrade the result
// rather than failing it.
func (e *Engine) Recommend(ctx context.Context, symbol string) (*Recommendation, error) {
	logger := logging.WithSymbol(logging.FromContext(ctx), symbol)
	rec := &Recommendation{Symbol: symbol}

	technical, err := e.technical(ctx, symbol)
	switch {
	case err == nil:
		rec.Technical = technical
	case errors.Is(err, apperrors.ErrDataNotFound):
		logger.Debug().Msg("No technical data")
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		logger.Warn().Err(err).Msg("Technical analysis unavailable")
	}

	if e.sources.Fundamentals != nil {
		start := time.Now()
		f, err := e.guard.Fundamentals(ctx, e.sources.Fundamentals, symbol)
		logging.LogFetch(logger, e.sources.Fundamentals.Name(), symbol, time.Since(start), err)
		switch {
		case err == nil:
			rec.Fundamentals = f
			rating := e.rater.Rate(*f)
			rec.Rating = &rating
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case !errors.Is(err, apperrors.ErrDataNotFound):
			logger.Warn().Err(err).Msg("Fundamentals unavailable")
		}
	}

	rec.Investor = e.suitability.Recommend(scoring.SuitabilityInput{
		Symbol:       symbol,
		Technical:    rec.Technical,
		Fundamentals: rec.Fundamentals,
		Rating:       rec.Rating,
	})
	return rec, nil
}

func (e *Engine) technical(ctx context.Context, symbol string) (*models.TechnicalRecord, error) {
	stored, err := e.store.LatestTechnicalRecord(ctx, symbol)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, apperrors.ErrDataNotFound) {
		return nil, err
	}
	analysis, err := e.AnalyzeSymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &analysis.Record, nil
}
