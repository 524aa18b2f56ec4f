// Package engine runs the per-symbol analysis pipeline: fetch bars, build
// indicator snapshots, run the detectors, fold the consolidation state and
// score the day. Results are persisted through the store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signal-engine/internal/analysis/indicators"
	"signal-engine/internal/analysis/patterns"
	"signal-engine/internal/analysis/scoring"
	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/logging"
	"signal-engine/internal/metrics"
	"signal-engine/internal/models"
	"signal-engine/internal/provider"
	"signal-engine/internal/store"
	"signal-engine/pkg/utils"
)

// Config holds the tunables of the pipeline.
type Config struct {
	Indicators    indicators.Settings
	SpikeMultiple float64
	Box           patterns.BoxConfig
	RSI           scoring.RSIBands
	Workers       int
	LookbackDays  int // trading days of history fetched per symbol
	// PersistBars stores fetched bars, for providers other than the store itself.
	PersistBars bool
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		Indicators:    indicators.DefaultSettings(),
		SpikeMultiple: patterns.DefaultSpikeMultiple,
		Box:           patterns.DefaultBoxConfig(),
		RSI:           scoring.DefaultRSIBands(),
		Workers:       4,
		LookbackDays:  400,
	}
}

// Sources are the data inputs of the engine.
type Sources struct {
	Bars         provider.BarProvider
	Fundamentals provider.FundamentalsProvider
}

// Engine wires calculators, detectors and scorers over a store.
type Engine struct {
	cfg     Config
	store   store.DataStore
	sources Sources
	guard   *provider.Guard
	metrics *metrics.Metrics

	calc        *indicators.Calculator
	crosses     *patterns.CrossoverDetector
	spikes      *patterns.VolumeSpikeDetector
	composite   *scoring.CompositeScorer
	rater       *scoring.FundamentalScorer
	suitability *scoring.SuitabilityEngine

	now func() time.Time
}

// New creates an engine. guard and m may be nil.
func New(cfg Config, ds store.DataStore, sources Sources, guard *provider.Guard, m *metrics.Metrics) *Engine {
	if guard == nil {
		guard = provider.NewGuard(provider.DefaultGuardConfig(), m)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{
		cfg:         cfg,
		store:       ds,
		sources:     sources,
		guard:       guard,
		metrics:     m,
		calc:        indicators.NewCalculator(cfg.Indicators),
		crosses:     patterns.NewCrossoverDetector(),
		spikes:      patterns.NewVolumeSpikeDetector(cfg.SpikeMultiple),
		composite:   scoring.NewCompositeScorer(cfg.RSI),
		rater:       scoring.NewFundamentalScorer(),
		suitability: scoring.NewSuitabilityEngine(),
		now:         time.Now,
	}
}

// Analysis is the outcome of one symbol's daily run.
type Analysis struct {
	Record      models.TechnicalRecord   `json:"record"`
	Crosses     []models.CrossEvent      `json:"crosses"`
	VolumeSpike *models.VolumeSpike      `json:"volume_spike,omitempty"`
	Box         *models.ConsolidationBox `json:"box,omitempty"`
	BoxEvents   []models.BoxEvent        `json:"box_events"`
	// StateWarning is set when stored box state could not advance.
	StateWarning string `json:"state_warning,omitempty"`
}

// Pipeline stages, used to label failures.
const (
	StageFetch   = "fetch"
	StageCompute = "compute"
	StageStore   = "store"
)

// stageError tags a failure with the pipeline stage it happened in.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// Stage returns the pipeline stage a failure came from, or "" if unknown.
func Stage(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return ""
}

func fail(stage string, err error) error {
	return &stageError{stage: stage, err: err}
}

// AnalyzeSymbol runs the full pipeline for one symbol and persists the record,
// events and box state.
func (e *Engine) AnalyzeSymbol(ctx context.Context, symbol string) (*Analysis, error) {
	logger := logging.WithSymbol(logging.FromContext(ctx), symbol)
	start := e.now()

	bars, err := e.fetchBars(ctx, symbol)
	if err != nil {
		return nil, fail(StageFetch, err)
	}

	history, err := e.calc.History(symbol, bars)
	if err != nil {
		return nil, fail(StageCompute, err)
	}
	n := len(history)
	pair := models.SnapshotPair{Today: history[n-1]}
	if n > 1 {
		pair.Previous = &history[n-2]
	}

	out := &Analysis{Crosses: e.crosses.Detect(pair)}
	spike, ok := e.spikes.Detect(pair)
	if ok {
		out.VolumeSpike = &spike
	}

	state, err := e.store.LoadBoxState(ctx, symbol)
	if err != nil {
		return nil, fail(StageStore, fmt.Errorf("load box state: %w", err))
	}
	state, out.BoxEvents, err = e.foldBox(state, bars, history)
	if err != nil {
		if !errors.Is(err, apperrors.ErrIncompatibleState) {
			return nil, fail(StageCompute, err)
		}
		e.metrics.StateRejected()
		out.StateWarning = err.Error()
		logger.Warn().Err(err).Msg("Consolidation state not advanced")
	}
	if state.Box != nil {
		box := *state.Box
		out.Box = &box
	}

	out.Record = models.TechnicalRecord{
		Snapshot: pair.Today,
		Composite: e.composite.Score(scoring.DetectorOutputs{
			Snapshot:    pair.Today,
			Crosses:     out.Crosses,
			VolumeSpike: out.VolumeSpike,
		}),
	}

	if err := e.persist(ctx, bars, state, out); err != nil {
		return nil, fail(StageStore, err)
	}

	e.metrics.SymbolOK(e.now().Sub(start))
	for _, ev := range out.Crosses {
		logging.LogCross(logger, ev)
	}
	for _, ev := range out.BoxEvents {
		logging.LogBoxEvent(logger, ev)
	}
	logging.LogSignal(logger, out.Record.Composite)
	return out, nil
}

func (e *Engine) fetchBars(ctx context.Context, symbol string) ([]models.Bar, error) {
	var from time.Time
	if e.cfg.LookbackDays > 0 {
		from = utils.TradingDaysBack(e.now(), e.cfg.LookbackDays)
	}
	start := e.now()
	bars, err := e.guard.Bars(ctx, e.sources.Bars, symbol, from, time.Time{})
	logging.LogFetch(logging.FromContext(ctx), e.sources.Bars.Name(), symbol, e.now().Sub(start), err)
	return bars, err
}

// foldBox advances the stored state over the days it has not seen. A series
// that ends before the state's last day is replayed through Step so the
// rejection surfaces as a StateError.
func (e *Engine) foldBox(state patterns.BoxState, bars []models.Bar, history []models.IndicatorSnapshot) (patterns.BoxState, []models.BoxEvent, error) {
	var days []patterns.BoxDay
	for i, bar := range bars {
		if !state.LastDate.IsZero() && !bar.Date.After(state.LastDate) {
			continue
		}
		days = append(days, patterns.BoxDay{Bar: bar, Baseline: history[i].VolumeBaseline})
	}
	if len(days) == 0 {
		last := bars[len(bars)-1]
		if last.Date.Before(state.LastDate) {
			_, _, err := patterns.Step(e.cfg.Box, state, last, history[len(history)-1].VolumeBaseline)
			return state, nil, err
		}
		return state, nil, nil
	}
	return patterns.Fold(e.cfg.Box, state, days)
}

func (e *Engine) persist(ctx context.Context, bars []models.Bar, state patterns.BoxState, out *Analysis) error {
	symbol := out.Record.Snapshot.Symbol
	if e.cfg.PersistBars {
		if err := e.store.SaveBars(ctx, symbol, bars); err != nil {
			return fmt.Errorf("save bars: %w", err)
		}
	}
	if err := e.store.SaveTechnicalRecord(ctx, out.Record); err != nil {
		return fmt.Errorf("save technical record: %w", err)
	}
	if err := e.store.SaveCrossEvents(ctx, out.Crosses); err != nil {
		return fmt.Errorf("save cross events: %w", err)
	}
	if out.VolumeSpike != nil {
		if err := e.store.SaveVolumeSpike(ctx, *out.VolumeSpike); err != nil {
			return fmt.Errorf("save volume spike: %w", err)
		}
	}
	if err := e.store.SaveBoxEvents(ctx, out.BoxEvents); err != nil {
		return fmt.Errorf("save box events: %w", err)
	}
	if err := e.store.SaveBoxState(ctx, state); err != nil {
		return fmt.Errorf("save box state: %w", err)
	}
	return nil
}
