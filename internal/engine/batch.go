package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"signal-engine/internal/logging"
)

// SyncBatch is the sync_status key recording the last completed batch.
const SyncBatch = "batch"

// BatchReport summarizes one batch run.
type BatchReport struct {
	Started          time.Time         `json:"started"`
	Duration         time.Duration     `json:"duration"`
	Symbols          int               `json:"symbols"`
	Processed        int               `json:"processed"`
	Failed           int               `json:"failed"`
	FailuresBySymbol map[string]string `json:"failures_by_symbol,omitempty"`
	Results          []*Analysis       `json:"-"`
}

type symbolResult struct {
	symbol   string
	analysis *Analysis
	err      error
}

// RunBatch analyzes symbols in parallel on a bounded pool. Each symbol is
// independent: a failure, or a panic, is recorded against that symbol and the
// rest of the batch continues. An empty list runs every stored symbol.
func (e *Engine) RunBatch(ctx context.Context, symbols []string) (*BatchReport, error) {
	logger := logging.WithOperation(logging.FromContext(ctx), "batch")

	if len(symbols) == 0 {
		stored, err := e.store.Symbols(ctx)
		if err != nil {
			return nil, fmt.Errorf("list symbols: %w", err)
		}
		symbols = stored
	}
	symbols = dedupe(symbols)

	report := &BatchReport{
		Started:          e.now(),
		Symbols:          len(symbols),
		FailuresBySymbol: make(map[string]string),
	}

	p := pool.NewWithResults[symbolResult]().WithMaxGoroutines(e.cfg.Workers)
	for _, symbol := range symbols {
		symbol := symbol
		p.Go(func() symbolResult {
			return e.runOne(ctx, symbol)
		})
	}
	results := p.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].symbol < results[j].symbol })

	for _, r := range results {
		if r.err != nil {
			report.Failed++
			report.FailuresBySymbol[r.symbol] = r.err.Error()
			stage := Stage(r.err)
			if stage == "" {
				stage = StageCompute
			}
			e.metrics.SymbolFailed(stage)
			symLogger := logging.WithSymbol(logger, r.symbol)
			symLogger.Warn().Err(r.err).Str("stage", stage).Msg("Symbol failed")
			continue
		}
		report.Processed++
		report.Results = append(report.Results, r.analysis)
	}
	report.Duration = e.now().Sub(report.Started)
	e.metrics.BatchDone(report.Duration)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if err := e.store.SetLastSync(SyncBatch, e.now()); err != nil {
		logger.Warn().Err(err).Msg("Failed to record batch sync time")
	}

	logger.Info().
		Int("symbols", report.Symbols).
		Int("processed", report.Processed).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("Batch completed")
	return report, nil
}

func (e *Engine) runOne(ctx context.Context, symbol string) symbolResult {
	res := symbolResult{symbol: symbol}
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}
	var pc panics.Catcher
	pc.Try(func() {
		res.analysis, res.err = e.AnalyzeSymbol(ctx, symbol)
	})
	if r := pc.Recovered(); r != nil {
		res.analysis = nil
		res.err = fail(StageCompute, r.AsError())
	}
	return res
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
