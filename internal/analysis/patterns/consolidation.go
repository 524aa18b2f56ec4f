package patterns

import (
	"errors"
	"fmt"
	"math"
	"time"

	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
)

// BoxConfig holds the consolidation-box thresholds.
type BoxConfig struct {
	MinDays               int     // consecutive days inside the range before a box forms
	MaxRangePercent       float64 // (high-low)/low*100 ceiling of the forming range
	FalseBreakoutWindow   int     // days after an unconfirmed breakout in which a close back inside fails it
	VolumeConfirmMultiple float64 // breakout volume must exceed baseline times this
}

// DefaultBoxConfig returns the standard thresholds.
func DefaultBoxConfig() BoxConfig {
	return BoxConfig{
		MinDays:               10,
		MaxRangePercent:       5.0,
		FalseBreakoutWindow:   3,
		VolumeConfirmMultiple: 1.0,
	}
}

// RunBar is one day of a forming range.
type RunBar struct {
	Date time.Time `json:"date"`
	High float64   `json:"high"`
	Low  float64   `json:"low"`
}

// BoxState is the per-symbol consolidation state carried from one day to the next.
// Box holds the active box, or the last resolved one while the next range forms.
type BoxState struct {
	Symbol      string                   `json:"symbol"`
	LastDate    time.Time                `json:"last_date"`
	Run         []RunBar                 `json:"run,omitempty"`
	Box         *models.ConsolidationBox `json:"box,omitempty"`
	Pending     bool                     `json:"pending"`
	PendingDays int                      `json:"pending_days"`
}

// NewBoxState returns the empty state for a symbol.
func NewBoxState(symbol string) BoxState {
	return BoxState{Symbol: symbol}
}

// Active reports whether the state holds an unresolved box.
func (s BoxState) Active() bool {
	return s.Box != nil && s.Box.Status == models.BoxActive
}

// BoxDay is one day of input to the box fold.
type BoxDay struct {
	Bar      models.Bar
	Baseline models.Float
}

// Step advances the state by one bar. The prior state is never modified; on a
// lifecycle violation the prior state is returned unchanged with a StateError.
func Step(cfg BoxConfig, prior BoxState, bar models.Bar, baseline models.Float) (BoxState, []models.BoxEvent, error) {
	if err := prior.check(bar); err != nil {
		return prior, nil, err
	}

	next := prior.clone()
	next.LastDate = bar.Date

	if !validBar(bar) {
		return next, nil, nil
	}

	if next.Active() {
		events := next.advanceActive(cfg, bar, baseline)
		return next, events, nil
	}

	events := next.advanceForming(cfg, bar)
	return next, events, nil
}

// Fold applies days in order. Days that violate the lifecycle leave the state
// unchanged and their errors are joined into the returned error.
func Fold(cfg BoxConfig, state BoxState, days []BoxDay) (BoxState, []models.BoxEvent, error) {
	var (
		events []models.BoxEvent
		errs   []error
	)
	for _, day := range days {
		next, ev, err := Step(cfg, state, day.Bar, day.Baseline)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		state = next
		events = append(events, ev...)
	}
	return state, events, errors.Join(errs...)
}

func (s BoxState) check(bar models.Bar) error {
	if !s.LastDate.IsZero() && !bar.Date.After(s.LastDate) {
		return apperrors.NewStateError(s.Symbol, s.phase(),
			fmt.Sprintf("bar %s is not after last processed day %s", models.DateKey(bar.Date), models.DateKey(s.LastDate)))
	}
	if s.Pending && !s.Active() {
		return apperrors.NewStateError(s.Symbol, s.phase(), "pending breakout without an active box")
	}
	if s.Box != nil && s.Box.BoxHigh < s.Box.BoxLow {
		return apperrors.NewStateError(s.Symbol, s.phase(), "box high below box low")
	}
	if s.Box != nil && s.Box.Symbol != s.Symbol {
		return apperrors.NewStateError(s.Symbol, s.phase(), fmt.Sprintf("box belongs to %s", s.Box.Symbol))
	}
	if s.Active() && len(s.Run) > 0 {
		return apperrors.NewStateError(s.Symbol, s.phase(), "forming run alongside an active box")
	}
	return nil
}

func (s BoxState) phase() string {
	switch {
	case s.Box == nil:
		return "forming"
	case s.Pending:
		return "active (pending breakout)"
	}
	return string(s.Box.Status)
}

func (s BoxState) clone() BoxState {
	out := s
	if s.Run != nil {
		out.Run = append([]RunBar(nil), s.Run...)
	}
	if s.Box != nil {
		box := *s.Box
		out.Box = &box
	}
	return out
}

func validBar(bar models.Bar) bool {
	for _, v := range []float64{bar.High, bar.Low, bar.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return bar.High >= bar.Low
}

// advanceForming extends the forming range with today's bar, dropping the
// oldest days until the range fits, and forms a box once the run is long enough.
func (s *BoxState) advanceForming(cfg BoxConfig, bar models.Bar) []models.BoxEvent {
	s.Run = append(s.Run, RunBar{Date: bar.Date, High: bar.High, Low: bar.Low})
	for len(s.Run) > 1 && rangePercent(s.Run) > cfg.MaxRangePercent {
		s.Run = s.Run[1:]
	}
	if rangePercent(s.Run) > cfg.MaxRangePercent || len(s.Run) < cfg.MinDays {
		return nil
	}

	high, low := runBounds(s.Run)
	s.Box = &models.ConsolidationBox{
		Symbol:            s.Symbol,
		FormationDate:     bar.Date,
		BoxHigh:           high,
		BoxLow:            low,
		ConsolidationDays: len(s.Run),
		Status:            models.BoxActive,
	}
	s.Run = nil
	return []models.BoxEvent{{Date: bar.Date, Kind: models.BoxFormed, Box: *s.Box}}
}

// advanceActive classifies today's close against an active box.
func (s *BoxState) advanceActive(cfg BoxConfig, bar models.Bar, baseline models.Float) []models.BoxEvent {
	var events []models.BoxEvent
	box := s.Box

	if s.Pending {
		s.PendingDays++
		if s.PendingDays > cfg.FalseBreakoutWindow {
			s.clearPending()
			events = append(events, models.BoxEvent{Date: bar.Date, Kind: models.BoxPendingExpired, Box: *box})
		}
	}

	switch {
	case bar.Close > box.BoxHigh:
		if volumeConfirmed(cfg, bar, baseline) {
			s.resolve(bar, models.BoxBroken)
			box.BreakoutLevel = models.Some(bar.Close)
			box.BreakoutDate = timePtr(bar.Date)
			box.VolumeConfirmed = true
			return append(events, models.BoxEvent{Date: bar.Date, Kind: models.BoxBrokenOut, Box: *box})
		}
		box.ConsolidationDays++
		if !s.Pending {
			s.Pending = true
			s.PendingDays = 0
			box.BreakoutLevel = models.Some(bar.Close)
			box.BreakoutDate = timePtr(bar.Date)
			events = append(events, models.BoxEvent{Date: bar.Date, Kind: models.BoxBreakoutPending, Box: *box})
		}
		return events

	case bar.Close < box.BoxLow:
		s.resolve(bar, models.BoxBreakdown)
		return append(events, models.BoxEvent{Date: bar.Date, Kind: models.BoxBrokenDown, Box: *box})

	case s.Pending:
		s.resolve(bar, models.BoxFalseBreakout)
		return append(events, models.BoxEvent{Date: bar.Date, Kind: models.BoxFailed, Box: *box})
	}

	box.ConsolidationDays++
	return events
}

func (s *BoxState) resolve(bar models.Bar, status models.BoxStatus) {
	s.Box.Status = status
	s.Box.ResolvedDate = timePtr(bar.Date)
	s.Pending = false
	s.PendingDays = 0
}

func (s *BoxState) clearPending() {
	s.Pending = false
	s.PendingDays = 0
	s.Box.BreakoutLevel = models.None()
	s.Box.BreakoutDate = nil
}

func volumeConfirmed(cfg BoxConfig, bar models.Bar, baseline models.Float) bool {
	b, ok := baseline.Get()
	if !ok || b <= 0 {
		return false
	}
	return float64(bar.Volume) > b*cfg.VolumeConfirmMultiple
}

func runBounds(run []RunBar) (high, low float64) {
	high, low = run[0].High, run[0].Low
	for _, r := range run[1:] {
		high = math.Max(high, r.High)
		low = math.Min(low, r.Low)
	}
	return high, low
}

func rangePercent(run []RunBar) float64 {
	high, low := runBounds(run)
	return (high - low) / low * 100
}

func timePtr(t time.Time) *time.Time {
	return &t
}
