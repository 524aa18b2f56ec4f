package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"signal-engine/internal/analysis/patterns"
	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
)

var testDay = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func TestSymbolsAndFreshness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveBars(ctx, "BETA", generateTestBars(3, 50, 1000)); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveBars(ctx, "ALPHA", generateTestBars(5, 50, 1000)); err != nil {
		t.Fatal(err)
	}

	symbols, err := store.Symbols(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 2 || symbols[0] != "ALPHA" || symbols[1] != "BETA" {
		t.Errorf("symbols = %v", symbols)
	}

	fresh, err := store.GetBarsFreshness(ctx, "ALPHA")
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC); !fresh.Equal(want) {
		t.Errorf("freshness = %v, want %v", fresh, want)
	}

	bars, err := store.GetBars(ctx, "ALPHA", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 3 {
		t.Errorf("ranged query returned %d bars, want 3", len(bars))
	}
}

func TestFundamentalsKeepMissingRatios(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	f := models.Fundamentals{Symbol: "ACME", AsOf: testDay, PE: models.Some(14.5), ROE: models.Some(22)}
	if err := store.SaveFundamentals(ctx, f); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetFundamentals(ctx, "ACME")
	if err != nil {
		t.Fatal(err)
	}
	if pe, _ := got.PE.Get(); pe != 14.5 {
		t.Errorf("PE = %v", got.PE)
	}
	if got.PB.Valid() || got.DividendYield.Valid() {
		t.Error("absent ratios must stay absent")
	}
	if !got.AsOf.Equal(testDay) {
		t.Errorf("AsOf = %v", got.AsOf)
	}

	if _, err := store.GetFundamentals(ctx, "NONE"); !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("expected ErrDataNotFound, got %v", err)
	}
}

func TestLatestTechnicalRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	save := func(symbol string, day time.Time, score int) {
		t.Helper()
		rec := models.TechnicalRecord{
			Snapshot: models.IndicatorSnapshot{
				Symbol: symbol,
				AsOf:   day,
				Close:  100,
				RSI:    models.Some(55),
			},
			Composite: models.CompositeSignal{Symbol: symbol, Date: day, Score: score, Label: models.Neutral},
		}
		if err := store.SaveTechnicalRecord(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	save("ACME", testDay, 1)
	save("ACME", testDay.AddDate(0, 0, 1), 3)
	save("BOLT", testDay, -2)

	latest, err := store.LatestTechnicalRecord(ctx, "ACME")
	if err != nil {
		t.Fatal(err)
	}
	if latest.Composite.Score != 3 {
		t.Errorf("latest score = %d, want 3", latest.Composite.Score)
	}
	if rsi, _ := latest.Snapshot.RSI.Get(); rsi != 55 {
		t.Errorf("RSI = %v", latest.Snapshot.RSI)
	}
	if latest.Snapshot.MovingAverages.SMA200.Valid() {
		t.Error("absent SMA200 must survive the round trip as absent")
	}

	all, err := store.LatestTechnicalRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Snapshot.Symbol != "ACME" || all[1].Composite.Score != -2 {
		t.Errorf("latest records = %+v", all)
	}

	if _, err := store.LatestTechnicalRecord(ctx, "NONE"); !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("expected ErrDataNotFound, got %v", err)
	}
}

func TestEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	crosses := []models.CrossEvent{
		{Symbol: "ACME", Date: testDay, Kind: models.CrossMA50, Direction: models.Bullish, ReferenceLevel: 99, MagnitudePercent: 1.2},
		{Symbol: "ACME", Date: testDay, Kind: models.CrossMA200, Direction: models.Bullish, ReferenceLevel: 98, MagnitudePercent: 2.1},
	}
	if err := store.SaveCrossEvents(ctx, crosses); err != nil {
		t.Fatal(err)
	}
	// rerunning the day must not duplicate
	if err := store.SaveCrossEvents(ctx, crosses); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetCrossEvents(ctx, EventFilter{Symbol: "ACME"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("cross events = %d, want 2", len(got))
	}

	spike := models.VolumeSpike{Symbol: "ACME", Date: testDay, TodayVolume: 25000, BaselineVolume: 10000, SpikePercent: 150}
	if err := store.SaveVolumeSpike(ctx, spike); err != nil {
		t.Fatal(err)
	}
	spikes, err := store.GetVolumeSpikes(ctx, EventFilter{Since: testDay})
	if err != nil {
		t.Fatal(err)
	}
	if len(spikes) != 1 || spikes[0].SpikePercent != 150 || spikes[0].PriceChangePercent.Valid() {
		t.Errorf("spikes = %+v", spikes)
	}
}

func TestBoxEventsUpsertBox(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	box := models.ConsolidationBox{
		Symbol:            "ACME",
		FormationDate:     testDay,
		BoxHigh:           101.5,
		BoxLow:            99.5,
		ConsolidationDays: 10,
		Status:            models.BoxActive,
	}
	formed := models.BoxEvent{Date: testDay, Kind: models.BoxFormed, Box: box}

	resolved := box
	resolved.Status = models.BoxBroken
	resolved.BreakoutLevel = models.Some(103)
	breakout := testDay.AddDate(0, 0, 1)
	resolved.BreakoutDate = &breakout
	resolved.ResolvedDate = &breakout
	resolved.VolumeConfirmed = true
	broken := models.BoxEvent{Date: breakout, Kind: models.BoxBrokenOut, Box: resolved}

	if err := store.SaveBoxEvents(ctx, []models.BoxEvent{formed, broken}); err != nil {
		t.Fatal(err)
	}

	boxes, err := store.GetBoxes(ctx, EventFilter{Symbol: "ACME"})
	if err != nil {
		t.Fatal(err)
	}
	if len(boxes) != 1 {
		t.Fatalf("boxes = %d, want 1", len(boxes))
	}
	b := boxes[0]
	if b.Status != models.BoxBroken || !b.VolumeConfirmed || b.BreakoutDate == nil || !b.BreakoutDate.Equal(breakout) {
		t.Errorf("box = %+v", b)
	}
}

func TestBoxStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fresh, err := store.LoadBoxState(ctx, "ACME")
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Symbol != "ACME" || fresh.Box != nil || !fresh.LastDate.IsZero() {
		t.Errorf("unexpected fresh state %+v", fresh)
	}

	state := patterns.NewBoxState("ACME")
	state.LastDate = testDay
	state.Run = []patterns.RunBar{{Date: testDay, High: 101, Low: 99}}
	if err := store.SaveBoxState(ctx, state); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.LoadBoxState(ctx, "ACME")
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.LastDate.Equal(testDay) || len(loaded.Run) != 1 || loaded.Run[0].High != 101 {
		t.Errorf("loaded state = %+v", loaded)
	}
}

func TestPositions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	open := models.Position{
		ID:           "p1",
		Symbol:       "ACME",
		EntryPrice:   100,
		Quantity:     10,
		StopLoss:     models.Some(90),
		ExitCriteria: models.ExitCriteria{StopLoss: true, BelowSMA200: true},
		OpenedAt:     testDay,
	}
	closed := models.Position{ID: "p2", Symbol: "BOLT", EntryPrice: 50, Quantity: 5, Status: models.PositionClosed}
	for _, p := range []models.Position{open, closed} {
		if err := store.SavePosition(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.GetPosition(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PositionOpen || !got.ExitCriteria.BelowSMA200 || got.Target.Valid() {
		t.Errorf("position = %+v", got)
	}
	if stop, _ := got.StopLoss.Get(); stop != 90 {
		t.Errorf("stop = %v", got.StopLoss)
	}

	openOnly, err := store.ListPositions(ctx, models.PositionOpen)
	if err != nil {
		t.Fatal(err)
	}
	if len(openOnly) != 1 || openOnly[0].ID != "p1" {
		t.Errorf("open positions = %+v", openOnly)
	}

	if _, err := store.GetPosition(ctx, "missing"); !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("expected ErrDataNotFound, got %v", err)
	}
}

func TestLastSync(t *testing.T) {
	store := newTestStore(t)
	if !store.GetLastSync("batch").IsZero() {
		t.Error("expected zero time before any sync")
	}
	now := time.Now().UTC().Truncate(time.Second)
	if err := store.SetLastSync("batch", now); err != nil {
		t.Fatal(err)
	}
	if got := store.GetLastSync("batch"); !got.Equal(now) {
		t.Errorf("last sync = %v, want %v", got, now)
	}
}
