package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "signal-engine/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadBarsFileGroupsAndSorts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mixed.csv", `symbol,date,open,high,low,close,volume
acme,2024-01-03,11,12,10,11.5,2000
ACME,2024-01-02,10,11,9,10.5,1000
beta,2024/01/02,5,6,4,5.5,300
`)

	grouped, err := ReadBarsFile(path)
	if err != nil {
		t.Fatalf("ReadBarsFile: %v", err)
	}
	acme := grouped["ACME"]
	if len(acme) != 2 {
		t.Fatalf("ACME bars = %d, want 2", len(acme))
	}
	if !acme[0].Date.Before(acme[1].Date) {
		t.Error("bars should be sorted by date")
	}
	if acme[0].Close != 10.5 || acme[0].Volume != 1000 {
		t.Errorf("first ACME bar = %+v", acme[0])
	}
	if len(grouped["BETA"]) != 1 {
		t.Errorf("BETA bars = %d, want 1", len(grouped["BETA"]))
	}
}

func TestReadBarsFileSymbolFromName(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "infy.csv", `date,open,high,low,close,volume
2024-01-02,10,11,9,10.5,1000
`)
	grouped, err := ReadBarsFile(path)
	if err != nil {
		t.Fatalf("ReadBarsFile: %v", err)
	}
	if len(grouped["INFY"]) != 1 {
		t.Errorf("expected bars keyed by file name, got %v", grouped)
	}
}

func TestReadBarsFileBadDate(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv", `symbol,date,open,high,low,close,volume
ACME,yesterday,10,11,9,10.5,1000
`)
	if _, err := ReadBarsFile(path); err == nil {
		t.Error("expected an error for an unparseable date")
	}
}

func TestReadFundamentalsFileAbsentCells(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, FundamentalsFile, `symbol,as_of,pe,pb,roe,debt_to_equity,earnings_growth,revenue_growth,profit_margin,current_ratio,dividend_yield,payout_ratio
acme,2024-03-31,18.5,2.1,22,0.3,,na,17,1.8,1.2,null
`)
	all, err := ReadFundamentalsFile(path)
	if err != nil {
		t.Fatalf("ReadFundamentalsFile: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("rows = %d, want 1", len(all))
	}
	f := all[0]
	if f.Symbol != "ACME" {
		t.Errorf("Symbol = %q", f.Symbol)
	}
	if v, ok := f.PE.Get(); !ok || v != 18.5 {
		t.Errorf("PE = %v", f.PE)
	}
	if f.EarningsGrowth.Valid() || f.RevenueGrowth.Valid() || f.PayoutRatio.Valid() {
		t.Error("empty, na and null cells should be absent")
	}
	if f.AsOf.Year() != 2024 || f.AsOf.Month() != time.March {
		t.Errorf("AsOf = %v", f.AsOf)
	}
}

func TestReadFundamentalsFileBadNumber(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, FundamentalsFile, `symbol,pe
ACME,cheap
`)
	if _, err := ReadFundamentalsFile(path); err == nil {
		t.Error("expected an error for a non-numeric ratio")
	}
}

func TestCSVProviderFetchBars(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ACME.csv", `date,open,high,low,close,volume
2024-01-02,10,11,9,10.5,1000
2024-01-03,11,12,10,11.5,2000
2024-01-04,12,13,11,12.5,3000
`)
	p := NewCSVProvider(dir)
	ctx := context.Background()

	from := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	bars, err := p.FetchBars(ctx, "acme", from, time.Time{})
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(bars) != 2 || bars[0].Close != 11.5 {
		t.Errorf("bars = %+v", bars)
	}

	if _, err := p.FetchBars(ctx, "MISSING", time.Time{}, time.Time{}); !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("missing file: expected ErrDataNotFound, got %v", err)
	}

	late := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := p.FetchBars(ctx, "ACME", late, time.Time{}); !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("empty range: expected ErrDataNotFound, got %v", err)
	}
}

func TestCSVProviderFetchFundamentals(t *testing.T) {
	dir := t.TempDir()
	p := NewCSVProvider(dir)
	ctx := context.Background()

	if _, err := p.FetchFundamentals(ctx, "ACME"); !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("no file: expected ErrDataNotFound, got %v", err)
	}

	writeFile(t, dir, FundamentalsFile, `symbol,pe,roe
ACME,15,20
`)
	f, err := p.FetchFundamentals(ctx, "acme")
	if err != nil {
		t.Fatalf("FetchFundamentals: %v", err)
	}
	if v, _ := f.ROE.Get(); v != 20 {
		t.Errorf("ROE = %v", f.ROE)
	}
	if _, err := p.FetchFundamentals(ctx, "BETA"); !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("unknown symbol: expected ErrDataNotFound, got %v", err)
	}
}

func TestCSVProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewCSVProvider(t.TempDir()).FetchBars(ctx, "ACME", time.Time{}, time.Time{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
