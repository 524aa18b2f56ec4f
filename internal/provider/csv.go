package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
)

// FundamentalsFile is the file name the CSV provider reads ratios from.
const FundamentalsFile = "fundamentals.csv"

// parseDate accepts YYYY-MM-DD or RFC 3339 cells and truncates to the day.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseRatio reads an optional numeric cell; empty, "na" and "null" are absent.
func parseRatio(s string) (models.Float, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "na") || strings.EqualFold(s, "null") {
		return models.None(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.None(), fmt.Errorf("invalid number %q", s)
	}
	return models.Some(v), nil
}

// BarRow is one line of an OHLCV file. Symbol may be omitted when the file
// holds a single symbol named by the file.
type BarRow struct {
	Symbol string  `csv:"symbol"`
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume int64   `csv:"volume"`
}

// FundamentalsRow is one line of a fundamentals file. Empty cells are absent ratios.
type FundamentalsRow struct {
	Symbol         string `csv:"symbol"`
	AsOf           string `csv:"as_of"`
	PE             string `csv:"pe"`
	PB             string `csv:"pb"`
	ROE            string `csv:"roe"`
	DebtToEquity   string `csv:"debt_to_equity"`
	EarningsGrowth string `csv:"earnings_growth"`
	RevenueGrowth  string `csv:"revenue_growth"`
	ProfitMargin   string `csv:"profit_margin"`
	CurrentRatio   string `csv:"current_ratio"`
	DividendYield  string `csv:"dividend_yield"`
	PayoutRatio    string `csv:"payout_ratio"`
}

func (r FundamentalsRow) fundamentals() (models.Fundamentals, error) {
	f := models.Fundamentals{Symbol: strings.ToUpper(strings.TrimSpace(r.Symbol))}
	if strings.TrimSpace(r.AsOf) != "" {
		asOf, err := parseDate(r.AsOf)
		if err != nil {
			return f, err
		}
		f.AsOf = asOf
	}
	cells := []struct {
		raw string
		dst *models.Float
	}{
		{r.PE, &f.PE},
		{r.PB, &f.PB},
		{r.ROE, &f.ROE},
		{r.DebtToEquity, &f.DebtToEquity},
		{r.EarningsGrowth, &f.EarningsGrowth},
		{r.RevenueGrowth, &f.RevenueGrowth},
		{r.ProfitMargin, &f.ProfitMargin},
		{r.CurrentRatio, &f.CurrentRatio},
		{r.DividendYield, &f.DividendYield},
		{r.PayoutRatio, &f.PayoutRatio},
	}
	for _, c := range cells {
		v, err := parseRatio(c.raw)
		if err != nil {
			return f, err
		}
		*c.dst = v
	}
	return f, nil
}

// ReadBarsFile parses an OHLCV file and groups bars by symbol, each sorted by
// date. Rows without a symbol column take the file's base name.
func ReadBarsFile(path string) (map[string][]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var rows []*BarRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	fallback := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	out := make(map[string][]models.Bar)
	for i, r := range rows {
		date, err := parseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		symbol := strings.ToUpper(strings.TrimSpace(r.Symbol))
		if symbol == "" {
			symbol = fallback
		}
		out[symbol] = append(out[symbol], models.Bar{
			Date:   date,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	for symbol := range out {
		bars := out[symbol]
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	}
	return out, nil
}

// ReadFundamentalsFile parses a fundamentals file.
func ReadFundamentalsFile(path string) ([]models.Fundamentals, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var rows []*FundamentalsRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	out := make([]models.Fundamentals, 0, len(rows))
	for i, r := range rows {
		if strings.TrimSpace(r.Symbol) == "" {
			return nil, fmt.Errorf("%s row %d: missing symbol", path, i+2)
		}
		f, err := r.fundamentals()
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// CSVProvider reads <dir>/<SYMBOL>.csv bar files and <dir>/fundamentals.csv.
type CSVProvider struct {
	dir string
}

// NewCSVProvider creates a provider over a directory of CSV files.
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

func (p *CSVProvider) Name() string { return "csv" }

// FetchBars reads the symbol's file and keeps bars within [from, to]; zero bounds are open.
func (p *CSVProvider) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(p.dir, strings.ToUpper(symbol)+".csv")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.NewDataError("bars", symbol, "no bar file "+path, apperrors.ErrDataNotFound)
	}

	grouped, err := ReadBarsFile(path)
	if err != nil {
		return nil, err
	}
	var bars []models.Bar
	for _, b := range grouped[strings.ToUpper(symbol)] {
		if !from.IsZero() && b.Date.Before(from) {
			continue
		}
		if !to.IsZero() && b.Date.After(to) {
			continue
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, apperrors.NewDataError("bars", symbol, "no bars in range", apperrors.ErrDataNotFound)
	}
	return bars, nil
}

// FetchFundamentals looks the symbol up in the directory's fundamentals file.
func (p *CSVProvider) FetchFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(p.dir, FundamentalsFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.NewDataError("fundamentals", symbol, "no fundamentals file", apperrors.ErrDataNotFound)
	}

	all, err := ReadFundamentalsFile(path)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Symbol == strings.ToUpper(symbol) {
			return &all[i], nil
		}
	}
	return nil, apperrors.NewDataError("fundamentals", symbol, "symbol not in fundamentals file", apperrors.ErrDataNotFound)
}
