package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"signal-engine/internal/models"
	"signal-engine/pkg/utils"
)

// NA is shown for absent values.
const NA = "n/a"

// FormatFloat formats an optional value with the given decimals, or n/a.
func FormatFloat(f models.Float, decimals int) string {
	v, ok := f.Get()
	if !ok {
		return NA
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

// FormatLevel formats an optional price level.
func FormatLevel(f models.Float) string {
	v, ok := f.Get()
	if !ok {
		return NA
	}
	return utils.FormatPrice(v)
}

// FormatOptionalPercent formats an optional signed percentage.
func FormatOptionalPercent(f models.Float) string {
	v, ok := f.Get()
	if !ok {
		return NA
	}
	return utils.FormatPercent(v)
}

// FormatDate formats a day, or n/a for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return NA
	}
	return t.Format("2006-01-02")
}

// FormatDatePtr formats an optional day.
func FormatDatePtr(t *time.Time) string {
	if t == nil {
		return NA
	}
	return FormatDate(*t)
}

// FormatAgo renders t relative to now, for example "3 days ago".
func FormatAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// FormatDuration rounds a duration for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(10 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// FormatCriteria lists the enabled exit criteria of a position.
func FormatCriteria(c models.ExitCriteria) string {
	var names []string
	if c.StopLoss {
		names = append(names, "stop_loss")
	}
	if c.Target {
		names = append(names, "target")
	}
	if c.BelowEMA50 {
		names = append(names, "below_ema_50")
	}
	if c.BelowSMA100 {
		names = append(names, "below_sma_100")
	}
	if c.BelowSMA200 {
		names = append(names, "below_sma_200")
	}
	if c.SupertrendBearish {
		names = append(names, "supertrend_bearish")
	}
	if v, ok := c.CustomPrice.Get(); ok {
		names = append(names, "custom_price@"+utils.FormatPrice(v))
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// Truncate shortens s to max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
