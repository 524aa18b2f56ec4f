package utils

import "time"

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// TradingDaysBack returns the date n weekdays before t, truncated to midnight UTC.
// Exchange holidays are not modelled; callers over-fetch to cover them.
func TradingDaysBack(t time.Time, n int) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for n > 0 {
		d = d.AddDate(0, 0, -1)
		if !IsWeekend(d) {
			n--
		}
	}
	return d
}

// PreviousTradingDay returns the last weekday strictly before t.
func PreviousTradingDay(t time.Time) time.Time {
	return TradingDaysBack(t, 1)
}
