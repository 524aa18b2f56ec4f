// Package models provides domain models for the signal engine.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Bar represents one trading day of OHLCV data for a symbol.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Float is a derived numeric value that is either present or absent.
// The zero value is absent; NaN and infinities are never present.
type Float struct {
	value float64
	valid bool
}

// Some wraps v as a present value. NaN or infinite inputs yield an absent value.
func Some(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{value: v, valid: true}
}

// None returns an absent value.
func None() Float {
	return Float{}
}

// Get returns the value and whether it is present.
func (f Float) Get() (float64, bool) {
	return f.value, f.valid
}

// Valid reports whether the value is present.
func (f Float) Valid() bool {
	return f.valid
}

// Or returns the value if present, otherwise fallback.
func (f Float) Or(fallback float64) float64 {
	if f.valid {
		return f.value
	}
	return fallback
}

// MarshalJSON encodes an absent value as null.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON decodes null as absent.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

// Value stores an absent value as SQL NULL.
func (f Float) Value() (driver.Value, error) {
	if !f.valid {
		return nil, nil
	}
	return f.value, nil
}

// Scan reads a nullable REAL column.
func (f *Float) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*f = Float{}
	case float64:
		*f = Some(v)
	case int64:
		*f = Some(float64(v))
	default:
		return fmt.Errorf("cannot scan %T into Float", src)
	}
	return nil
}

// Direction represents the bias of an event.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// SignalLabel is the ordinal call attached to a composite score or recommendation.
type SignalLabel string

const (
	StrongBuy  SignalLabel = "STRONG_BUY"
	Buy        SignalLabel = "BUY"
	Neutral    SignalLabel = "NEUTRAL"
	Sell       SignalLabel = "SELL"
	StrongSell SignalLabel = "STRONG_SELL"
)

// SameDay reports whether a and b fall on the same calendar date in UTC.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// DateKey formats t as the YYYY-MM-DD key used for upserts.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
