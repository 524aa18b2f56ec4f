// Package security validates symbols and identifiers taken from the command line.
package security

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "signal-engine/internal/errors"
)

var (
	// uppercase letters, digits, & and - as used by NSE and BSE tickers
	symbolPattern = regexp.MustCompile(`^[A-Z0-9&-]{1,20}$`)

	positionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

	cmdInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[;&|$\x60]{2,}`),
		regexp.MustCompile(`(?i)(--|/\*|\*/)`),
	}
)

const (
	maxQuantity = 10000000
	maxPrice    = 1000000000
)

func invalid(field string, value interface{}, message string) error {
	return &apperrors.ValidationError{Field: field, Value: value, Message: message, Err: apperrors.ErrInvalidInput}
}

// ValidateSymbol normalizes a ticker to upper case and checks its format.
func ValidateSymbol(symbol string) (string, error) {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	if symbol == "" {
		return "", invalid("symbol", symbol, "symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return "", invalid("symbol", symbol, "symbol too long (max 20 characters)")
	}
	if !symbolPattern.MatchString(symbol) || containsInjection(symbol) {
		return "", invalid("symbol", symbol, "invalid symbol format")
	}
	return symbol, nil
}

// ValidateSymbols validates each symbol and drops duplicates, keeping first-seen order.
func ValidateSymbols(symbols []string) ([]string, error) {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		s, err := ValidateSymbol(raw)
		if err != nil {
			return nil, err
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

// ValidatePositionID checks a position identifier.
func ValidatePositionID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("position_id", id, "position ID cannot be empty")
	}
	if !positionIDPattern.MatchString(id) {
		return invalid("position_id", id, "invalid position ID format")
	}
	return nil
}

// ValidateQuantity validates a position size.
func ValidateQuantity(qty int) error {
	if qty <= 0 {
		return invalid("quantity", qty, "quantity must be positive")
	}
	if qty > maxQuantity {
		return invalid("quantity", qty, "quantity exceeds maximum allowed")
	}
	return nil
}

// ValidatePrice validates a price. Zero is allowed and means unset.
func ValidatePrice(field string, price float64) error {
	if price < 0 {
		return invalid(field, fmt.Sprintf("%.2f", price), "price cannot be negative")
	}
	if price > maxPrice {
		return invalid(field, fmt.Sprintf("%.2f", price), "price exceeds maximum allowed")
	}
	return nil
}

func containsInjection(input string) bool {
	for _, pattern := range cmdInjectionPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}
