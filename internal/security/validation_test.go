package security

import (
	"errors"
	"testing"

	apperrors "signal-engine/internal/errors"
)

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"infy", "INFY", false},
		{"  M&M ", "M&M", false},
		{"BAJAJ-AUTO", "BAJAJ-AUTO", false},
		{"", "", true},
		{"TOO-LONG-SYMBOL-NAME-X", "", true},
		{"INFY;", "", true},
		{"A--B", "", true},
		{"HDFC BANK", "", true},
	}
	for _, tt := range tests {
		got, err := ValidateSymbol(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSymbol(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("ValidateSymbol(%q) error should match ErrInvalidInput: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ValidateSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateSymbolsDedupes(t *testing.T) {
	got, err := ValidateSymbols([]string{"tcs", "INFY", " TCS "})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "TCS" || got[1] != "INFY" {
		t.Errorf("ValidateSymbols = %v", got)
	}
	if _, err := ValidateSymbols([]string{"OK", "bad;"}); err == nil {
		t.Error("expected an error for an invalid symbol")
	}
}

func TestValidateNumbers(t *testing.T) {
	if err := ValidateQuantity(0); err == nil {
		t.Error("zero quantity should fail")
	}
	if err := ValidateQuantity(100); err != nil {
		t.Errorf("ValidateQuantity(100) = %v", err)
	}
	if err := ValidatePrice("entry", -1); err == nil {
		t.Error("negative price should fail")
	}
	if err := ValidatePrice("stop", 0); err != nil {
		t.Errorf("zero price means unset: %v", err)
	}
	if err := ValidatePositionID("3f2a9c1e"); err != nil {
		t.Errorf("ValidatePositionID = %v", err)
	}
	if err := ValidatePositionID("../x"); err == nil {
		t.Error("path-like id should fail")
	}
}
