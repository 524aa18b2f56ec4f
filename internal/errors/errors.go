// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrInvalidNumeric      = errors.New("invalid numeric input")
	ErrMissingFundamental  = errors.New("fundamental ratio missing")
	ErrInsufficientData    = errors.New("insufficient data")
	ErrUpstreamFetch       = errors.New("upstream fetch failed")
	ErrIncompatibleState   = errors.New("incompatible pattern state")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrUnknownCriterion    = errors.New("unknown exit criterion")
	ErrDataNotFound        = errors.New("data not found")
	ErrTimeout             = errors.New("operation timed out")
	ErrDatabaseError       = errors.New("database error")
	ErrInvalidInput        = errors.New("invalid input")
)

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// FetchError reports that a provider could not deliver data for one symbol.
// It always matches ErrUpstreamFetch.
type FetchError struct {
	Provider string
	Symbol   string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch error [%s] %s after %d attempt(s): %v", e.Provider, e.Symbol, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrUpstreamFetch, e.Err}
}

// NewFetchError creates a new FetchError.
func NewFetchError(provider, symbol string, attempts int, err error) *FetchError {
	return &FetchError{
		Provider: provider,
		Symbol:   symbol,
		Attempts: attempts,
		Err:      err,
	}
}

// StateError reports a pattern transition attempted from an inconsistent state.
// It always matches ErrIncompatibleState.
type StateError struct {
	Symbol string
	From   string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error [%s] from %s: %s", e.Symbol, e.From, e.Reason)
}

func (e *StateError) Unwrap() error {
	return ErrIncompatibleState
}

// NewStateError creates a new StateError.
func NewStateError(symbol, from, reason string) *StateError {
	return &StateError{
		Symbol: symbol,
		From:   from,
		Reason: reason,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
