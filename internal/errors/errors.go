// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrMissingCredentials = errors.New("missing API credentials")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrOrderGone          = errors.New("order no longer exists")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrTimeout            = errors.New("operation timed out")
	ErrSignalNotFound     = errors.New("signal not found")
	ErrDatabaseError      = errors.New("database error")
)

// Venue codes Bitget returns when a plan order is already gone. Cancelling
// such an order is a benign no-op.
var toleratedVenueCodes = map[string]bool{
	"40034": true,
	"43020": true,
}

// VenueError represents a non-success application code from the exchange.
type VenueError struct {
	Code    string
	Message string
	Path    string
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue error [%s] %s: %s", e.Code, e.Path, e.Message)
}

// Tolerated reports whether this venue error is a benign order-gone code,
// treated like success for sequencing purposes.
func (e *VenueError) Tolerated() bool {
	return toleratedVenueCodes[e.Code]
}

// NewVenueError creates a new VenueError.
func NewVenueError(code, message, path string) *VenueError {
	return &VenueError{Code: code, Message: message, Path: path}
}

// IsTolerated reports whether err is a tolerated venue rejection or the
// ErrOrderGone sentinel.
func IsTolerated(err error) bool {
	if errors.Is(err, ErrOrderGone) {
		return true
	}
	var ve *VenueError
	return errors.As(err, &ve) && ve.Tolerated()
}

// RecordError represents a data-quality problem in a single snapshot record.
// Record errors are logged and skipped, never aborting the pass.
type RecordError struct {
	RecordType string
	Symbol     string
	Field      string
	Err        error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record error [%s] %s: bad field %q: %v", e.RecordType, e.Symbol, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError creates a new RecordError.
func NewRecordError(recordType, symbol, field string, err error) *RecordError {
	return &RecordError{RecordType: recordType, Symbol: symbol, Field: field, Err: err}
}

// ActionError represents a failed corrective action against the exchange.
type ActionError struct {
	Action  string
	Symbol  string
	OrderID string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action error [%s] %s order %s: %v", e.Action, e.Symbol, e.OrderID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// NewActionError creates a new ActionError.
func NewActionError(action, symbol, orderID string, err error) *ActionError {
	return &ActionError{Action: action, Symbol: symbol, OrderID: orderID, Err: err}
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
