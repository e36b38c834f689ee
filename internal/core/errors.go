package core

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable means the backing medium could not be read or written.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	// ErrInsufficientBalance is returned by strict redemptions that would overdraw.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrMalformedRecord means a persisted row could not be decoded.
	ErrMalformedRecord = errors.New("malformed ledger record")
)

var (
	ErrZeroTimestamp    = &ValidationError{Field: "timestamp", Reason: "must be set"}
	ErrEmptyUser        = &ValidationError{Field: "user", Reason: "must not be empty"}
	ErrUnknownUser      = &ValidationError{Field: "user", Reason: "not a member of the household"}
	ErrInvalidDirection = &ValidationError{Field: "direction", Reason: "must be earn or spend"}
	ErrEmptyCategory    = &ValidationError{Field: "category", Reason: "must not be empty"}
	ErrEmptyItem        = &ValidationError{Field: "item", Reason: "must not be empty"}
	ErrItemTooLong      = &ValidationError{Field: "item", Reason: "too long (max 200 characters)"}
	ErrInvalidValue     = &ValidationError{Field: "value", Reason: "must be positive"}
	ErrInvalidPoints    = &ValidationError{Field: "points", Reason: "must not be negative"}
	ErrPointsSign       = &ValidationError{Field: "points", Reason: "sign does not match direction"}
	ErrInvalidCost      = &ValidationError{Field: "cost", Reason: "must be positive"}
	ErrUnknownTicket    = &ValidationError{Field: "ticket", Reason: "not in the catalog"}
	ErrUnknownAction    = &ValidationError{Field: "action", Reason: "not in the catalog"}
)

// ValidationError describes malformed input rejected before any append.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError wraps a backend failure so callers can match ErrStoreUnavailable
// while the original cause stays reachable through errors.As / errors.Unwrap.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// Unavailable wraps err as a store failure for the named operation.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
