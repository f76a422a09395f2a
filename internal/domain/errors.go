// Package domain errors.go contains sentinel and typed errors
package domain

import (
	"errors"
	"fmt"
)

// Sentinel domain-level errors reused by higher layers.
var (
	ErrInvalidPrefix    = errors.New("prefix must be exactly 8 digits")
	ErrEmptyModel       = errors.New("model must not be empty")
	ErrInvalidModel     = errors.New("model must not contain line breaks")
	ErrInvalidPayload   = errors.New("payload must be exactly 14 digits")
	ErrInvalidLength    = errors.New("imei must be exactly 15 digits")
	ErrNonDigit         = errors.New("imei must contain only digits")
	ErrChecksumMismatch = errors.New("imei check digit mismatch")
)

// StructuralError reports a candidate identifier that is not 15 ASCII digits.
// Reason is ErrInvalidLength or ErrNonDigit.
type StructuralError struct {
	Reason   error
	Length   int // length of the candidate in bytes
	Position int // index of the first non-digit, -1 for length errors
}

func (e *StructuralError) Error() string {
	if errors.Is(e.Reason, ErrNonDigit) {
		return fmt.Sprintf("%v (non-digit at position %d)", e.Reason, e.Position+1)
	}
	return fmt.Sprintf("%v (got %d characters)", e.Reason, e.Length)
}

func (e *StructuralError) Unwrap() error { return e.Reason }

// ChecksumError reports a well-formed identifier whose last digit is wrong.
type ChecksumError struct {
	Expected int
	Actual   int
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%v: check digit should be %d, got %d", ErrChecksumMismatch, e.Expected, e.Actual)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }
