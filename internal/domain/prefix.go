// Package domain prefix.go contains the prefix catalog record types.
package domain

import "strings"

// Prefix is an 8-digit identifier range assigned to a device model.
type Prefix string

// ParsePrefix trims surrounding whitespace and validates s as a Prefix.
// Returns ErrInvalidPrefix unless the result is exactly 8 ASCII digits.
func ParsePrefix(s string) (Prefix, error) {
	s = strings.TrimSpace(s)
	if len(s) != PrefixLen || !allDigits(s) {
		return "", ErrInvalidPrefix
	}
	return Prefix(s), nil
}

// String returns the string form of the Prefix.
func (p Prefix) String() string { return string(p) }

// Valid reports whether p satisfies the same rules as ParsePrefix.
func (p Prefix) Valid() bool { return len(p) == PrefixLen && allDigits(string(p)) }

// PrefixRecord maps a unique prefix to a free-text model label.
type PrefixRecord struct {
	Prefix Prefix
	Model  string
}

// NewPrefixRecord validates and normalizes a (prefix, model) pair.
func NewPrefixRecord(prefix, model string) (PrefixRecord, error) {
	p, err := ParsePrefix(prefix)
	if err != nil {
		return PrefixRecord{}, err
	}
	model = strings.TrimSpace(model)
	if err := ValidateModel(model); err != nil {
		return PrefixRecord{}, err
	}
	return PrefixRecord{Prefix: p, Model: model}, nil
}

// ValidateModel rejects empty models and models spanning more than one line.
// Catalog files hold one record per line.
func ValidateModel(model string) error {
	if model == "" {
		return ErrEmptyModel
	}
	if strings.ContainsAny(model, "\r\n") {
		return ErrInvalidModel
	}
	return nil
}
