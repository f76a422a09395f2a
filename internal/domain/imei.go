// Package domain imei.go contains functions to generate, parse, and validate IMEIs
package domain

// IMEI is a complete 15-digit identifier: 8-digit prefix, 6-digit body and a
// trailing Luhn check digit.
type IMEI string

// String returns the string form of the IMEI.
func (id IMEI) String() string { return string(id) }

// Prefix returns the first 8 digits. The result is only meaningful for a valid IMEI.
func (id IMEI) Prefix() Prefix {
	if len(id) < PrefixLen {
		return ""
	}
	return Prefix(id[:PrefixLen])
}

// Valid reports whether the IMEI is structurally sound and its check digit is correct.
func (id IMEI) Valid() bool {
	v, err := Validate(string(id))
	return err == nil && v.Valid
}

// Generate builds a new IMEI from prefix by appending BodyLen digits drawn
// from src and the Luhn check digit. The prefix must already be valid; use
// ParsePrefix for untrusted input.
func Generate(prefix Prefix, src Source) IMEI {
	buf := make([]byte, 0, IMEILen)
	buf = append(buf, prefix...)
	for i := 0; i < BodyLen; i++ {
		buf = append(buf, byte('0'+src.IntN(10)))
	}
	buf = append(buf, byte('0'+checkDigit(string(buf))))
	return IMEI(buf)
}

// GenerateBatch returns n identifiers sharing prefix.
func GenerateBatch(prefix Prefix, src Source, n int) []IMEI {
	out := make([]IMEI, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Generate(prefix, src))
	}
	return out
}

// Validation is the outcome of checking a well-formed candidate.
type Validation struct {
	IMEI     IMEI
	Valid    bool
	Expected int // check digit computed over the first 14 digits
	Actual   int // check digit present in the candidate
}

// Err returns a *ChecksumError when the check digit is wrong, otherwise nil.
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	return &ChecksumError{Expected: v.Expected, Actual: v.Actual}
}

// Validate checks candidate for length, digits and Luhn correctness.
// Structural problems are reported as *StructuralError and no check digit is
// computed; a well-formed candidate always yields the expected check digit,
// whether or not it matches.
func Validate(candidate string) (Validation, error) {
	if len(candidate) != IMEILen {
		return Validation{}, &StructuralError{Reason: ErrInvalidLength, Length: len(candidate), Position: -1}
	}
	if pos := firstNonDigit(candidate); pos >= 0 {
		return Validation{}, &StructuralError{Reason: ErrNonDigit, Length: len(candidate), Position: pos}
	}
	expected := checkDigit(candidate[:PayloadLen])
	actual := int(candidate[PayloadLen] - '0')
	return Validation{
		IMEI:     IMEI(candidate),
		Valid:    expected == actual,
		Expected: expected,
		Actual:   actual,
	}, nil
}

// ParseIMEI validates s and returns it as an IMEI. Structural failures return
// a *StructuralError, a wrong check digit a *ChecksumError.
func ParseIMEI(s string) (IMEI, error) {
	v, err := Validate(s)
	if err != nil {
		return "", err
	}
	if err := v.Err(); err != nil {
		return "", err
	}
	return v.IMEI, nil
}
