package domain

import (
	"errors"
	"strings"
	"testing"
)

// seqSource replays a fixed sequence of values, wrapping around.
type seqSource struct {
	vals []int
	i    int
}

func (s *seqSource) IntN(n int) int {
	v := s.vals[s.i%len(s.vals)] % n
	s.i++
	return v
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		input        string
		wantValid    bool
		wantExpected int
	}{
		{name: "published vector", input: "490154203237518", wantValid: true, wantExpected: 8},
		{name: "second vector", input: "356938035643809", wantValid: true, wantExpected: 9},
		{name: "wrong check digit", input: "490154203237517", wantValid: false, wantExpected: 8},
		{name: "length parity variant", input: "490010108561989", wantValid: false, wantExpected: 2},
		{name: "all zeros", input: "000000000000000", wantValid: true, wantExpected: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v, err := Validate(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Valid != tc.wantValid {
				t.Fatalf("valid = %v, want %v", v.Valid, tc.wantValid)
			}
			if v.Expected != tc.wantExpected {
				t.Fatalf("expected digit = %d, want %d", v.Expected, tc.wantExpected)
			}
			if v.Actual != int(tc.input[14]-'0') {
				t.Fatalf("actual digit = %d", v.Actual)
			}
		})
	}
}

func TestValidateStructuralErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		reason  error
		wantPos int
	}{
		{name: "too short", input: "12345", reason: ErrInvalidLength, wantPos: -1},
		{name: "empty", input: "", reason: ErrInvalidLength, wantPos: -1},
		{name: "too long", input: "4901542032375180", reason: ErrInvalidLength, wantPos: -1},
		{name: "payload only", input: "49015420323751", reason: ErrInvalidLength, wantPos: -1},
		{name: "letter at end", input: "49015420323751A", reason: ErrNonDigit, wantPos: 14},
		{name: "dash inside", input: "4901542-3237518", reason: ErrNonDigit, wantPos: 7},
		{name: "leading space", input: " 90154203237518", reason: ErrNonDigit, wantPos: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Validate(tc.input)
			if err == nil {
				t.Fatalf("expected error for %q", tc.input)
			}
			var se *StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StructuralError, got %T", err)
			}
			if !errors.Is(err, tc.reason) {
				t.Fatalf("expected reason %v, got %v", tc.reason, err)
			}
			if se.Position != tc.wantPos {
				t.Fatalf("position = %d, want %d", se.Position, tc.wantPos)
			}
			if se.Length != len(tc.input) {
				t.Fatalf("length = %d, want %d", se.Length, len(tc.input))
			}
			if errors.Is(err, ErrChecksumMismatch) {
				t.Fatalf("structural error must not match checksum mismatch")
			}
		})
	}
}

func TestValidationErr(t *testing.T) {
	t.Parallel()
	v, _ := Validate("490154203237517")
	err := v.Err()
	var ce *ChecksumError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ChecksumError, got %v", err)
	}
	if ce.Expected != 8 || ce.Actual != 7 {
		t.Fatalf("unexpected checksum error %+v", ce)
	}
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch in chain")
	}
	if !strings.Contains(err.Error(), "should be 8") {
		t.Fatalf("message missing expected digit: %q", err.Error())
	}
	ok, _ := Validate("490154203237518")
	if ok.Err() != nil {
		t.Fatalf("valid imei returned error")
	}
}

func TestParseIMEI(t *testing.T) {
	t.Parallel()
	id, err := ParseIMEI("356938035643809")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "356938035643809" || !id.Valid() {
		t.Fatalf("unexpected id %q", id)
	}
	if id.Prefix() != "35693803" {
		t.Fatalf("prefix = %q", id.Prefix())
	}
	if _, err := ParseIMEI("356938035643808"); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
	if _, err := ParseIMEI("abc"); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected length error, got %v", err)
	}
}

func TestGenerateFixedSource(t *testing.T) {
	t.Parallel()
	got := Generate("35693803", &seqSource{vals: []int{0}})
	if got != "356938030000005" {
		t.Fatalf("Generate zeros = %q", got)
	}
	got = Generate("49015420", &seqSource{vals: []int{1, 2, 3, 4, 5, 6}})
	if got != "490154201234566" {
		t.Fatalf("Generate sequence = %q", got)
	}
}

func TestGenerateProperties(t *testing.T) {
	t.Parallel()
	src := NewSource(99)
	prefixes := []Prefix{"01234567", "76543210", "35693803", "00000000", "99999999"}
	for _, p := range prefixes {
		for i := 0; i < 100; i++ {
			id := Generate(p, src)
			s := id.String()
			if len(s) != IMEILen {
				t.Fatalf("length %d for %q", len(s), s)
			}
			if !strings.HasPrefix(s, p.String()) {
				t.Fatalf("prefix not preserved: %q vs %q", s, p)
			}
			if !allDigits(s) {
				t.Fatalf("non-digit in %q", s)
			}
			if !id.Valid() {
				t.Fatalf("generated imei not luhn valid: %q", s)
			}
		}
	}
}

func TestGenerateBatch(t *testing.T) {
	t.Parallel()
	ids := GenerateBatch("01234567", NewSource(5), 25)
	if len(ids) != 25 {
		t.Fatalf("expected 25 ids, got %d", len(ids))
	}
	for _, id := range ids {
		if !id.Valid() || id.Prefix() != "01234567" {
			t.Fatalf("bad id %q", id)
		}
	}
	if len(GenerateBatch("01234567", NewSource(5), 0)) != 0 {
		t.Fatalf("expected empty batch")
	}
}

func TestNewSourceSeeded(t *testing.T) {
	t.Parallel()
	a := GenerateBatch("01234567", NewSource(7), 10)
	b := GenerateBatch("01234567", NewSource(7), 10)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seeded sources diverged at %d: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestGenerateBodyDigitsCoverRange(t *testing.T) {
	t.Parallel()
	src := NewSource(3)
	var seen [10]int
	for i := 0; i < 2000; i++ {
		id := Generate("01234567", src)
		for _, c := range id[PrefixLen:PayloadLen] {
			seen[c-'0']++
		}
	}
	for d, n := range seen {
		// 12000 draws over 10 digits: each digit should land well within [900, 1500].
		if n < 900 || n > 1500 {
			t.Fatalf("digit %d drawn %d times; distribution looks biased", d, n)
		}
	}
}
