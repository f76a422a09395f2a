// Package domain luhn.go implements the Luhn check digit over an IMEI payload.
package domain

// Fixed IMEI layout.
const (
	PrefixLen  = 8
	BodyLen    = 6
	PayloadLen = PrefixLen + BodyLen
	IMEILen    = PayloadLen + 1
)

// CheckDigit returns the Luhn check digit for a 14-digit payload.
// Digits at odd 0-based positions are doubled (minus 9 when above 9), all
// digits are summed and the result is (10 - sum%10) % 10.
// Returns ErrInvalidPayload unless payload is exactly 14 ASCII digits.
func CheckDigit(payload string) (int, error) {
	if len(payload) != PayloadLen || !allDigits(payload) {
		return 0, ErrInvalidPayload
	}
	return checkDigit(payload), nil
}

// checkDigit assumes payload has already been validated.
func checkDigit(payload string) int {
	sum := 0
	for i := 0; i < PayloadLen; i++ {
		d := int(payload[i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

// allDigits reports whether s consists only of ASCII digits.
func allDigits(s string) bool {
	return firstNonDigit(s) < 0
}

// firstNonDigit returns the index of the first byte outside '0'-'9', or -1.
func firstNonDigit(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return i
		}
	}
	return -1
}
