package shamir

import "math"

const (
	MinBase = 2
	MaxBase = 36
)

// Decode converts value, written in the given base with the digits 0-9
// followed by a-z (case-insensitive), into an int64.
//
// Any character that is not a valid digit for base is an error; nothing is
// skipped. Accumulation is checked and fails with ErrOverflow instead of
// wrapping.
func Decode(value string, base int) (int64, error) {
	if base < MinBase || base > MaxBase {
		return 0, &DecodeError{Value: value, Base: base, Err: ErrInvalidBase}
	}
	if value == "" {
		return 0, &DecodeError{Base: base, Err: ErrEmptyValue}
	}

	b := int64(base)
	var result int64
	for _, c := range value {
		d, ok := digitValue(c)
		if !ok || d >= base {
			return 0, &DecodeError{Value: value, Base: base, Char: c, Err: ErrInvalidDigit}
		}
		if result > (math.MaxInt64-int64(d))/b {
			return 0, &DecodeError{Value: value, Base: base, Err: ErrOverflow}
		}
		result = result*b + int64(d)
	}
	return result, nil
}

func digitValue(c rune) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	}
	return 0, false
}
