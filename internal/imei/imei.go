// Package imei canonicalizes 15-digit device identifiers read from
// heterogeneous sources. Spreadsheet cells arrive as strings, floats,
// or scientific notation depending on how the sheet was produced, and
// a naive conversion silently destroys the identifier.
package imei

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Length is the number of digits in a well-formed identifier.
const Length = 15

// ErrInvalid is returned for any value that does not canonicalize to
// exactly 15 digits. Normalize never panics and never returns any
// other error.
var ErrInvalid = errors.New("ugyldig IMEI")

// Normalize canonicalizes v to a 15-digit numeric string. Accepted
// inputs are integral numbers whose decimal form has 15 digits, and
// strings that after trimming (and stripping a literal ".0" suffix)
// are 15 digits or parse as an exact integral decimal with 15 digits.
func Normalize(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return normalizeString(t)
	case int:
		return checkDigits(strconv.FormatInt(int64(t), 10))
	case int64:
		return checkDigits(strconv.FormatInt(t, 10))
	case uint64:
		return checkDigits(strconv.FormatUint(t, 10))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return "", ErrInvalid
		}
		return checkDigits(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return Normalize(float64(t))
	case interface{ String() string }: // json.Number and friends
		return normalizeString(t.String())
	default:
		// nil, bool and anything else has no identifier reading.
		return "", ErrInvalid
	}
}

func normalizeString(s string) (string, error) {
	s = strings.TrimSpace(s)
	if stripped, ok := strings.CutSuffix(s, ".0"); ok {
		s = stripped
	}
	if isDigits(s) {
		if len(s) != Length {
			return "", ErrInvalid
		}
		return s, nil
	}
	// Tolerate exported numerics: "1.23456789012345E+14", "123456789012345.00".
	// Screen first: big.Rat would also accept fraction and hex-float
	// syntax, which no spreadsheet export produces.
	if !isDecimalForm(s) {
		return "", ErrInvalid
	}
	rat, ok := new(big.Rat).SetString(s)
	if !ok || !rat.IsInt() {
		return "", ErrInvalid
	}
	return checkDigits(rat.Num().String())
}

func isDecimalForm(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
		case c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-':
		default:
			return false
		}
	}
	return true
}

func checkDigits(s string) (string, error) {
	if len(s) != Length || !isDigits(s) {
		return "", ErrInvalid
	}
	return s, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
