package optimization

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders v in shortest round-trip form the way the point files
// have always been written: integral values keep a ".0" suffix, exponent
// notation is used below 1e-4 and from 1e16 up, and non-finite values are
// "inf", "-inf" and "nan".
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// ParseFloat parses a score or coordinate token. Surrounding whitespace is
// ignored; "inf", "-inf", "infinity" and "nan" are accepted in any case.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
