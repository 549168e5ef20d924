package optimization

import (
	"fmt"
	"math"
	"strings"
)

// Mode is the optimization direction.
type Mode string

const (
	// Minimize searches for the smallest score.
	Minimize Mode = "min"
	// Maximize searches for the largest score.
	Maximize Mode = "max"
)

// ParseMode accepts "min" or "max" in any case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Minimize:
		return Minimize, nil
	case Maximize:
		return Maximize, nil
	default:
		return "", fmt.Errorf("optimization type must be %q or %q, got %q", Minimize, Maximize, s)
	}
}

// Descending reports the sort direction that puts the best point last.
func (m Mode) Descending() bool {
	return m != Maximize
}

// WorstScore is the score no real evaluation can be worse than.
func (m Mode) WorstScore() float64 {
	if m == Maximize {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

// Better reports whether a strictly beats b. NaN never beats anything.
func (m Mode) Better(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	if m == Maximize {
		return a > b
	}
	return a < b
}
