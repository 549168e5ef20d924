// Package convergence decides when a search has stopped making progress.
package convergence

import (
	"fmt"
	"math"

	"github.com/copyleftdev/randsearch/internal/optimization"
)

// Config defines when the best value counts as stale.
type Config struct {
	// Threshold is the largest absolute change in the best value that still
	// counts as stale. Must be finite and non-negative.
	Threshold float64

	// StaleCount is the number of consecutive stale observations after which
	// the search is converged. Must be at least 1.
	StaleCount int

	// Mode selects the initial last-best value so the first real observation
	// is a change.
	Mode optimization.Mode
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) || c.Threshold < 0 {
		return fmt.Errorf("stale threshold must be a finite non-negative number, got %v", c.Threshold)
	}
	if c.StaleCount < 1 {
		return fmt.Errorf("stale count must be greater than zero, got %d", c.StaleCount)
	}
	return nil
}

// Tracker follows the running best value across iterations.
type Tracker struct {
	config     Config
	lastBest   float64
	staleSteps int
	observed   bool
	history    []float64
}

// NewTracker creates a tracker. The config is assumed valid.
func NewTracker(config Config) *Tracker {
	t := &Tracker{config: config}
	t.Reset()
	return t
}

// Observe records the current best value. It reports whether this
// observation was stale and whether the search has converged.
func (t *Tracker) Observe(currentBest float64) (stale, converged bool) {
	t.history = append(t.history, currentBest)

	// The first observation is always progress, even with an infinite
	// threshold or a seed scored at the initial sentinel.
	if t.observed {
		stale = change(currentBest, t.lastBest) <= t.config.Threshold
	}
	t.observed = true

	if stale {
		t.staleSteps++
	} else {
		t.staleSteps = 0
	}
	t.lastBest = currentBest

	return stale, t.staleSteps >= t.config.StaleCount
}

// change is |a-b|, treating identical values (including equal infinities)
// as no change. NaN compares as an infinite change.
func change(a, b float64) float64 {
	if a == b {
		return 0
	}
	d := math.Abs(a - b)
	if math.IsNaN(d) {
		return math.Inf(1)
	}
	return d
}

// StaleSteps returns the current number of consecutive stale observations.
func (t *Tracker) StaleSteps() int {
	return t.staleSteps
}

// LastBest returns the most recently observed best value.
func (t *Tracker) LastBest() float64 {
	return t.lastBest
}

// History returns every observed best value.
func (t *Tracker) History() []float64 {
	return append([]float64{}, t.history...)
}

// Reset clears the tracker's state.
func (t *Tracker) Reset() {
	t.lastBest = t.config.Mode.WorstScore()
	t.staleSteps = 0
	t.observed = false
	t.history = nil
}
