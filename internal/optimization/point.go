package optimization

import (
	"math"
	"strings"

	"github.com/copyleftdev/randsearch/internal/errors"
)

// Point is a scored location in parameter space. Score is NaN until the
// point has been evaluated.
type Point struct {
	Score  float64
	Coords []float64
}

// NewCandidate returns an unscored point at coords.
func NewCandidate(coords []float64) Point {
	return Point{Score: math.NaN(), Coords: coords}
}

// Dim returns the number of coordinates.
func (p Point) Dim() int {
	return len(p.Coords)
}

// Clone returns a deep copy of p.
func (p Point) Clone() Point {
	return Point{Score: p.Score, Coords: append([]float64(nil), p.Coords...)}
}

// WithScore returns a copy of p carrying score.
func (p Point) WithScore(score float64) Point {
	c := p.Clone()
	c.Score = score
	return c
}

// String renders the point as a space-joined line, score first.
func (p Point) String() string {
	var b strings.Builder
	b.WriteString(FormatFloat(p.Score))
	for _, c := range p.Coords {
		b.WriteByte(' ')
		b.WriteString(FormatFloat(c))
	}
	return b.String()
}

// Solution converts the point into the optimizer result type.
func (p Point) Solution() *Solution {
	return &Solution{
		Parameters: append([]float64(nil), p.Coords...),
		Value:      p.Score,
	}
}

// Origin is the all-zero point carrying the worst possible score for mode.
func Origin(dim int, mode Mode) Point {
	return Point{Score: mode.WorstScore(), Coords: make([]float64, dim)}
}

// InferDimensionality picks the search dimensionality. An explicit value
// wins; otherwise it comes from the first point. Zero points and no explicit
// value cannot be resolved.
func InferDimensionality(explicit int, points []Point) (int, error) {
	if explicit > 0 {
		return explicit, nil
	}
	if len(points) == 0 {
		return 0, errors.New(errors.KindInputFormat,
			"No existing points to infer dimensionality and --dimensionality is not specified, cannot seed optimization").
			WithComponent("optimization")
	}
	return points[0].Dim(), nil
}

// ValidateDimensions checks that every point has exactly dim coordinates.
func ValidateDimensions(points []Point, dim int) error {
	for i, p := range points {
		switch {
		case p.Dim() == 0:
			return errors.Errorf(errors.KindInputFormat,
				"Encountered point with score but no parameters (point #%d) in existing points input.", i).
				WithComponent("optimization")
		case p.Dim() != dim:
			return errors.Errorf(errors.KindInputFormat,
				"Encountered point with mismatched dimensionality (point #%d) in existing points input.", i).
				WithComponent("optimization")
		}
	}
	return nil
}
