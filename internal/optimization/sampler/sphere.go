// Package sampler proposes candidate points around a reference point.
package sampler

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/randsearch/internal/optimization"
)

// maxDraws bounds redraws when every normal sample comes out exactly zero.
const maxDraws = 16

// Sphere perturbs a reference point by a uniformly random direction on the
// unit sphere, stretched per axis by the radii. It is not safe for
// concurrent use; the search loop owns it.
type Sphere struct {
	normal distuv.Normal
}

// NewSphere returns a sampler seeded for reproducible draws.
func NewSphere(seed uint64) *Sphere {
	return &Sphere{
		normal: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		},
	}
}

// NewRandomSphere returns a sampler with a non-reproducible seed.
func NewRandomSphere() *Sphere {
	return NewSphere(rand.Uint64())
}

// Generate returns an unscored candidate offset from reference. The offset
// has unit Euclidean length once each axis is divided by its radius.
func (s *Sphere) Generate(reference optimization.Point, radii optimization.Radii) (optimization.Point, error) {
	dim := reference.Dim()
	if dim == 0 {
		return optimization.Point{}, fmt.Errorf("reference point has no coordinates")
	}
	if len(radii) != dim {
		return optimization.Point{}, fmt.Errorf("radii length %d does not match dimensionality %d", len(radii), dim)
	}

	delta := make([]float64, dim)
	for attempt := 0; ; attempt++ {
		if attempt == maxDraws {
			return optimization.Point{}, fmt.Errorf("normal draws collapsed to zero %d times", maxDraws)
		}
		for i := range delta {
			delta[i] = s.normal.Rand()
		}
		if norm := floats.Norm(delta, 2); norm > 0 {
			floats.Scale(1/norm, delta)
			break
		}
	}

	coords := make([]float64, dim)
	for i := range coords {
		coords[i] = reference.Coords[i] + delta[i]*radii[i]
	}
	return optimization.NewCandidate(coords), nil
}
