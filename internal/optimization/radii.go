package optimization

import (
	"math"

	"github.com/copyleftdev/randsearch/internal/errors"
	"github.com/copyleftdev/randsearch/internal/expr"
)

// Radii holds one positive scale factor per dimension. Treat it as read-only.
type Radii []float64

// ParseRadii evaluates a comma-separated list of radius expressions such as
// "1,2,pi/4".
func ParseRadii(spec string) ([]float64, error) {
	values, err := expr.EvalList(spec)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfig, "invalid --radii %q", spec).
			WithComponent("optimization")
	}
	for i, v := range values {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, errors.Errorf(errors.KindConfig,
				"--radii value #%d must be a positive finite number, got %s", i, FormatFloat(v)).
				WithComponent("optimization")
		}
	}
	return values, nil
}

// ExpandRadii stretches values to exactly dim entries by repeating the last
// value. Entries past dim are ignored.
func ExpandRadii(values []float64, dim int) (Radii, error) {
	if len(values) == 0 {
		return nil, errors.New(errors.KindConfig, "--radii must contain at least one value").
			WithComponent("optimization")
	}
	if dim < 1 {
		return nil, errors.Errorf(errors.KindConfig, "dimensionality must be greater than zero, got %d", dim).
			WithComponent("optimization")
	}

	r := make(Radii, dim)
	last := values[len(values)-1]
	for i := range r {
		if i < len(values) {
			r[i] = values[i]
		} else {
			r[i] = last
		}
	}
	return r, nil
}
