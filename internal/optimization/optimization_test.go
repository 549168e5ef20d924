package optimization

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/randsearch/internal/errors"
)

// assertFloat64SlicesEqual checks if two float64 slices are approximately equal
func assertFloat64SlicesEqual(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	require.Len(t, got, len(want))
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("at index %d: got %v, want %v (tolerance %v)", i, got[i], want[i], tol)
		}
	}
}

func pt(score float64, coords ...float64) Point {
	return Point{Score: score, Coords: coords}
}

func scores(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Score
	}
	return out
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{32, "32.0"},
		{4, "4.0"},
		{-0.5, "-0.5"},
		{0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{4.559075211394427, "4.559075211394427"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1234567, "1234567.0"},
		{1e16, "1e+16"},
		{1.5e20, "1.5e+20"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFloat(tt.in))
		})
	}
}

func TestParseFloat(t *testing.T) {
	for in, want := range map[string]float64{
		"3.5":       3.5,
		"  -2 ":     -2,
		"inf":       math.Inf(1),
		"-inf":      math.Inf(-1),
		"Infinity":  math.Inf(1),
		"1e-3\r":    0.001,
		"+7":        7,
		"32.0\t":    32,
		"-INFINITY": math.Inf(-1),
	} {
		got, err := ParseFloat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	nan, err := ParseFloat("nan")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(nan))

	for _, bad := range []string{"", "abc", "1 2", "# 5"} {
		_, err := ParseFloat(bad)
		assert.Error(t, err, bad)
	}
}

func TestPointString(t *testing.T) {
	assert.Equal(t, "32.0 4.0 4.0", pt(32, 4, 4).String())
	assert.Equal(t, "nan -0.25 1e-05", NewCandidate([]float64{-0.25, 1e-5}).String())
}

func TestPointSetBest(t *testing.T) {
	tests := []struct {
		name   string
		mode   Mode
		points []Point
		want   float64
	}{
		{"min picks smallest", Minimize, []Point{pt(3, 0), pt(-1, 0), pt(2, 0)}, -1},
		{"max picks largest", Maximize, []Point{pt(3, 0), pt(-1, 0), pt(2, 0)}, 3},
		{"min ignores nan", Minimize, []Point{pt(math.NaN(), 0), pt(5, 0)}, 5},
		{"max ignores nan", Maximize, []Point{pt(5, 0), pt(math.NaN(), 0)}, 5},
		{"min with -inf", Minimize, []Point{pt(1, 0), pt(math.Inf(-1), 0)}, math.Inf(-1)},
		{"max with inf", Maximize, []Point{pt(math.Inf(1), 0), pt(1, 0)}, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := NewPointSet(tt.points)
			best, ok := set.Best(tt.mode.Descending())
			require.True(t, ok)
			assert.Equal(t, tt.want, best.Score)

			view := set.SortedView(tt.mode.Descending())
			assert.Equal(t, tt.want, view[len(view)-1].Score)
		})
	}
}

func TestPointSetBestMatchesSortedViewOnRandomData(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for _, mode := range []Mode{Minimize, Maximize} {
		set := NewPointSet(nil)
		for i := 0; i < 200; i++ {
			// Coarse scores force plenty of ties.
			set.Insert(pt(float64(rng.IntN(20)), float64(i)))
			best, ok := set.Best(mode.Descending())
			require.True(t, ok)
			view := set.SortedView(mode.Descending())
			assert.Equal(t, view[len(view)-1], best, "mode %s after %d inserts", mode, i+1)
		}
	}
}

func TestPointSetSortedViewIsStableAndNonMutating(t *testing.T) {
	set := NewPointSet([]Point{pt(2, 1), pt(1, 2), pt(2, 3), pt(math.NaN(), 4)})

	desc := set.SortedView(true)
	assert.Equal(t, []float64{4, 1, 3, 2}, []float64{desc[0].Coords[0], desc[1].Coords[0], desc[2].Coords[0], desc[3].Coords[0]})
	assert.True(t, math.IsNaN(desc[0].Score))

	asc := set.SortedView(false)
	assert.Equal(t, []float64{4, 2, 1, 3}, []float64{asc[0].Coords[0], asc[1].Coords[0], asc[2].Coords[0], asc[3].Coords[0]})

	// Insertion order is untouched.
	assert.Equal(t, 2.0, scores(set.Points())[0])
	assert.Equal(t, 4, set.Len())
}

func TestPointSetEmpty(t *testing.T) {
	set := NewPointSet(nil)
	_, ok := set.Best(true)
	assert.False(t, ok)
	assert.Empty(t, set.SortedView(false))
}

func TestPointSetInsertCopies(t *testing.T) {
	p := pt(1, 1, 2)
	set := NewPointSet(nil)
	set.Insert(p)
	p.Coords[0] = 99

	best, _ := set.Best(true)
	assert.Equal(t, []float64{1, 2}, best.Coords)
}

func TestOrigin(t *testing.T) {
	o := Origin(3, Minimize)
	assert.Equal(t, []float64{0, 0, 0}, o.Coords)
	assert.True(t, math.IsInf(o.Score, 1))
	assert.True(t, math.IsInf(Origin(1, Maximize).Score, -1))
}

func TestModeParseAndBetter(t *testing.T) {
	m, err := ParseMode("MAX")
	require.NoError(t, err)
	assert.Equal(t, Maximize, m)
	_, err = ParseMode("median")
	assert.Error(t, err)

	assert.True(t, Minimize.Better(1, 2))
	assert.True(t, Maximize.Better(2, 1))
	assert.False(t, Minimize.Better(math.NaN(), 2))
	assert.True(t, Minimize.Better(2, math.NaN()))
}

func TestExpandRadii(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		dim    int
		want   []float64
	}{
		{"exact", []float64{1, 2, 3}, 3, []float64{1, 2, 3}},
		{"repeat last", []float64{1, 2, 3}, 5, []float64{1, 2, 3, 3, 3}},
		{"single", []float64{0.5}, 4, []float64{0.5, 0.5, 0.5, 0.5}},
		{"truncate", []float64{1, 2, 3}, 2, []float64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandRadii(tt.values, tt.dim)
			require.NoError(t, err)
			require.Len(t, got, tt.dim)
			assertFloat64SlicesEqual(t, got, tt.want, 0)
			for i := len(tt.values); i < tt.dim; i++ {
				assert.Equal(t, tt.values[len(tt.values)-1], got[i])
			}
		})
	}

	_, err := ExpandRadii(nil, 2)
	assert.ErrorIs(t, err, errors.ErrConfig)
	_, err = ExpandRadii([]float64{1}, 0)
	assert.ErrorIs(t, err, errors.ErrConfig)
}

func TestParseRadii(t *testing.T) {
	got, err := ParseRadii("1, 2*0.5, math.pi")
	require.NoError(t, err)
	assertFloat64SlicesEqual(t, got, []float64{1, 1, math.Pi}, 1e-12)

	for _, bad := range []string{"", "0", "-1", "1,inf", "import os", "1/0"} {
		_, err := ParseRadii(bad)
		assert.ErrorIs(t, err, errors.ErrConfig, bad)
	}
}

func TestInferAndValidateDimensions(t *testing.T) {
	seeds := []Point{pt(32, 4, 4), pt(10, 1, 3)}

	d, err := InferDimensionality(0, seeds)
	require.NoError(t, err)
	assert.Equal(t, 2, d)
	for _, p := range seeds {
		assert.Equal(t, d, p.Dim())
	}
	require.NoError(t, ValidateDimensions(seeds, d))

	d, err = InferDimensionality(3, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, d)

	_, err = InferDimensionality(0, nil)
	assert.ErrorIs(t, err, errors.ErrInputFormat)

	err = ValidateDimensions([]Point{pt(1, 1, 1), pt(2, 1)}, 2)
	assert.ErrorIs(t, err, errors.ErrInputFormat)
	assert.Contains(t, err.Error(), "point #1")

	err = ValidateDimensions([]Point{pt(1)}, 2)
	assert.ErrorIs(t, err, errors.ErrInputFormat)
	assert.Contains(t, err.Error(), "score but no parameters")
}
