package expr

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []float64
	}{
		{"single", "1", []float64{1}},
		{"list", "1,2,3", []float64{1, 2, 3}},
		{"trailing comma", "0.5,", []float64{0.5}},
		{"whitespace", " 1 , 2.5e-1 ", []float64{1, 0.25}},
		{"leading dot", ".5", []float64{0.5}},
		{"precedence", "1+2*3", []float64{7}},
		{"parens", "(1+2)*3", []float64{9}},
		{"unary minus", "-2+5", []float64{3}},
		{"power binds tighter than unary", "-2^2", []float64{-4}},
		{"python power", "2**3", []float64{8}},
		{"power right assoc", "2^3^2", []float64{512}},
		{"constants", "pi, math.pi/2", []float64{math.Pi, math.Pi / 2}},
		{"functions", "sqrt(4), math.exp(0)", []float64{2, 1}},
		{"division", "1/4", []float64{0.25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalList(tt.input)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestEvalListErrors(t *testing.T) {
	tests := []string{
		"",
		",",
		"1,,2",
		"1 2",
		"(1+2",
		"1+",
		"foo",
		"nope(1)",
		"__import__('os')",
		"1;2",
		"2e",
		strings.Repeat("(", 200) + "1" + strings.Repeat(")", 200),
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := EvalList(input)
			require.Error(t, err)
			var syn *SyntaxError
			assert.ErrorAs(t, err, &syn)
		})
	}
}

func TestEval(t *testing.T) {
	v, err := Eval("3*tau/(2*pi)")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-12)

	_, err = Eval("1,2")
	assert.Error(t, err)
}
