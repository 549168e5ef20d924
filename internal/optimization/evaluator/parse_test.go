package evaluator

import (
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadScore(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		want      float64
		wantFound bool
	}{
		{"single value", "1.5\n", 1.5, true},
		{"no trailing newline", "42", 42, true},
		{"comments skipped", "# 7\n# progress\n3\n", 3, true},
		{"first value wins", "3\n4\n", 3, true},
		{"noise before value", "starting up\n  2.5  \ndone\n", 2.5, true},
		{"crlf", "8\r\n", 8, true},
		{"infinity", "inf\n", math.Inf(1), true},
		{"negative infinity", "-Infinity\n", math.Inf(-1), true},
		{"nothing parseable", "hello\nworld\n", 0, false},
		{"only comments", "# 1\n# 2\n", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := ReadScore(strings.NewReader(tt.output))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestReadScoreNaN(t *testing.T) {
	got, found, err := ReadScore(strings.NewReader("nan\n"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, math.IsNaN(got))
}

func TestReadScoreDrainsRemainder(t *testing.T) {
	r := strings.NewReader("1\n" + strings.Repeat("junk line\n", 10000))
	_, found, err := ReadScore(r)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Zero(t, r.Len(), "reader should be fully consumed")
}

type repeatReader byte

func (b repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(b)
	}
	return len(p), nil
}

func TestReadScoreOverlongLine(t *testing.T) {
	tests := []struct {
		name string
		fill byte
	}{
		{"junk without newline", 'x'},
		// Kept in full this line would parse as a huge number.
		{"digits without newline", '9'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := io.MultiReader(
				io.LimitReader(repeatReader(tt.fill), 8*MaxLineBytes),
				strings.NewReader("\n3\n"),
			)
			got, found, err := ReadScore(r)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, 3.0, got)
		})
	}
}

func TestReadScoreLineAtLimit(t *testing.T) {
	line := strings.Repeat(" ", MaxLineBytes-4) + "4.5\n"
	require.Len(t, line, MaxLineBytes)

	got, found, err := ReadScore(strings.NewReader(line))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4.5, got)
}
