package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/randsearch/internal/optimization"
)

// TestMain lets the test binary double as the objective program.
func TestMain(m *testing.M) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") == "1" {
		os.Exit(helperObjective(os.Args[1:]))
	}
	os.Exit(m.Run())
}

// helperObjective prints the sum of squares of its arguments, or nothing
// useful when HELPER_MODE is "noscore".
func helperObjective(args []string) int {
	sum := 0.0
	for _, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad argument %q\n", a)
			return 2
		}
		sum += v * v
	}
	if os.Getenv("HELPER_MODE") == "noscore" {
		fmt.Println("# no score today")
		return 0
	}
	fmt.Println("# sum of squares")
	fmt.Println(sum)
	return 0
}

func objectiveCommand(t *testing.T, mode string) string {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("HELPER_MODE", mode)
	exe, err := os.Executable()
	require.NoError(t, err)
	return strconv.Quote(exe) + " {1} {2}"
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (r result) lines() []string {
	return strings.Split(strings.TrimRight(r.stdout, "\n"), "\n")
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func parseBest(t *testing.T, line string) optimization.Point {
	t.Helper()
	require.True(t, strings.HasPrefix(line, "## Best point: "), line)
	fields := strings.Fields(strings.TrimPrefix(line, "## Best point: "))
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := optimization.ParseFloat(f)
		require.NoError(t, err)
		values[i] = v
	}
	return optimization.Point{Score: values[0], Coords: values[1:]}
}

func TestQuadraticEndToEnd(t *testing.T) {
	command := objectiveCommand(t, "score")
	res := runCLI(t, "32 4 4\n", "-R", "12345", "-t", "0", "-c", "10", "-p", "1", command)
	require.Equal(t, 0, res.code, "stdout:\n%s\nstderr:\n%s", res.stdout, res.stderr)

	lines := res.lines()
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, []string{"## Existing points:", "32.0 4.0 4.0", "## New points:"}, lines[:3])

	best := parseBest(t, lines[len(lines)-1])
	assert.Less(t, best.Score, 32.0)
	assert.InDelta(t, best.Coords[0]*best.Coords[0]+best.Coords[1]*best.Coords[1], best.Score, 1e-9)

	// Each new point carries the objective's score for its coordinates.
	for _, line := range lines[3 : len(lines)-1] {
		fields := strings.Fields(line)
		require.Len(t, fields, 3)
		score, _ := optimization.ParseFloat(fields[0])
		x, _ := optimization.ParseFloat(fields[1])
		y, _ := optimization.ParseFloat(fields[2])
		assert.InDelta(t, x*x+y*y, score, 1e-9)
	}
}

func TestSeededRunsAreReproducible(t *testing.T) {
	command := objectiveCommand(t, "score")
	first := runCLI(t, "32 4 4\n", "-R", "7", "-p", "3", command)
	second := runCLI(t, "32 4 4\n", "-R", "7", "-p", "3", command)
	require.Equal(t, 0, first.code)
	assert.Equal(t, first.stdout, second.stdout)
}

func TestAppendMode(t *testing.T) {
	command := objectiveCommand(t, "score")
	path := filepath.Join(t.TempDir(), "points.txt")
	require.NoError(t, os.WriteFile(path, []byte("# seeds\n32 4 4\n"), 0644))

	res := runCLI(t, "", "-i", path, "-a", "-R", "3", "-c", "3", "--print-date-and-time", command)
	require.Equal(t, 0, res.code, res.stdout)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := res.lines()
	require.Equal(t, "## New points:", lines[2])
	want := "# seeds\n32 4 4\n" + strings.Join(lines[3:], "\n") + "\n"
	assert.Equal(t, want, string(data))
	assert.True(t, strings.HasPrefix(lines[3], "## Date and time: "), lines[3])

	// The file is valid input for the next run.
	res = runCLI(t, "", "-i", path, "-R", "4", "-c", "1", command)
	require.Equal(t, 0, res.code, res.stdout)
}

func TestZeroSeedsWithDimensionality(t *testing.T) {
	command := objectiveCommand(t, "score")
	res := runCLI(t, "", "-d", "2", "-R", "1", "-c", "2", "-r", "0.5", command)
	require.Equal(t, 0, res.code, res.stdout)

	lines := res.lines()
	assert.Equal(t, []string{
		"## WARN: No existing points, seeding with origin",
		"## Existing points:",
		"## New points:",
	}, lines[:3])

	// The first candidate lies on the radius 0.5 circle around the origin.
	fields := strings.Fields(lines[3])
	x, _ := optimization.ParseFloat(fields[1])
	y, _ := optimization.ParseFloat(fields[2])
	assert.InDelta(t, 0.25, x*x+y*y, 1e-9)
}

func TestEvaluationFailure(t *testing.T) {
	command := objectiveCommand(t, "noscore")
	res := runCLI(t, "32 4 4\n", "-R", "1", command)
	assert.Equal(t, 1, res.code)

	lines := res.lines()
	require.Len(t, lines, 5)
	assert.Equal(t, "## ERROR: Could not find evaluated point value in process output.", lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "nan "), lines[4])
	assert.Equal(t, 1, strings.Count(res.stdout, "## ERROR:"))
}

func TestInputErrors(t *testing.T) {
	command := objectiveCommand(t, "score")

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  []string
	}{
		{
			name:  "no seeds and no dimensionality",
			stdin: "",
			want: []string{
				"## WARN: No existing points, seeding with origin",
				"## ERROR: No existing points to infer dimensionality and --dimensionality is not specified, cannot seed optimization",
			},
		},
		{
			name:  "mismatched dimensionality",
			stdin: "1 2 3\n4 5\n",
			want:  []string{"## ERROR: Encountered point with mismatched dimensionality (point #1) in existing points input."},
		},
		{
			name:  "score without parameters",
			stdin: "7\n",
			want:  []string{"## ERROR: Encountered point with score but no parameters (point #0) in existing points input."},
		},
		{
			name:  "missing input file",
			stdin: "",
			args:  []string{"-i", filepath.Join(t.TempDir(), "missing.txt")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, tt.stdin, append(tt.args, command)...)
			assert.Equal(t, 1, res.code)
			if tt.want != nil {
				assert.Equal(t, tt.want, res.lines())
			} else {
				assert.True(t, strings.HasPrefix(res.stdout, "## ERROR: "), res.stdout)
			}
		})
	}
}

func TestConfigErrors(t *testing.T) {
	command := objectiveCommand(t, "score")

	tests := []struct {
		name string
		args []string
	}{
		{"zero stale count", []string{"-c", "0", command}},
		{"zero proposals", []string{"-p", "0", command}},
		{"negative threshold", []string{"-t", "-1", command}},
		{"zero dimensionality", []string{"-d", "0", command}},
		{"bad optimization type", []string{"-O", "median", command}},
		{"non-positive radius", []string{"-r", "1,0", command}},
		{"append to stdin", []string{"-a", command}},
		{"template beyond dimensionality", []string{strings.Replace(command, "{2}", "{3}", 1)}},
		{"reserved placeholder", []string{"objective {0}"}},
		{"missing command", nil},
		{"too many arguments", []string{command, "extra"}},
		{"unknown flag", []string{"--no-such-flag", command}},
		{"malformed flag value", []string{"-c", "ten", command}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, "32 4 4\n", tt.args...)
			assert.Equal(t, 2, res.code, res.stdout)
			assert.True(t, strings.HasPrefix(res.stdout, "## ERROR: "), res.stdout)
			assert.NotContains(t, res.stdout, "## Existing points:")
		})
	}
}

func TestVersion(t *testing.T) {
	res := runCLI(t, "", "version")
	assert.Equal(t, 0, res.code)
	assert.Equal(t, "randsearch version "+version+"\n", res.stdout)
}
