// Package pointio reads seed points and writes the point stream.
package pointio

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/copyleftdev/randsearch/internal/errors"
	"github.com/copyleftdev/randsearch/internal/optimization"
)

// StdinPath is the input path that means standard input.
const StdinPath = "-"

// ReadPoints parses whitespace-delimited points, score first. Blank lines and
// lines starting with "#" are skipped. Point numbers in errors count only the
// lines that hold points, from zero.
func ReadPoints(r io.Reader) ([]optimization.Point, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var points []optimization.Point
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		values := make([]float64, len(fields))
		for i, f := range fields {
			v, err := optimization.ParseFloat(f)
			if err != nil {
				return nil, errors.Errorf(errors.KindInputFormat,
					"Encountered non-numeric value %q (point #%d) in existing points input.", f, len(points)).
					WithOperation("read points").WithComponent("pointio")
			}
			values[i] = v
		}
		points = append(points, optimization.Point{Score: values[0], Coords: values[1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.KindInputFormat, "Could not read existing points input").
			WithOperation("read points").WithComponent("pointio")
	}
	return points, nil
}

// ReadPointsFile reads points from path, or from stdin when path is "-".
func ReadPointsFile(path string, stdin io.Reader) ([]optimization.Point, error) {
	if path == StdinPath {
		return ReadPoints(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindInputFormat, "Could not open input %s", path).
			WithOperation("read points").WithComponent("pointio")
	}
	defer f.Close()
	return ReadPoints(f)
}
