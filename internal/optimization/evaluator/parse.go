package evaluator

import (
	"bufio"
	"io"
	"strings"

	"github.com/copyleftdev/randsearch/internal/optimization"
)

// MaxLineBytes caps how much of one output line is kept. The rest of a longer
// line is discarded, and such a line never holds the score.
const MaxLineBytes = 1 << 20

// ReadScore scans objective output for its score: the first line that is not
// a "#" comment and parses as a float. Once a score is found the rest of r is
// drained unparsed, so a writer on the other end of a pipe never blocks.
func ReadScore(r io.Reader) (score float64, found bool, err error) {
	br := bufio.NewReader(r)
	for {
		line, truncated, readErr := readLine(br)
		if len(line) > 0 && !truncated {
			line = strings.TrimRight(line, "\r\n")
			if !strings.HasPrefix(line, "#") {
				if v, perr := optimization.ParseFloat(line); perr == nil {
					_, err = io.Copy(io.Discard, br)
					return v, true, err
				}
			}
		}
		if readErr == io.EOF {
			return 0, false, nil
		}
		if readErr != nil {
			return 0, false, readErr
		}
	}
}

// readLine returns the next line, keeping at most MaxLineBytes of it.
func readLine(br *bufio.Reader) (string, bool, error) {
	var b strings.Builder
	truncated := false
	for {
		chunk, err := br.ReadSlice('\n')
		if room := MaxLineBytes - b.Len(); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
				truncated = true
			}
			b.Write(chunk)
		} else if len(chunk) > 0 {
			truncated = true
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return b.String(), truncated, err
	}
}
