package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/copyleftdev/randsearch/internal/errors"
	"github.com/copyleftdev/randsearch/internal/optimization"
)

// Template is a parsed command template. "{1}" is the first coordinate,
// "{}" numbers itself from 1, "{{" and "}}" are literal braces and
// "{2:.3f}" applies a precision with verb f, e or g. Index 0 is reserved for
// the score and is rejected.
type Template struct {
	raw      string
	segments []segment
	maxIndex int
}

type segment struct {
	literal string
	index   int // 0 for literal segments
	verb    byte
	prec    int
}

// ParseTemplate parses raw. The errors it returns are configuration errors.
func ParseTemplate(raw string) (*Template, error) {
	t := &Template{raw: raw}
	var lit strings.Builder
	auto, manual := 0, false

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '{' && i+1 < len(raw) && raw[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(raw) && raw[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '}':
			return nil, templateErr(raw, "single '}' at offset %d", i)
		case c == '{':
			end := strings.IndexByte(raw[i:], '}')
			if end < 0 {
				return nil, templateErr(raw, "unclosed '{' at offset %d", i)
			}
			field := raw[i+1 : i+end]
			seg, err := parseField(field)
			if err != nil {
				return nil, templateErr(raw, "%v", err)
			}
			if seg.index < 0 {
				if manual {
					return nil, templateErr(raw, "cannot mix automatic and explicit placeholder numbering")
				}
				auto++
				seg.index = auto
			} else {
				if auto > 0 {
					return nil, templateErr(raw, "cannot mix automatic and explicit placeholder numbering")
				}
				manual = true
			}
			if lit.Len() > 0 {
				t.segments = append(t.segments, segment{literal: lit.String()})
				lit.Reset()
			}
			t.segments = append(t.segments, seg)
			if seg.index > t.maxIndex {
				t.maxIndex = seg.index
			}
			i += end
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		t.segments = append(t.segments, segment{literal: lit.String()})
	}
	return t, nil
}

// parseField parses the inside of a placeholder. index is -1 for "{}".
func parseField(field string) (segment, error) {
	name, spec, hasSpec := strings.Cut(field, ":")
	seg := segment{index: -1}

	if name != "" {
		n, err := strconv.Atoi(name)
		if err != nil || n < 0 {
			return seg, fmt.Errorf("placeholder {%s} is not a coordinate index", field)
		}
		if n == 0 {
			return seg, fmt.Errorf("placeholder {0} is reserved; coordinates start at {1}")
		}
		seg.index = n
	}

	if hasSpec {
		if len(spec) < 3 || spec[0] != '.' {
			return seg, fmt.Errorf("unsupported format spec %q (use .Nf, .Ne or .Ng)", spec)
		}
		verb := spec[len(spec)-1]
		if verb != 'f' && verb != 'e' && verb != 'g' {
			return seg, fmt.Errorf("unsupported format verb %q (use f, e or g)", verb)
		}
		prec, err := strconv.Atoi(spec[1 : len(spec)-1])
		if err != nil || prec < 0 || prec > 30 {
			return seg, fmt.Errorf("invalid precision in format spec %q", spec)
		}
		seg.verb, seg.prec = verb, prec
	}
	return seg, nil
}

func templateErr(raw, format string, args ...interface{}) error {
	return errors.Errorf(errors.KindConfig, "invalid command template %q: %s", raw, fmt.Sprintf(format, args...)).
		WithComponent("evaluator")
}

// MaxIndex returns the highest coordinate index the template references.
func (t *Template) MaxIndex() int {
	return t.maxIndex
}

// String returns the unparsed template.
func (t *Template) String() string {
	return t.raw
}

// CheckDimensionality rejects templates that reference coordinates beyond dim.
func (t *Template) CheckDimensionality(dim int) error {
	if t.maxIndex > dim {
		return errors.Errorf(errors.KindConfig,
			"command template references {%d} but the search has only %d dimension(s)", t.maxIndex, dim).
			WithComponent("evaluator")
	}
	return nil
}

// Render substitutes coords into the template.
func (t *Template) Render(coords []float64) (string, error) {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.index == 0 {
			b.WriteString(seg.literal)
			continue
		}
		if seg.index > len(coords) {
			return "", fmt.Errorf("placeholder {%d} out of range for %d coordinate(s)", seg.index, len(coords))
		}
		b.WriteString(formatCoord(coords[seg.index-1], seg))
	}
	return b.String(), nil
}

func formatCoord(v float64, seg segment) string {
	if seg.verb == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return optimization.FormatFloat(v)
	}
	return strconv.FormatFloat(v, seg.verb, seg.prec, 64)
}
