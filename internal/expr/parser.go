// Package expr evaluates small arithmetic expressions such as "2*pi/3" or
// "sqrt(2), 0.5". It is the only way user-supplied numeric lists are
// interpreted; there is no general-purpose evaluator behind it.
//
// Grammar:
//
//	list    = expr { "," expr } [ "," ]
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ ("^" | "**") unary ]
//	primary = number | ident | ident "(" expr ")" | "(" expr ")"
//
// Identifiers may carry a "math." prefix (math.pi, math.sqrt).
package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// maxDepth bounds nesting so hostile input cannot exhaust the stack.
const maxDepth = 64

var constants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"tau": 2 * math.Pi,
	"inf": math.Inf(1),
}

var functions = map[string]func(float64) float64{
	"sqrt":  math.Sqrt,
	"exp":   math.Exp,
	"log":   math.Log,
	"log2":  math.Log2,
	"log10": math.Log10,
	"abs":   math.Abs,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
}

// SyntaxError reports where an expression stopped making sense.
type SyntaxError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at offset %d in %q", e.Msg, e.Offset, e.Input)
}

// EvalList evaluates a comma-separated list of expressions. A single
// trailing comma is allowed.
func EvalList(input string) ([]float64, error) {
	p, err := newParser(input)
	if err != nil {
		return nil, err
	}

	var values []float64
	for {
		if p.peek().kind == tokEOF {
			if len(values) == 0 {
				return nil, p.errorf("expected expression")
			}
			return values, nil
		}
		v, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		switch tok := p.next(); tok.kind {
		case tokEOF:
			return values, nil
		case tokComma:
			continue
		default:
			return nil, p.errorAt(tok, "unexpected %q", tok.text)
		}
	}
}

// Eval evaluates a single expression.
func Eval(input string) (float64, error) {
	values, err := EvalList(input)
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, &SyntaxError{Input: input, Msg: fmt.Sprintf("expected one value, got %d", len(values))}
	}
	return values[0], nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind   tokKind
	text   string
	num    float64
	offset int
}

type parser struct {
	input  string
	tokens []token
	pos    int
}

func newParser(input string) (*parser, error) {
	p := &parser{input: input}
	if err := p.lex(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) lex() error {
	s := p.input
	i := 0
	for i < len(s) {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9':
			start := i
			i = scanNumber(s, i)
			v, err := strconv.ParseFloat(s[start:i], 64)
			if err != nil {
				return &SyntaxError{Input: s, Offset: start, Msg: fmt.Sprintf("bad number %q", s[start:i])}
			}
			p.tokens = append(p.tokens, token{kind: tokNumber, text: s[start:i], num: v, offset: start})
		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(s) && (isIdentRune(rune(s[i])) || s[i] == '.') {
				i++
			}
			p.tokens = append(p.tokens, token{kind: tokIdent, text: s[start:i], offset: start})
		case c == '*' && i+1 < len(s) && s[i+1] == '*':
			p.tokens = append(p.tokens, token{kind: tokOp, text: "^", offset: i})
			i += 2
		case strings.ContainsRune("+-*/^", c):
			p.tokens = append(p.tokens, token{kind: tokOp, text: string(c), offset: i})
			i++
		case c == '(':
			p.tokens = append(p.tokens, token{kind: tokLParen, text: "(", offset: i})
			i++
		case c == ')':
			p.tokens = append(p.tokens, token{kind: tokRParen, text: ")", offset: i})
			i++
		case c == ',':
			p.tokens = append(p.tokens, token{kind: tokComma, text: ",", offset: i})
			i++
		default:
			return &SyntaxError{Input: s, Offset: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	p.tokens = append(p.tokens, token{kind: tokEOF, offset: len(s)})
	return nil
}

func scanNumber(s string, i int) int {
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && s[j] >= '0' && s[j] <= '9' {
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			i = j
		}
	}
	return i
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return p.errorAt(p.peek(), format, args...)
}

func (p *parser) errorAt(t token, format string, args ...interface{}) error {
	return &SyntaxError{Input: p.input, Offset: t.offset, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expr(depth int) (float64, error) {
	if depth > maxDepth {
		return 0, p.errorf("expression nested too deeply")
	}
	v, err := p.term(depth)
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return v, nil
		}
		p.next()
		rhs, err := p.term(depth)
		if err != nil {
			return 0, err
		}
		if t.text == "+" {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

func (p *parser) term(depth int) (float64, error) {
	v, err := p.unary(depth)
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return v, nil
		}
		p.next()
		rhs, err := p.unary(depth)
		if err != nil {
			return 0, err
		}
		if t.text == "*" {
			v *= rhs
		} else {
			v /= rhs
		}
	}
}

func (p *parser) unary(depth int) (float64, error) {
	if depth > maxDepth {
		return 0, p.errorf("expression nested too deeply")
	}
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+") {
		p.next()
		v, err := p.unary(depth + 1)
		if err != nil {
			return 0, err
		}
		if t.text == "-" {
			return -v, nil
		}
		return v, nil
	}
	return p.power(depth)
}

func (p *parser) power(depth int) (float64, error) {
	base, err := p.primary(depth)
	if err != nil {
		return 0, err
	}
	if t := p.peek(); t.kind == tokOp && t.text == "^" {
		p.next()
		exp, err := p.unary(depth + 1)
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *parser) primary(depth int) (float64, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return t.num, nil
	case tokLParen:
		v, err := p.expr(depth + 1)
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return 0, p.errorAt(closing, "expected ')'")
		}
		return v, nil
	case tokIdent:
		name := strings.TrimPrefix(t.text, "math.")
		if p.peek().kind == tokLParen {
			fn, ok := functions[name]
			if !ok {
				return 0, p.errorAt(t, "unknown function %q", t.text)
			}
			p.next()
			arg, err := p.expr(depth + 1)
			if err != nil {
				return 0, err
			}
			if closing := p.next(); closing.kind != tokRParen {
				return 0, p.errorAt(closing, "expected ')'")
			}
			return fn(arg), nil
		}
		v, ok := constants[name]
		if !ok {
			return 0, p.errorAt(t, "unknown identifier %q", t.text)
		}
		return v, nil
	case tokEOF:
		return 0, p.errorAt(t, "unexpected end of input")
	default:
		return 0, p.errorAt(t, "unexpected %q", t.text)
	}
}
