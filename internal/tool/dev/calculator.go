// Package dev provides the built-in generation and utility tools that the
// runtime registers at startup. All tools are pure: they derive output from
// their parameters alone.
package dev

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/kazz187/devguild/internal/tool"
)

// Calculator evaluates arithmetic expressions without shelling out to an
// interpreter. Supported: + - * / % ^, parentheses, a small function set,
// and the constants pi, e and tau.
type Calculator struct{}

func NewCalculator() *Calculator { return &Calculator{} }

func (c *Calculator) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        "calculator",
		Description: "Perform mathematical calculations for development tasks",
		Tags:        []string{"utility", "math"},
		Params: []tool.ParamSpec{
			{Name: "expression", Type: tool.TypeString, Required: true, Description: "The mathematical expression to evaluate"},
		},
	}
}

func (c *Calculator) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	expr, err := requireString(params, "expression")
	if err != nil {
		return nil, err
	}
	value, err := evalExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %q: %w", expr, err)
	}
	return &tool.Result{
		Output: formatNumber(value),
		Meta:   map[string]any{"expression": expr, "value": value},
	}, nil
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var calcConstants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"tau": 2 * math.Pi,
}

var calcUnaryFuncs = map[string]func(float64) float64{
	"sqrt":  math.Sqrt,
	"abs":   math.Abs,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"round": math.Round,
	"log":   math.Log,
	"log2":  math.Log2,
	"log10": math.Log10,
	"exp":   math.Exp,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
}

var calcBinaryFuncs = map[string]func(float64, float64) float64{
	"pow": math.Pow,
	"min": math.Min,
	"max": math.Max,
	"mod": math.Mod,
}

// evalExpression parses and evaluates with a recursive descent parser.
// Grammar: expr := term (('+'|'-') term)*
//
//	term := unary (('*'|'/'|'%') unary)*
//	unary := '-' unary | power
//	power := atom ('^' unary)?
//	atom := number | const | func '(' expr (',' expr)? ')' | '(' expr ')'
func evalExpression(input string) (float64, error) {
	p := &exprParser{input: input}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case '%':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseAtom()
	if err != nil {
		return 0, err
	}
	if p.peek() == '^' {
		p.pos++
		exp, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parseAtom() (float64, error) {
	ch := p.peek()
	switch {
	case ch == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case ch >= '0' && ch <= '9' || ch == '.':
		return p.parseNumber()
	case unicode.IsLetter(rune(ch)):
		return p.parseIdent()
	case ch == 0:
		return 0, fmt.Errorf("unexpected end of expression")
	default:
		return 0, fmt.Errorf("unexpected character %q at position %d", ch, p.pos)
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' ||
			((c == '+' || c == '-') && p.pos > start && (p.input[p.pos-1] == 'e' || p.input[p.pos-1] == 'E')) {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

func (p *exprParser) parseIdent() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsLetter(rune(p.input[p.pos])) || unicode.IsDigit(rune(p.input[p.pos]))) {
		p.pos++
	}
	name := strings.ToLower(p.input[start:p.pos])

	if v, ok := calcConstants[name]; ok {
		return v, nil
	}

	if p.peek() != '(' {
		return 0, fmt.Errorf("unknown identifier %q", name)
	}
	p.pos++
	first, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if fn, ok := calcBinaryFuncs[name]; ok {
		if p.peek() != ',' {
			return 0, fmt.Errorf("function %s requires two arguments", name)
		}
		p.pos++
		second, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis in %s()", name)
		}
		p.pos++
		return fn(first, second), nil
	}
	fn, ok := calcUnaryFuncs[name]
	if !ok {
		return 0, fmt.Errorf("unknown function %q", name)
	}
	if p.peek() != ')' {
		return 0, fmt.Errorf("missing closing parenthesis in %s()", name)
	}
	p.pos++
	return fn(first), nil
}
