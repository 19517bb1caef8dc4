package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a pane geometry expression over the screen dimensions, e.g.
// "{cols} // 2" or "{lines} - 3". Plain integers are valid expressions.
// Supported operators are +, -, * and the floor division //.
type Expr string

// Eval substitutes {lines} and {cols} with the given screen dimensions and
// evaluates the resulting arithmetic expression.
func (e Expr) Eval(dims ScreenDimensions) (int, error) {
	s := strings.NewReplacer(
		"{lines}", strconv.Itoa(dims.Lines),
		"{cols}", strconv.Itoa(dims.Cols),
	).Replace(string(e))

	p := &exprParser{input: s}
	val, err := p.parseSum()
	if err != nil {
		return 0, fmt.Errorf("invalid expression %q: %w", string(e), err)
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("invalid expression %q: unexpected %q", string(e), p.input[p.pos:])
	}
	return val, nil
}

// exprParser is a minimal precedence parser for the two-level grammar
// sum := product (('+'|'-') product)*, product := term (('*'|'//') term)*.
// It deliberately knows nothing beyond integers and the four operators.
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) parseSum() (int, error) {
	left, err := p.parseProduct()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseProduct() (int, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		switch {
		case strings.HasPrefix(p.input[p.pos:], "//"):
			p.pos += 2
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left = floorDiv(left, right)
		case p.input[p.pos] == '*':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left *= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (int, error) {
	p.skipSpaces()
	start := p.pos
	if p.pos < len(p.input) && p.input[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start || p.input[start:p.pos] == "-" {
		return 0, fmt.Errorf("expected integer at position %d", start)
	}
	return strconv.Atoi(p.input[start:p.pos])
}

// floorDiv rounds toward negative infinity, matching the // operator of the
// configuration language rather than Go's truncating division.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
