// ABOUTME: Local math specialist: extracts an arithmetic expression from the input
// ABOUTME: and evaluates it with full precedence, parentheses, power, and modulo.

package agent

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// expressionPattern pulls the arithmetic portion out of a natural-language
// question like "what is (5 + 3) * 2?".
var expressionPattern = regexp.MustCompile(`[-+*/%^().\d\s]*\d[-+*/%^().\d\s]*`)

// MathAgent evaluates arithmetic expressions locally. It supports
// + - * / % ^ (and ** as an alias for ^), parentheses, and unary minus.
type MathAgent struct{}

// NewMathAgent creates a math agent.
func NewMathAgent() *MathAgent {
	return &MathAgent{}
}

// Invoke extracts and evaluates the arithmetic expression in the text.
// Evaluation problems (division by zero, malformed expressions) are
// reported as normal response text, not as invocation failures.
func (m *MathAgent) Invoke(_ context.Context, text string) (string, error) {
	expr := strings.TrimSpace(expressionPattern.FindString(text))
	if expr == "" {
		return "I can evaluate arithmetic expressions like \"(5 + 3) * 2\" or \"2 ^ 10\". What would you like me to calculate?", nil
	}

	result, err := evaluate(expr)
	if err != nil {
		return fmt.Sprintf("I couldn't evaluate %q: %v.", expr, err), nil
	}

	return fmt.Sprintf("%s = %s", strings.Join(strings.Fields(expr), " "), formatNumber(result)), nil
}

func formatNumber(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "undefined"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// evaluate parses and computes an arithmetic expression.
func evaluate(expr string) (float64, error) {
	p := &exprParser{input: strings.ReplaceAll(expr, "**", "^")}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected %q", p.input[p.pos:])
	}
	return v, nil
}

// exprParser is a small recursive-descent parser:
//
//	expr  := term  (('+'|'-') term)*
//	term  := power (('*'|'/'|'%') power)*
//	power := unary ('^' power)?        right-associative
//	unary := '-' unary | atom
//	atom  := number | '(' expr ')'
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
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

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/' && op != '%') {
			return left, nil
		}
		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		switch op {
		case '*':
			left *= right
		case '/':
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case '%':
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(left, right)
		}
	}
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	op, ok := p.peek()
	if !ok || op != '^' {
		return base, nil
	}
	p.pos++
	exp, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (p *exprParser) parseUnary() (float64, error) {
	op, ok := p.peek()
	if ok && op == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() (float64, error) {
	ch, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	if ch == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		next, ok := p.peek()
		if !ok || next != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected a number at %q", p.input[start:])
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
