package predicate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Parse compiles a textual entry condition such as
//
//	close > ema_21 and rsi_14 < 30
//
// into an expression tree. Operators: > >= < <= = == != <>, keywords
// and/or/not (case-insensitive), parentheses for grouping. Field names
// are validated against the bar schema; an unknown name fails with
// ErrUnknownField.
func Parse(input string) (Expr, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, p.peek().text)
	}
	if err := validate(expr); err != nil {
		return nil, err
	}
	return expr, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := rune(input[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '>' || c == '<' || c == '=' || c == '!':
			j := i + 1
			if j < len(input) && (input[j] == '=' || (c == '<' && input[j] == '>')) {
				j++
			}
			op := input[i:j]
			// Normalize SQL-ish spellings.
			switch op {
			case "==":
				op = "="
			case "<>":
				op = "!="
			}
			if op == "!" {
				return nil, fmt.Errorf("%w: stray %q", ErrSyntax, op)
			}
			toks = append(toks, token{tokOp, op})
			i = j
		case unicode.IsDigit(c) || c == '.' || c == '-':
			j := i
			if input[j] == '-' {
				j++
			}
			for j < len(input) && (unicode.IsDigit(rune(input[j])) || input[j] == '.' || input[j] == 'e' || input[j] == 'E' ||
				(j > i && (input[j] == '+' || input[j] == '-') && (input[j-1] == 'e' || input[j-1] == 'E'))) {
				j++
			}
			text := input[i:j]
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, text)
			}
			toks = append(toks, token{tokNumber, text})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(input) && (unicode.IsLetter(rune(input[j])) || unicode.IsDigit(rune(input[j])) || input[j] == '_') {
				j++
			}
			toks = append(toks, token{tokIdent, input[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("%w: unexpected character %q", ErrSyntax, string(c))
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) eof() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

// keyword consumes an identifier token equal to kw (case-insensitive).
func (p *parser) keyword(kw string) bool {
	if p.eof() {
		return false
	}
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.keyword("not") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.eof() {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	}
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.eof() || p.peek().kind != tokRParen {
			return nil, fmt.Errorf("%w: missing closing parenthesis", ErrSyntax)
		}
		p.next()
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.eof() || p.peek().kind != tokOp {
		return nil, fmt.Errorf("%w: expected comparison operator", ErrSyntax)
	}
	op := CompareOp(p.next().text)
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &Compare{Left: left, Op: op, Right: right}, nil
}

func (p *parser) parseOperand() (Operand, error) {
	if p.eof() {
		return nil, fmt.Errorf("%w: expected operand", ErrSyntax)
	}
	t := p.next()
	switch t.kind {
	case tokIdent:
		// Keywords cannot be operands.
		lower := strings.ToLower(t.text)
		if lower == "and" || lower == "or" || lower == "not" {
			return nil, fmt.Errorf("%w: %q is not an operand", ErrSyntax, t.text)
		}
		return FieldRef(lower), nil
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, t.text)
		}
		return Literal(v), nil
	}
	return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.text)
}
