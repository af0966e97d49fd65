package target

import (
	"fmt"
)

// Parse turns a compound target expression into its AST.
//
// Grammar, in descending precedence ("not" binds tighter than "and",
// which binds tighter than "or"; parentheses override):
//
//	expr   := term (OR term)*
//	term   := factor (AND factor)*
//	factor := NOT factor | LPAREN expr RPAREN | CLAUSE
//
// Chained operators at the same level are left-associative. Trailing
// tokens, operators with a missing operand and unmatched parentheses all
// fail with ErrSyntax.
func Parse(expr string) (Node, error) {
	toks, err := Tokenize(expr)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("%w: unexpected %q at token %d", ErrSyntax, p.toks[p.pos].Text, p.pos)
	}
	return n, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) peek() (Token, bool) {
	if p.pos >= len(p.toks) {
		return Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.Kind != TokOr {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrNode{Left: left, Right: right}
	}
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.Kind != TokAnd {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &AndNode{Left: left, Right: right}
	}
}

func (p *parser) parseFactor() (Node, error) {
	t, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("%w: missing operand at end of expression", ErrSyntax)
	}
	switch t.Kind {
	case TokNot:
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &NotNode{Operand: operand}, nil
	case TokLParen:
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.next()
		if !ok || closing.Kind != TokRParen {
			return nil, fmt.Errorf("%w: missing ')' at token %d", ErrSyntax, p.pos)
		}
		return n, nil
	case TokLiteral:
		cl, err := ParseClause(t.Text)
		if err != nil {
			return nil, err
		}
		return &ClauseNode{Clause: cl}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %q at token %d", ErrSyntax, t.Text, p.pos-1)
	}
}
