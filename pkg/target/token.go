package target

import (
	"fmt"
	"strings"
)

// TokenKind classifies one token of a compound target expression.
type TokenKind int

const (
	TokLiteral TokenKind = iota
	TokAnd
	TokOr
	TokNot
	TokLParen
	TokRParen
)

// Token is one whitespace-delimited unit of a target expression.
type Token struct {
	Kind TokenKind
	Text string
}

// Tokenize splits a compound target expression into tokens.
//
// The surface syntax is whitespace-delimited: "and", "or" and "not" are
// recognized case-sensitively, and a parenthesis is a grouping delimiter
// only when it stands alone between whitespace ("( a or b )"). In
// "(a or b)" the parens stay glued to the literals; deployed expressions
// rely on that documented quirk, so it is preserved here.
//
// A leading "not" is allowed and negates the rest of the expression.
func Tokenize(expr string) ([]Token, error) {
	fields := strings.Fields(expr)
	toks := make([]Token, 0, len(fields))
	depth := 0
	for _, f := range fields {
		switch f {
		case "and":
			toks = append(toks, Token{Kind: TokAnd, Text: f})
		case "or":
			toks = append(toks, Token{Kind: TokOr, Text: f})
		case "not":
			toks = append(toks, Token{Kind: TokNot, Text: f})
		case "(":
			depth++
			toks = append(toks, Token{Kind: TokLParen, Text: f})
		case ")":
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced ')'", ErrSyntax)
			}
			toks = append(toks, Token{Kind: TokRParen, Text: f})
		default:
			toks = append(toks, Token{Kind: TokLiteral, Text: f})
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced '('", ErrSyntax)
	}
	return toks, nil
}
