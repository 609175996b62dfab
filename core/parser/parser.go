// Package parser turns a token stream into the signed terms of each side of
// an equation.
//
// Grammar:
//
//	equation    := side '=' side
//	side        := signed_term (('+' | '-') term)*
//	signed_term := ['+' | '-'] term
//	term        := number ['*' 'X' ['^' integer]] | 'X' ['^' integer]
package parser

import (
	"math/big"
	"strings"

	cerrors "github.com/FocuswithJustin/computor/core/errors"
	"github.com/FocuswithJustin/computor/core/lexer"
)

// Term is one monomial, coefficient * X^exponent, before reduction.
type Term struct {
	Coefficient *big.Rat
	Exponent    *big.Int // never negative
}

// NewTerm builds a term with an integer-valued coefficient.
func NewTerm(coefficient int64, exponent int) Term {
	return Term{Coefficient: new(big.Rat).SetInt64(coefficient), Exponent: big.NewInt(int64(exponent))}
}

// Parse splits tokens at the single '=' and parses both sides.
func Parse(tokens []lexer.Token) (lhs, rhs []Term, err error) {
	end := endPosition(tokens)

	eq := -1
	for i, tok := range tokens {
		if tok.Kind != lexer.Equals {
			continue
		}
		if eq >= 0 {
			return nil, nil, cerrors.NewParse(tok.Pos, "multiple '=' signs")
		}
		eq = i
	}
	if eq < 0 {
		return nil, nil, cerrors.NewParse(end, "missing '='")
	}

	lhs, err = parseSide(tokens[:eq], tokens[eq].Pos, "left")
	if err != nil {
		return nil, nil, err
	}
	rhs, err = parseSide(tokens[eq+1:], end, "right")
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

type sideParser struct {
	tokens []lexer.Token
	pos    int
	end    cerrors.Position // position just past the side
}

func parseSide(tokens []lexer.Token, end cerrors.Position, name string) ([]Term, error) {
	if len(tokens) == 0 {
		return nil, cerrors.NewParse(end, "%s side of '=' is empty", name)
	}

	p := &sideParser{tokens: tokens, end: end}
	var terms []Term

	negative := false
	if tok, ok := p.peek(); ok && (tok.Kind == lexer.Plus || tok.Kind == lexer.Minus) {
		negative = tok.Kind == lexer.Minus
		p.next()
	}

	for {
		term, err := p.term()
		if err != nil {
			return nil, err
		}
		if negative {
			term.Coefficient.Neg(term.Coefficient)
		}
		terms = append(terms, term)

		tok, ok := p.peek()
		if !ok {
			return terms, nil
		}
		switch tok.Kind {
		case lexer.Plus, lexer.Minus:
			negative = tok.Kind == lexer.Minus
			p.next()
			if _, ok := p.peek(); !ok {
				return nil, cerrors.NewParse(tok.Pos, "trailing operator %q", tok.Text)
			}
		case lexer.Star:
			return nil, cerrors.NewParse(tok.Pos, "'*' is only allowed between a coefficient and X")
		case lexer.Caret:
			return nil, cerrors.NewParse(tok.Pos, "'^' must directly follow X")
		case lexer.Variable:
			prev := p.tokens[p.pos-1]
			if prev.Kind == lexer.Number {
				return nil, cerrors.NewParse(tok.Pos, "missing '*' between coefficient %s and X", prev.Text)
			}
			return nil, cerrors.NewParse(tok.Pos, "missing '+' or '-' between terms")
		default:
			return nil, cerrors.NewParse(tok.Pos, "missing '+' or '-' between terms")
		}
	}
}

// term parses number ['*' 'X' ['^' integer]] | 'X' ['^' integer].
func (p *sideParser) term() (Term, error) {
	tok, ok := p.peek()
	if !ok {
		return Term{}, cerrors.NewParse(p.end, "expected a term")
	}

	switch tok.Kind {
	case lexer.Number:
		p.next()
		coefficient := new(big.Rat).Set(tok.Value)
		star, ok := p.peek()
		if !ok || star.Kind != lexer.Star {
			return Term{Coefficient: coefficient, Exponent: new(big.Int)}, nil
		}
		p.next()
		variable, ok := p.peek()
		if !ok || variable.Kind != lexer.Variable {
			return Term{}, cerrors.NewParse(p.posOr(variable, ok), "'*' must be followed by X")
		}
		p.next()
		exponent, err := p.exponent()
		if err != nil {
			return Term{}, err
		}
		return Term{Coefficient: coefficient, Exponent: exponent}, nil

	case lexer.Variable:
		p.next()
		exponent, err := p.exponent()
		if err != nil {
			return Term{}, err
		}
		return Term{Coefficient: big.NewRat(1, 1), Exponent: exponent}, nil

	case lexer.Plus, lexer.Minus:
		prev := p.tokens[p.pos-1]
		return Term{}, cerrors.NewParse(tok.Pos, "consecutive operators %q and %q", prev.Text, tok.Text)
	case lexer.Star:
		return Term{}, cerrors.NewParse(tok.Pos, "'*' is only allowed between a coefficient and X")
	case lexer.Caret:
		return Term{}, cerrors.NewParse(tok.Pos, "'^' must directly follow X")
	default:
		return Term{}, cerrors.NewParse(tok.Pos, "unexpected %q", tok.Text)
	}
}

// exponent parses the optional '^' integer after X. X alone is X^1.
func (p *sideParser) exponent() (*big.Int, error) {
	caret, ok := p.peek()
	if !ok || caret.Kind != lexer.Caret {
		return big.NewInt(1), nil
	}
	p.next()

	tok, ok := p.peek()
	if !ok || tok.Kind != lexer.Number {
		return nil, cerrors.NewParse(p.posOr(tok, ok), "'^' must be followed by a non-negative integer")
	}
	if strings.Contains(tok.Text, ".") {
		return nil, cerrors.NewParse(tok.Pos, "exponent %s is not a non-negative integer", tok.Text)
	}
	exponent, ok := new(big.Int).SetString(tok.Text, 10)
	if !ok {
		return nil, cerrors.NewParse(tok.Pos, "exponent %s is not a non-negative integer", tok.Text)
	}
	p.next()
	return exponent, nil
}

func (p *sideParser) peek() (lexer.Token, bool) {
	if p.pos >= len(p.tokens) {
		return lexer.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *sideParser) next() {
	p.pos++
}

func (p *sideParser) posOr(tok lexer.Token, ok bool) cerrors.Position {
	if ok {
		return tok.Pos
	}
	return p.end
}

// endPosition is the position just past the last token.
func endPosition(tokens []lexer.Token) cerrors.Position {
	if len(tokens) == 0 {
		return cerrors.Position{Line: 1, Column: 1}
	}
	last := tokens[len(tokens)-1]
	return cerrors.Position{
		Offset: last.Pos.Offset + len(last.Text),
		Line:   last.Pos.Line,
		Column: last.Pos.Column + len(last.Text),
	}
}
