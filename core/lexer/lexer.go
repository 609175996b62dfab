// Package lexer turns equation text into typed tokens.
//
// Token rules are table-driven through participle's simple lexer. Number
// runs are scanned greedily as any sequence of digits and points and then
// validated, so "1.2.3" and "1." are reported as malformed numbers rather
// than as a number followed by a stray point.
package lexer

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"unicode/utf8"

	plexer "github.com/alecthomas/participle/v2/lexer"

	cerrors "github.com/FocuswithJustin/computor/core/errors"
)

// Kind identifies a token type.
type Kind int

const (
	Number Kind = iota
	Variable
	Caret
	Plus
	Minus
	Star
	Equals
)

var kindNames = [...]string{
	Number:   "number",
	Variable: "X",
	Caret:    "^",
	Plus:     "+",
	Minus:    "-",
	Star:     "*",
	Equals:   "=",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsOperator reports whether k is one of + - * ^ =.
func (k Kind) IsOperator() bool {
	return k != Number && k != Variable
}

// Token is a single lexeme of an equation.
type Token struct {
	Kind  Kind
	Text  string
	Value *big.Rat // set only for Number tokens
	Pos   cerrors.Position
}

func (t Token) String() string {
	if t.Kind == Number {
		return fmt.Sprintf("%s(%s)@%s", t.Kind, t.Text, t.Pos)
	}
	return fmt.Sprintf("%q@%s", t.Kind.String(), t.Pos)
}

// equationLexer tokenizes polynomial equations.
var equationLexer = plexer.MustSimple([]plexer.SimpleRule{
	// Digits and points; validated by validNumber
	{Name: "Number", Pattern: `[0-9.]+`},
	// The single indeterminate, case-insensitive
	{Name: "Variable", Pattern: `[Xx]`},
	{Name: "Caret", Pattern: `\^`},
	{Name: "Plus", Pattern: `\+`},
	{Name: "Minus", Pattern: `-`},
	{Name: "Star", Pattern: `\*`},
	{Name: "Equals", Pattern: `=`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var validNumber = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

var (
	kindByType     map[plexer.TokenType]Kind
	whitespaceType plexer.TokenType
)

func init() {
	symbols := equationLexer.Symbols()
	kindByType = map[plexer.TokenType]Kind{
		symbols["Number"]:   Number,
		symbols["Variable"]: Variable,
		symbols["Caret"]:    Caret,
		symbols["Plus"]:     Plus,
		symbols["Minus"]:    Minus,
		symbols["Star"]:     Star,
		symbols["Equals"]:   Equals,
	}
	whitespaceType = symbols["Whitespace"]
}

// Tokenize splits input into tokens, skipping whitespace.
// It fails with a *errors.LexError on any character outside the equation
// alphabet or on a malformed numeric literal.
func Tokenize(input string) ([]Token, error) {
	lex, err := equationLexer.LexString("", input)
	if err != nil {
		return nil, toLexError(input, err)
	}

	var tokens []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, toLexError(input, err)
		}
		if tok.EOF() {
			break
		}
		if tok.Type == whitespaceType {
			continue
		}

		kind, ok := kindByType[tok.Type]
		if !ok {
			return nil, cerrors.NewLex(position(tok.Pos), tok.Value, "")
		}

		t := Token{Kind: kind, Text: tok.Value, Pos: position(tok.Pos)}
		if kind == Number {
			if !validNumber.MatchString(tok.Value) {
				return nil, cerrors.NewLex(t.Pos, tok.Value, "malformed number")
			}
			value, ok := new(big.Rat).SetString(tok.Value)
			if !ok {
				return nil, cerrors.NewLex(t.Pos, tok.Value, "malformed number")
			}
			t.Value = value
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// toLexError converts a participle lexer failure into a LexError naming the
// character it stopped at.
func toLexError(input string, err error) error {
	var located interface{ Position() plexer.Position }
	if !errors.As(err, &located) {
		return &cerrors.LexError{Text: input, Reason: err.Error()}
	}
	pos := located.Position()
	text := ""
	if pos.Offset >= 0 && pos.Offset < len(input) {
		r, _ := utf8.DecodeRuneInString(input[pos.Offset:])
		text = string(r)
	}
	return cerrors.NewLex(position(pos), text, "")
}

func position(p plexer.Position) cerrors.Position {
	return cerrors.Position{Offset: p.Offset, Line: p.Line, Column: p.Column}
}
