package parser

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	cerrors "github.com/FocuswithJustin/computor/core/errors"
	"github.com/FocuswithJustin/computor/core/lexer"
)

func parseString(t *testing.T, input string) ([]Term, []Term, error) {
	t.Helper()
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize(%q) error: %v", input, err)
	}
	return Parse(tokens)
}

func termsEqual(got, want []Term) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i].Exponent.Cmp(want[i].Exponent) != 0 || got[i].Coefficient.Cmp(want[i].Coefficient) != 0 {
			return false
		}
	}
	return true
}

func rat(num, den int64) *big.Rat {
	return big.NewRat(num, den)
}

func formatTerms(terms []Term) string {
	parts := make([]string, len(terms))
	for i, term := range terms {
		parts[i] = term.Coefficient.RatString() + "x^" + term.Exponent.String()
	}
	return strings.Join(parts, " ")
}

func TestParseTerms(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLHS []Term
		wantRHS []Term
	}{
		{
			name:    "canonical form",
			input:   "5 * X^0 + 4 * X^1 - 9.3 * X^2 = 1 * X^0",
			wantLHS: []Term{NewTerm(5, 0), NewTerm(4, 1), {Coefficient: rat(-93, 10), Exponent: big.NewInt(2)}},
			wantRHS: []Term{NewTerm(1, 0)},
		},
		{
			name:    "implicit exponents and coefficients",
			input:   "5 + 4 * X + X^2 = X^2",
			wantLHS: []Term{NewTerm(5, 0), NewTerm(4, 1), NewTerm(1, 2)},
			wantRHS: []Term{NewTerm(1, 2)},
		},
		{
			name:    "leading signs",
			input:   "-X = +3",
			wantLHS: []Term{NewTerm(-1, 1)},
			wantRHS: []Term{NewTerm(3, 0)},
		},
		{
			name:    "duplicate exponents are kept",
			input:   "X + X - 2 * X = 0",
			wantLHS: []Term{NewTerm(1, 1), NewTerm(1, 1), NewTerm(-2, 1)},
			wantRHS: []Term{NewTerm(0, 0)},
		},
		{
			name:    "lowercase variable",
			input:   "x^2 = 4",
			wantLHS: []Term{NewTerm(1, 2)},
			wantRHS: []Term{NewTerm(4, 0)},
		},
		{
			name:    "zero exponent on bare X",
			input:   "X^0 = 1",
			wantLHS: []Term{NewTerm(1, 0)},
			wantRHS: []Term{NewTerm(1, 0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lhs, rhs, err := parseString(t, tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if !termsEqual(lhs, tt.wantLHS) {
				t.Errorf("lhs = %s, want %s", formatTerms(lhs), formatTerms(tt.wantLHS))
			}
			if !termsEqual(rhs, tt.wantRHS) {
				t.Errorf("rhs = %s, want %s", formatTerms(rhs), formatTerms(tt.wantRHS))
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantReason string
	}{
		{name: "no equals", input: "5 * X^0 + 4 * X^1 - 9.3 * X^2", wantReason: "missing '='"},
		{name: "two equals", input: "X = 1 = 2", wantReason: "multiple '=' signs"},
		{name: "caret without exponent", input: "X^ = 1", wantReason: "'^' must be followed by a non-negative integer"},
		{name: "negative exponent", input: "X^-1 = 1", wantReason: "'^' must be followed by a non-negative integer"},
		{name: "fractional exponent", input: "X^1.5 = 1", wantReason: "exponent 1.5 is not a non-negative integer"},
		{name: "consecutive operators", input: "X + - 1 = 0", wantReason: `consecutive operators "+" and "-"`},
		{name: "double leading sign", input: "--X = 0", wantReason: `consecutive operators "-" and "-"`},
		{name: "leading star", input: "* X = 0", wantReason: "'*' is only allowed between a coefficient and X"},
		{name: "star after variable", input: "X * 2 = 0", wantReason: "'*' is only allowed between a coefficient and X"},
		{name: "star between numbers", input: "2 * 3 = 0", wantReason: "'*' must be followed by X"},
		{name: "dangling star", input: "2 * = 0", wantReason: "'*' must be followed by X"},
		{name: "trailing operator", input: "X = 1 +", wantReason: `trailing operator "+"`},
		{name: "trailing operator before equals", input: "X - = 1", wantReason: `trailing operator "-"`},
		{name: "caret after number", input: "2^2 = 4", wantReason: "'^' must directly follow X"},
		{name: "leading caret", input: "^2 = 4", wantReason: "'^' must directly follow X"},
		{name: "chained exponent", input: "X^2^3 = 0", wantReason: "'^' must directly follow X"},
		{name: "juxtaposed coefficient", input: "5X = 0", wantReason: "missing '*' between coefficient 5 and X"},
		{name: "juxtaposed terms", input: "X 5 = 0", wantReason: "missing '+' or '-' between terms"},
		{name: "empty left side", input: "= 1", wantReason: "left side of '=' is empty"},
		{name: "empty right side", input: "X =", wantReason: "right side of '=' is empty"},
		{name: "sign only", input: "- = 1", wantReason: "expected a term"},
		{name: "empty input", input: "", wantReason: "missing '='"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseString(t, tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", tt.input)
			}
			if !errors.Is(err, cerrors.ErrParse) {
				t.Fatalf("expected ErrParse, got %v", err)
			}
			var parseErr *cerrors.ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if parseErr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", parseErr.Reason, tt.wantReason)
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, _, err := parseString(t, "X = 1 = 2")
	var parseErr *cerrors.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if parseErr.Pos.Column != 7 {
		t.Errorf("Column = %d, want 7", parseErr.Pos.Column)
	}

	_, _, err = parseString(t, "X^ = 1")
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if parseErr.Pos.Column != 4 {
		t.Errorf("Column = %d, want 4 (position of '=')", parseErr.Pos.Column)
	}
}

func TestParseDoesNotAliasTokenValues(t *testing.T) {
	tokens, err := lexer.Tokenize("-3 * X = 0")
	if err != nil {
		t.Fatalf("Tokenize error: %v", err)
	}
	lhs, _, err := Parse(tokens)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if lhs[0].Coefficient.Cmp(rat(-3, 1)) != 0 {
		t.Errorf("coefficient = %s, want -3", lhs[0].Coefficient.RatString())
	}
	if tokens[1].Value.Cmp(rat(3, 1)) != 0 {
		t.Errorf("token value mutated to %s", tokens[1].Value.RatString())
	}
}

func TestParseLargeExponent(t *testing.T) {
	lhs, _, err := parseString(t, "X^99999999999999999999 = 0")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := lhs[0].Exponent.String(); got != "99999999999999999999" {
		t.Errorf("exponent = %s, want 99999999999999999999", got)
	}
}
