// Package computor runs the equation pipeline: lex, parse, reduce, solve.
//
// Every call is independent and holds no shared state, so Solve is safe to
// call from any number of goroutines.
package computor

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"github.com/zeebo/blake3"

	cerrors "github.com/FocuswithJustin/computor/core/errors"
	"github.com/FocuswithJustin/computor/core/format"
	"github.com/FocuswithJustin/computor/core/lexer"
	"github.com/FocuswithJustin/computor/core/parser"
	"github.com/FocuswithJustin/computor/core/poly"
	"github.com/FocuswithJustin/computor/core/solver"
)

// Result is a solved equation.
type Result struct {
	Input      string
	Polynomial *poly.Polynomial
	Kind       solver.Kind
	Solutions  solver.SolutionSet
}

// Solve runs the full pipeline on one equation. The returned error is one
// of *errors.LexError, *errors.ParseError or *errors.UnsupportedDegreeError;
// the last carries the rendered reduced form.
func Solve(input string) (*Result, error) {
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		return nil, err
	}
	lhs, rhs, err := parser.Parse(tokens)
	if err != nil {
		return nil, err
	}
	p := poly.Reduce(lhs, rhs)

	set, err := solver.Solve(p)
	if err != nil {
		var degErr *cerrors.UnsupportedDegreeError
		if errors.As(err, &degErr) {
			degErr.Reduced = format.Reduced(p)
		}
		return nil, err
	}

	return &Result{
		Input:      input,
		Polynomial: p,
		Kind:       solver.Classify(p),
		Solutions:  set,
	}, nil
}

// Text renders the result the way the command line prints it.
func (r *Result) Text(opts format.Options) string {
	return format.Format(r.Polynomial, r.Solutions, opts)
}

// Reduced returns the canonical reduced form.
func (r *Result) Reduced() string {
	return format.Reduced(r.Polynomial)
}

// Degree returns the polynomial degree, -1 for the identity 0 = 0.
func (r *Result) Degree() int {
	return r.Polynomial.Degree()
}

// Discriminant returns b² - 4ac for quadratics and nil otherwise.
func (r *Result) Discriminant() *big.Rat {
	if r.Kind != solver.Quadratic {
		return nil
	}
	return solver.Discriminant(r.Polynomial)
}

// Fingerprint identifies the reduced polynomial, so equivalent equations
// share a fingerprint.
func (r *Result) Fingerprint() string {
	return Fingerprint(r.Polynomial)
}

// Fingerprint returns the BLAKE3 hash of p's canonical reduced form.
func Fingerprint(p *poly.Polynomial) string {
	return hashString(format.Reduced(p))
}

// InputKey returns the BLAKE3 hash of the normalized input. Inputs with
// equal keys produce equal results.
func InputKey(input string) string {
	return hashString(Normalize(input))
}

// Normalize rewrites input as its tokens separated by single spaces, with
// the variable upper-cased. Input that does not lex is only trimmed.
func Normalize(input string) string {
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		return strings.TrimSpace(input)
	}
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		if tok.Kind == lexer.Variable {
			parts[i] = "X"
			continue
		}
		parts[i] = tok.Text
	}
	return strings.Join(parts, " ")
}

func hashString(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
