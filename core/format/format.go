// Package format renders a reduced polynomial and its solution set as text.
package format

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/computor/core/poly"
	"github.com/FocuswithJustin/computor/core/solver"
)

// Options controls rendering.
type Options struct {
	// Verbose adds the coefficients used and, for quadratics, the discriminant.
	Verbose bool
	// Precision is the number of decimals for approximations (default 6).
	Precision int
}

const defaultPrecision = 6

// Messages introducing each kind of solution set.
const (
	MsgAllReals = "Each real number is a solution."
	MsgNone     = "There is no solution."
	MsgLinear   = "The solution is:"
	MsgPositive = "Discriminant is strictly positive, the two solutions are:"
	MsgZero     = "Discriminant is strictly zero, the only solution is:"
	MsgNegative = "Discriminant is strictly negative, the two complex solutions are:"
)

// Format renders the reduced form, the degree and the solution set.
func Format(p *poly.Polynomial, set solver.SolutionSet, opts Options) string {
	if opts.Precision <= 0 {
		opts.Precision = defaultPrecision
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Reduced form: %s\n", Reduced(p))
	fmt.Fprintf(&sb, "Polynomial degree: %d\n", DisplayDegree(p))

	kind := solver.Classify(p)
	if opts.Verbose {
		writeCoefficients(&sb, p, kind)
	}

	switch set.Kind {
	case solver.AllReals:
		sb.WriteString(MsgAllReals + "\n")
	case solver.Empty:
		sb.WriteString(MsgNone + "\n")
	case solver.Discrete:
		sb.WriteString(discreteHeader(p, kind) + "\n")
		for _, s := range set.Solutions {
			sb.WriteString(Solution(s, opts.Precision) + "\n")
		}
	}
	return sb.String()
}

// DisplayDegree is the degree shown to users; the identity 0 = 0 shows as 0.
func DisplayDegree(p *poly.Polynomial) int {
	if d := p.Degree(); d > 0 {
		return d
	}
	return 0
}

func discreteHeader(p *poly.Polynomial, kind solver.Kind) string {
	if kind != solver.Quadratic {
		return MsgLinear
	}
	switch solver.Discriminant(p).Sign() {
	case 1:
		return MsgPositive
	case 0:
		return MsgZero
	default:
		return MsgNegative
	}
}

func writeCoefficients(sb *strings.Builder, p *poly.Polynomial, kind solver.Kind) {
	switch kind {
	case solver.Linear:
		fmt.Fprintf(sb, "Coefficients: a = %s, b = %s\n",
			Rat(p.Coefficient(1)), Rat(p.Coefficient(0)))
	case solver.Quadratic:
		fmt.Fprintf(sb, "Coefficients: a = %s, b = %s, c = %s\n",
			Rat(p.Coefficient(2)), Rat(p.Coefficient(1)), Rat(p.Coefficient(0)))
		fmt.Fprintf(sb, "Discriminant: %s\n", Rat(solver.Discriminant(p)))
	}
}

// Reduced renders p as "<terms> = 0", highest exponent first, each term as
// "c * X^n". The output is itself a valid equation.
func Reduced(p *poly.Polynomial) string {
	terms := p.Terms()
	if len(terms) == 0 {
		return "0 = 0"
	}

	var sb strings.Builder
	for i, term := range terms {
		c := term.Coefficient
		switch {
		case i == 0 && c.Sign() < 0:
			sb.WriteString("-")
		case i > 0 && c.Sign() < 0:
			sb.WriteString(" - ")
		case i > 0:
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%s * X^%d", Rat(c.Abs(c)), term.Exponent)
	}
	sb.WriteString(" = 0")
	return sb.String()
}
