// Package solver computes the solution set of a reduced polynomial of degree
// at most 2.
package solver

import (
	"fmt"
	"math/big"

	cerrors "github.com/FocuswithJustin/computor/core/errors"
	"github.com/FocuswithJustin/computor/core/poly"
)

// Kind classifies a reduced polynomial by degree.
type Kind int

const (
	Identity      Kind = iota // 0 = 0
	Contradiction             // c = 0, c != 0
	Linear                    // aX + b = 0
	Quadratic                 // aX² + bX + c = 0
	Unsupported               // degree 3 or more
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case Contradiction:
		return "contradiction"
	case Linear:
		return "linear"
	case Quadratic:
		return "quadratic"
	case Unsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Classify determines the kind of p from its degree.
func Classify(p *poly.Polynomial) Kind {
	switch d := p.Degree(); {
	case d < 0:
		return Identity
	case d == 0:
		return Contradiction
	case d == 1:
		return Linear
	case d == 2:
		return Quadratic
	default:
		return Unsupported
	}
}

// SetKind tags a SolutionSet.
type SetKind int

const (
	Empty SetKind = iota
	AllReals
	Discrete
)

func (k SetKind) String() string {
	switch k {
	case Empty:
		return "empty"
	case AllReals:
		return "all_reals"
	case Discrete:
		return "discrete"
	default:
		return fmt.Sprintf("SetKind(%d)", int(k))
	}
}

// SolutionSet is the result of solving. Solutions is set only for Discrete.
type SolutionSet struct {
	Kind      SetKind
	Solutions []Solution
}

// Solution is a real or complex root.
type Solution struct {
	Real Value
	Imag Value // zero for real roots
}

// IsComplex reports whether the solution has a nonzero imaginary part.
func (s Solution) IsComplex() bool {
	return !s.Imag.IsZero()
}

// Solve dispatches on the polynomial's kind. Degree 3 and above fail with
// *errors.UnsupportedDegreeError.
func Solve(p *poly.Polynomial) (SolutionSet, error) {
	kind := Classify(p)
	switch kind {
	case Identity:
		return SolutionSet{Kind: AllReals}, nil
	case Contradiction:
		return SolutionSet{Kind: Empty}, nil
	case Linear:
		return solveLinear(p), nil
	case Quadratic:
		return solveQuadratic(p), nil
	case Unsupported:
		return SolutionSet{}, cerrors.NewUnsupportedDegree(p.DegreeBig())
	}
	return SolutionSet{}, fmt.Errorf("unknown polynomial kind %s", kind)
}

// Discriminant returns b² - 4ac using the X², X and constant coefficients.
func Discriminant(p *poly.Polynomial) *big.Rat {
	a, b, c := p.Coefficient(2), p.Coefficient(1), p.Coefficient(0)
	bb := new(big.Rat).Mul(b, b)
	ac4 := new(big.Rat).Mul(a, c)
	ac4.Mul(ac4, big.NewRat(4, 1))
	return bb.Sub(bb, ac4)
}

func solveLinear(p *poly.Polynomial) SolutionSet {
	a, b := p.Coefficient(1), p.Coefficient(0)
	x := new(big.Rat).Quo(b.Neg(b), a)
	return SolutionSet{Kind: Discrete, Solutions: []Solution{{Real: Exact(x)}}}
}

// solveQuadratic orders real roots as (-b - √Δ)/2a then (-b + √Δ)/2a, and
// complex roots with the negative imaginary part first.
func solveQuadratic(p *poly.Polynomial) SolutionSet {
	a, b := p.Coefficient(2), p.Coefficient(1)
	delta := Discriminant(p)

	negB := new(big.Rat).Neg(b)
	twoA := new(big.Rat).Mul(a, big.NewRat(2, 1))

	switch delta.Sign() {
	case 0:
		x := new(big.Rat).Quo(negB, twoA)
		return SolutionSet{Kind: Discrete, Solutions: []Solution{{Real: Exact(x)}}}

	case 1:
		if root, ok := SqrtRat(delta); ok {
			lo := new(big.Rat).Sub(negB, root)
			hi := new(big.Rat).Add(negB, root)
			return SolutionSet{Kind: Discrete, Solutions: []Solution{
				{Real: Exact(lo.Quo(lo, twoA))},
				{Real: Exact(hi.Quo(hi, twoA))},
			}}
		}
		root := sqrtFloat(delta)
		nb := ratFloat(negB)
		den := ratFloat(twoA)
		lo := new(big.Float).SetPrec(floatPrec).Sub(nb, root)
		hi := new(big.Float).SetPrec(floatPrec).Add(nb, root)
		return SolutionSet{Kind: Discrete, Solutions: []Solution{
			{Real: approxQuo(lo, den)},
			{Real: approxQuo(hi, den)},
		}}

	default:
		re := Exact(new(big.Rat).Quo(negB, twoA))
		absTwoA := new(big.Rat).Abs(twoA)
		negDelta := new(big.Rat).Neg(delta)

		var im Value
		if root, ok := SqrtRat(negDelta); ok {
			im = Exact(root.Quo(root, absTwoA))
		} else {
			im = approxQuo(sqrtFloat(negDelta), ratFloat(absTwoA))
		}
		return SolutionSet{Kind: Discrete, Solutions: []Solution{
			{Real: re, Imag: im.Neg()},
			{Real: re, Imag: im},
		}}
	}
}
