// Package poly holds the canonical polynomial produced by reducing both sides
// of an equation.
package poly

import (
	"math"
	"math/big"
	"sort"

	"github.com/FocuswithJustin/computor/core/parser"
)

// Polynomial maps exponent to a nonzero exact coefficient and stands for
// sum(c * X^e) = 0. The zero value is the empty polynomial (0 = 0).
//
// Exponents are arbitrary precision, so X^N - X^N cancels for any N the
// parser accepts.
type Polynomial struct {
	terms map[string]monomial // keyed by the exponent's decimal form
}

type monomial struct {
	exponent    *big.Int
	coefficient *big.Rat
}

// New returns an empty polynomial.
func New() *Polynomial {
	return &Polynomial{terms: make(map[string]monomial)}
}

// Reduce moves every right-hand term to the left, merges like exponents and
// drops terms whose coefficients cancel exactly.
func Reduce(lhs, rhs []parser.Term) *Polynomial {
	p := New()
	for _, term := range lhs {
		p.AddTerm(term.Exponent, term.Coefficient)
	}
	for _, term := range rhs {
		p.AddTerm(term.Exponent, new(big.Rat).Neg(term.Coefficient))
	}
	return p
}

// Add accumulates c into the coefficient of X^exponent.
func (p *Polynomial) Add(exponent int, c *big.Rat) {
	p.AddTerm(big.NewInt(int64(exponent)), c)
}

// AddTerm is Add for an arbitrary precision exponent.
func (p *Polynomial) AddTerm(exponent *big.Int, c *big.Rat) {
	if p.terms == nil {
		p.terms = make(map[string]monomial)
	}
	key := exponent.String()
	sum := new(big.Rat).Set(c)
	if m, ok := p.terms[key]; ok {
		sum.Add(sum, m.coefficient)
	}
	if sum.Sign() == 0 {
		delete(p.terms, key)
		return
	}
	p.terms[key] = monomial{exponent: new(big.Int).Set(exponent), coefficient: sum}
}

// DegreeBig returns the largest exponent, or -1 for the empty polynomial.
func (p *Polynomial) DegreeBig() *big.Int {
	degree := big.NewInt(-1)
	for _, m := range p.terms {
		if m.exponent.Cmp(degree) > 0 {
			degree = m.exponent
		}
	}
	return new(big.Int).Set(degree)
}

// Degree returns the largest exponent, or -1 for the empty polynomial.
// Degrees beyond the int range are reported as math.MaxInt; use DegreeBig
// for the exact value.
func (p *Polynomial) Degree() int {
	d := p.DegreeBig()
	if !d.IsInt64() || d.Int64() > math.MaxInt {
		return math.MaxInt
	}
	return int(d.Int64())
}

// Coefficient returns a copy of the coefficient of X^exponent (zero if absent).
func (p *Polynomial) Coefficient(exponent int) *big.Rat {
	if m, ok := p.terms[big.NewInt(int64(exponent)).String()]; ok {
		return new(big.Rat).Set(m.coefficient)
	}
	return new(big.Rat)
}

// Exponents returns the present exponents in descending order.
func (p *Polynomial) Exponents() []*big.Int {
	exps := make([]*big.Int, 0, len(p.terms))
	for _, m := range p.terms {
		exps = append(exps, new(big.Int).Set(m.exponent))
	}
	sort.Slice(exps, func(i, j int) bool { return exps[i].Cmp(exps[j]) > 0 })
	return exps
}

// Terms returns one term per exponent, highest exponent first.
func (p *Polynomial) Terms() []parser.Term {
	exps := p.Exponents()
	terms := make([]parser.Term, len(exps))
	for i, e := range exps {
		m := p.terms[e.String()]
		terms[i] = parser.Term{Coefficient: new(big.Rat).Set(m.coefficient), Exponent: e}
	}
	return terms
}

// Len returns the number of nonzero terms.
func (p *Polynomial) Len() int {
	return len(p.terms)
}

// IsZero reports whether p is the identity 0 = 0.
func (p *Polynomial) IsZero() bool {
	return len(p.terms) == 0
}

// Equal reports whether p and q have the same terms.
func (p *Polynomial) Equal(q *Polynomial) bool {
	if p.Len() != q.Len() {
		return false
	}
	for key, m := range p.terms {
		other, ok := q.terms[key]
		if !ok || m.coefficient.Cmp(other.coefficient) != 0 {
			return false
		}
	}
	return true
}
