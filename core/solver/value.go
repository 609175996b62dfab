package solver

import (
	"math/big"
)

// floatPrec is the mantissa precision used for irrational roots.
const floatPrec = 128

// Value is one real number of a solution: exact when it is rational,
// otherwise a float64 approximation.
type Value struct {
	rat    *big.Rat
	approx float64
}

// Exact wraps a rational value.
func Exact(r *big.Rat) Value {
	return Value{rat: new(big.Rat).Set(r)}
}

// Approx wraps an approximate value.
func Approx(f float64) Value {
	return Value{approx: f}
}

// IsExact reports whether the value is held as a rational.
func (v Value) IsExact() bool {
	return v.rat != nil
}

// Rat returns a copy of the exact value, or nil for approximations.
func (v Value) Rat() *big.Rat {
	if v.rat == nil {
		return nil
	}
	return new(big.Rat).Set(v.rat)
}

// Float64 returns the nearest float64.
func (v Value) Float64() float64 {
	if v.rat != nil {
		f, _ := v.rat.Float64()
		return f
	}
	return v.approx
}

// Sign returns -1, 0 or +1.
func (v Value) Sign() int {
	if v.rat != nil {
		return v.rat.Sign()
	}
	switch {
	case v.approx < 0:
		return -1
	case v.approx > 0:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether the value is exactly zero. The zero Value is zero.
func (v Value) IsZero() bool {
	return v.Sign() == 0
}

// Neg returns -v.
func (v Value) Neg() Value {
	if v.rat != nil {
		return Value{rat: new(big.Rat).Neg(v.rat)}
	}
	return Value{approx: -v.approx}
}

// Abs returns |v|.
func (v Value) Abs() Value {
	if v.Sign() < 0 {
		return v.Neg()
	}
	return v
}

// SqrtRat returns the exact square root of a non-negative r when both its
// reduced numerator and denominator are perfect squares.
func SqrtRat(r *big.Rat) (*big.Rat, bool) {
	if r.Sign() < 0 {
		return nil, false
	}
	num, ok := sqrtInt(r.Num())
	if !ok {
		return nil, false
	}
	den, ok := sqrtInt(r.Denom())
	if !ok {
		return nil, false
	}
	return new(big.Rat).SetFrac(num, den), true
}

func sqrtInt(n *big.Int) (*big.Int, bool) {
	root := new(big.Int).Sqrt(n)
	if new(big.Int).Mul(root, root).Cmp(n) != 0 {
		return nil, false
	}
	return root, true
}

func ratFloat(r *big.Rat) *big.Float {
	return new(big.Float).SetPrec(floatPrec).SetRat(r)
}

func sqrtFloat(r *big.Rat) *big.Float {
	return new(big.Float).SetPrec(floatPrec).Sqrt(ratFloat(r))
}

func approxQuo(x, y *big.Float) Value {
	f, _ := new(big.Float).SetPrec(floatPrec).Quo(x, y).Float64()
	return Approx(f)
}
