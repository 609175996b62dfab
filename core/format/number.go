package format

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/computor/core/solver"
)

// ApproxMark prefixes values that are not exact.
const ApproxMark = "≈ "

// Rat renders r exactly: as a decimal when its expansion terminates,
// otherwise as a reduced fraction p/q.
func Rat(r *big.Rat) string {
	if digits, ok := decimalDigits(r.Denom()); ok {
		return r.FloatString(digits)
	}
	return r.RatString()
}

// decimalDigits reports how many fractional digits den needs, or false if
// 1/den does not terminate in base ten.
func decimalDigits(den *big.Int) (int, bool) {
	d := new(big.Int).Set(den)
	two, five := 0, 0
	rem := new(big.Int)
	for {
		q, r := new(big.Int).QuoRem(d, big.NewInt(2), rem)
		if r.Sign() != 0 {
			break
		}
		d, two = q, two+1
	}
	for {
		q, r := new(big.Int).QuoRem(d, big.NewInt(5), rem)
		if r.Sign() != 0 {
			break
		}
		d, five = q, five+1
	}
	if d.Cmp(big.NewInt(1)) != 0 {
		return 0, false
	}
	return max(two, five), true
}

// Float renders f with at most precision decimals, trailing zeros trimmed.
func Float(f float64, precision int) string {
	s := strconv.FormatFloat(f, 'f', precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// Value renders v without the approximation mark.
func Value(v solver.Value, precision int) string {
	if v.IsExact() {
		return Rat(v.Rat())
	}
	return Float(v.Float64(), precision)
}

// Solution renders a real or complex root. Approximate roots carry ApproxMark.
func Solution(s solver.Solution, precision int) string {
	approx := !s.Real.IsExact() || (s.IsComplex() && !s.Imag.IsExact())

	var out string
	if !s.IsComplex() {
		out = Value(s.Real, precision)
	} else {
		out = complexString(s, precision)
	}
	if approx {
		return ApproxMark + out
	}
	return out
}

func complexString(s solver.Solution, precision int) string {
	imag := imaginary(s.Imag.Abs(), precision)
	if s.Real.IsZero() {
		if s.Imag.Sign() < 0 {
			return "-" + imag
		}
		return imag
	}
	sign := " + "
	if s.Imag.Sign() < 0 {
		sign = " - "
	}
	return Value(s.Real, precision) + sign + imag
}

// imaginary renders a non-negative magnitude m as "i", "2i", "1.5i" or "(1/3)i".
func imaginary(m solver.Value, precision int) string {
	if m.IsExact() && m.Rat().Cmp(big.NewRat(1, 1)) == 0 {
		return "i"
	}
	v := Value(m, precision)
	if strings.Contains(v, "/") {
		return "(" + v + ")i"
	}
	return v + "i"
}
