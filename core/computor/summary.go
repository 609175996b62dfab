package computor

import (
	"github.com/FocuswithJustin/computor/core/format"
	"github.com/FocuswithJustin/computor/core/solver"
)

// Summary is the serializable form of a Result.
type Summary struct {
	Input        string            `json:"input"`
	Reduced      string            `json:"reduced"`
	Degree       int               `json:"degree"`
	Kind         string            `json:"kind"`
	SolutionSet  string            `json:"solution_set"`
	Discriminant string            `json:"discriminant,omitempty"`
	Solutions    []SolutionSummary `json:"solutions,omitempty"`
	Text         string            `json:"text"`
	Fingerprint  string            `json:"fingerprint"`
}

// SolutionSummary is one root. Real and Imag are exact renderings when
// Exact is true and rounded decimals otherwise.
type SolutionSummary struct {
	Real    string `json:"real"`
	Imag    string `json:"imag,omitempty"`
	Exact   bool   `json:"exact"`
	Display string `json:"display"`
}

// Summarize converts r for JSON output and storage.
func (r *Result) Summarize(opts format.Options) Summary {
	precision := opts.Precision
	if precision <= 0 {
		precision = 6
	}

	s := Summary{
		Input:       r.Input,
		Reduced:     r.Reduced(),
		Degree:      r.Degree(),
		Kind:        r.Kind.String(),
		SolutionSet: r.Solutions.Kind.String(),
		Text:        r.Text(opts),
		Fingerprint: r.Fingerprint(),
	}
	if d := r.Discriminant(); d != nil {
		s.Discriminant = format.Rat(d)
	}
	for _, sol := range r.Solutions.Solutions {
		s.Solutions = append(s.Solutions, summarizeSolution(sol, precision))
	}
	return s
}

func summarizeSolution(sol solver.Solution, precision int) SolutionSummary {
	out := SolutionSummary{
		Real:    format.Value(sol.Real, precision),
		Exact:   sol.Real.IsExact(),
		Display: format.Solution(sol, precision),
	}
	if sol.IsComplex() {
		out.Imag = format.Value(sol.Imag, precision)
		out.Exact = out.Exact && sol.Imag.IsExact()
	}
	return out
}
