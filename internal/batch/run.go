package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FocuswithJustin/computor/core/computor"
	cerrors "github.com/FocuswithJustin/computor/core/errors"
	"github.com/FocuswithJustin/computor/core/format"
)

// Outcome is the result of one equation. Exactly one of Result and Err is
// set.
type Outcome struct {
	Equation Equation
	Result   *computor.Result
	Err      error
	Duration time.Duration
}

// OK reports whether the equation was solved.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report is the JSON form of an Outcome.
type Report struct {
	Line      int               `json:"line,omitempty"`
	Input     string            `json:"input"`
	Result    *computor.Summary `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorCode string            `json:"error_code,omitempty"`
	Reduced   string            `json:"reduced,omitempty"`
}

// Report converts o for JSON output.
func (o Outcome) Report(opts format.Options) Report {
	rep := Report{Line: o.Equation.Line, Input: o.Equation.Text}
	if o.Err != nil {
		rep.Error = o.Err.Error()
		rep.ErrorCode = cerrors.Kind(o.Err)
		var degErr *cerrors.UnsupportedDegreeError
		if cerrors.As(o.Err, &degErr) {
			rep.Reduced = degErr.Reduced
		}
		return rep
	}
	s := o.Result.Summarize(opts)
	rep.Result = &s
	return rep
}

// ProgressFunc is called after each equation with the number finished so
// far. It may be called from several goroutines at once.
type ProgressFunc func(done, total int)

// Run solves equations on at most workers goroutines. Outcomes keep the
// input order. If ctx is cancelled, unstarted equations get ctx.Err() and
// Run returns it.
func Run(ctx context.Context, equations []Equation, workers int) ([]Outcome, error) {
	return RunWithProgress(ctx, equations, workers, nil)
}

// RunWithProgress is Run with a progress callback.
func RunWithProgress(ctx context.Context, equations []Equation, workers int, progress ProgressFunc) ([]Outcome, error) {
	outcomes := make([]Outcome, len(equations))
	if len(equations) == 0 {
		return outcomes, ctx.Err()
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(equations) {
		workers = len(equations)
	}

	jobs := make(chan int)
	done := make([]bool, len(equations))
	var finished atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = solveOne(equations[i])
				done[i] = true
				n := int(finished.Add(1))
				if progress != nil {
					progress(n, len(equations))
				}
			}
		}()
	}

feed:
	for i := range equations {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i := range outcomes {
			if !done[i] {
				outcomes[i] = Outcome{Equation: equations[i], Err: err}
			}
		}
		return outcomes, err
	}
	return outcomes, nil
}

func solveOne(eq Equation) Outcome {
	start := time.Now()
	r, err := computor.Solve(eq.Text)
	return Outcome{
		Equation: eq,
		Result:   r,
		Err:      err,
		Duration: time.Since(start),
	}
}

// Failed counts outcomes with an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}
