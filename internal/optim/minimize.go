package optim

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

type Settings struct {
	MaxEvaluations int
	// Absolute stops the search once the best value improves by less than
	// this over Stall consecutive iterations.
	Absolute float64
	Stall    int
}

func DefaultSettings() Settings {
	return Settings{
		MaxEvaluations: 4000,
		Absolute:       1e-12,
		Stall:          100,
	}
}

type Result struct {
	X           []float64
	F           float64
	Evaluations int
	Status      string
}

// Minimize runs a Nelder-Mead simplex search on f from x0. Cancelling ctx
// makes every further evaluation return +Inf, which stalls the simplex.
func Minimize(ctx context.Context, f func(x []float64) float64, x0 []float64, s Settings) (*Result, error) {
	if len(x0) == 0 {
		return nil, fmt.Errorf("optim: empty starting point")
	}
	if s.MaxEvaluations <= 0 {
		s = DefaultSettings()
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if ctx.Err() != nil {
				return math.Inf(1)
			}
			v := f(x)
			if math.IsNaN(v) {
				return math.Inf(1)
			}
			return v
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: s.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   s.Absolute,
			Iterations: s.Stall,
		},
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	if res == nil {
		return nil, fmt.Errorf("optim: nelder-mead: %w", err)
	}
	// Hitting the evaluation budget still leaves a usable best point.
	if err != nil && math.IsInf(res.F, 0) {
		return nil, fmt.Errorf("optim: nelder-mead: %w", err)
	}
	return &Result{
		X:           append([]float64(nil), res.X...),
		F:           res.F,
		Evaluations: res.Stats.FuncEvaluations,
		Status:      res.Status.String(),
	}, nil
}
