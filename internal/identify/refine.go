package identify

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/optim"
)

// Refinement is the result of a least-squares fit.
type Refinement struct {
	Initial     dynamo.FOPDT `json:"initial"`
	Model       dynamo.FOPDT `json:"model"`
	InitialFit  optim.Fit    `json:"initial_fit"`
	Fit         optim.Fit    `json:"fit"`
	Evaluations int          `json:"evaluations"`
}

// Curve returns the exact FOPDT response to the input step applied at t=0,
// offset by the initial output y0.
func Curve(p dynamo.FOPDT, times []float64, step Step, y0 float64) []float64 {
	out := make([]float64, len(times))
	amp := p.Gain * step.Size()
	for i, t := range times {
		out[i] = y0
		if t > p.DeadTime {
			out[i] += amp * (1 - math.Exp(-(t-p.DeadTime)/p.TimeConstant))
		}
	}
	return out
}

// Evaluate reports how closely p reproduces the measured response.
func Evaluate(sig dynamo.Signal, p dynamo.FOPDT, step Step) optim.Fit {
	return optim.Quality(sig.Values, Curve(p, sig.Times, step, sig.First()))
}

var seedScales = []float64{0.5, 0.75, 1, 1.25, 1.5, 2}

// Refine adjusts (k, τ, θ) to minimize the squared error between the
// measured response and the FOPDT curve, starting from initial. A coarse
// grid over τ and θ seeds a Nelder-Mead search; τ and θ are kept positive
// and non-negative by searching over ln τ and √θ.
func Refine(ctx context.Context, sig dynamo.Signal, initial dynamo.FOPDT, step Step) (*Refinement, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("refine: initial estimate: %w", err)
	}
	if err := step.validate("refine"); err != nil {
		return nil, err
	}

	y0 := sig.First()
	sse := func(p dynamo.FOPDT) float64 {
		return optim.SSE(sig.Values, Curve(p, sig.Times, step, y0))
	}

	grid := optim.NewGridSearch(
		[]string{"tau", "theta"},
		[][]float64{seedScales, seedScales},
	)
	seed, _, err := grid.Search(ctx, func(s map[string]float64) (float64, error) {
		return sse(dynamo.FOPDT{
			Gain:         initial.Gain,
			TimeConstant: initial.TimeConstant * s["tau"],
			DeadTime:     initial.DeadTime * s["theta"],
		}), nil
	})
	if err != nil {
		return nil, fmt.Errorf("refine: seed: %w", err)
	}

	x0 := []float64{
		initial.Gain,
		math.Log(initial.TimeConstant * seed["tau"]),
		math.Sqrt(initial.DeadTime * seed["theta"]),
	}
	res, err := optim.Minimize(ctx, func(x []float64) float64 {
		return sse(fromVector(x))
	}, x0, optim.DefaultSettings())
	if err != nil {
		return nil, fmt.Errorf("refine: %w", err)
	}

	best := fromVector(res.X)
	if err := best.Validate(); err != nil {
		return nil, fmt.Errorf("refine: %w", err)
	}
	return &Refinement{
		Initial:     initial,
		Model:       best,
		InitialFit:  Evaluate(sig, initial, step),
		Fit:         Evaluate(sig, best, step),
		Evaluations: res.Evaluations,
	}, nil
}

func fromVector(x []float64) dynamo.FOPDT {
	return dynamo.FOPDT{
		Gain:         x[0],
		TimeConstant: math.Exp(x[1]),
		DeadTime:     x[2] * x[2],
	}
}
