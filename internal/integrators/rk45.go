package integrators

import (
	"errors"
	"math"

	"github.com/san-kum/pidlab/internal/dynamo"
)

// dopri is the Dormand-Prince 5(4) tableau. The seventh stage is evaluated
// at the fifth-order solution, so its row equals the fifth-order weights.
var dopri = struct {
	nodes [7]float64
	rows  [7][]float64
	high  [7]float64
	low   [7]float64
}{
	nodes: [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
	rows: [7][]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	},
	high: [7]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0},
	low:  [7]float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40},
}

// RK45 is the Dormand-Prince embedded pair with step-size control.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
	minDt    float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		minDt:    1e-12,
	}
}

// Step advances by exactly dt, splitting it into accepted adaptive substeps.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	newX, err := r.Advance(dyn, x, u, t, dt, dt, 1e-6)
	if err != nil {
		return r.fixed(dyn, x, u, t, dt)
	}
	return newX
}

// Advance integrates from t to t+span with error control, starting from the
// trial step h. Rejected steps are retried with the reduced step size.
func (r *RK45) Advance(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, span, h, tol float64) (dynamo.State, error) {
	end := t + span
	cur := x.Clone()
	if h <= 0 || h > span {
		h = span
	}
	for t < end {
		if t+h > end {
			h = end - t
		}
		next, hNew, err := r.StepAdaptive(dyn, cur, u, t, h, tol)
		switch {
		case err == nil:
			cur = next
			t += h
		case errors.Is(err, dynamo.ErrStepRejected):
		default:
			return cur, err
		}
		h = hNew
		if end-t < r.minDt {
			break
		}
	}
	return cur, nil
}

// fixed is the plain fifth-order update with no error control.
func (r *RK45) fixed(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	newX, _, err := r.StepAdaptive(dyn, x, u, t, dt, math.Inf(1))
	if err != nil {
		return x
	}
	return newX
}

// StepAdaptive takes one embedded step of size dt. On rejection it returns
// x unchanged together with the reduced step to retry with.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error) {
	n := len(x)
	var k [7]dynamo.State
	for s, row := range dopri.rows {
		arg := make(dynamo.State, n)
		for j := range x {
			acc := 0.0
			for i, a := range row {
				acc += a * k[i][j]
			}
			arg[j] = x[j] + dt*acc
		}
		k[s] = dyn.Derive(arg, u, t+dopri.nodes[s]*dt)
	}

	xNew := make(dynamo.State, n)
	errMax := 0.0
	for j := range x {
		var hi, diff float64
		for s := range k {
			hi += dopri.high[s] * k[s][j]
			diff += (dopri.high[s] - dopri.low[s]) * k[s][j]
		}
		xNew[j] = x[j] + dt*hi
		scale := math.Abs(x[j]) + math.Abs(dt*k[0][j]) + 1e-10
		errMax = math.Max(errMax, math.Abs(dt*diff)/scale)
	}

	ratio := errMax / tol
	if ratio > 1 {
		dtNew := dt * math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25))
		if dtNew < r.minDt {
			return x, dtNew, dynamo.ErrStepTooSmall
		}
		return x, dtNew, dynamo.ErrStepRejected
	}
	if ratio == 0 {
		return xNew, dt * r.maxScale, nil
	}
	return xNew, dt * math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2)), nil
}
