package integrators

import "github.com/san-kum/pidlab/internal/dynamo"

// rk4Nodes and rk4Weights are the classical fourth-order tableau. Stage i
// is evaluated at x + dt·nodes[i]·k[i-1].
var (
	rk4Nodes   = [4]float64{0, 0.5, 0.5, 1}
	rk4Weights = [4]float64{1.0 / 6, 2.0 / 6, 2.0 / 6, 1.0 / 6}
)

// RK4 is the fixed-step classical Runge-Kutta method. Stage buffers are
// reused across steps, so an RK4 must not be shared between goroutines.
type RK4 struct {
	stages [4]dynamo.State
	probe  dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) grow(n int) {
	if len(r.probe) == n {
		return
	}
	for i := range r.stages {
		r.stages[i] = make(dynamo.State, n)
	}
	r.probe = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return r.StepInto(make(dynamo.State, len(x)), dyn, x, u, t, dt)
}

// StepInto advances x by dt and writes the result to dst, which may alias x.
func (r *RK4) StepInto(dst dynamo.State, dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.grow(len(x))
	for i, c := range rk4Nodes {
		arg := x
		if i > 0 {
			axpy(r.probe, x, c*dt, r.stages[i-1])
			arg = r.probe
		}
		copy(r.stages[i], dyn.Derive(arg, u, t+c*dt))
	}
	for j := range x {
		var incr float64
		for i, w := range rk4Weights {
			incr += w * r.stages[i][j]
		}
		dst[j] = x[j] + dt*incr
	}
	return dst
}

// axpy sets dst = x + a·k.
func axpy(dst, x dynamo.State, a float64, k dynamo.State) {
	for i := range x {
		dst[i] = x[i] + a*k[i]
	}
}
