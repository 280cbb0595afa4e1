package integrators

import "github.com/san-kum/pidlab/internal/dynamo"

// Euler is the explicit first-order method. It is only accurate for steps
// well below the fastest time constant and exists mostly as a baseline.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return e.StepInto(make(dynamo.State, len(x)), dyn, x, u, t, dt)
}

// StepInto writes x + dt·f(x, u, t) to dst, which may alias x.
func (e *Euler) StepInto(dst dynamo.State, dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	axpy(dst, x, dt, dyn.Derive(x, u, t))
	return dst
}
