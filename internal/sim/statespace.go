package sim

import (
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/tf"
	"gonum.org/v1/gonum/mat"
)

// StateSpace is the controllable canonical realization
//
//	x'(t) = A x(t) + B u(t)
//	y(t)  = C x(t) + D u(t)
//
// of a proper single-input single-output transfer function.
type StateSpace struct {
	A *mat.Dense
	B *mat.VecDense
	C *mat.VecDense
	D float64
	n int
}

// Realize converts g into state-space form. Improper models have no
// realization and are rejected.
func Realize(g tf.TF) (*StateSpace, error) {
	den := g.Den.Trim()
	num := g.Num.Trim()
	if len(den) == 0 {
		return nil, dynamo.ErrSingularSystem
	}
	n := len(den) - 1
	if len(num)-1 > n {
		return nil, dynamo.InvalidParam("realize", "num degree", float64(len(num)-1), "transfer function is improper")
	}

	lead := den[0]
	a := make([]float64, n+1)
	for i := range den {
		a[i] = den[i] / lead
	}
	b := make([]float64, n+1)
	off := n + 1 - len(num)
	for i := range num {
		b[off+i] = num[i] / lead
	}

	ss := &StateSpace{D: b[0], n: n}
	if n == 0 {
		return ss, nil
	}

	ss.A = mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		ss.A.Set(0, j, -a[j+1])
	}
	for i := 1; i < n; i++ {
		ss.A.Set(i, i-1, 1)
	}
	ss.B = mat.NewVecDense(n, nil)
	ss.B.SetVec(0, 1)
	ss.C = mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		ss.C.SetVec(j, b[j+1]-b[0]*a[j+1])
	}
	return ss, nil
}

func (s *StateSpace) StateDim() int   { return s.n }
func (s *StateSpace) ControlDim() int { return 1 }

// Derive returns A x + B u.
func (s *StateSpace) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	dx := make(dynamo.State, s.n)
	if s.n == 0 {
		return dx
	}
	xv := mat.NewVecDense(s.n, x.Clone())
	out := mat.NewVecDense(s.n, dx)
	out.MulVec(s.A, xv)
	if len(u) > 0 {
		out.AddScaledVec(out, u[0], s.B)
	}
	return dx
}

// Output returns C x + D u.
func (s *StateSpace) Output(x dynamo.State, u float64) float64 {
	y := s.D * u
	for i := 0; i < s.n; i++ {
		y += s.C.AtVec(i) * x[i]
	}
	return y
}

// Discretize returns the zero-order-hold pair (Φ, Γ) for a step of length h:
// Φ = e^(Ah), Γ = ∫₀ʰ e^(Aσ) dσ B, read off exp([[A B]; [0 0]]·h).
func (s *StateSpace) Discretize(h float64) (*mat.Dense, *mat.VecDense) {
	n := s.n
	aug := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug.Set(i, j, s.A.At(i, j)*h)
		}
		aug.Set(i, n, s.B.AtVec(i)*h)
	}

	var e mat.Dense
	e.Exp(aug)

	phi := mat.NewDense(n, n, nil)
	gamma := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			phi.Set(i, j, e.At(i, j))
		}
		gamma.SetVec(i, e.At(i, n))
	}
	return phi, gamma
}
