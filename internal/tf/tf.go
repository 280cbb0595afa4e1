package tf

import (
	"fmt"
	"math"

	"github.com/san-kum/pidlab/internal/dynamo"
)

// TF is a rational transfer function Num(s)/Den(s).
type TF struct {
	Num Poly
	Den Poly
}

// New builds a transfer function, trimming leading zeros. The denominator
// must not be the zero polynomial.
func New(num, den []float64) (TF, error) {
	d := Poly(den).Trim()
	if len(d) == 0 {
		return TF{}, dynamo.InvalidParam("tf", "den", 0, "denominator is the zero polynomial")
	}
	for _, c := range num {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return TF{}, dynamo.InvalidParam("tf", "num", c, "coefficient must be finite")
		}
	}
	for _, c := range d {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return TF{}, dynamo.InvalidParam("tf", "den", c, "coefficient must be finite")
		}
	}
	return TF{Num: trimNum(num), Den: d}, nil
}

func trimNum(num []float64) Poly {
	n := Poly(num).Trim()
	if len(n) == 0 {
		return Poly{0}
	}
	return n
}

// Gain returns the static block k/1.
func Gain(k float64) TF {
	return TF{Num: Poly{k}, Den: Poly{1}}
}

// FirstOrder returns k/(τs+1).
func FirstOrder(k, tau float64) (TF, error) {
	if !(tau > 0) || math.IsInf(tau, 0) {
		return TF{}, dynamo.InvalidParam("first-order", "tau", tau, "time constant must be positive")
	}
	return TF{Num: trimNum([]float64{k}), Den: Poly{tau, 1}}, nil
}

// Pade returns the order-N diagonal Padé approximation of e^(-θs). Order 1
// is num=[-θ/2, 1], den=[θ/2, 1]. A zero delay yields the unit block.
func Pade(theta float64, order int) (TF, error) {
	if theta < 0 || math.IsNaN(theta) || math.IsInf(theta, 0) {
		return TF{}, dynamo.InvalidParam("pade", "theta", theta, "dead time must be non-negative")
	}
	if order < 1 {
		return TF{}, dynamo.InvalidParam("pade", "order", float64(order), "order must be at least 1")
	}
	if theta == 0 {
		return Gain(1), nil
	}

	// c_k = (2N-k)! N! / ((2N)! k! (N-k)!), ascending power.
	n := order
	num := make(Poly, n+1)
	den := make(Poly, n+1)
	c := 1.0
	pow := 1.0
	for k := 0; k <= n; k++ {
		sign := 1.0
		if k%2 == 1 {
			sign = -1.0
		}
		den[n-k] = c * pow
		num[n-k] = sign * c * pow
		c *= float64(n-k) / (float64(2*n-k) * float64(k+1))
		pow *= theta
	}
	return TF{Num: num, Den: den}, nil
}

// FromFOPDT returns Pade(θ, order) in series with k/(τs+1).
func FromFOPDT(p dynamo.FOPDT, padeOrder int) (TF, error) {
	if err := p.Validate(); err != nil {
		return TF{}, err
	}
	delay, err := Pade(p.DeadTime, padeOrder)
	if err != nil {
		return TF{}, err
	}
	lag, err := FirstOrder(p.Gain, p.TimeConstant)
	if err != nil {
		return TF{}, err
	}
	return Series(delay, lag), nil
}

// Series returns a·b: numerators and denominators multiplied.
func Series(a, b TF) TF {
	return TF{
		Num: trimNum(a.Num.Mul(b.Num)),
		Den: a.Den.Mul(b.Den).Trim(),
	}
}

// Feedback closes a negative feedback loop with a static gain in the
// return path: forward/(1 + gain·forward) = N/(D + gain·N).
func Feedback(forward TF, gain float64) (TF, error) {
	den := forward.Den.Add(forward.Num.Scale(gain)).Trim()
	if len(den) == 0 {
		return TF{}, fmt.Errorf("%w: feedback denominator D+%gN is identically zero", dynamo.ErrSingularSystem, gain)
	}
	return TF{Num: trimNum(forward.Num), Den: den}, nil
}

// UnityFeedback returns N/(D+N).
func UnityFeedback(forward TF) (TF, error) {
	return Feedback(forward, 1)
}

// PID returns the parallel-form controller (kd·s² + kp·s + ki)/s.
func PID(kp, ki, kd float64) TF {
	return TF{Num: trimNum([]float64{kd, kp, ki}), Den: Poly{1, 0}}
}

// Scale multiplies the numerator by c.
func (g TF) Scale(c float64) TF {
	return TF{Num: trimNum(g.Num.Scale(c)), Den: g.Den}
}

// Order is the degree of the denominator.
func (g TF) Order() int { return g.Den.Degree() }

// IsProper reports whether the numerator degree does not exceed the
// denominator degree.
func (g TF) IsProper() bool {
	return g.Num.Degree() <= g.Den.Degree()
}

// Eval evaluates the transfer function at s.
func (g TF) Eval(s complex128) complex128 {
	return g.Num.Eval(s) / g.Den.Eval(s)
}

// DCGain is G(0). It is ±Inf for a model with a pole at the origin.
func (g TF) DCGain() float64 {
	return constTerm(g.Num) / constTerm(g.Den)
}

func constTerm(p Poly) float64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

// Poles returns the roots of the denominator.
func (g TF) Poles() ([]complex128, error) {
	return g.Den.Roots()
}

// Zeros returns the roots of the numerator; a zero numerator has none.
func (g TF) Zeros() ([]complex128, error) {
	if g.Num.IsZero() {
		return []complex128{}, nil
	}
	return g.Num.Roots()
}

func (g TF) String() string {
	return fmt.Sprintf("(%s) / (%s)", g.Num.String(), g.Den.String())
}
