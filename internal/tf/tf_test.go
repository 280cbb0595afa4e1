package tf

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"
	"testing"

	"github.com/san-kum/pidlab/internal/dynamo"
)

func polyEqual(t *testing.T, name string, got, want Poly) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %v, want %v", name, got, want)
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("%s: got %v, want %v", name, got, want)
		}
	}
}

func TestFirstOrder(t *testing.T) {
	g, err := FirstOrder(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	polyEqual(t, "num", g.Num, Poly{2})
	polyEqual(t, "den", g.Den, Poly{5, 1})

	for _, tau := range []float64{0, -1} {
		_, err := FirstOrder(1, tau)
		if !errors.Is(err, dynamo.ErrInvalidParameter) {
			t.Errorf("tau=%g: expected ErrInvalidParameter, got %v", tau, err)
		}
	}
}

func TestSeriesOfFirstOrders(t *testing.T) {
	k1, tau1 := 2.0, 3.0
	k2, tau2 := 0.5, 7.0
	a, _ := FirstOrder(k1, tau1)
	b, _ := FirstOrder(k2, tau2)

	g := Series(a, b)

	if g.Den.Degree() != 2 {
		t.Fatalf("expected degree 2 denominator, got %d", g.Den.Degree())
	}
	polyEqual(t, "den", g.Den, Poly{tau1 * tau2, tau1 + tau2, 1})
	polyEqual(t, "num", g.Num, Poly{k1 * k2})
}

func TestPadeFirstOrder(t *testing.T) {
	theta := 1.5
	d, err := Pade(theta, 1)
	if err != nil {
		t.Fatal(err)
	}
	polyEqual(t, "num", d.Num, Poly{-theta / 2, 1})
	polyEqual(t, "den", d.Den, Poly{theta / 2, 1})
}

func TestPadeSecondOrder(t *testing.T) {
	theta := 2.0
	d, err := Pade(theta, 2)
	if err != nil {
		t.Fatal(err)
	}
	// 1 - θs/2 + θ²s²/12 over 1 + θs/2 + θ²s²/12
	polyEqual(t, "num", d.Num, Poly{theta * theta / 12, -theta / 2, 1})
	polyEqual(t, "den", d.Den, Poly{theta * theta / 12, theta / 2, 1})

	// All-pass: unit magnitude on the imaginary axis.
	for _, w := range []float64{0.1, 1, 10} {
		if mag := cmplx.Abs(d.Eval(complex(0, w))); math.Abs(mag-1) > 1e-12 {
			t.Errorf("|P(j%g)| = %g, want 1", w, mag)
		}
	}
}

func TestPadeEdgeCases(t *testing.T) {
	d, err := Pade(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if d.DCGain() != 1 || d.Order() != 0 {
		t.Errorf("zero delay should be the unit block, got %s", d)
	}

	if _, err := Pade(-1, 1); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for negative delay, got %v", err)
	}
	if _, err := Pade(1, 0); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for order 0, got %v", err)
	}
}

func TestUnityFeedback(t *testing.T) {
	g, _ := FirstOrder(2, 5)
	cl, err := UnityFeedback(g)
	if err != nil {
		t.Fatal(err)
	}
	polyEqual(t, "num", cl.Num, Poly{2})
	polyEqual(t, "den", cl.Den, Poly{5, 3})
	if math.Abs(cl.DCGain()-2.0/3.0) > 1e-12 {
		t.Errorf("DC gain = %g, want 2/3", cl.DCGain())
	}
}

func TestFeedbackSingular(t *testing.T) {
	g, err := New([]float64{-1, -2}, []float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	_, err = UnityFeedback(g)
	if !errors.Is(err, dynamo.ErrSingularSystem) {
		t.Errorf("expected ErrSingularSystem, got %v", err)
	}
}

func TestPID(t *testing.T) {
	c := PID(2, 0.5, 3)
	polyEqual(t, "num", c.Num, Poly{3, 2, 0.5})
	polyEqual(t, "den", c.Den, Poly{1, 0})

	pi := PID(2, 0.5, 0)
	polyEqual(t, "num", pi.Num, Poly{2, 0.5})
	if !math.IsInf(pi.DCGain(), 1) {
		t.Errorf("integrator DC gain should be +Inf, got %g", pi.DCGain())
	}
}

func TestFromFOPDT(t *testing.T) {
	g, err := FromFOPDT(dynamo.FOPDT{Gain: 2, TimeConstant: 5, DeadTime: 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	polyEqual(t, "num", g.Num, Poly{-1, 2})
	polyEqual(t, "den", g.Den, Poly{2.5, 5.5, 1})
	if math.Abs(g.DCGain()-2) > 1e-12 {
		t.Errorf("DC gain = %g, want 2", g.DCGain())
	}

	_, err = FromFOPDT(dynamo.FOPDT{Gain: 2, TimeConstant: 0, DeadTime: 1}, 1)
	if !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestPolyRoots(t *testing.T) {
	// (s+1)(s+2)(s+4)
	p := Poly{1, 1}.Mul(Poly{1, 2}).Mul(Poly{1, 4})
	roots, err := p.Roots()
	if err != nil {
		t.Fatal(err)
	}
	re := make([]float64, len(roots))
	for i, r := range roots {
		if imag(r) != 0 {
			t.Errorf("expected real root, got %v", r)
		}
		re[i] = real(r)
	}
	sort.Float64s(re)
	want := []float64{-4, -2, -1}
	for i := range want {
		if math.Abs(re[i]-want[i]) > 1e-9 {
			t.Errorf("roots = %v, want %v", re, want)
		}
	}

	osc := Poly{1, 0, 4}
	roots, _ = osc.Roots()
	for _, r := range roots {
		if math.Abs(real(r)) > 1e-12 || math.Abs(math.Abs(imag(r))-2) > 1e-9 {
			t.Errorf("expected ±2i, got %v", r)
		}
	}
}

func TestPolyAddAligns(t *testing.T) {
	got := Poly{1, 2, 3}.Add(Poly{5})
	polyEqual(t, "sum", got, Poly{1, 2, 8})
}

func TestIsProper(t *testing.T) {
	g, _ := FirstOrder(1, 1)
	if !g.IsProper() {
		t.Error("first order should be proper")
	}
	if PID(1, 1, 1).IsProper() {
		t.Error("PID with derivative is improper on its own")
	}
	if !Series(PID(1, 1, 1), g).IsProper() {
		t.Error("PID in series with a first-order lag is proper")
	}
}

func TestZeros(t *testing.T) {
	g, err := FromFOPDT(dynamo.FOPDT{Gain: 2, TimeConstant: 5, DeadTime: 1.5}, 1)
	if err != nil {
		t.Fatal(err)
	}
	zeros, err := g.Zeros()
	if err != nil {
		t.Fatal(err)
	}
	// the first-order delay approximation puts a right-half-plane zero at 2/θ
	if len(zeros) != 1 || cmplx.Abs(zeros[0]-complex(2/1.5, 0)) > 1e-9 {
		t.Errorf("zeros = %v, want [%v]", zeros, 2/1.5)
	}

	lag, _ := FirstOrder(1, 3)
	if zeros, err := lag.Zeros(); err != nil || len(zeros) != 0 {
		t.Errorf("first order zeros = %v, %v; want none", zeros, err)
	}
	if zeros, err := (TF{Num: Poly{0}, Den: Poly{1, 1}}).Zeros(); err != nil || len(zeros) != 0 {
		t.Errorf("zero numerator zeros = %v, %v; want none", zeros, err)
	}
}
