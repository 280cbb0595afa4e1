package identify

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pidlab/internal/dynamo"
)

func signal(t *testing.T, times, values []float64) dynamo.Signal {
	t.Helper()
	s, err := dynamo.NewSignal(times, values)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func fopdtSignal(t *testing.T, p dynamo.FOPDT, end, dt float64) dynamo.Signal {
	t.Helper()
	n := int(math.Round(end / dt))
	times := make([]float64, n+1)
	for i := range times {
		times[i] = float64(i) * dt
	}
	return signal(t, times, Curve(p, times, UnitStep, 0))
}

func TestSmithReferenceCurve(t *testing.T) {
	sig := signal(t,
		[]float64{0, 1, 2, 3, 4},
		[]float64{0, 0.283, 0.632, 0.8, 1.0},
	)
	p, err := Smith(sig, UnitStep)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.DeadTime-0.5) > 1e-12 {
		t.Errorf("theta = %v, want 0.5", p.DeadTime)
	}
	if math.Abs(p.TimeConstant-1.5) > 1e-12 {
		t.Errorf("tau = %v, want 1.5", p.TimeConstant)
	}
	if math.Abs(p.Gain-1) > 1e-12 {
		t.Errorf("k = %v, want 1", p.Gain)
	}
}

func TestSmithInputStep(t *testing.T) {
	sig := signal(t,
		[]float64{0, 1, 2, 3, 4},
		[]float64{20, 20.6, 21.3, 21.6, 22},
	)
	p, err := Smith(sig, Step{U0: 10, UF: 14})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.Gain-0.5) > 1e-12 {
		t.Errorf("k = %v, want 0.5", p.Gain)
	}
	if math.Abs(p.DeadTime-0.5) > 1e-12 || math.Abs(p.TimeConstant-1.5) > 1e-12 {
		t.Errorf("got %+v", p)
	}
}

func TestSmithFallingResponse(t *testing.T) {
	sig := signal(t,
		[]float64{0, 1, 2, 3, 4},
		[]float64{0, -0.283, -0.632, -0.8, -1.0},
	)
	p, err := Smith(sig, UnitStep)
	if err != nil {
		t.Fatal(err)
	}
	if p.Gain != -1 || math.Abs(p.DeadTime-0.5) > 1e-12 || math.Abs(p.TimeConstant-1.5) > 1e-12 {
		t.Errorf("got %+v", p)
	}
}

func TestSmithRecoversFOPDT(t *testing.T) {
	truth := dynamo.FOPDT{Gain: 2, TimeConstant: 5, DeadTime: 1}
	p, err := Smith(fopdtSignal(t, truth, 60, 0.01), UnitStep)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.Gain-2) > 1e-3 {
		t.Errorf("k = %v", p.Gain)
	}
	if math.Abs(p.TimeConstant-5) > 0.05 || math.Abs(p.DeadTime-1) > 0.05 {
		t.Errorf("got %+v, want tau≈5 theta≈1", p)
	}
}

func TestSundaresanPiecewiseLinear(t *testing.T) {
	sig := signal(t,
		[]float64{0, 1, 2, 3, 4},
		[]float64{0, 0, 0.5, 1, 1},
	)
	p, err := Sundaresan(sig)
	if err != nil {
		t.Fatal(err)
	}
	// t1 = 1.706, t2 = 2.706
	if math.Abs(p.TimeConstant-1.3) > 1e-9 {
		t.Errorf("tau = %v, want 1.3", p.TimeConstant)
	}
	if math.Abs(p.DeadTime-1.416) > 1e-9 {
		t.Errorf("theta = %v, want 1.416", p.DeadTime)
	}
	if p.Gain != 1 {
		t.Errorf("k = %v, want 1", p.Gain)
	}
}

func TestInterp(t *testing.T) {
	xp := []float64{0, 0, 0.5, 1, 1}
	fp := []float64{0, 1, 2, 3, 4}
	tests := []struct {
		x, want float64
	}{
		{-1, 0},
		{0, 1},
		{0.25, 1.5},
		{0.5, 2},
		{1, 4},
		{2, 4},
	}
	for _, tt := range tests {
		if got := interp(tt.x, xp, fp); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("interp(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestDegenerateSignal(t *testing.T) {
	sig := signal(t, []float64{0, 1, 2}, []float64{3, 3, 3})

	if _, err := Smith(sig, UnitStep); !errors.Is(err, dynamo.ErrDegenerateSignal) {
		t.Errorf("smith: expected ErrDegenerateSignal, got %v", err)
	}
	if _, err := Sundaresan(sig); !errors.Is(err, dynamo.ErrDegenerateSignal) {
		t.Errorf("sundaresan: expected ErrDegenerateSignal, got %v", err)
	}
}

func TestInvalidInputs(t *testing.T) {
	sig := signal(t, []float64{0, 1, 2, 3, 4}, []float64{0, 0.283, 0.632, 0.8, 1.0})
	if _, err := Smith(sig, Step{U0: 1, UF: 1}); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("zero input step: expected ErrInvalidParameter, got %v", err)
	}

	// A fast start followed by a slow approach puts θ below zero.
	jump := signal(t, []float64{0, 1, 2, 3, 4}, []float64{0, 0.3, 0.4, 0.5, 1})
	_, err := Smith(jump, UnitStep)
	var pe *dynamo.ParameterError
	if !errors.As(err, &pe) || pe.Name != "theta" {
		t.Errorf("expected theta ParameterError, got %v", err)
	}

	if _, err := Smith(dynamo.Signal{}, UnitStep); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("empty signal: expected ErrInvalidParameter, got %v", err)
	}
}

func TestRefine(t *testing.T) {
	truth := dynamo.FOPDT{Gain: 2, TimeConstant: 5, DeadTime: 1}
	sig := fopdtSignal(t, truth, 40, 0.1)

	initial := dynamo.FOPDT{Gain: 1.8, TimeConstant: 6, DeadTime: 1.5}
	r, err := Refine(context.Background(), sig, initial, UnitStep)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r.Model.Gain-2) > 0.02 ||
		math.Abs(r.Model.TimeConstant-5) > 0.05 ||
		math.Abs(r.Model.DeadTime-1) > 0.05 {
		t.Errorf("refined %+v, want %+v", r.Model, truth)
	}
	if r.Fit.SSE > r.InitialFit.SSE {
		t.Errorf("refinement made the fit worse: %v > %v", r.Fit.SSE, r.InitialFit.SSE)
	}
	if r.Fit.R2 < 0.999 {
		t.Errorf("R² = %v", r.Fit.R2)
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"smith", "Sundaresan", " SMITH "} {
		if _, err := Lookup(name); err != nil {
			t.Errorf("Lookup(%q): %v", name, err)
		}
	}
	if _, err := Lookup("broida"); err == nil {
		t.Error("expected error for unknown method")
	}
}
