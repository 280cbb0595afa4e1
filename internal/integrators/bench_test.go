package integrators

import (
	"testing"

	"github.com/san-kum/pidlab/internal/dynamo"
)

// Benchmarks integrate a unit step into a lag with τ = 5, the shape every
// simulated plant reduces to between delay samples.

func BenchmarkEulerStep(b *testing.B) {
	benchStep(b, NewEuler())
}

func BenchmarkRK4Step(b *testing.B) {
	benchStep(b, NewRK4())
}

func BenchmarkRK45Step(b *testing.B) {
	benchStep(b, NewRK45())
}

func BenchmarkRK4StepInto(b *testing.B) {
	integ := NewRK4()
	dyn := &firstOrderLag{k: 1, tau: 5}
	u := dynamo.Control{1}
	x := dynamo.State{0}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integ.StepInto(x, dyn, x, u, 0, 0.01)
	}
}

func benchStep(b *testing.B, integ dynamo.Integrator) {
	dyn := &firstOrderLag{k: 1, tau: 5}
	u := dynamo.Control{1}
	x := dynamo.State{0}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(dyn, x, u, 0, 0.01)
	}
}
