package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// AdaptiveIntegrator covers a span with error-controlled substeps, starting
// from the trial step h.
type AdaptiveIntegrator interface {
	Integrator
	Advance(dyn System, x State, u Control, t, span, h, tol float64) (State, error)
}

// Signal is an ordered sequence of (time, value) samples.
type Signal struct {
	Times  []float64
	Values []float64
}

// NewSignal copies times and values into a Signal. The slices must have
// equal length.
func NewSignal(times, values []float64) (Signal, error) {
	if len(times) != len(values) {
		return Signal{}, InvalidParam("signal", "len(values)", float64(len(values)), "length differs from time axis")
	}
	s := Signal{
		Times:  make([]float64, len(times)),
		Values: make([]float64, len(values)),
	}
	copy(s.Times, times)
	copy(s.Values, values)
	return s, nil
}

func (s Signal) Len() int { return len(s.Times) }

// First returns the first value, or 0 for an empty signal.
func (s Signal) First() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return s.Values[0]
}

// Last returns the last value, or 0 for an empty signal.
func (s Signal) Last() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return s.Values[len(s.Values)-1]
}

// Validate checks the time axis is non-empty, finite and strictly increasing.
func (s Signal) Validate() error {
	if len(s.Times) == 0 {
		return InvalidParam("signal", "len", 0, "empty signal")
	}
	if len(s.Times) != len(s.Values) {
		return InvalidParam("signal", "len(values)", float64(len(s.Values)), "length differs from time axis")
	}
	return ValidateGrid(s.Times)
}

// ValidateGrid checks a time grid is non-empty, finite and strictly increasing.
func ValidateGrid(grid []float64) error {
	if len(grid) == 0 {
		return InvalidParam("grid", "len", 0, "empty time grid")
	}
	for i, t := range grid {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return InvalidParam("grid", "t", t, "time must be finite")
		}
		if i > 0 && t <= grid[i-1] {
			return InvalidParam("grid", "t", t, "time must be strictly increasing")
		}
	}
	return nil
}

// FOPDT holds first-order-plus-dead-time model parameters.
type FOPDT struct {
	Gain         float64 `json:"k" yaml:"k"`
	TimeConstant float64 `json:"tau" yaml:"tau"`
	DeadTime     float64 `json:"theta" yaml:"theta"`
}

// Validate enforces τ>0, θ≥0 and a finite nonzero gain.
func (p FOPDT) Validate() error {
	switch {
	case math.IsNaN(p.Gain) || math.IsInf(p.Gain, 0) || p.Gain == 0:
		return InvalidParam("fopdt", "k", p.Gain, "gain must be finite and nonzero")
	case math.IsNaN(p.TimeConstant) || math.IsInf(p.TimeConstant, 0) || p.TimeConstant <= 0:
		return InvalidParam("fopdt", "tau", p.TimeConstant, "time constant must be positive")
	case math.IsNaN(p.DeadTime) || math.IsInf(p.DeadTime, 0) || p.DeadTime < 0:
		return InvalidParam("fopdt", "theta", p.DeadTime, "dead time must be non-negative")
	}
	return nil
}
