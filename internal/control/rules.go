package control

import (
	"github.com/san-kum/pidlab/internal/dynamo"
)

// Tuner maps an identified model to controller gains.
type Tuner interface {
	Tune(p dynamo.FOPDT) (Gains, error)
}

// TunerFunc adapts a plain function to [Tuner].
type TunerFunc func(p dynamo.FOPDT) (Gains, error)

func (f TunerFunc) Tune(p dynamo.FOPDT) (Gains, error) { return f(p) }

// checkModel enforces the divisions every rule performs: k and θ appear in
// denominators.
func checkModel(op string, p dynamo.FOPDT) error {
	if p.DeadTime == 0 {
		return dynamo.InvalidParam(op, "theta", p.DeadTime, "dead time must be nonzero")
	}
	if p.Gain == 0 {
		return dynamo.InvalidParam(op, "k", p.Gain, "gain must be nonzero")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return nil
}

// ZieglerNichols applies the open-loop reaction-curve rule:
//
//	Kp = 1.2·τ/(k·θ),  Ti = 2θ,  Td = 0.5θ
func ZieglerNichols(p dynamo.FOPDT) (Gains, error) {
	if err := checkModel("ziegler-nichols", p); err != nil {
		return Gains{}, err
	}
	kp := 1.2 * p.TimeConstant / (p.Gain * p.DeadTime)
	return FromTimeConstants(kp, 2*p.DeadTime, 0.5*p.DeadTime)
}

// CohenCoon applies the Cohen-Coon PID rule:
//
//	Kp = (τ/(k·θ))·((16τ + 3θ)/(12τ))
//	Ti = θ·(32 + 6θ/τ)/(13 + 8θ/τ)
//	Td = 4θ/(11 + 2θ/τ)
func CohenCoon(p dynamo.FOPDT) (Gains, error) {
	if err := checkModel("cohen-coon", p); err != nil {
		return Gains{}, err
	}
	tau, theta := p.TimeConstant, p.DeadTime
	r := theta / tau

	kp := (tau / (p.Gain * theta)) * ((16*tau + 3*theta) / (12 * tau))
	ti := theta * (32 + 6*r) / (13 + 8*r)
	td := 4 * theta / (11 + 2*r)
	return FromTimeConstants(kp, ti, td)
}

// Manual carries user supplied gains in time-constant form. The model is
// checked like every other rule so a bad identification is never hidden
// behind hand-entered gains.
type Manual struct {
	Kp float64 `json:"kp" yaml:"kp"`
	Ti float64 `json:"ti" yaml:"ti"`
	Td float64 `json:"td" yaml:"td"`
}

func (m Manual) Tune(p dynamo.FOPDT) (Gains, error) {
	if err := checkModel("manual", p); err != nil {
		return Gains{}, err
	}
	return m.Gains()
}

// Gains validates the manual entry alone.
func (m Manual) Gains() (Gains, error) {
	return FromTimeConstants(m.Kp, m.Ti, m.Td)
}
