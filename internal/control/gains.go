package control

import (
	"fmt"
	"math"

	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/tf"
)

// Gains holds a PID controller in parallel and time-constant form.
type Gains struct {
	Kp float64 `json:"kp" yaml:"kp"`
	Ki float64 `json:"ki" yaml:"ki"`
	Kd float64 `json:"kd" yaml:"kd"`
	Ti float64 `json:"ti" yaml:"ti"`
	Td float64 `json:"td" yaml:"td"`
}

// FromTimeConstants builds gains from (Kp, Ti, Td).
func FromTimeConstants(kp, ti, td float64) (Gains, error) {
	for _, v := range []struct {
		name string
		val  float64
	}{{"kp", kp}, {"ti", ti}, {"td", td}} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return Gains{}, dynamo.InvalidParam("gains", v.name, v.val, "must be finite")
		}
	}
	if ti == 0 {
		return Gains{}, dynamo.InvalidParam("gains", "ti", ti, "integral time must be nonzero")
	}
	return Gains{
		Kp: kp,
		Ki: kp / ti,
		Kd: kp * td,
		Ti: ti,
		Td: td,
	}, nil
}

// FromParallel builds gains from (Kp, Ki, Kd). Ki = 0 means no integral
// action and yields an infinite Ti.
func FromParallel(kp, ki, kd float64) (Gains, error) {
	for _, v := range []struct {
		name string
		val  float64
	}{{"kp", kp}, {"ki", ki}, {"kd", kd}} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return Gains{}, dynamo.InvalidParam("gains", v.name, v.val, "must be finite")
		}
	}
	if kp == 0 {
		return Gains{}, dynamo.InvalidParam("gains", "kp", kp, "proportional gain must be nonzero")
	}
	ti := math.Inf(1)
	if ki != 0 {
		ti = kp / ki
	}
	return Gains{Kp: kp, Ki: ki, Kd: kd, Ti: ti, Td: kd / kp}, nil
}

// TransferFunction returns (Kd·s² + Kp·s + Ki)/s.
func (g Gains) TransferFunction() tf.TF {
	return tf.PID(g.Kp, g.Ki, g.Kd)
}

func (g Gains) String() string {
	return fmt.Sprintf("Kp=%.4g Ki=%.4g Kd=%.4g (Ti=%.4g Td=%.4g)", g.Kp, g.Ki, g.Kd, g.Ti, g.Td)
}

// GetParams returns tunable parameters for live adjustment
func (g Gains) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": g.Kp,
		"Ti": g.Ti,
		"Td": g.Td,
	}
}

// SetParam returns a copy with one time-constant parameter changed and the
// parallel gains recomputed. An infinite Ti keeps the controller free of
// integral action (Ki = 0).
func (g Gains) SetParam(name string, value float64) (Gains, error) {
	kp, ti, td := g.Kp, g.Ti, g.Td
	switch name {
	case "Kp":
		kp = value
	case "Ti":
		ti = value
	case "Td":
		td = value
	default:
		return g, fmt.Errorf("unknown gain %q", name)
	}
	if math.IsInf(ti, 1) {
		return FromParallel(kp, 0, kp*td)
	}
	return FromTimeConstants(kp, ti, td)
}
