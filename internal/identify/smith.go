package identify

import (
	"fmt"

	"github.com/san-kum/pidlab/internal/dynamo"
)

// Smith method levels, as fractions of the total response change.
const (
	smithLow  = 0.283
	smithHigh = 0.632
)

// Step describes the input change that produced a response.
type Step struct {
	U0 float64 `json:"u0" yaml:"u0"`
	UF float64 `json:"uf" yaml:"uf"`
}

// UnitStep is the 0 → 1 input step.
var UnitStep = Step{U0: 0, UF: 1}

func (s Step) Size() float64 { return s.UF - s.U0 }

func (s Step) validate(op string) error {
	if s.UF == s.U0 {
		return dynamo.InvalidParam(op, "uf-u0", 0, "input step has zero size")
	}
	return nil
}

// Smith estimates (k, τ, θ) with Smith's two-point method:
//
//	θ = 1.5·t₁ − 0.5·t₂,  τ = t₂ − θ,  k = Δy / (uf − u0)
//
// where t₁ and t₂ are the times of the first samples at or beyond 28.3 %
// and 63.2 % of Δy.
func Smith(sig dynamo.Signal, step Step) (dynamo.FOPDT, error) {
	if err := sig.Validate(); err != nil {
		return dynamo.FOPDT{}, err
	}
	if err := step.validate("smith"); err != nil {
		return dynamo.FOPDT{}, err
	}

	y0, yf := sig.First(), sig.Last()
	dy := yf - y0
	if dy == 0 {
		return dynamo.FOPDT{}, degenerate("smith")
	}

	i1, ok := firstReaching(sig.Values, y0+smithLow*dy, dy > 0)
	if !ok {
		return dynamo.FOPDT{}, dynamo.InvalidParam("smith", "t1", smithLow, "response never reaches level")
	}
	i2, ok := firstReaching(sig.Values, y0+smithHigh*dy, dy > 0)
	if !ok {
		return dynamo.FOPDT{}, dynamo.InvalidParam("smith", "t2", smithHigh, "response never reaches level")
	}

	t1, t2 := sig.Times[i1], sig.Times[i2]
	theta := 1.5*t1 - 0.5*t2
	p := dynamo.FOPDT{
		Gain:         dy / step.Size(),
		TimeConstant: t2 - theta,
		DeadTime:     theta,
	}
	if err := p.Validate(); err != nil {
		return dynamo.FOPDT{}, err
	}
	return p, nil
}

// firstReaching returns the first index whose value is at or past level in
// the direction of the response.
func firstReaching(values []float64, level float64, rising bool) (int, bool) {
	for i, v := range values {
		if (rising && v >= level) || (!rising && v <= level) {
			return i, true
		}
	}
	return 0, false
}

func degenerate(op string) error {
	return fmt.Errorf("%s: %w: first and last samples are equal", op, dynamo.ErrDegenerateSignal)
}
