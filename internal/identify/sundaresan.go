package identify

import (
	"github.com/san-kum/pidlab/internal/dynamo"
)

const (
	sundaresanLow  = 0.353
	sundaresanHigh = 0.853
)

// Sundaresan estimates (k, τ, θ) with the Sundaresan-Krishnaswamy method.
// The response is normalized to [0, 1] by its first and last samples and
// the times t₁, t₂ at 35.3 % and 85.3 % are interpolated linearly:
//
//	τ = 1.3·(t₂ − t₁),  θ = t₁ − 0.29·(t₂ − t₁),  k = y[last] − y[first]
func Sundaresan(sig dynamo.Signal) (dynamo.FOPDT, error) {
	if err := sig.Validate(); err != nil {
		return dynamo.FOPDT{}, err
	}

	y0, yf := sig.First(), sig.Last()
	span := yf - y0
	if span == 0 {
		return dynamo.FOPDT{}, degenerate("sundaresan")
	}

	norm := make([]float64, len(sig.Values))
	for i, v := range sig.Values {
		norm[i] = (v - y0) / span
	}

	t1 := interp(sundaresanLow, norm, sig.Times)
	t2 := interp(sundaresanHigh, norm, sig.Times)

	p := dynamo.FOPDT{
		Gain:         span,
		TimeConstant: 1.3 * (t2 - t1),
		DeadTime:     t1 - 0.29*(t2-t1),
	}
	if err := p.Validate(); err != nil {
		return dynamo.FOPDT{}, err
	}
	return p, nil
}

// interp evaluates the piecewise-linear function through (xp[i], fp[i]) at
// x. xp is expected to be non-decreasing; values outside its range clamp to
// the end points. Interpolation uses the segment ending at the first
// sample above x.
func interp(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if x < xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}
	j := 0
	for xp[j+1] <= x {
		j++
	}
	slope := (fp[j+1] - fp[j]) / (xp[j+1] - xp[j])
	return fp[j] + slope*(x-xp[j])
}
