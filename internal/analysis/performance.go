package analysis

import (
	"math"

	"github.com/san-kum/pidlab/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultReference = 1.0
	DefaultTolerance = 0.02
)

// Performance holds the time-domain figures of one response curve.
type Performance struct {
	RiseTime         float64 `json:"rise_time"`
	SettlingTime     float64 `json:"settling_time"`
	SteadyStateError float64 `json:"steady_state_error"`
	SteadyValue      float64 `json:"steady_value"`
	PeakValue        float64 `json:"peak_value"`
	PeakTime         float64 `json:"peak_time"`
	OvershootPercent float64 `json:"overshoot_percent"`
	// RiseTimeDefined is false when the final value is not positive or a
	// rise level is never reached. RiseTime is then computed from the
	// first sample in place of the missing crossing.
	RiseTimeDefined bool `json:"rise_time_defined"`
}

// Analyze measures sig against reference with a relative settling band of
// ±tolerance around the final value.
func Analyze(sig dynamo.Signal, reference, tolerance float64) (Performance, error) {
	if err := sig.Validate(); err != nil {
		return Performance{}, err
	}
	if math.IsNaN(tolerance) || tolerance < 0 {
		return Performance{}, dynamo.InvalidParam("analyze", "tolerance", tolerance, "tolerance must be non-negative")
	}
	if math.IsNaN(reference) || math.IsInf(reference, 0) {
		return Performance{}, dynamo.InvalidParam("analyze", "reference", reference, "reference must be finite")
	}

	t, y := sig.Times, sig.Values
	steady := y[len(y)-1]

	var p Performance
	p.SteadyValue = steady

	i10, ok10 := firstAtLeast(y, 0.1*steady)
	i90, ok90 := firstAtLeast(y, 0.9*steady)
	p.RiseTime = t[i90] - t[i10]
	p.RiseTimeDefined = steady > 0 && ok10 && ok90

	p.SettlingTime = settlingTime(t, y, steady, tolerance)
	p.SteadyStateError = math.Abs(reference - steady)

	peak := floats.MaxIdx(y)
	p.PeakValue = y[peak]
	p.PeakTime = t[peak]
	if steady != 0 {
		p.OvershootPercent = (p.PeakValue - steady) / steady * 100
	}
	return p, nil
}

// firstAtLeast returns the first index with y[i] >= level. When no sample
// qualifies it returns 0 and false.
func firstAtLeast(y []float64, level float64) (int, bool) {
	for i, v := range y {
		if v >= level {
			return i, true
		}
	}
	return 0, false
}

// settlingTime scans backward for the last sample outside the band and
// returns the time of the sample after it, or 0 when no sample leaves the
// band. Samples on the band edge count as inside.
func settlingTime(t, y []float64, steady, tol float64) float64 {
	lo := math.Min(steady*(1-tol), steady*(1+tol))
	hi := math.Max(steady*(1-tol), steady*(1+tol))
	for i := len(y) - 1; i >= 0; i-- {
		if y[i] > hi || y[i] < lo {
			// The final sample always sits inside its own band, so i+1 is
			// in range.
			return t[i+1]
		}
	}
	return 0
}
