package metrics

import "github.com/san-kum/pidlab/internal/dynamo"

// Metric accumulates a scalar over the samples of a response.
type Metric interface {
	Name() string
	Observe(t, y float64)
	Value() float64
	Reset()
}

// Evaluate resets every metric, streams the signal through them and
// returns the values keyed by metric name.
func Evaluate(sig dynamo.Signal, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for i := range sig.Times {
			m.Observe(sig.Times[i], sig.Values[i])
		}
		out[m.Name()] = m.Value()
	}
	return out
}

// Standard returns the integral error indices against ref.
func Standard(ref float64) []Metric {
	return []Metric{NewIAE(ref), NewISE(ref), NewITAE(ref)}
}
