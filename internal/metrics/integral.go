package metrics

import "math"

// integral is the trapezoidal integral of weight(t, ref−y) over time.
type integral struct {
	name   string
	ref    float64
	weight func(t, e float64) float64

	started bool
	prevT   float64
	prevW   float64
	sum     float64
}

func (m *integral) Name() string { return m.name }

func (m *integral) Observe(t, y float64) {
	w := m.weight(t, m.ref-y)
	if m.started {
		m.sum += 0.5 * (w + m.prevW) * (t - m.prevT)
	}
	m.started = true
	m.prevT = t
	m.prevW = w
}

func (m *integral) Value() float64 { return m.sum }

func (m *integral) Reset() {
	m.started = false
	m.prevT, m.prevW, m.sum = 0, 0, 0
}

// NewIAE integrates |e|.
func NewIAE(ref float64) Metric {
	return &integral{name: "iae", ref: ref, weight: func(_, e float64) float64 { return math.Abs(e) }}
}

// NewISE integrates e².
func NewISE(ref float64) Metric {
	return &integral{name: "ise", ref: ref, weight: func(_, e float64) float64 { return e * e }}
}

// NewITAE integrates t·|e|.
func NewITAE(ref float64) Metric {
	return &integral{name: "itae", ref: ref, weight: func(t, e float64) float64 { return t * math.Abs(e) }}
}
