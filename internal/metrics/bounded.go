package metrics

import "math"

// Bounded scores how much of a response stays inside the band |y| <= limit.
// Its value is the in-band fraction of samples, so a diverging loop drifts
// toward zero. The first sample to leave the band is remembered.
type Bounded struct {
	limit   float64
	inside  int
	total   int
	escaped bool
	escapeT float64
}

func NewBounded(limit float64) *Bounded {
	return &Bounded{limit: math.Abs(limit)}
}

func (b *Bounded) Name() string { return "bounded" }

func (b *Bounded) Observe(t, y float64) {
	b.total++
	if !math.IsNaN(y) && math.Abs(y) <= b.limit {
		b.inside++
		return
	}
	if !b.escaped {
		b.escaped, b.escapeT = true, t
	}
}

func (b *Bounded) Value() float64 {
	if b.total == 0 {
		return 1
	}
	return float64(b.inside) / float64(b.total)
}

// Escape reports the time of the first out-of-band sample.
func (b *Bounded) Escape() (float64, bool) {
	return b.escapeT, b.escaped
}

func (b *Bounded) Reset() {
	*b = Bounded{limit: b.limit}
}
