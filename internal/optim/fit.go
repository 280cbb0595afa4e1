package optim

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Fit summarizes how well a model curve reproduces a measured one.
type Fit struct {
	R2   float64 `json:"r2"`
	RMSE float64 `json:"rmse"`
	SSE  float64 `json:"sse"`
}

// Quality compares model against measured sample by sample. The slices
// must have the same non-zero length.
func Quality(measured, model []float64) Fit {
	if len(measured) == 0 || len(measured) != len(model) {
		return Fit{R2: math.NaN(), RMSE: math.NaN(), SSE: math.NaN()}
	}
	dist := floats.Distance(measured, model, 2)
	return Fit{
		R2:   stat.RSquaredFrom(model, measured, nil),
		RMSE: dist / math.Sqrt(float64(len(measured))),
		SSE:  dist * dist,
	}
}

// SSE is the sum of squared residuals between two equal-length curves.
func SSE(measured, model []float64) float64 {
	d := floats.Distance(measured, model, 2)
	return d * d
}
