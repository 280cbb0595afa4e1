package sim

import (
	"math"

	"github.com/san-kum/pidlab/internal/dynamo"
)

// UniformGrid returns n+1 evenly spaced instants from 0 to duration.
func UniformGrid(duration float64, n int) ([]float64, error) {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, dynamo.InvalidParam("grid", "duration", duration, "duration must be positive and finite")
	}
	if n < 1 {
		return nil, dynamo.InvalidParam("grid", "n", float64(n), "need at least one interval")
	}
	grid := make([]float64, n+1)
	dt := duration / float64(n)
	for i := range grid {
		grid[i] = float64(i) * dt
	}
	grid[n] = duration
	return grid, nil
}
