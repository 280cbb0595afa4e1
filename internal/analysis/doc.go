// Package analysis extracts time-domain performance figures from a step
// response.
//
// [Analyze] reports rise time (10 % to 90 % of the final value), settling
// time inside a relative tolerance band, steady-state error against a
// reference, and the peak with its overshoot:
//
//	perf, err := analysis.Analyze(resp.Signal, 1.0, 0.02)
//	if !perf.RiseTimeDefined {
//	    // the response never crossed the 10 % / 90 % levels
//	}
//
// Thresholds are found by index: the first sample at or above a level,
// without interpolation between samples.
package analysis
