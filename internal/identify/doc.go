// Package identify estimates first-order-plus-dead-time models from a
// measured step response.
//
// Two graphical methods are provided. [Smith] reads the times at which the
// response first reaches 28.3 % and 63.2 % of its total change, taking the
// first sample at or above each level. [Sundaresan] linearly interpolates
// the times at 35.3 % and 85.3 % of the normalized response.
//
// Both assume the response moves toward its final value more or less
// monotonically. Results on responses that cross a level more than once are
// well defined (first crossing for Smith, numpy-style interpolation for
// Sundaresan) but carry no physical meaning.
//
// [Refine] improves an initial estimate by least squares against the
// measured curve.
package identify
