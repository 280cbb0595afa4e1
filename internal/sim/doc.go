// Package sim computes step responses of transfer functions.
//
// A [tf.TF] is realized in controllable canonical form ([StateSpace]) and
// driven by a step of the requested amplitude applied at t=0. The default
// method is exact for a step input on any grid: each interval is advanced
// with the zero-order-hold transition e^(Ah) computed by gonum's matrix
// exponential. The fixed and adaptive Runge-Kutta steppers (euler, rk4,
// rk45) are available as alternative methods.
//
// Unstable models are simulated anyway; the [Response] carries a warning
// that wraps [dynamo.ErrUnstable].
package sim
