// Package dynamo provides the shared primitives of the identification and
// tuning pipeline.
//
// The package defines the value types passed between stages and the
// interfaces the numerical stages are written against:
//
//   - [Signal]: sampled (time, value) curve, measured or simulated
//   - [FOPDT]: first-order-plus-dead-time model parameters (k, τ, θ)
//   - [State], [System]: continuous-time state vector and dX/dt = f(X, u, t)
//   - [Integrator], [AdaptiveIntegrator]: numerical steppers for a [System]
//
// Every stage is a pure transform: values are produced once and never
// mutated afterwards, so curves and models may be shared across goroutines.
//
// # Errors
//
// Failures are reported with the sentinel errors in errors.go. Use
// errors.Is to classify them:
//
//	if errors.Is(err, dynamo.ErrInvalidParameter) {
//	    // a formula precondition was violated
//	}
package dynamo
