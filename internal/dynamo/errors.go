package dynamo

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for identification, tuning and simulation.
var (
	// ErrInvalidParameter indicates a formula precondition was violated
	// (zero or negative τ, θ, k where a division would fail).
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrDegenerateSignal indicates an identification input without a
	// discernible step, e.g. a constant response.
	ErrDegenerateSignal = errors.New("dynamo: degenerate signal")

	// ErrSingularSystem indicates a feedback reduction produced a zero
	// denominator.
	ErrSingularSystem = errors.New("dynamo: singular system")

	// ErrUnstable flags a pole with non-negative real part. It is a
	// warning: the simulation still runs.
	ErrUnstable = errors.New("dynamo: unstable system")

	// ErrStepRejected indicates an adaptive step exceeded its tolerance and
	// must be retried with the suggested timestep.
	ErrStepRejected = errors.New("dynamo: adaptive step rejected")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")
)

// ParameterError names the parameter that broke a precondition.
type ParameterError struct {
	Op     string
	Name   string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: %s=%g: %s", e.Op, e.Name, e.Value, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// InvalidParam is shorthand for building a *ParameterError.
func InvalidParam(op, name string, value float64, reason string) error {
	return &ParameterError{Op: op, Name: name, Value: value, Reason: reason}
}

// UnstableError lists the poles found in the closed right half-plane.
type UnstableError struct {
	Poles []complex128
}

func (e *UnstableError) Error() string {
	parts := make([]string, len(e.Poles))
	for i, p := range e.Poles {
		parts[i] = formatComplex(p)
	}
	return fmt.Sprintf("%s: poles with non-negative real part: %s", ErrUnstable.Error(), strings.Join(parts, ", "))
}

func (e *UnstableError) Unwrap() error {
	return ErrUnstable
}

func formatComplex(c complex128) string {
	if imag(c) == 0 {
		return fmt.Sprintf("%.4g", real(c))
	}
	return fmt.Sprintf("%.4g%+.4gi", real(c), imag(c))
}
