// Package closedloop assembles and simulates a PID loop around an
// open-loop model under unity feedback.
package closedloop

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/sim"
	"github.com/san-kum/pidlab/internal/tf"
)

// Loop describes one closed-loop simulation request.
type Loop struct {
	Gains    control.Gains
	OpenLoop tf.TF
	Setpoint float64
}

type Result struct {
	TF       tf.TF
	Response *sim.Response
}

// Build returns C·G/(1 + C·G) for the PID controller C and plant G.
func Build(g control.Gains, openLoop tf.TF) (tf.TF, error) {
	forward := tf.Series(g.TransferFunction(), openLoop)
	closed, err := tf.UnityFeedback(forward)
	if err != nil {
		return tf.TF{}, fmt.Errorf("close loop: %w", err)
	}
	return closed, nil
}

// CloseLoop builds the closed loop and simulates its response to a step of
// height Setpoint over grid. The transfer function is returned alongside
// the curve so callers can resample it.
func CloseLoop(ctx context.Context, s *sim.Simulator, loop Loop, grid []float64) (*Result, error) {
	if math.IsNaN(loop.Setpoint) || math.IsInf(loop.Setpoint, 0) {
		return nil, dynamo.InvalidParam("close loop", "setpoint", loop.Setpoint, "setpoint must be finite")
	}
	closed, err := Build(loop.Gains, loop.OpenLoop)
	if err != nil {
		return nil, err
	}
	resp, err := s.Step(ctx, closed, grid, loop.Setpoint)
	if err != nil {
		return nil, fmt.Errorf("close loop: simulate: %w", err)
	}
	return &Result{TF: closed, Response: resp}, nil
}
