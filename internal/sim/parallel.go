package sim

import (
	"context"

	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/tf"
)

// Job is one step-response simulation of a batch.
type Job struct {
	Name      string
	Model     tf.TF
	Grid      []float64
	Amplitude float64
}

// RunAll simulates every job concurrently. Responses are returned in job
// order; the first failure cancels the rest.
func (s *Simulator) RunAll(ctx context.Context, jobs []Job) ([]*Response, error) {
	out := make([]*Response, len(jobs))
	err := dynamo.ForEach(ctx, len(jobs), func(ctx context.Context, i int) error {
		r, err := s.Step(ctx, jobs[i].Model, jobs[i].Grid, jobs[i].Amplitude)
		if err != nil {
			return err
		}
		out[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
