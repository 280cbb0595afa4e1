package sim

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/integrators"
	"github.com/san-kum/pidlab/internal/logger"
	"github.com/san-kum/pidlab/internal/tf"
	"gonum.org/v1/gonum/mat"
)

const (
	MethodExact = "exact"
	MethodRK4   = "rk4"
	MethodRK45  = "rk45"
	MethodEuler = "euler"
)

// Methods lists the accepted simulation methods.
func Methods() []string {
	return []string{MethodExact, MethodRK4, MethodRK45, MethodEuler}
}

// Poles whose real part is at least -stabilityMargin count as unstable.
const stabilityMargin = 1e-9

type Config struct {
	Method    string
	MaxStep   float64
	Tolerance float64
}

func DefaultConfig() Config {
	return Config{
		Method:    MethodExact,
		Tolerance: 1e-8,
	}
}

// Observer is notified once per completed simulation.
type Observer interface {
	OnSimulation(method string, elapsed time.Duration, unstable bool)
}

// Response is a simulated step response.
type Response struct {
	dynamo.Signal
	Amplitude float64
	Poles     []complex128
	// Warning is a *dynamo.UnstableError when a pole lies in the closed
	// right half-plane, nil otherwise.
	Warning error
}

func (r *Response) Unstable() bool {
	return r.Warning != nil
}

type Simulator struct {
	cfg       Config
	observers []Observer
}

func New(cfg Config) *Simulator {
	if cfg.Method == "" {
		cfg.Method = MethodExact
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 1e-8
	}
	return &Simulator{cfg: cfg, observers: make([]Observer, 0)}
}

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// StepResponse simulates g over the default exact method.
func StepResponse(g tf.TF, grid []float64, amplitude float64) (*Response, error) {
	return New(DefaultConfig()).Step(context.Background(), g, grid, amplitude)
}

// Step returns the response of g to a step of the given amplitude applied
// at t=0, sampled at every grid instant. Samples before t=0 are zero.
func (s *Simulator) Step(ctx context.Context, g tf.TF, grid []float64, amplitude float64) (*Response, error) {
	if err := s.validate(grid, amplitude); err != nil {
		return nil, err
	}
	ss, err := Realize(g)
	if err != nil {
		return nil, err
	}

	poles, err := g.Poles()
	if err != nil {
		return nil, fmt.Errorf("sim: poles: %w", err)
	}

	start := time.Now()

	var values []float64
	switch s.cfg.Method {
	case MethodExact:
		values, err = s.runExact(ctx, ss, grid, amplitude)
	case MethodRK4, MethodRK45, MethodEuler:
		values, err = s.runIntegrator(ctx, ss, poles, grid, amplitude)
	default:
		return nil, dynamo.InvalidParam("sim", "method", 0, fmt.Sprintf("unknown method %q", s.cfg.Method))
	}
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Signal:    dynamo.Signal{Times: append([]float64(nil), grid...), Values: values},
		Amplitude: amplitude,
		Poles:     poles,
	}
	if unstable := unstablePoles(poles); len(unstable) > 0 {
		resp.Warning = &dynamo.UnstableError{Poles: unstable}
		logger.Warn("%v", resp.Warning)
	}

	elapsed := time.Since(start)
	for _, o := range s.observers {
		o.OnSimulation(s.cfg.Method, elapsed, resp.Unstable())
	}
	return resp, nil
}

func (s *Simulator) validate(grid []float64, amplitude float64) error {
	if err := dynamo.ValidateGrid(grid); err != nil {
		return err
	}
	if math.IsNaN(amplitude) || math.IsInf(amplitude, 0) {
		return dynamo.InvalidParam("sim", "amplitude", amplitude, "amplitude must be finite")
	}
	if s.cfg.MaxStep < 0 {
		return dynamo.InvalidParam("sim", "max_step", s.cfg.MaxStep, "max step must be non-negative")
	}
	return nil
}

func unstablePoles(poles []complex128) []complex128 {
	var out []complex128
	for _, p := range poles {
		if real(p) >= -stabilityMargin {
			out = append(out, p)
		}
	}
	return out
}

func (s *Simulator) runExact(ctx context.Context, ss *StateSpace, grid []float64, amplitude float64) ([]float64, error) {
	values := make([]float64, len(grid))
	n := ss.StateDim()
	if n == 0 {
		for i, t := range grid {
			if t >= 0 {
				values[i] = ss.D * amplitude
			}
		}
		return values, nil
	}

	type zoh struct {
		phi   *mat.Dense
		gamma *mat.VecDense
	}
	cache := make(map[float64]zoh)

	x := mat.NewVecDense(n, nil)
	var next mat.VecDense
	prev := 0.0

	for i, t := range grid {
		if i%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		if t < 0 {
			continue
		}
		if h := t - prev; h > 0 {
			d, ok := cache[h]
			if !ok {
				phi, gamma := ss.Discretize(h)
				d = zoh{phi, gamma}
				cache[h] = d
			}
			next.MulVec(d.phi, x)
			next.AddScaledVec(&next, amplitude, d.gamma)
			x.CopyVec(&next)
		}
		prev = t
		values[i] = ss.Output(dynamo.State(x.RawVector().Data), amplitude)
	}
	return values, nil
}

func (s *Simulator) runIntegrator(ctx context.Context, ss *StateSpace, poles []complex128, grid []float64, amplitude float64) ([]float64, error) {
	values := make([]float64, len(grid))
	maxStep := s.maxStep(poles)
	u := dynamo.Control{amplitude}

	var (
		integ    dynamo.Integrator
		adaptive dynamo.AdaptiveIntegrator
	)
	switch s.cfg.Method {
	case MethodRK4:
		integ = integrators.NewRK4()
	case MethodRK45:
		adaptive = integrators.NewRK45()
	default:
		integ = integrators.NewEuler()
	}

	x := make(dynamo.State, ss.StateDim())
	prev := 0.0

	for i, t := range grid {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if t < 0 {
			continue
		}
		if h := t - prev; h > 0 && len(x) > 0 {
			if adaptive != nil {
				var err error
				x, err = adaptive.Advance(ss, x, u, prev, h, math.Min(h, maxStep), s.cfg.Tolerance)
				if err != nil {
					return nil, fmt.Errorf("sim: t=%.4g: %w", t, err)
				}
			} else {
				x = substep(integ, ss, x, u, prev, h, maxStep)
			}
		}
		prev = t
		values[i] = ss.Output(x, amplitude)
	}
	return values, nil
}

func substep(integ dynamo.Integrator, ss *StateSpace, x dynamo.State, u dynamo.Control, t, h, maxStep float64) dynamo.State {
	steps := int(math.Ceil(h / maxStep))
	if steps < 1 {
		steps = 1
	}
	dt := h / float64(steps)
	if ip, ok := integ.(inPlaceStepper); ok {
		x = x.Clone()
		for k := 0; k < steps; k++ {
			ip.StepInto(x, ss, x, u, t+float64(k)*dt, dt)
		}
		return x
	}
	for k := 0; k < steps; k++ {
		x = integ.Step(ss, x, u, t+float64(k)*dt, dt)
	}
	return x
}

// inPlaceStepper is implemented by the fixed-step integrators that can
// write into an existing state.
type inPlaceStepper interface {
	StepInto(dst dynamo.State, dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State
}

// maxStep bounds the integration step so that h·|λ| stays inside the
// stability region of the explicit methods for the fastest pole.
func (s *Simulator) maxStep(poles []complex128) float64 {
	limit := math.Inf(1)
	if s.cfg.MaxStep > 0 {
		limit = s.cfg.MaxStep
	}
	fastest := 0.0
	for _, p := range poles {
		fastest = math.Max(fastest, cmplx.Abs(p))
	}
	if fastest > 0 {
		factor := 0.5
		if s.cfg.Method == MethodEuler {
			factor = 0.1
		}
		limit = math.Min(limit, factor/fastest)
	}
	return limit
}
