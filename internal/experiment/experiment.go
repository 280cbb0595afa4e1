package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/pidlab/internal/analysis"
	"github.com/san-kum/pidlab/internal/closedloop"
	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dataset"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/identify"
	"github.com/san-kum/pidlab/internal/logger"
	"github.com/san-kum/pidlab/internal/metrics"
	"github.com/san-kum/pidlab/internal/optim"
	"github.com/san-kum/pidlab/internal/sim"
	"github.com/san-kum/pidlab/internal/tf"
)

// RunObserver is notified after every pipeline run. Observers passed to
// Setup that also implement it receive both notifications.
type RunObserver interface {
	OnRun(rule string, elapsed time.Duration, err error)
}

// Identification is the model-fitting half of a run, shared by every
// tuning rule in a comparison.
type Identification struct {
	Method     string               `json:"method"`
	Step       identify.Step        `json:"step"`
	Model      dynamo.FOPDT         `json:"model"`
	Refinement *identify.Refinement `json:"refinement,omitempty"`
	Fit        optim.Fit            `json:"fit"`
	OpenLoopTF tf.TF                `json:"-"`
	OpenLoop   *sim.Response        `json:"-"`
	OpenPerf   analysis.Performance `json:"open_loop"`
}

// Result bundles every stage output of one pipeline run.
type Result struct {
	Identification
	Measured   dynamo.Signal        `json:"-"`
	Rule       string               `json:"rule"`
	Gains      control.Gains        `json:"gains"`
	Setpoint   float64              `json:"setpoint"`
	ClosedTF   tf.TF                `json:"-"`
	ClosedLoop *sim.Response        `json:"-"`
	ClosedPerf analysis.Performance `json:"closed_loop"`
	Metrics    map[string]float64   `json:"metrics"`
	Warnings   []string             `json:"warnings,omitempty"`
	Elapsed    time.Duration        `json:"elapsed"`
}

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	simulator *sim.Simulator
	runObs    []RunObserver
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
	}
}

// Setup validates the configuration and builds the simulator.
func (e *Experiment) Setup(observers ...sim.Observer) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	e.simulator = sim.New(e.cfg.SimulatorConfig())
	for _, o := range observers {
		e.simulator.AddObserver(o)
		if ro, ok := o.(RunObserver); ok {
			e.runObs = append(e.runObs, ro)
		}
	}
	return nil
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

// Run executes identify → open loop → tune → closed loop → analyze with
// the configured tuning rule.
func (e *Experiment) Run(ctx context.Context, rec *dataset.Recording) (*Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	id, err := e.Identify(ctx, rec)
	if err != nil {
		return nil, err
	}
	return e.tune(ctx, rec, id, e.cfg.Tuning.Rule)
}

// Compare identifies once and runs every rule concurrently. Results are
// returned in rule order.
func (e *Experiment) Compare(ctx context.Context, rec *dataset.Recording, rules []string) ([]*Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	for _, label := range rules {
		rule, err := control.ParseRule(label)
		if err != nil {
			return nil, err
		}
		if rule == control.RuleManual {
			if _, err := e.cfg.ManualGains().Gains(); err != nil {
				return nil, err
			}
		}
	}
	id, err := e.Identify(ctx, rec)
	if err != nil {
		return nil, err
	}
	out := make([]*Result, len(rules))
	err = dynamo.ForEach(ctx, len(rules), func(ctx context.Context, i int) error {
		r, err := e.tune(ctx, rec, id, rules[i])
		if err != nil {
			return fmt.Errorf("%s: %w", rules[i], err)
		}
		out[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Identify fits the FOPDT model and simulates the open loop.
func (e *Experiment) Identify(ctx context.Context, rec *dataset.Recording) (*Identification, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	sig := rec.Response()

	method, err := e.registry.GetIdentifier(e.cfg.Identification.Method)
	if err != nil {
		return nil, err
	}
	step := e.cfg.InputStep()
	if e.cfg.Identification.UseInputStep {
		step = rec.InputStep()
	}

	model, err := method(sig, step)
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}
	id := &Identification{Method: identify.Canonical(e.cfg.Identification.Method), Step: step, Model: model}

	if e.cfg.Identification.Refine {
		r, err := identify.Refine(ctx, sig, model, step)
		if err != nil {
			return nil, fmt.Errorf("identify: %w", err)
		}
		id.Refinement = r
		id.Model = r.Model
	}
	id.Fit = identify.Evaluate(sig, id.Model, step)
	logger.Info("identified %s model k=%.4g tau=%.4g theta=%.4g (R²=%.4f)",
		id.Method, id.Model.Gain, id.Model.TimeConstant, id.Model.DeadTime, id.Fit.R2)

	id.OpenLoopTF, err = tf.FromFOPDT(id.Model, e.cfg.Model.PadeOrder)
	if err != nil {
		return nil, fmt.Errorf("open loop: %w", err)
	}
	id.OpenLoop, err = e.simulator.Step(ctx, id.OpenLoopTF, rec.Time, step.Size())
	if err != nil {
		return nil, fmt.Errorf("open loop: %w", err)
	}
	id.OpenPerf, err = analysis.Analyze(id.OpenLoop.Signal, e.cfg.Analysis.Reference, e.cfg.Analysis.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("open loop: %w", err)
	}
	return id, nil
}

func (e *Experiment) tune(ctx context.Context, rec *dataset.Recording, id *Identification, rule string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		for _, o := range e.runObs {
			o.OnRun(rule, time.Since(start), err)
		}
	}()

	tuner, err := e.registry.GetTuner(rule, e.cfg.ManualGains())
	if err != nil {
		return nil, err
	}
	gains, err := tuner.Tune(id.Model)
	if err != nil {
		return nil, fmt.Errorf("tune: %w", err)
	}

	cl, err := closedloop.CloseLoop(ctx, e.simulator, closedloop.Loop{
		Gains:    gains,
		OpenLoop: id.OpenLoopTF,
		Setpoint: e.cfg.Setpoint,
	}, rec.Time)
	if err != nil {
		return nil, err
	}
	perf, err := analysis.Analyze(cl.Response.Signal, e.cfg.Setpoint, e.cfg.Analysis.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("closed loop: %w", err)
	}

	canonical, _ := control.ParseRule(rule)
	res = &Result{
		Identification: *id,
		Measured:       rec.Response(),
		Rule:           canonical,
		Gains:          gains,
		Setpoint:       e.cfg.Setpoint,
		ClosedTF:       cl.TF,
		ClosedLoop:     cl.Response,
		ClosedPerf:     perf,
		Metrics:        metrics.Evaluate(cl.Response.Signal, e.registry.DefaultMetrics(e.cfg.Setpoint)...),
	}
	for _, w := range []error{id.OpenLoop.Warning, cl.Response.Warning} {
		if w != nil {
			res.Warnings = append(res.Warnings, w.Error())
		}
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// Run is shorthand for New, Setup and Run.
func Run(ctx context.Context, cfg *config.Config, rec *dataset.Recording, observers ...sim.Observer) (*Result, error) {
	e := New(cfg)
	if err := e.Setup(observers...); err != nil {
		return nil, err
	}
	return e.Run(ctx, rec)
}

// Compare is shorthand for New, Setup and Compare.
func Compare(ctx context.Context, cfg *config.Config, rec *dataset.Recording, rules []string, observers ...sim.Observer) ([]*Result, error) {
	e := New(cfg)
	if err := e.Setup(observers...); err != nil {
		return nil, err
	}
	return e.Compare(ctx, rec, rules)
}

// Recording returns the configured dataset, or a synthetic recording of
// the configured plant when no path is set.
func Recording(cfg *config.Config) (*dataset.Recording, error) {
	if cfg.Dataset.Path != "" {
		return dataset.LoadCSV(cfg.Dataset.Path, dataset.Columns{
			Time:   cfg.Dataset.TimeColumn,
			Input:  cfg.Dataset.InputColumn,
			Output: cfg.Dataset.OutputColumn,
		})
	}
	return dataset.Synthetic(dataset.Plant{
		Model:    cfg.PlantModel(),
		Step:     identify.Step{U0: cfg.Plant.U0, UF: cfg.Plant.UF},
		Duration: cfg.Plant.Duration,
		Samples:  cfg.Plant.Samples,
		Noise:    cfg.Plant.Noise,
		Seed:     cfg.Plant.Seed,
	})
}
