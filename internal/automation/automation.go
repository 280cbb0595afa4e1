// Package automation runs scripted batches of pipeline runs and gain
// sweeps over one identified model.
package automation

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/pidlab/internal/analysis"
	"github.com/san-kum/pidlab/internal/closedloop"
	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/experiment"
	"github.com/san-kum/pidlab/internal/logger"
	"github.com/san-kum/pidlab/internal/metrics"
	"github.com/san-kum/pidlab/internal/sim"
	"gopkg.in/yaml.v3"
)

// Scenario is a named list of pipeline runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep overrides the base configuration for one run. Zero values
// leave the base untouched; Preset replaces the base before the other
// fields apply.
type ScenarioStep struct {
	Name      string   `yaml:"name"`
	Preset    string   `yaml:"preset"`
	Dataset   string   `yaml:"dataset"`
	Method    string   `yaml:"method"`
	Refine    *bool    `yaml:"refine"`
	PadeOrder int      `yaml:"pade_order"`
	Rule      string   `yaml:"rule"`
	Kp        *float64 `yaml:"kp"`
	Ti        *float64 `yaml:"ti"`
	Td        *float64 `yaml:"td"`
	Setpoint  *float64 `yaml:"setpoint"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Config applies the step to a copy of base and validates the result.
func (s ScenarioStep) Config(base *config.Config) (*config.Config, error) {
	cp := *base
	cfg := &cp
	if s.Preset != "" {
		plant, name, _ := strings.Cut(s.Preset, "/")
		p := config.GetPreset(plant, name)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q", s.Preset)
		}
		cfg = p
	}
	if s.Dataset != "" {
		cfg.Dataset.Path = s.Dataset
	}
	if s.Method != "" {
		cfg.Identification.Method = s.Method
	}
	if s.Refine != nil {
		cfg.Identification.Refine = *s.Refine
	}
	if s.PadeOrder != 0 {
		cfg.Model.PadeOrder = s.PadeOrder
	}
	if s.Rule != "" {
		cfg.Tuning.Rule = s.Rule
	}
	if s.Kp != nil {
		cfg.Tuning.Kp = *s.Kp
	}
	if s.Ti != nil {
		cfg.Tuning.Ti = *s.Ti
	}
	if s.Td != nil {
		cfg.Tuning.Td = *s.Td
	}
	if s.Setpoint != nil {
		cfg.Setpoint = *s.Setpoint
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunScenario executes all steps in order and stops at the first failure,
// returning the results gathered so far.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, observers ...sim.Observer) ([]*experiment.Result, error) {
	results := make([]*experiment.Result, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		label := step.Name
		if label == "" {
			label = fmt.Sprintf("step %d", i+1)
		}
		logger.Info("running %s (%d/%d)", label, i+1, len(scenario.Steps))

		cfg, err := step.Config(base)
		if err != nil {
			return results, fmt.Errorf("%s: %w", label, err)
		}
		rec, err := experiment.Recording(cfg)
		if err != nil {
			return results, fmt.Errorf("%s: %w", label, err)
		}
		result, err := experiment.Run(ctx, cfg, rec, observers...)
		if err != nil {
			return results, fmt.Errorf("%s: %w", label, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// ParameterSweep varies one controller parameter (Kp, Ti or Td) around the
// gains of a finished run.
type ParameterSweep struct {
	Param    string
	Min      float64
	Max      float64
	NumSteps int
}

// SweepResult is the closed-loop outcome for one parameter value.
type SweepResult struct {
	Value       float64
	Gains       control.Gains
	Performance analysis.Performance
	IAE         float64
	Unstable    bool
}

// RunSweep re-closes the loop of res for every sweep value. The points are
// simulated concurrently and returned in ascending parameter order.
func RunSweep(ctx context.Context, s *sim.Simulator, res *experiment.Result, sweep ParameterSweep, tolerance float64) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, dynamo.InvalidParam("sweep", "steps", float64(sweep.NumSteps), "need at least two points")
	}
	if !(sweep.Max > sweep.Min) {
		return nil, dynamo.InvalidParam("sweep", "max", sweep.Max, "must exceed min")
	}
	if _, ok := res.Gains.GetParams()[sweep.Param]; !ok {
		return nil, fmt.Errorf("sweep: unknown parameter %q", sweep.Param)
	}

	step := (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)
	out := make([]SweepResult, sweep.NumSteps)
	err := dynamo.ForEach(ctx, sweep.NumSteps, func(ctx context.Context, i int) error {
		value := sweep.Min + float64(i)*step
		gains, err := res.Gains.SetParam(sweep.Param, value)
		if err != nil {
			return fmt.Errorf("%s=%g: %w", sweep.Param, value, err)
		}
		cl, err := closedloop.CloseLoop(ctx, s, closedloop.Loop{
			Gains:    gains,
			OpenLoop: res.OpenLoopTF,
			Setpoint: res.Setpoint,
		}, res.Measured.Times)
		if err != nil {
			return fmt.Errorf("%s=%g: %w", sweep.Param, value, err)
		}
		perf, err := analysis.Analyze(cl.Response.Signal, res.Setpoint, tolerance)
		if err != nil {
			return fmt.Errorf("%s=%g: %w", sweep.Param, value, err)
		}
		iae := metrics.Evaluate(cl.Response.Signal, metrics.NewIAE(res.Setpoint))
		out[i] = SweepResult{
			Value:       value,
			Gains:       gains,
			Performance: perf,
			IAE:         iae["iae"],
			Unstable:    cl.Response.Unstable(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
