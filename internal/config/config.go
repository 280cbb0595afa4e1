package config

import (
	"fmt"
	"math"
	"os"

	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/identify"
	"github.com/san-kum/pidlab/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSetpoint  = 100.0
	DefaultReference = 1.0
	DefaultTolerance = 0.02
	DefaultPadeOrder = 1
	DefaultSamples   = 1000
)

type Config struct {
	Dataset        DatasetConfig        `yaml:"dataset"`
	Plant          PlantConfig          `yaml:"plant"`
	Identification IdentificationConfig `yaml:"identification"`
	Model          ModelConfig          `yaml:"model"`
	Tuning         TuningConfig         `yaml:"tuning"`
	Setpoint       float64              `yaml:"setpoint"`
	Analysis       AnalysisConfig       `yaml:"analysis"`
	Simulation     SimulationConfig     `yaml:"simulation"`
}

// DatasetConfig locates the step-response recording and names its columns.
type DatasetConfig struct {
	Path         string `yaml:"path"`
	TimeColumn   string `yaml:"time_column"`
	InputColumn  string `yaml:"input_column"`
	OutputColumn string `yaml:"output_column"`
}

// PlantConfig describes a synthetic FOPDT plant, used by `pidlab synth`
// and whenever no dataset path is configured.
type PlantConfig struct {
	Gain         float64 `yaml:"k"`
	TimeConstant float64 `yaml:"tau"`
	DeadTime     float64 `yaml:"theta"`
	Duration     float64 `yaml:"duration"`
	Samples      int     `yaml:"samples"`
	U0           float64 `yaml:"u0"`
	UF           float64 `yaml:"uf"`
	Noise        float64 `yaml:"noise"`
	Seed         int64   `yaml:"seed"`
}

type IdentificationConfig struct {
	Method string  `yaml:"method"`
	U0     float64 `yaml:"u0"`
	UF     float64 `yaml:"uf"`
	// UseInputStep reads u0/uf from the first and last input samples.
	UseInputStep bool `yaml:"use_input_step"`
	Refine       bool `yaml:"refine"`
}

type ModelConfig struct {
	PadeOrder int `yaml:"pade_order"`
}

type TuningConfig struct {
	Rule string  `yaml:"rule"`
	Kp   float64 `yaml:"kp"`
	Ti   float64 `yaml:"ti"`
	Td   float64 `yaml:"td"`
}

type AnalysisConfig struct {
	Reference float64 `yaml:"reference"`
	Tolerance float64 `yaml:"tolerance"`
}

type SimulationConfig struct {
	Method    string  `yaml:"method"`
	MaxStep   float64 `yaml:"max_step"`
	Tolerance float64 `yaml:"tolerance"`
}

func DefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			TimeColumn:   "time",
			InputColumn:  "input",
			OutputColumn: "output",
		},
		Plant: PlantConfig{
			Gain:         2,
			TimeConstant: 5,
			DeadTime:     1,
			Duration:     60,
			Samples:      DefaultSamples,
			U0:           0,
			UF:           1,
		},
		Identification: IdentificationConfig{
			Method: identify.MethodSmith,
			U0:     0,
			UF:     1,
		},
		Model: ModelConfig{PadeOrder: DefaultPadeOrder},
		Tuning: TuningConfig{
			Rule: control.RuleZieglerNichols,
			Kp:   1,
			Ti:   1,
			Td:   0,
		},
		Setpoint: DefaultSetpoint,
		Analysis: AnalysisConfig{
			Reference: DefaultReference,
			Tolerance: DefaultTolerance,
		},
		Simulation: SimulationConfig{
			Method:    sim.MethodExact,
			Tolerance: 1e-8,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base, so keys missing from the file keep
// the values of base. base is modified in place and returned.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks names against the registries and numeric ranges against
// what the pipeline accepts.
func (c *Config) Validate() error {
	if _, err := identify.Lookup(c.Identification.Method); err != nil {
		return err
	}
	rule, err := control.ParseRule(c.Tuning.Rule)
	if err != nil {
		return err
	}
	if rule == control.RuleManual {
		if _, err := c.ManualGains().Gains(); err != nil {
			return err
		}
	}
	if !validMethod(c.Simulation.Method) {
		return fmt.Errorf("unknown simulation method %q", c.Simulation.Method)
	}
	if c.Model.PadeOrder < 1 {
		return dynamo.InvalidParam("config", "model.pade_order", float64(c.Model.PadeOrder), "order must be at least 1")
	}
	if !finite(c.Setpoint) {
		return dynamo.InvalidParam("config", "setpoint", c.Setpoint, "must be finite")
	}
	if !finite(c.Analysis.Reference) {
		return dynamo.InvalidParam("config", "analysis.reference", c.Analysis.Reference, "must be finite")
	}
	if !finite(c.Analysis.Tolerance) || c.Analysis.Tolerance < 0 {
		return dynamo.InvalidParam("config", "analysis.tolerance", c.Analysis.Tolerance, "must be non-negative")
	}
	if c.Simulation.MaxStep < 0 {
		return dynamo.InvalidParam("config", "simulation.max_step", c.Simulation.MaxStep, "must be non-negative")
	}
	return nil
}

// InputStep returns the configured input step for identification.
func (c *Config) InputStep() identify.Step {
	return identify.Step{U0: c.Identification.U0, UF: c.Identification.UF}
}

// ManualGains returns the manual tuning entry.
func (c *Config) ManualGains() control.Manual {
	return control.Manual{Kp: c.Tuning.Kp, Ti: c.Tuning.Ti, Td: c.Tuning.Td}
}

// PlantModel returns the synthetic plant parameters.
func (c *Config) PlantModel() dynamo.FOPDT {
	return dynamo.FOPDT{
		Gain:         c.Plant.Gain,
		TimeConstant: c.Plant.TimeConstant,
		DeadTime:     c.Plant.DeadTime,
	}
}

// SimulatorConfig maps the simulation section onto the simulator options.
func (c *Config) SimulatorConfig() sim.Config {
	return sim.Config{
		Method:    c.Simulation.Method,
		MaxStep:   c.Simulation.MaxStep,
		Tolerance: c.Simulation.Tolerance,
	}
}

func validMethod(name string) bool {
	for _, m := range sim.Methods() {
		if m == name {
			return true
		}
	}
	return false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
