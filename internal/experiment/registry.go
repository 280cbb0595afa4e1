package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/identify"
	"github.com/san-kum/pidlab/internal/metrics"
)

// Registry resolves the named stages of the pipeline.
type Registry struct {
	identifiers map[string]func() identify.Method
	tuners      map[string]func(control.Manual) control.Tuner
}

func NewRegistry() *Registry {
	r := &Registry{
		identifiers: make(map[string]func() identify.Method),
		tuners:      make(map[string]func(control.Manual) control.Tuner),
	}

	for _, name := range identify.List() {
		name := name
		r.identifiers[name] = func() identify.Method {
			m, _ := identify.Lookup(name)
			return m
		}
	}

	r.tuners[control.RuleZieglerNichols] = func(control.Manual) control.Tuner {
		return control.TunerFunc(control.ZieglerNichols)
	}
	r.tuners[control.RuleCohenCoon] = func(control.Manual) control.Tuner {
		return control.TunerFunc(control.CohenCoon)
	}
	r.tuners[control.RuleManual] = func(m control.Manual) control.Tuner {
		return m
	}

	return r
}

// GetIdentifier accepts method labels in any case.
func (r *Registry) GetIdentifier(name string) (identify.Method, error) {
	fn, ok := r.identifiers[identify.Canonical(name)]
	if !ok {
		return nil, fmt.Errorf("unknown identification method: %s", name)
	}
	return fn(), nil
}

// GetTuner accepts any rule label understood by control.ParseRule.
func (r *Registry) GetTuner(label string, manual control.Manual) (control.Tuner, error) {
	rule, err := control.ParseRule(label)
	if err != nil {
		return nil, err
	}
	fn, ok := r.tuners[rule]
	if !ok {
		return nil, fmt.Errorf("unknown tuning rule: %s", label)
	}
	return fn(manual), nil
}

func (r *Registry) ListIdentifiers() []string {
	return sortedKeys(r.identifiers)
}

func (r *Registry) ListRules() []string {
	return sortedKeys(r.tuners)
}

// DefaultMetrics are evaluated on every closed-loop response. The
// bounded guard flags samples beyond ten times the setpoint.
func (r *Registry) DefaultMetrics(setpoint float64) []metrics.Metric {
	limit := 10 * setpoint
	if limit == 0 {
		limit = 10
	}
	return append(metrics.Standard(setpoint), metrics.NewBounded(limit))
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
