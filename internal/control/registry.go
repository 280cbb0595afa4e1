package control

import (
	"fmt"
	"strings"
)

const (
	RuleZieglerNichols = "ziegler-nichols"
	RuleCohenCoon      = "cohen-coon"
	RuleManual         = "manual"
)

// Rules lists the canonical rule names.
func Rules() []string {
	return []string{RuleZieglerNichols, RuleCohenCoon, RuleManual}
}

var aliases = map[string]string{
	"ziegler-nichols": RuleZieglerNichols,
	"ziegler nichols": RuleZieglerNichols,
	"zn":              RuleZieglerNichols,
	"cohen-coon":      RuleCohenCoon,
	"cohen coon":      RuleCohenCoon,
	"cohen & coon":    RuleCohenCoon,
	"cc":              RuleCohenCoon,
	"manual":          RuleManual,
}

// ParseRule maps a rule label ("Ziegler-Nichols", "Cohen & Coon", "zn", ...)
// to its canonical name.
func ParseRule(label string) (string, error) {
	key := strings.ToLower(strings.Join(strings.Fields(label), " "))
	if rule, ok := aliases[key]; ok {
		return rule, nil
	}
	return "", fmt.Errorf("unknown tuning rule %q (available: %s)", label, strings.Join(Rules(), ", "))
}

// New returns the tuner for a rule label. manual is used only by the
// manual rule.
func New(label string, manual Manual) (Tuner, error) {
	rule, err := ParseRule(label)
	if err != nil {
		return nil, err
	}
	switch rule {
	case RuleZieglerNichols:
		return TunerFunc(ZieglerNichols), nil
	case RuleCohenCoon:
		return TunerFunc(CohenCoon), nil
	default:
		return manual, nil
	}
}
