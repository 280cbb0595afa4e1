package control

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pidlab/internal/dynamo"
)

var plant = dynamo.FOPDT{Gain: 2, TimeConstant: 5, DeadTime: 1}

func TestZieglerNichols(t *testing.T) {
	g, err := ZieglerNichols(plant)
	if err != nil {
		t.Fatal(err)
	}
	want := Gains{Kp: 3, Ti: 2, Td: 0.5, Ki: 1.5, Kd: 1.5}
	assertGains(t, g, want)
}

func TestCohenCoon(t *testing.T) {
	g, err := CohenCoon(plant)
	if err != nil {
		t.Fatal(err)
	}
	r := 0.2
	kp := (5.0 / 2.0) * (83.0 / 60.0)
	ti := (32 + 6*r) / (13 + 8*r)
	td := 4 / (11 + 2*r)
	assertGains(t, g, Gains{Kp: kp, Ti: ti, Td: td, Ki: kp / ti, Kd: kp * td})
}

func TestManualRoundTrip(t *testing.T) {
	tests := []struct {
		kp, ti, td float64
	}{
		{1.2, 3.4, 0.5},
		{-2, 0.1, 0},
		{0, 1, 1},
		{7.77, 1e-3, 12.5},
	}
	for _, tt := range tests {
		g, err := Manual{Kp: tt.kp, Ti: tt.ti, Td: tt.td}.Tune(plant)
		if err != nil {
			t.Fatal(err)
		}
		if g.Ki != tt.kp/tt.ti || g.Kd != tt.kp*tt.td {
			t.Errorf("(%v, %v, %v): got %+v", tt.kp, tt.ti, tt.td, g)
		}
	}
}

func TestRulesRejectZeroDeadTime(t *testing.T) {
	tuners := map[string]Tuner{
		RuleZieglerNichols: TunerFunc(ZieglerNichols),
		RuleCohenCoon:      TunerFunc(CohenCoon),
		RuleManual:         Manual{Kp: 1, Ti: 1, Td: 0},
	}
	models := []dynamo.FOPDT{
		{Gain: 1, TimeConstant: 1, DeadTime: 0},
		{Gain: -3, TimeConstant: 10, DeadTime: 0},
		{Gain: 0.5, TimeConstant: 0, DeadTime: 0},
		{Gain: 1, TimeConstant: -2, DeadTime: 0},
	}
	for name, tuner := range tuners {
		for _, p := range models {
			_, err := tuner.Tune(p)
			var pe *dynamo.ParameterError
			if !errors.As(err, &pe) || pe.Name != "theta" {
				t.Errorf("%s %+v: expected theta error, got %v", name, p, err)
			}
			if !errors.Is(err, dynamo.ErrInvalidParameter) {
				t.Errorf("%s %+v: expected ErrInvalidParameter, got %v", name, p, err)
			}
		}
	}
}

func TestRulesRejectZeroGain(t *testing.T) {
	p := dynamo.FOPDT{Gain: 0, TimeConstant: 1, DeadTime: 1}
	for _, rule := range []TunerFunc{ZieglerNichols, CohenCoon} {
		if _, err := rule(p); !errors.Is(err, dynamo.ErrInvalidParameter) {
			t.Errorf("expected ErrInvalidParameter, got %v", err)
		}
	}
}

func TestManualRejectsZeroTi(t *testing.T) {
	_, err := Manual{Kp: 1, Ti: 0, Td: 1}.Gains()
	if !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	if _, err := FromTimeConstants(math.NaN(), 1, 1); err == nil {
		t.Error("expected error for NaN kp")
	}
}

func TestFromParallel(t *testing.T) {
	g, err := FromParallel(2, 0.5, 3)
	if err != nil {
		t.Fatal(err)
	}
	assertGains(t, g, Gains{Kp: 2, Ki: 0.5, Kd: 3, Ti: 4, Td: 1.5})

	p, err := FromParallel(2, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(p.Ti, 1) {
		t.Errorf("Ti = %v, want +Inf", p.Ti)
	}
}

func TestTransferFunction(t *testing.T) {
	g, _ := FromTimeConstants(2, 4, 0.25)
	pid := g.TransferFunction()
	want := []float64{0.5, 2, 0.5}
	if len(pid.Num) != len(want) {
		t.Fatalf("num = %v", pid.Num)
	}
	for i := range want {
		if math.Abs(pid.Num[i]-want[i]) > 1e-12 {
			t.Errorf("num = %v, want %v", pid.Num, want)
		}
	}
}

func TestSetParam(t *testing.T) {
	g, _ := FromTimeConstants(1, 2, 3)
	g, err := g.SetParam("Ti", 4)
	if err != nil {
		t.Fatal(err)
	}
	if g.Ki != 0.25 || g.Kd != 3 {
		t.Errorf("got %+v", g)
	}
	if _, err := g.SetParam("Kx", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestSetParamWithoutIntegralAction(t *testing.T) {
	pd, err := FromParallel(2, 0, 1)
	if err != nil {
		t.Fatal(err)
	}

	g, err := pd.SetParam("Kp", 4)
	if err != nil {
		t.Fatal(err)
	}
	if g.Ki != 0 || !math.IsInf(g.Ti, 1) {
		t.Errorf("integral action appeared: %+v", g)
	}
	if g.Kd != 2 || g.Td != 0.5 {
		t.Errorf("Kd = %v Td = %v, want 2 and 0.5", g.Kd, g.Td)
	}

	if g, err = g.SetParam("Td", 1); err != nil || g.Kd != 4 || g.Ki != 0 {
		t.Errorf("SetParam(Td) = %+v, %v", g, err)
	}

	g, err = g.SetParam("Ti", 8)
	if err != nil {
		t.Fatal(err)
	}
	if g.Ki != 0.5 || g.Ti != 8 {
		t.Errorf("finite Ti should restore integral action, got %+v", g)
	}
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Ziegler-Nichols", RuleZieglerNichols},
		{"ziegler nichols", RuleZieglerNichols},
		{"Cohen-Coon", RuleCohenCoon},
		{"Cohen & Coon", RuleCohenCoon},
		{"  Manual ", RuleManual},
		{"ZN", RuleZieglerNichols},
	}
	for _, tt := range tests {
		got, err := ParseRule(tt.label)
		if err != nil || got != tt.want {
			t.Errorf("ParseRule(%q) = %q, %v; want %q", tt.label, got, err, tt.want)
		}
	}
	if _, err := ParseRule("lambda"); err == nil {
		t.Error("expected error for unknown rule")
	}
}

func TestNew(t *testing.T) {
	manual := Manual{Kp: 1, Ti: 2, Td: 0}
	for _, rule := range Rules() {
		tuner, err := New(rule, manual)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tuner.Tune(plant); err != nil {
			t.Errorf("%s: %v", rule, err)
		}
	}
}

func assertGains(t *testing.T, got, want Gains) {
	t.Helper()
	pairs := []struct {
		name      string
		got, want float64
	}{
		{"Kp", got.Kp, want.Kp},
		{"Ki", got.Ki, want.Ki},
		{"Kd", got.Kd, want.Kd},
		{"Ti", got.Ti, want.Ti},
		{"Td", got.Td, want.Td},
	}
	for _, p := range pairs {
		if math.Abs(p.got-p.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", p.name, p.got, p.want)
		}
	}
}
