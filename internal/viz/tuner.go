package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/pidlab/internal/analysis"
	"github.com/san-kum/pidlab/internal/closedloop"
	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/experiment"
	"github.com/san-kum/pidlab/internal/sim"
)

const (
	canvasWidth  = 60
	canvasHeight = 18
	adjustStep   = 1.05
)

// Session seeds a live tuning run with the outcome of a pipeline run.
type Session struct {
	Simulator *sim.Simulator
	Result    *experiment.Result
	Manual    control.Manual
	Tolerance float64
	Theme     string
}

type simulatedMsg struct {
	gen  int
	resp *sim.Response
	perf analysis.Performance
	err  error
}

// Tuner is a Bubble Tea model that re-simulates the closed loop every time
// a gain or the setpoint changes.
type Tuner struct {
	ctx     context.Context
	session Session

	rule     string
	gains    control.Gains
	initial  control.Gains
	setpoint float64
	params   []string
	selected int

	gen      int
	resp     *sim.Response
	perf     analysis.Performance
	err      error
	theme    Theme
	canvas   *Canvas
	showHelp bool
}

func NewTuner(ctx context.Context, s Session) Tuner {
	if s.Tolerance <= 0 {
		s.Tolerance = analysis.DefaultTolerance
	}
	res := s.Result
	return Tuner{
		ctx:      ctx,
		session:  s,
		rule:     res.Rule,
		gains:    res.Gains,
		initial:  res.Gains,
		setpoint: res.Setpoint,
		params:   []string{"Kp", "Ti", "Td", "SP"},
		resp:     res.ClosedLoop,
		perf:     res.ClosedPerf,
		theme:    GetTheme(s.Theme),
		canvas:   NewCanvas(canvasWidth, canvasHeight),
	}
}

func (m Tuner) Init() tea.Cmd { return nil }

func (m Tuner) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case simulatedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.err = msg.err
		if msg.err == nil {
			m.resp, m.perf = msg.resp, msg.perf
		}
	}
	return m, nil
}

func (m Tuner) handleKey(msg tea.KeyMsg) (Tuner, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "j", "down":
		m.selected = (m.selected + 1) % len(m.params)
	case "shift+tab", "k", "up":
		m.selected = (m.selected + len(m.params) - 1) % len(m.params)
	case "l", "right", "+", "=":
		return m.adjust(adjustStep)
	case "h", "left", "-", "_":
		return m.adjust(1 / adjustStep)
	case "z":
		return m.retune(control.RuleZieglerNichols)
	case "c":
		return m.retune(control.RuleCohenCoon)
	case "m":
		return m.retune(control.RuleManual)
	case "r":
		m.gains, m.rule, m.setpoint = m.initial, m.session.Result.Rule, m.session.Result.Setpoint
		return m.resimulate()
	case "t":
		m.theme = NextTheme(m.theme)
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// adjust scales the selected parameter. A zero derivative time is nudged
// off zero so it can be raised.
func (m Tuner) adjust(factor float64) (Tuner, tea.Cmd) {
	name := m.params[m.selected]
	if name == "SP" {
		if m.setpoint == 0 {
			m.setpoint = 0.1
		} else {
			m.setpoint *= factor
		}
		return m.resimulate()
	}
	value := m.gains.GetParams()[name] * factor
	if value == 0 && factor > 1 {
		value = 0.01
	}
	g, err := m.gains.SetParam(name, value)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.gains = g
	return m.resimulate()
}

func (m Tuner) retune(rule string) (Tuner, tea.Cmd) {
	tuner, err := control.New(rule, m.session.Manual)
	if err == nil {
		var g control.Gains
		if g, err = tuner.Tune(m.session.Result.Model); err == nil {
			m.gains, m.rule = g, rule
			return m.resimulate()
		}
	}
	m.err = err
	return m, nil
}

func (m Tuner) resimulate() (Tuner, tea.Cmd) {
	m.gen++
	gen, gains, sp := m.gen, m.gains, m.setpoint
	ctx, s, res, tol := m.ctx, m.session.Simulator, m.session.Result, m.session.Tolerance
	return m, func() tea.Msg {
		cl, err := closedloop.CloseLoop(ctx, s, closedloop.Loop{
			Gains:    gains,
			OpenLoop: res.OpenLoopTF,
			Setpoint: sp,
		}, res.Measured.Times)
		if err != nil {
			return simulatedMsg{gen: gen, err: err}
		}
		perf, err := analysis.Analyze(cl.Response.Signal, sp, tol)
		return simulatedMsg{gen: gen, resp: cl.Response, perf: perf, err: err}
	}
}

func (m Tuner) View() string {
	st := newStyles(m.theme)

	m.canvas.Clear()
	var plot string
	if m.resp != nil {
		y := m.resp.Values
		b := BoundsOf(m.resp.Times, y, []float64{m.setpoint})
		m.canvas.Level(b, m.setpoint)
		m.canvas.Trace(b, m.resp.Times, y)
		plot = fmt.Sprintf("%s\n%s",
			st.hint.Render(fmt.Sprintf("y ∈ [%.3g, %.3g]  t ∈ [%.3g, %.3g]", b.YMin, b.YMax, b.XMin, b.XMax)),
			m.canvas.String())
	} else {
		plot = m.canvas.String()
	}
	canvasView := st.trace.Render(plot)

	var s strings.Builder
	model := m.session.Result.Model
	s.WriteString(st.header.Render(strings.ToUpper(m.rule)) + "\n")
	s.WriteString(st.hint.Render(fmt.Sprintf("k=%.3g τ=%.3g θ=%.3g", model.Gain, model.TimeConstant, model.DeadTime)) + "\n\n")

	s.WriteString(st.header.Render("GAINS") + "\n")
	values := map[string]float64{"Kp": m.gains.Kp, "Ti": m.gains.Ti, "Td": m.gains.Td, "SP": m.setpoint}
	refs := map[string]float64{"Kp": m.initial.Kp, "Ti": m.initial.Ti, "Td": m.initial.Td, "SP": m.session.Result.Setpoint}
	for i, name := range m.params {
		line := fmt.Sprintf("%-3s %s %9.4g", name, Bar(values[name], refs[name], 10), values[name])
		if i == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.value.Render(line) + "\n")
		}
	}
	s.WriteString(st.hint.Render(fmt.Sprintf("  Ki=%.4g Kd=%.4g", m.gains.Ki, m.gains.Kd)) + "\n\n")

	s.WriteString(st.header.Render("RESPONSE") + "\n")
	p := m.perf
	rise := "n/a"
	if p.RiseTimeDefined {
		rise = fmt.Sprintf("%.3g", p.RiseTime)
	}
	rows := [][2]string{
		{"rise", rise},
		{"settling", fmt.Sprintf("%.3g", p.SettlingTime)},
		{"overshoot", fmt.Sprintf("%.1f%%", p.OvershootPercent)},
		{"peak", fmt.Sprintf("%.4g @ %.3g", p.PeakValue, p.PeakTime)},
		{"ss error", fmt.Sprintf("%.3g", p.SteadyStateError)},
	}
	for _, r := range rows {
		s.WriteString(st.label.Render(r[0]) + st.value.Render(r[1]) + "\n")
	}
	if m.resp != nil {
		errs := make([]float64, len(m.resp.Values))
		for i, v := range m.resp.Values {
			errs[i] = m.setpoint - v
		}
		s.WriteString(st.label.Render("error") + st.value.Render(Sparkline(errs, 24)) + "\n")
	}

	s.WriteString("\n")
	switch {
	case m.err != nil:
		s.WriteString(st.bad.Render(m.err.Error()) + "\n")
	case m.resp != nil && m.resp.Unstable():
		s.WriteString(st.warn.Render("closed loop is unstable") + "\n")
	default:
		s.WriteString(st.good.Render("stable") + "\n")
	}

	s.WriteString("\n" + st.divider.Render(separator(30)) + "\n")
	s.WriteString(st.key.Render("j/k") + st.hint.Render(" select ") +
		st.key.Render("h/l") + st.hint.Render(" adjust ") +
		st.key.Render("?") + st.hint.Render(" help ") +
		st.key.Render("q") + st.hint.Render(" quit"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + main
	}
	return main
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  j/k Tab  - Select parameter         ║
║  h/l +/-  - Scale parameter by 5%    ║
║  z        - Ziegler-Nichols gains    ║
║  c        - Cohen-Coon gains         ║
║  m        - Manual gains             ║
║  r        - Reset to the run's gains ║
║  t        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  q        - Quit                     ║
╚══════════════════════════════════════╝`

// Gains returns the gains currently applied.
func (m Tuner) Gains() control.Gains { return m.gains }

func (m Tuner) Setpoint() float64 { return m.setpoint }

// Performance returns the figures of the latest finished simulation.
func (m Tuner) Performance() analysis.Performance { return m.perf }

// RunTuner blocks until the user quits and returns the final tuner state.
func RunTuner(ctx context.Context, s Session) (Tuner, error) {
	final, err := tea.NewProgram(NewTuner(ctx, s), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return Tuner{}, err
	}
	return final.(Tuner), nil
}
