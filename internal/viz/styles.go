package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	header  lipgloss.Style
	panel   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	active  lipgloss.Style
	trace   lipgloss.Style
	key     lipgloss.Style
	hint    lipgloss.Style
	good    lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
	divider lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		header: lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(42),
		label:   lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:   lipgloss.NewStyle().Foreground(t.Text),
		active:  lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		trace:   lipgloss.NewStyle().Foreground(t.Secondary).Padding(1, 2),
		key:     lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		hint:    lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		good:    lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		warn:    lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		bad:     lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		divider: lipgloss.NewStyle().Foreground(t.Muted),
	}
}

// Bar renders value as a filled gauge where ref sits at the midpoint.
func Bar(value, ref float64, width int) string {
	ratio := 0.5
	if ref != 0 && finite(value) {
		ratio = value / (2 * ref)
	}
	ratio = clamp(ratio, 0, 1)
	filled := int(ratio * float64(width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

// Sparkline squeezes values into width block characters scaled between
// their minimum and maximum.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if finite(v) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	rng := hi - lo
	if rng <= 0 || math.IsInf(rng, 0) || math.IsNaN(rng) {
		rng = 1
	}

	step := float64(len(values)) / float64(width)
	if step < 1 {
		step = 1
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		j := int(float64(i) * step)
		if j >= len(values) {
			break
		}
		v := values[j]
		if !finite(v) {
			b.WriteRune(' ')
			continue
		}
		idx := int((v - lo) / rng * float64(len(chars)-1))
		b.WriteRune(chars[int(clamp(float64(idx), 0, float64(len(chars)-1)))])
	}
	return b.String()
}

func separator(width int) string {
	if width < 7 {
		return strings.Repeat("─", max(width, 0))
	}
	mid := width / 2
	return strings.Repeat("─", mid-3) + " ◆ " + strings.Repeat("─", width-mid-3)
}
