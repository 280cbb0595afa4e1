// Package export renders response curves to image files with gonum/plot.
// The file extension selects the format (.png, .svg, .pdf, .eps, .jpg).
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/pidlab/internal/experiment"
)

// Series is one named curve.
type Series struct {
	Name string
	X, Y []float64
	// Dashed draws the curve as a dashed reference line.
	Dashed bool
}

type Figure struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

func DefaultFigure(title string) Figure {
	return Figure{
		Title:  title,
		XLabel: "time (s)",
		YLabel: "response",
		Width:  8 * vg.Inch,
		Height: 5 * vg.Inch,
	}
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
}

// SavePlot draws every series on one set of axes and writes the figure to
// path, creating parent directories as needed.
func SavePlot(path string, fig Figure, series ...Series) error {
	if len(series) == 0 {
		return fmt.Errorf("export: nothing to plot")
	}
	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = fig.XLabel
	p.Y.Label.Text = fig.YLabel
	stylePlot(p)

	for i, s := range series {
		pts, err := points(s)
		if err != nil {
			return fmt.Errorf("export: %s: %w", s.Name, err)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("export: %s: %w", s.Name, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		if s.Dashed {
			line.LineStyle.Dashes = plotutil.Dashes(1)
		}
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if fig.Width == 0 || fig.Height == 0 {
		d := DefaultFigure(fig.Title)
		fig.Width, fig.Height = d.Width, d.Height
	}
	return p.Save(fig.Width, fig.Height, path)
}

// points drops non-finite samples so a diverging response still renders.
func points(s Series) (plotter.XYs, error) {
	if len(s.X) != len(s.Y) {
		return nil, fmt.Errorf("x and y lengths differ (%d, %d)", len(s.X), len(s.Y))
	}
	pts := make(plotter.XYs, 0, len(s.X))
	for i := range s.X {
		if math.IsNaN(s.Y[i]) || math.IsInf(s.Y[i], 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: s.X[i], Y: s.Y[i]})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("no finite samples")
	}
	return pts, nil
}

// OpenLoopSeries overlays the measured response and the identified model,
// shifted to the measured initial value.
func OpenLoopSeries(res *experiment.Result) []Series {
	y0 := res.Measured.First()
	model := make([]float64, len(res.OpenLoop.Values))
	for i, v := range res.OpenLoop.Values {
		model[i] = y0 + v
	}
	return []Series{
		{Name: "measured", X: res.Measured.Times, Y: res.Measured.Values},
		{Name: fmt.Sprintf("%s model", res.Method), X: res.OpenLoop.Times, Y: model},
	}
}

// ClosedLoopSeries returns the closed-loop response with its setpoint.
func ClosedLoopSeries(res *experiment.Result) []Series {
	t := res.ClosedLoop.Times
	sp := []float64{res.Setpoint, res.Setpoint}
	return []Series{
		{Name: res.Rule, X: t, Y: res.ClosedLoop.Values},
		{Name: "setpoint", X: []float64{t[0], t[len(t)-1]}, Y: sp, Dashed: true},
	}
}

// SaveResult writes <dir>/open_loop.<ext> and <dir>/closed_loop.<ext>.
func SaveResult(dir, ext string, res *experiment.Result) ([]string, error) {
	open := filepath.Join(dir, "open_loop."+ext)
	if err := SavePlot(open, DefaultFigure("Open loop: measured vs FOPDT model"), OpenLoopSeries(res)...); err != nil {
		return nil, err
	}
	closed := filepath.Join(dir, "closed_loop."+ext)
	fig := DefaultFigure(fmt.Sprintf("Closed loop (%s): %s", res.Rule, res.Gains))
	if err := SavePlot(closed, fig, ClosedLoopSeries(res)...); err != nil {
		return nil, err
	}
	return []string{open, closed}, nil
}
