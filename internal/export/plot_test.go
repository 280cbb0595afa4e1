package export

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/experiment"
	"github.com/san-kum/pidlab/internal/sim"
)

func TestSavePlotFormats(t *testing.T) {
	dir := t.TempDir()
	s := Series{Name: "y", X: []float64{0, 1, 2}, Y: []float64{0, 0.6, 0.9}}

	for _, ext := range []string{"png", "svg"} {
		path := filepath.Join(dir, "sub", "curve."+ext)
		if err := SavePlot(path, DefaultFigure("test"), s); err != nil {
			t.Fatalf("%s: %v", ext, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Size() == 0 {
			t.Errorf("%s: empty file", ext)
		}
	}
}

func TestSavePlotErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.png")
	if err := SavePlot(path, DefaultFigure("empty")); err == nil {
		t.Error("expected error with no series")
	}
	bad := Series{Name: "bad", X: []float64{0, 1}, Y: []float64{0}}
	if err := SavePlot(path, DefaultFigure("bad"), bad); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestPointsSkipsNonFinite(t *testing.T) {
	pts, err := points(Series{X: []float64{0, 1, 2}, Y: []float64{1, math.Inf(1), math.NaN()}})
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 1 {
		t.Errorf("got %d points, want 1", len(pts))
	}
}

func TestSaveResult(t *testing.T) {
	times := []float64{0, 1, 2}
	gains, _ := control.FromTimeConstants(1, 2, 0)
	res := &experiment.Result{
		Identification: experiment.Identification{
			Method:   "smith",
			OpenLoop: &sim.Response{Signal: dynamo.Signal{Times: times, Values: []float64{0, 1, 1.5}}},
		},
		Measured:   dynamo.Signal{Times: times, Values: []float64{20, 21, 21.4}},
		Rule:       control.RuleManual,
		Gains:      gains,
		Setpoint:   100,
		ClosedLoop: &sim.Response{Signal: dynamo.Signal{Times: times, Values: []float64{0, 60, 95}}},
	}

	series := OpenLoopSeries(res)
	if series[1].Y[2] != 21.5 {
		t.Errorf("model curve not shifted to measured start: %v", series[1].Y)
	}

	paths, err := SaveResult(t.TempDir(), "png", res)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %v", paths)
	}
}
