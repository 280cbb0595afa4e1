// Package dataset loads and generates step-response recordings: three
// equal-length columns of elapsed time, input stimulus and output
// response.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/identify"
)

type Recording struct {
	Time   []float64
	Input  []float64
	Output []float64
}

// Columns names the CSV header fields holding each series.
type Columns struct {
	Time   string
	Input  string
	Output string
}

var DefaultColumns = Columns{Time: "time", Input: "input", Output: "output"}

func (r *Recording) Len() int { return len(r.Time) }

// Validate checks the columns have equal length and time strictly
// increases from the first sample.
func (r *Recording) Validate() error {
	if len(r.Input) != len(r.Time) || len(r.Output) != len(r.Time) {
		return dynamo.InvalidParam("recording", "len", float64(len(r.Time)),
			fmt.Sprintf("column lengths differ (time %d, input %d, output %d)", len(r.Time), len(r.Input), len(r.Output)))
	}
	return dynamo.ValidateGrid(r.Time)
}

// Response returns the (time, output) signal.
func (r *Recording) Response() dynamo.Signal {
	s, _ := dynamo.NewSignal(r.Time, r.Output)
	return s
}

// InputStep reads the step size from the first and last input samples.
func (r *Recording) InputStep() identify.Step {
	if len(r.Input) == 0 {
		return identify.UnitStep
	}
	return identify.Step{U0: r.Input[0], UF: r.Input[len(r.Input)-1]}
}

func LoadCSV(path string, cols Columns) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := ReadCSV(f, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// ReadCSV parses a recording with a header row. Column lookup is
// case-insensitive.
func ReadCSV(r io.Reader, cols Columns) (*Recording, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty csv")
		}
		return nil, err
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	pos := make([]int, 3)
	for i, name := range []string{cols.Time, cols.Input, cols.Output} {
		p, ok := idx[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("missing column %q (have %s)", name, strings.Join(header, ", "))
		}
		pos[i] = p
	}

	rec := &Recording{}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		vals := make([]float64, 3)
		for i, p := range pos {
			if p >= len(row) {
				return nil, fmt.Errorf("line %d: missing field %d", line, p+1)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[p]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			vals[i] = v
		}
		rec.Time = append(rec.Time, vals[0])
		rec.Input = append(rec.Input, vals[1])
		rec.Output = append(rec.Output, vals[2])
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

func WriteCSV(w io.Writer, rec *Recording) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{DefaultColumns.Time, DefaultColumns.Input, DefaultColumns.Output}); err != nil {
		return err
	}
	for i := range rec.Time {
		row := []string{
			strconv.FormatFloat(rec.Time[i], 'g', -1, 64),
			strconv.FormatFloat(rec.Input[i], 'g', -1, 64),
			strconv.FormatFloat(rec.Output[i], 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Plant describes a synthetic FOPDT recording.
type Plant struct {
	Model    dynamo.FOPDT
	Step     identify.Step
	Y0       float64
	Duration float64
	Samples  int
	// Noise is the standard deviation of additive Gaussian noise, drawn
	// from a generator seeded with Seed.
	Noise float64
	Seed  int64
}

// Synthetic samples the exact response of p.Model to the input step on a
// uniform grid of Samples+1 points.
func Synthetic(p Plant) (*Recording, error) {
	if err := p.Model.Validate(); err != nil {
		return nil, err
	}
	if !(p.Duration > 0) || math.IsInf(p.Duration, 0) {
		return nil, dynamo.InvalidParam("synthetic", "duration", p.Duration, "must be positive")
	}
	if p.Samples < 2 {
		return nil, dynamo.InvalidParam("synthetic", "samples", float64(p.Samples), "need at least two samples")
	}
	if p.Noise < 0 {
		return nil, dynamo.InvalidParam("synthetic", "noise", p.Noise, "must be non-negative")
	}

	rec := &Recording{
		Time:  make([]float64, p.Samples+1),
		Input: make([]float64, p.Samples+1),
	}
	dt := p.Duration / float64(p.Samples)
	for i := range rec.Time {
		rec.Time[i] = float64(i) * dt
		rec.Input[i] = p.Step.UF
	}
	rec.Input[0] = p.Step.U0
	rec.Output = identify.Curve(p.Model, rec.Time, p.Step, p.Y0)

	if p.Noise > 0 {
		rng := rand.New(rand.NewSource(p.Seed))
		for i := range rec.Output {
			rec.Output[i] += p.Noise * rng.NormFloat64()
		}
	}
	return rec, nil
}
