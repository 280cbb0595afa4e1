// Package report writes and reads the plain-text parameter report:
// one "Name: value" line per field in a fixed order.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/pidlab/internal/analysis"
	"github.com/san-kum/pidlab/internal/control"
)

const title = "PID parameters and SP"

// Report is the exported summary of a tuned loop.
type Report struct {
	Kp           float64
	Ti           float64
	Td           float64
	Setpoint     float64
	SettlingTime float64
	RiseTime     float64
	Peak         float64
}

// New collects the report fields from tuned gains and closed-loop metrics.
func New(g control.Gains, setpoint float64, perf analysis.Performance) Report {
	return Report{
		Kp:           g.Kp,
		Ti:           g.Ti,
		Td:           g.Td,
		Setpoint:     setpoint,
		SettlingTime: perf.SettlingTime,
		RiseTime:     perf.RiseTime,
		Peak:         perf.PeakValue,
	}
}

type field struct {
	key string
	get func(*Report) *float64
}

var fields = []field{
	{"Kp", func(r *Report) *float64 { return &r.Kp }},
	{"Ti", func(r *Report) *float64 { return &r.Ti }},
	{"Td", func(r *Report) *float64 { return &r.Td }},
	{"SP", func(r *Report) *float64 { return &r.Setpoint }},
	{"ts", func(r *Report) *float64 { return &r.SettlingTime }},
	{"tr", func(r *Report) *float64 { return &r.RiseTime }},
	{"mp", func(r *Report) *float64 { return &r.Peak }},
}

func Write(w io.Writer, r Report) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, title)
	for _, f := range fields {
		fmt.Fprintf(bw, "%s: %.4f\n", f.key, *f.get(&r))
	}
	return bw.Flush()
}

// Parse reads a report back. Lines without a known key are ignored; every
// key must be present.
func Parse(rd io.Reader) (Report, error) {
	var r Report
	seen := make(map[string]bool, len(fields))

	sc := bufio.NewScanner(rd)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		for _, f := range fields {
			if f.key != key {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return Report{}, fmt.Errorf("report: %s: %w", key, err)
			}
			*f.get(&r) = v
			seen[key] = true
		}
	}
	if err := sc.Err(); err != nil {
		return Report{}, err
	}
	for _, f := range fields {
		if !seen[f.key] {
			return Report{}, fmt.Errorf("report: missing %s", f.key)
		}
	}
	return r, nil
}
