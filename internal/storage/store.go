package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/pidlab/internal/analysis"
	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/experiment"
	"github.com/san-kum/pidlab/internal/optim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string               `json:"id"`
	Source     string               `json:"source"`
	Timestamp  time.Time            `json:"timestamp"`
	Method     string               `json:"method"`
	Rule       string               `json:"rule"`
	PadeOrder  int                  `json:"pade_order"`
	Setpoint   float64              `json:"setpoint"`
	Model      dynamo.FOPDT         `json:"model"`
	Fit        optim.Fit            `json:"fit"`
	Gains      control.Gains        `json:"gains"`
	OpenLoop   analysis.Performance `json:"open_loop"`
	ClosedLoop analysis.Performance `json:"closed_loop"`
	Metrics    map[string]float64   `json:"metrics"`
	Warnings   []string             `json:"warnings,omitempty"`
}

// Curves are the sampled series of one run on a shared time axis.
type Curves struct {
	Time       []float64
	Measured   []float64
	OpenLoop   []float64
	ClosedLoop []float64
}

var curveHeader = []string{"time", "measured", "open_loop", "closed_loop"}

// Save writes metadata.json and curves.csv under a new run directory.
func (s *Store) Save(source string, padeOrder int, result *experiment.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", result.Rule, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Source:     source,
		Timestamp:  now,
		Method:     result.Method,
		Rule:       result.Rule,
		PadeOrder:  padeOrder,
		Setpoint:   result.Setpoint,
		Model:      result.Model,
		Fit:        result.Fit,
		Gains:      result.Gains,
		OpenLoop:   result.OpenPerf,
		ClosedLoop: result.ClosedPerf,
		Metrics:    result.Metrics,
		Warnings:   result.Warnings,
	}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	curves := Curves{
		Time:       result.Measured.Times,
		Measured:   result.Measured.Values,
		OpenLoop:   result.OpenLoop.Values,
		ClosedLoop: result.ClosedLoop.Values,
	}
	if err := writeCurves(filepath.Join(runDir, "curves.csv"), curves); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCurves(path string, c Curves) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(curveHeader); err != nil {
		return err
	}
	for i := range c.Time {
		row := []string{
			strconv.FormatFloat(c.Time[i], 'f', 6, 64),
			formatAt(c.Measured, i),
			formatAt(c.OpenLoop, i),
			formatAt(c.ClosedLoop, i),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatAt(vals []float64, i int) string {
	if i >= len(vals) {
		return ""
	}
	return strconv.FormatFloat(vals[i], 'f', 6, 64)
}

// List returns the stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadCurves(runID string) (*Curves, error) {
	csvPath := filepath.Join(s.baseDir, runID, "curves.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	c := &Curves{}
	if len(records) < 2 {
		return c, nil
	}

	columns := []*[]float64{&c.Time, &c.Measured, &c.OpenLoop, &c.ClosedLoop}
	for i := 1; i < len(records); i++ {
		record := records[i]
		for j, col := range columns {
			if j >= len(record) || record[j] == "" {
				continue
			}
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("curves.csv line %d: %w", i+1, err)
			}
			*col = append(*col, val)
		}
	}

	return c, nil
}

// ExportData is the self-contained JSON form of a stored run.
type ExportData struct {
	RunMetadata
	Steps      int       `json:"steps"`
	Times      []float64 `json:"times"`
	Measured   []float64 `json:"measured"`
	OpenLoop   []float64 `json:"open_loop_response"`
	ClosedLoop []float64 `json:"closed_loop_response"`
}

// ExportJSON writes a run's metadata and curves as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	curves, err := s.LoadCurves(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		RunMetadata: *meta,
		Steps:       len(curves.Time),
		Times:       curves.Time,
		Measured:    curves.Measured,
		OpenLoop:    curves.OpenLoop,
		ClosedLoop:  curves.ClosedLoop,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
