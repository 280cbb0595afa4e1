package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/identify"
)

func TestReadCSV(t *testing.T) {
	in := `# oven run 3
Time, Input, Output
0, 0, 20
1, 1, 20.5
2, 1, 21.2
`
	rec, err := ReadCSV(strings.NewReader(in), DefaultColumns)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2}, rec.Time)
	assert.Equal(t, []float64{0, 1, 1}, rec.Input)
	assert.Equal(t, []float64{20, 20.5, 21.2}, rec.Output)
	assert.Equal(t, identify.Step{U0: 0, UF: 1}, rec.InputStep())
}

func TestReadCSVCustomColumns(t *testing.T) {
	in := "tempo,temperatura,resultado\n0,0,1\n0.5,2,3\n"
	rec, err := ReadCSV(strings.NewReader(in), Columns{Time: "tempo", Input: "temperatura", Output: "resultado"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, rec.Output)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"missing column", "time,input\n0,0\n"},
		{"bad number", "time,input,output\n0,0,x\n"},
		{"non increasing time", "time,input,output\n0,0,0\n0,1,1\n"},
		{"no rows", "time,input,output\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), DefaultColumns)
			assert.Error(t, err)
		})
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	rec := &Recording{
		Time:   []float64{0, 0.1, 0.25},
		Input:  []float64{0, 1, 1},
		Output: []float64{0, 0.125, 1.0 / 3},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rec))

	got, err := ReadCSV(&buf, DefaultColumns)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "step.csv")
	require.NoError(t, os.WriteFile(path, []byte("time,input,output\n0,0,0\n1,1,1\n"), 0644))

	rec, err := LoadCSV(path, DefaultColumns)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), DefaultColumns)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSynthetic(t *testing.T) {
	p := Plant{
		Model:    dynamo.FOPDT{Gain: 2, TimeConstant: 5, DeadTime: 1},
		Step:     identify.Step{U0: 0, UF: 2},
		Y0:       10,
		Duration: 50,
		Samples:  500,
	}
	rec, err := Synthetic(p)
	require.NoError(t, err)
	require.NoError(t, rec.Validate())

	assert.Equal(t, 501, rec.Len())
	assert.Equal(t, 10.0, rec.Output[0])
	assert.InDelta(t, 14, rec.Output[500], 1e-3)
	assert.Equal(t, identify.Step{U0: 0, UF: 2}, rec.InputStep())
	// nothing moves before the dead time
	assert.Equal(t, 10.0, rec.Output[10])
}

func TestSyntheticNoiseDeterministic(t *testing.T) {
	p := Plant{
		Model:    dynamo.FOPDT{Gain: 1, TimeConstant: 1, DeadTime: 0.5},
		Step:     identify.UnitStep,
		Duration: 10,
		Samples:  100,
		Noise:    0.01,
		Seed:     7,
	}
	a, err := Synthetic(p)
	require.NoError(t, err)
	b, err := Synthetic(p)
	require.NoError(t, err)
	assert.Equal(t, a.Output, b.Output)

	p.Seed = 8
	c, err := Synthetic(p)
	require.NoError(t, err)
	assert.NotEqual(t, a.Output, c.Output)
}

func TestSyntheticInvalid(t *testing.T) {
	_, err := Synthetic(Plant{Model: dynamo.FOPDT{Gain: 1, TimeConstant: 0}, Duration: 1, Samples: 10})
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)

	_, err = Synthetic(Plant{Model: dynamo.FOPDT{Gain: 1, TimeConstant: 1}, Duration: 1, Samples: 1})
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
}
