package telemetry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/experiment"
)

func TestObserverCounters(t *testing.T) {
	c := New()
	c.OnSimulation("exact", time.Millisecond, false)
	c.OnSimulation("exact", time.Millisecond, true)
	c.OnSimulation("rk4", time.Millisecond, false)
	c.OnRun("manual", time.Millisecond, nil)
	c.OnRun("manual", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Simulations.WithLabelValues("exact", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Simulations.WithLabelValues("rk4", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("manual", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("manual", "ok")))
}

func TestRecordResult(t *testing.T) {
	c := New()
	gains, err := control.FromTimeConstants(2, 4, 0.5)
	require.NoError(t, err)

	c.RecordResult(&experiment.Result{
		Identification: experiment.Identification{
			Method: "smith",
			Model:  dynamo.FOPDT{Gain: 2, TimeConstant: 5, DeadTime: 1},
		},
		Rule:  control.RuleManual,
		Gains: gains,
	})

	assert.Equal(t, 5.0, testutil.ToFloat64(c.Model.WithLabelValues("smith", "tau")))
	assert.Equal(t, 0.5, testutil.ToFloat64(c.Gains.WithLabelValues("manual", "ki")))
}

func TestHandler(t *testing.T) {
	c := New()
	c.OnSimulation("exact", time.Millisecond, false)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := new(strings.Builder)
	_, err = io.Copy(body, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "pidlab_simulations_total")

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
