// Package telemetry exposes pipeline counters and timings to Prometheus.
package telemetry

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/pidlab/internal/experiment"
	"github.com/san-kum/pidlab/internal/logger"
)

// Collector implements sim.Observer and experiment.RunObserver.
type Collector struct {
	registry *prometheus.Registry
	started  time.Time

	Simulations        *prometheus.CounterVec
	SimulationDuration *prometheus.HistogramVec
	Runs               *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	Gains              *prometheus.GaugeVec
	Model              *prometheus.GaugeVec
	ClosedLoop         *prometheus.GaugeVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
		Simulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pidlab_simulations_total",
				Help: "Step-response simulations by method and stability",
			},
			[]string{"method", "unstable"},
		),
		SimulationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pidlab_simulation_duration_seconds",
				Help:    "Wall time of one step-response simulation",
				Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
			[]string{"method"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pidlab_runs_total",
				Help: "Pipeline runs by tuning rule and outcome",
			},
			[]string{"rule", "status"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pidlab_run_duration_seconds",
				Help:    "Wall time of tuning plus closed-loop simulation",
				Buckets: prometheus.ExponentialBuckets(1e-4, 4, 10),
			},
		),
		Gains: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pidlab_gain",
				Help: "Most recent controller gains by rule and term",
			},
			[]string{"rule", "term"},
		),
		Model: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pidlab_model_parameter",
				Help: "Most recent identified FOPDT parameters",
			},
			[]string{"method", "parameter"},
		),
		ClosedLoop: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pidlab_closed_loop",
				Help: "Most recent closed-loop performance figures",
			},
			[]string{"rule", "figure"},
		),
	}

	c.registry.MustRegister(
		c.Simulations,
		c.SimulationDuration,
		c.Runs,
		c.RunDuration,
		c.Gains,
		c.Model,
		c.ClosedLoop,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) OnSimulation(method string, elapsed time.Duration, unstable bool) {
	c.Simulations.WithLabelValues(method, strconv.FormatBool(unstable)).Inc()
	c.SimulationDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (c *Collector) OnRun(rule string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.Runs.WithLabelValues(rule, status).Inc()
	c.RunDuration.Observe(elapsed.Seconds())
}

// RecordResult publishes the identified model, gains and closed-loop
// figures of a finished run.
func (c *Collector) RecordResult(res *experiment.Result) {
	c.Model.WithLabelValues(res.Method, "k").Set(res.Model.Gain)
	c.Model.WithLabelValues(res.Method, "tau").Set(res.Model.TimeConstant)
	c.Model.WithLabelValues(res.Method, "theta").Set(res.Model.DeadTime)

	c.Gains.WithLabelValues(res.Rule, "kp").Set(res.Gains.Kp)
	c.Gains.WithLabelValues(res.Rule, "ki").Set(res.Gains.Ki)
	c.Gains.WithLabelValues(res.Rule, "kd").Set(res.Gains.Kd)

	c.ClosedLoop.WithLabelValues(res.Rule, "rise_time").Set(res.ClosedPerf.RiseTime)
	c.ClosedLoop.WithLabelValues(res.Rule, "settling_time").Set(res.ClosedPerf.SettlingTime)
	c.ClosedLoop.WithLabelValues(res.Rule, "overshoot_percent").Set(res.ClosedPerf.OvershootPercent)
	c.ClosedLoop.WithLabelValues(res.Rule, "steady_state_error").Set(res.ClosedPerf.SteadyStateError)
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// Handler serves /metrics and /health.
func (c *Collector) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(healthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Uptime:    time.Since(c.started).String(),
		}); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	})
	return mux
}

// Serve starts the metrics endpoint in the background. Close the returned
// server to stop it.
func (c *Collector) Serve(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: c.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	return srv
}
