package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dataset"
	"github.com/san-kum/pidlab/internal/experiment"
	"github.com/san-kum/pidlab/internal/logger"
	"github.com/san-kum/pidlab/internal/sim"
	"github.com/san-kum/pidlab/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	dataDir     string
	configFile  string
	quiet       bool
	metricsAddr string

	// dataset and identification
	datasetPath  string
	method       string
	u0           float64
	uf           float64
	useInputStep bool
	refine       bool
	padeOrder    int

	// tuning and loop
	rule      string
	kp        float64
	ti        float64
	td        float64
	setpoint  float64
	simMethod string
	preset    string

	// output
	showPlot   bool
	noSave     bool
	reportPath string
	outDir     string
	outPath    string
	imageExt   string
	theme      string

	// synthetic plant
	plantK     float64
	plantTau   float64
	plantTheta float64
	plantDur   float64
	samples    int
	noise      float64
	seed       int64

	// sweep
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	collector     *telemetry.Collector
	metricsServer *http.Server
)

// main registers the pidlab commands and exits with status 1 when the
// selected command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "pidlab",
		Short:         "FOPDT identification and PID tuning lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Quiet = quiet
			if metricsAddr != "" {
				collector = telemetry.New()
				metricsServer = collector.Serve(metricsAddr)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if metricsServer != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = metricsServer.Shutdown(ctx)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pidlab", "run storage directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational logs")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (e.g. :9090)")

	identifyCmd := &cobra.Command{
		Use:   "identify",
		Short: "fit a FOPDT model to a step response",
		RunE:  identifyModel,
	}
	addIdentifyFlags(identifyCmd)
	identifyCmd.Flags().BoolVar(&showPlot, "plot", false, "plot measured vs model")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "identify and print PID gains for one rule",
		RunE:  tuneGains,
	}
	addIdentifyFlags(tuneCmd)
	addTuningFlags(tuneCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the full identification and tuning pipeline",
		RunE:  runPipeline,
	}
	addIdentifyFlags(runCmd)
	addTuningFlags(runCmd)
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "plot the closed-loop response")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&reportPath, "report", "", "write the PID report to this file")

	compareCmd := &cobra.Command{
		Use:   "compare [rule]...",
		Short: "compare tuning rules on the same identified model",
		RunE:  compareRules,
	}
	addIdentifyFlags(compareCmd)
	addTuningFlags(compareCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run's PID report",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run curves to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	pngCmd := &cobra.Command{
		Use:   "png [run_id]",
		Short: "render run curves to image files",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	pngCmd.Flags().StringVar(&outDir, "dir", ".", "output directory")
	pngCmd.Flags().StringVar(&imageExt, "format", "png", "image format (png, svg, pdf)")

	synthCmd := &cobra.Command{
		Use:   "synth",
		Short: "write a synthetic FOPDT step response as CSV",
		RunE:  synthesize,
	}
	synthCmd.Flags().StringVar(&preset, "preset", "", "use preset plant (plant/name)")
	synthCmd.Flags().Float64Var(&plantK, "k", 2, "plant gain")
	synthCmd.Flags().Float64Var(&plantTau, "tau", 5, "plant time constant")
	synthCmd.Flags().Float64Var(&plantTheta, "theta", 1, "plant dead time")
	synthCmd.Flags().Float64Var(&plantDur, "time", 60, "recording duration")
	synthCmd.Flags().IntVar(&samples, "samples", config.DefaultSamples, "number of samples")
	synthCmd.Flags().Float64Var(&u0, "u0", 0, "input before the step")
	synthCmd.Flags().Float64Var(&uf, "uf", 1, "input after the step")
	synthCmd.Flags().Float64Var(&noise, "noise", 0, "gaussian noise standard deviation")
	synthCmd.Flags().Int64Var(&seed, "seed", 1, "noise seed")
	synthCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [plant]",
		Short: "list plants or the presets of one plant",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration as YAML",
		RunE:  showConfig,
	}
	addIdentifyFlags(configCmd)
	addTuningFlags(configCmd)
	configCmd.Flags().StringVarP(&outPath, "out", "o", "", "save to this file instead of printing")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "tune the loop interactively",
		RunE:  runTUI,
	}
	addIdentifyFlags(tuiCmd)
	addTuningFlags(tuiCmd)
	tuiCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme")
	tuiCmd.Flags().StringVar(&reportPath, "report", "", "write the final PID report to this file")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario]",
		Short: "run every step of a YAML scenario and store the runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one controller parameter and tabulate the closed loop",
		RunE:  runSweep,
	}
	addIdentifyFlags(sweepCmd)
	addTuningFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "Kp", "parameter to sweep (Kp, Ti, Td)")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 2, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")

	rootCmd.AddCommand(identifyCmd, tuneCmd, runCmd, compareCmd, listCmd, plotCmd, exportCmd,
		exportCSVCmd, exportJSONCmd, pngCmd, synthCmd, presetsCmd, configCmd, tuiCmd, batchCmd, sweepCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addIdentifyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration (plant/name)")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "step-response CSV (time,input,output)")
	cmd.Flags().StringVar(&method, "method", "smith", "identification method (smith, sundaresan)")
	cmd.Flags().Float64Var(&u0, "u0", 0, "input before the step")
	cmd.Flags().Float64Var(&uf, "uf", 1, "input after the step")
	cmd.Flags().BoolVar(&useInputStep, "input-step", false, "read u0/uf from the input column")
	cmd.Flags().BoolVar(&refine, "refine", false, "refine the model by least squares")
	cmd.Flags().IntVar(&padeOrder, "pade", config.DefaultPadeOrder, "Padé approximation order")
	cmd.Flags().StringVar(&simMethod, "sim", sim.MethodExact, "simulation method ("+strings.Join(sim.Methods(), ", ")+")")
}

func addTuningFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rule, "rule", control.RuleZieglerNichols, "tuning rule ("+strings.Join(control.Rules(), ", ")+")")
	cmd.Flags().Float64Var(&kp, "kp", 1, "manual proportional gain")
	cmd.Flags().Float64Var(&ti, "ti", 1, "manual integral time")
	cmd.Flags().Float64Var(&td, "td", 0, "manual derivative time")
	cmd.Flags().Float64Var(&setpoint, "sp", config.DefaultSetpoint, "setpoint")
}

// loadConfig layers defaults, preset, config file and explicitly set flags,
// in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		plant, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset must be plant/name, got %q", preset)
		}
		p := config.GetPreset(plant, name)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available for %s: %v)", preset, plant, config.ListPresets(plant))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dataset") {
		cfg.Dataset.Path = datasetPath
	}
	if flags.Changed("method") {
		cfg.Identification.Method = method
	}
	if flags.Changed("u0") {
		cfg.Identification.U0 = u0
	}
	if flags.Changed("uf") {
		cfg.Identification.UF = uf
	}
	if flags.Changed("input-step") {
		cfg.Identification.UseInputStep = useInputStep
	}
	if flags.Changed("refine") {
		cfg.Identification.Refine = refine
	}
	if flags.Changed("pade") {
		cfg.Model.PadeOrder = padeOrder
	}
	if flags.Changed("sim") {
		cfg.Simulation.Method = simMethod
	}
	if flags.Changed("rule") {
		cfg.Tuning.Rule = rule
	}
	if flags.Changed("kp") {
		cfg.Tuning.Kp = kp
	}
	if flags.Changed("ti") {
		cfg.Tuning.Ti = ti
	}
	if flags.Changed("td") {
		cfg.Tuning.Td = td
	}
	if flags.Changed("sp") {
		cfg.Setpoint = setpoint
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func observers() []sim.Observer {
	if collector == nil {
		return nil
	}
	return []sim.Observer{collector}
}

func newExperiment(cfg *config.Config) (*experiment.Experiment, *dataset.Recording, error) {
	rec, err := experiment.Recording(cfg)
	if err != nil {
		return nil, nil, err
	}
	exp := experiment.New(cfg)
	if err := exp.Setup(observers()...); err != nil {
		return nil, nil, err
	}
	return exp, rec, nil
}

func sourceName(cfg *config.Config) string {
	if cfg.Dataset.Path != "" {
		return cfg.Dataset.Path
	}
	return fmt.Sprintf("synthetic(k=%g,tau=%g,theta=%g)", cfg.Plant.Gain, cfg.Plant.TimeConstant, cfg.Plant.DeadTime)
}
