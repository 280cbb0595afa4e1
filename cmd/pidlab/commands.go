package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pidlab/internal/analysis"
	"github.com/san-kum/pidlab/internal/automation"
	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dataset"
	"github.com/san-kum/pidlab/internal/experiment"
	"github.com/san-kum/pidlab/internal/export"
	"github.com/san-kum/pidlab/internal/identify"
	"github.com/san-kum/pidlab/internal/logger"
	"github.com/san-kum/pidlab/internal/report"
	"github.com/san-kum/pidlab/internal/storage"
	"github.com/san-kum/pidlab/internal/viz"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func identifyModel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, rec, err := newExperiment(cfg)
	if err != nil {
		return err
	}
	id, err := exp.Identify(cmd.Context(), rec)
	if err != nil {
		return err
	}

	fmt.Printf("source: %s (%d samples)\n", sourceName(cfg), rec.Len())
	fmt.Printf("method: %s\n", id.Method)
	fmt.Printf("input step: %g -> %g\n\n", id.Step.U0, id.Step.UF)
	if id.Refinement != nil {
		r := id.Refinement
		fmt.Printf("initial: k=%.4f tau=%.4f theta=%.4f (R²=%.4f)\n",
			r.Initial.Gain, r.Initial.TimeConstant, r.Initial.DeadTime, r.InitialFit.R2)
		fmt.Printf("refined after %d evaluations\n", r.Evaluations)
	}
	printModel(id)
	printPerformance("open loop", id.OpenPerf)

	if showPlot {
		series := export.OpenLoopSeries(&experiment.Result{Identification: *id, Measured: rec.Response()})
		graph := asciigraph.PlotMany([][]float64{series[0].Y, series[1].Y},
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Default, asciigraph.Cyan),
			asciigraph.Caption("measured vs FOPDT model"),
		)
		fmt.Printf("\n%s\n", graph)
	}
	return nil
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, rec, err := newExperiment(cfg)
	if err != nil {
		return err
	}
	id, err := exp.Identify(cmd.Context(), rec)
	if err != nil {
		return err
	}
	tuner, err := control.New(cfg.Tuning.Rule, cfg.ManualGains())
	if err != nil {
		return err
	}
	gains, err := tuner.Tune(id.Model)
	if err != nil {
		return err
	}

	printModel(id)
	name, _ := control.ParseRule(cfg.Tuning.Rule)
	fmt.Printf("\n%s gains:\n", name)
	printGains(gains)
	return nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, rec, err := newExperiment(cfg)
	if err != nil {
		return err
	}

	logger.Info("running %s tuning on %s", cfg.Tuning.Rule, sourceName(cfg))
	res, err := exp.Run(cmd.Context(), rec)
	if err != nil {
		return err
	}
	if collector != nil {
		collector.RecordResult(res)
	}

	fmt.Printf("completed in %v\n", res.Elapsed)
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(sourceName(cfg), cfg.Model.PadeOrder, res)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	printResult(res)

	if reportPath != "" {
		if err := writeReport(reportPath, report.New(res.Gains, res.Setpoint, res.ClosedPerf)); err != nil {
			return err
		}
		fmt.Printf("\nreport written to %s\n", reportPath)
	}
	if showPlot {
		plotClosedLoop(res.ClosedLoop.Values, res.Setpoint, res.Rule)
	}
	return nil
}

func compareRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rules := args
	if len(rules) == 0 {
		rules = control.Rules()
	}
	exp, rec, err := newExperiment(cfg)
	if err != nil {
		return err
	}

	results, err := exp.Compare(cmd.Context(), rec, rules)
	if err != nil {
		return err
	}

	printModel(&results[0].Identification)
	fmt.Printf("setpoint: %g\n\n", cfg.Setpoint)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tKP\tTI\tTD\tRISE\tSETTLE\tOVERSHOOT\tIAE\tSTABLE")
	for _, res := range results {
		if collector != nil {
			collector.RecordResult(res)
		}
		p := res.ClosedPerf
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\t%s\t%.4g\t%.1f%%\t%.4g\t%t\n",
			res.Rule,
			res.Gains.Kp,
			res.Gains.Ti,
			res.Gains.Td,
			riseTime(p),
			p.SettlingTime,
			p.OvershootPercent,
			res.Metrics["iae"],
			!res.ClosedLoop.Unstable(),
		)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tMETHOD\tRULE\tK\tTAU\tTHETA\tSP")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4g\t%.4g\t%.4g\t%g\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Method,
			run.Rule,
			run.Model.Gain,
			run.Model.TimeConstant,
			run.Model.DeadTime,
			run.Setpoint,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	curves, err := st.LoadCurves(runID)
	if err != nil {
		return err
	}
	if len(curves.Time) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("source: %s\n", meta.Source)
	fmt.Printf("samples: %d\n\n", len(curves.Time))

	graph := asciigraph.PlotMany([][]float64{curves.Measured, shifted(curves.OpenLoop, curves.Measured)},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Default, asciigraph.Cyan),
		asciigraph.Caption(fmt.Sprintf("measured vs %s model", meta.Method)),
	)
	fmt.Println(graph)
	fmt.Println()
	plotClosedLoop(curves.ClosedLoop, meta.Setpoint, meta.Rule)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	r := report.New(meta.Gains, meta.Setpoint, meta.ClosedLoop)
	if outPath == "" {
		return report.Write(os.Stdout, r)
	}
	return writeReport(outPath, r)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	curves, err := st.LoadCurves(args[0])
	if err != nil {
		return err
	}
	if len(curves.Time) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"time", "measured", "open_loop", "closed_loop"}); err != nil {
		return err
	}
	for i := range curves.Time {
		row := []string{
			cell(curves.Time, i),
			cell(curves.Measured, i),
			cell(curves.OpenLoop, i),
			cell(curves.ClosedLoop, i),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func renderRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	curves, err := st.LoadCurves(args[0])
	if err != nil {
		return err
	}
	if len(curves.Time) == 0 {
		return fmt.Errorf("no data to render")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	t := curves.Time
	open := filepath.Join(outDir, meta.ID+"_open_loop."+imageExt)
	if err := export.SavePlot(open, export.DefaultFigure("Open loop: measured vs FOPDT model"),
		export.Series{Name: "measured", X: t, Y: curves.Measured},
		export.Series{Name: meta.Method + " model", X: t, Y: shifted(curves.OpenLoop, curves.Measured)},
	); err != nil {
		return err
	}

	closed := filepath.Join(outDir, meta.ID+"_closed_loop."+imageExt)
	if err := export.SavePlot(closed, export.DefaultFigure(fmt.Sprintf("Closed loop (%s): %s", meta.Rule, meta.Gains)),
		export.Series{Name: meta.Rule, X: t, Y: curves.ClosedLoop},
		export.Series{Name: "setpoint", X: []float64{t[0], t[len(t)-1]}, Y: []float64{meta.Setpoint, meta.Setpoint}, Dashed: true},
	); err != nil {
		return err
	}

	fmt.Println(open)
	fmt.Println(closed)
	return nil
}

func synthesize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p := cfg.Plant
	flags := cmd.Flags()
	if flags.Changed("k") {
		p.Gain = plantK
	}
	if flags.Changed("tau") {
		p.TimeConstant = plantTau
	}
	if flags.Changed("theta") {
		p.DeadTime = plantTheta
	}
	if flags.Changed("time") {
		p.Duration = plantDur
	}
	if flags.Changed("samples") {
		p.Samples = samples
	}
	if flags.Changed("u0") {
		p.U0 = u0
	}
	if flags.Changed("uf") {
		p.UF = uf
	}
	if flags.Changed("noise") {
		p.Noise = noise
	}
	if flags.Changed("seed") {
		p.Seed = seed
	}

	cfg.Plant = p

	rec, err := dataset.Synthetic(dataset.Plant{
		Model:    cfg.PlantModel(),
		Step:     identify.Step{U0: p.U0, UF: p.UF},
		Duration: p.Duration,
		Samples:  p.Samples,
		Noise:    p.Noise,
		Seed:     p.Seed,
	})
	if err != nil {
		return err
	}

	if outPath == "" {
		return dataset.WriteCSV(os.Stdout, rec)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := dataset.WriteCSV(f, rec); err != nil {
		return err
	}
	logger.Info("wrote %d samples to %s", rec.Len(), outPath)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println("plants:")
		for _, p := range config.ListPlants() {
			fmt.Printf("  %s\n", p)
		}
		return nil
	}
	presets := config.ListPresets(args[0])
	if len(presets) == 0 {
		fmt.Printf("no presets for plant: %s\n", args[0])
		return nil
	}
	fmt.Printf("presets for %s:\n", args[0])
	for _, p := range presets {
		fmt.Printf("  %s/%s\n", args[0], p)
	}
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if outPath != "" {
		return config.Save(outPath, cfg)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, rec, err := newExperiment(cfg)
	if err != nil {
		return err
	}
	// Logging would tear the alternate screen.
	logger.Quiet = true
	res, err := exp.Run(cmd.Context(), rec)
	if err != nil {
		return err
	}

	final, err := viz.RunTuner(cmd.Context(), viz.Session{
		Simulator: exp.GetSimulator(),
		Result:    res,
		Manual:    cfg.ManualGains(),
		Tolerance: cfg.Analysis.Tolerance,
		Theme:     theme,
	})
	if err != nil {
		return err
	}

	fmt.Println("final gains:")
	printGains(final.Gains())
	r := report.New(final.Gains(), final.Setpoint(), final.Performance())
	if reportPath != "" {
		return writeReport(reportPath, r)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s (%d steps)\n", sc.Name, len(sc.Steps))
	results, runErr := automation.RunScenario(cmd.Context(), sc, base, observers()...)

	st := storage.New(dataDir)
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRULE\tKP\tTI\tTD\tSETTLE\tOVERSHOOT\tRUN")
	for i, res := range results {
		if collector != nil {
			collector.RecordResult(res)
		}
		runID := "-"
		if !noSave {
			cfg, err := sc.Steps[i].Config(base)
			if err != nil {
				return err
			}
			if runID, err = st.Save(sourceName(cfg), cfg.Model.PadeOrder, res); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%.4g\t%.4g\t%.4g\t%.4g\t%.1f%%\t%s\n",
			i+1, res.Rule, res.Gains.Kp, res.Gains.Ti, res.Gains.Td,
			res.ClosedPerf.SettlingTime, res.ClosedPerf.OvershootPercent, runID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, rec, err := newExperiment(cfg)
	if err != nil {
		return err
	}
	res, err := exp.Run(cmd.Context(), rec)
	if err != nil {
		return err
	}

	points, err := automation.RunSweep(cmd.Context(), exp.GetSimulator(), res, automation.ParameterSweep{
		Param:    sweepParam,
		Min:      sweepMin,
		Max:      sweepMax,
		NumSteps: sweepSteps,
	}, cfg.Analysis.Tolerance)
	if err != nil {
		return err
	}

	printModel(&res.Identification)
	fmt.Printf("base gains (%s): %s\n\n", res.Rule, res.Gains)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tRISE\tSETTLE\tOVERSHOOT\tIAE\tSTABLE\n", strings.ToUpper(sweepParam))
	for _, p := range points {
		fmt.Fprintf(w, "%.4g\t%s\t%.4g\t%.1f%%\t%.4g\t%t\n",
			p.Value, riseTime(p.Performance), p.Performance.SettlingTime,
			p.Performance.OvershootPercent, p.IAE, !p.Unstable)
	}
	return w.Flush()
}

func printModel(id *experiment.Identification) {
	m := id.Model
	fmt.Printf("model:  k=%.4f tau=%.4f theta=%.4f\n", m.Gain, m.TimeConstant, m.DeadTime)
	fmt.Printf("fit:    R²=%.4f RMSE=%.4g\n", id.Fit.R2, id.Fit.RMSE)
	if id.OpenLoopTF.Den == nil {
		return
	}
	fmt.Printf("G(s):   %s\n", id.OpenLoopTF)
	if poles, err := id.OpenLoopTF.Poles(); err == nil {
		fmt.Printf("poles:  %s\n", formatRoots(poles))
	}
	if zeros, err := id.OpenLoopTF.Zeros(); err == nil {
		fmt.Printf("zeros:  %s\n", formatRoots(zeros))
	}
}

func formatRoots(roots []complex128) string {
	if len(roots) == 0 {
		return "none"
	}
	sort.Slice(roots, func(i, j int) bool { return real(roots[i]) < real(roots[j]) })
	parts := make([]string, len(roots))
	for i, r := range roots {
		if imag(r) == 0 {
			parts[i] = fmt.Sprintf("%.4g", real(r))
		} else {
			parts[i] = fmt.Sprintf("%.4g%+.4gi", real(r), imag(r))
		}
	}
	return strings.Join(parts, " ")
}

func printGains(g control.Gains) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Kp\t%.6g\n  Ti\t%.6g\n  Td\t%.6g\n  Ki\t%.6g\n  Kd\t%.6g\n", g.Kp, g.Ti, g.Td, g.Ki, g.Kd)
	w.Flush()
}

func printPerformance(label string, p analysis.Performance) {
	fmt.Printf("\n%s:\n", label)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  rise time\t%s\n", riseTime(p))
	fmt.Fprintf(w, "  settling time\t%.4g\n", p.SettlingTime)
	fmt.Fprintf(w, "  overshoot\t%.2f%%\n", p.OvershootPercent)
	fmt.Fprintf(w, "  peak\t%.4g at %.4g\n", p.PeakValue, p.PeakTime)
	fmt.Fprintf(w, "  steady value\t%.4g\n", p.SteadyValue)
	fmt.Fprintf(w, "  steady-state error\t%.4g\n", p.SteadyStateError)
	w.Flush()
}

func printResult(res *experiment.Result) {
	fmt.Println()
	printModel(&res.Identification)
	fmt.Printf("\n%s gains:\n", res.Rule)
	printGains(res.Gains)
	printPerformance(fmt.Sprintf("closed loop (sp=%g)", res.Setpoint), res.ClosedPerf)

	fmt.Println("\nmetrics:")
	for _, name := range sortedNames(res.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, res.Metrics[name])
	}
	for _, w := range res.Warnings {
		fmt.Printf("\nwarning: %s\n", w)
	}
}

func plotClosedLoop(y []float64, sp float64, rule string) {
	if len(y) == 0 {
		return
	}
	ref := make([]float64, len(y))
	for i := range ref {
		ref[i] = sp
	}
	graph := asciigraph.PlotMany([][]float64{y, ref},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.DarkGray),
		asciigraph.Caption(fmt.Sprintf("closed loop (%s) vs setpoint", rule)),
	)
	fmt.Println(graph)
}

func riseTime(p analysis.Performance) string {
	if !p.RiseTimeDefined {
		return "undefined"
	}
	return strconv.FormatFloat(p.RiseTime, 'g', 4, 64)
}

// shifted adds the first measured sample to a deviation curve.
func shifted(deviation, measured []float64) []float64 {
	if len(measured) == 0 {
		return deviation
	}
	out := make([]float64, len(deviation))
	for i, v := range deviation {
		out[i] = measured[0] + v
	}
	return out
}

func writeReport(path string, r report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.Write(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cell(vals []float64, i int) string {
	if i >= len(vals) {
		return ""
	}
	return strconv.FormatFloat(vals[i], 'f', 6, 64)
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
