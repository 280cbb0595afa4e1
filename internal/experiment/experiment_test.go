package experiment_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dataset"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/experiment"
	"github.com/san-kum/pidlab/internal/identify"
	"github.com/san-kum/pidlab/internal/logger"
)

type recordingObserver struct {
	mu    sync.Mutex
	sims  int
	rules []string
}

func (r *recordingObserver) OnSimulation(string, time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sims++
}

func (r *recordingObserver) OnRun(rule string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

var _ = Describe("Pipeline", func() {
	var (
		cfg *config.Config
		rec *dataset.Recording
		ctx context.Context
	)

	BeforeEach(func() {
		logger.Quiet = true
		DeferCleanup(func() { logger.Quiet = false })

		ctx = context.Background()
		cfg = config.DefaultConfig()
		cfg.Tuning.Rule = "Manual"
		cfg.Tuning.Kp, cfg.Tuning.Ti, cfg.Tuning.Td = 0.5, 5, 0

		var err error
		rec, err = experiment.Recording(cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	It("identifies the synthetic plant", func() {
		res, err := experiment.Run(ctx, cfg, rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Model.Gain).To(BeNumerically("~", 2, 0.05))
		Expect(res.Model.TimeConstant).To(BeNumerically("~", 5, 0.25))
		Expect(res.Model.DeadTime).To(BeNumerically("~", 1, 0.1))
		Expect(res.Fit.R2).To(BeNumerically(">", 0.99))
		Expect(res.OpenLoop.Len()).To(Equal(rec.Len()))
	})

	It("drives the closed loop to the setpoint", func() {
		res, err := experiment.Run(ctx, cfg, rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Rule).To(Equal(control.RuleManual))
		Expect(res.Gains.Ki).To(Equal(0.1))
		Expect(res.Warnings).To(BeEmpty())
		Expect(res.ClosedLoop.Last()).To(BeNumerically("~", 100, 0.5))
		Expect(res.ClosedPerf.SteadyStateError).To(BeNumerically("<", 0.5))
		Expect(res.Metrics).To(HaveKey("iae"))
		Expect(res.Metrics["bounded"]).To(Equal(1.0))
	})

	It("refines the identified model on request", func() {
		cfg.Identification.Refine = true
		res, err := experiment.Run(ctx, cfg, rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Refinement).NotTo(BeNil())
		Expect(res.Refinement.Fit.SSE).To(BeNumerically("<=", res.Refinement.InitialFit.SSE))
		Expect(res.Model.TimeConstant).To(BeNumerically("~", 5, 0.05))
	})

	It("compares rules concurrently and keeps their order", func() {
		rules := []string{"cohen-coon", "Ziegler-Nichols", "manual"}
		results, err := experiment.Compare(ctx, cfg, rec, rules)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))

		Expect(results[0].Rule).To(Equal(control.RuleCohenCoon))
		Expect(results[1].Rule).To(Equal(control.RuleZieglerNichols))
		Expect(results[2].Rule).To(Equal(control.RuleManual))
		for _, r := range results {
			Expect(r.Model).To(Equal(results[0].Model))
		}
	})

	It("notifies observers", func() {
		obs := &recordingObserver{}
		_, err := experiment.Run(ctx, cfg, rec, obs)
		Expect(err).NotTo(HaveOccurred())

		Expect(obs.sims).To(Equal(2))
		Expect(obs.rules).To(Equal([]string{"Manual"}))
	})

	It("surfaces identification failures", func() {
		flat := &dataset.Recording{
			Time:   []float64{0, 1, 2, 3},
			Input:  []float64{0, 1, 1, 1},
			Output: []float64{5, 5, 5, 5},
		}
		_, err := experiment.Run(ctx, cfg, flat)
		Expect(errors.Is(err, dynamo.ErrDegenerateSignal)).To(BeTrue())
	})

	It("rejects invalid manual gains before simulating", func() {
		cfg.Tuning.Ti = 0
		obs := &recordingObserver{}
		_, err := experiment.Run(ctx, cfg, rec, obs)

		var pe *dynamo.ParameterError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.Name).To(Equal("ti"))
		Expect(obs.sims).To(BeZero())
	})

	It("rejects invalid manual gains in a comparison before simulating", func() {
		cfg.Tuning.Rule = control.RuleZieglerNichols
		cfg.Tuning.Ti = 0
		obs := &recordingObserver{}
		_, err := experiment.Compare(ctx, cfg, rec, []string{"zn", "manual"}, obs)

		var pe *dynamo.ParameterError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(obs.sims).To(BeZero())
	})

	It("accepts identification methods in any case", func() {
		cfg.Identification.Method = " Sundaresan"
		res, err := experiment.Run(ctx, cfg, rec)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Method).To(Equal(identify.MethodSundaresan))
	})

	It("requires Setup before Run", func() {
		_, err := experiment.New(cfg).Run(ctx, rec)
		Expect(err).To(MatchError(ContainSubstring("not setup")))
	})

	It("rejects an invalid configuration", func() {
		cfg.Tuning.Rule = "lambda"
		_, err := experiment.Run(ctx, cfg, rec)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Registry", func() {
	It("lists the pipeline stages", func() {
		r := experiment.NewRegistry()
		Expect(r.ListIdentifiers()).To(Equal([]string{"smith", "sundaresan"}))
		Expect(r.ListRules()).To(ConsistOf(control.Rules()))
	})

	It("resolves rule labels", func() {
		r := experiment.NewRegistry()
		_, err := r.GetTuner("Cohen & Coon", control.Manual{})
		Expect(err).NotTo(HaveOccurred())
		_, err = r.GetIdentifier("broida")
		Expect(err).To(HaveOccurred())
	})
})
