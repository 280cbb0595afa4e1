package closedloop_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pidlab/internal/closedloop"
	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/sim"
	"github.com/san-kum/pidlab/internal/tf"
)

var _ = Describe("CloseLoop", func() {
	var (
		simulator *sim.Simulator
		grid      []float64
		plant     dynamo.FOPDT
		openLoop  tf.TF
	)

	BeforeEach(func() {
		var err error
		simulator = sim.New(sim.DefaultConfig())
		grid, err = sim.UniformGrid(60, 1200)
		Expect(err).NotTo(HaveOccurred())

		plant = dynamo.FOPDT{Gain: 2, TimeConstant: 5, DeadTime: 1}
		openLoop, err = tf.FromFOPDT(plant, 1)
		Expect(err).NotTo(HaveOccurred())
	})

	It("builds PID·G/(1+PID·G)", func() {
		gains, err := control.FromTimeConstants(1, 2, 0)
		Expect(err).NotTo(HaveOccurred())

		g, err := tf.FirstOrder(1, 1)
		Expect(err).NotTo(HaveOccurred())

		closed, err := closedloop.Build(gains, g)
		Expect(err).NotTo(HaveOccurred())

		// C = (s + 0.5)/s, G = 1/(s+1): T = (s+0.5)/(s² + 2s + 0.5)
		Expect([]float64(closed.Num)).To(Equal([]float64{1, 0.5}))
		Expect([]float64(closed.Den)).To(Equal([]float64{1, 2, 0.5}))
	})

	It("tracks the setpoint with integral action", func() {
		gains, err := control.CohenCoon(plant)
		Expect(err).NotTo(HaveOccurred())

		// Scale the aggressive rule down so the loop settles within the grid.
		gains, err = control.FromTimeConstants(0.3*gains.Kp, gains.Ti*2, gains.Td)
		Expect(err).NotTo(HaveOccurred())

		res, err := closedloop.CloseLoop(context.Background(), simulator, closedloop.Loop{
			Gains:    gains,
			OpenLoop: openLoop,
			Setpoint: 100,
		}, grid)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Response.Unstable()).To(BeFalse())
		Expect(res.Response.Last()).To(BeNumerically("~", 100, 1))
		Expect(res.TF.DCGain()).To(BeNumerically("~", 1, 1e-9))
	})

	It("scales the response by the setpoint", func() {
		gains, err := control.FromTimeConstants(0.5, 5, 0)
		Expect(err).NotTo(HaveOccurred())

		run := func(sp float64) []float64 {
			res, err := closedloop.CloseLoop(context.Background(), simulator, closedloop.Loop{
				Gains: gains, OpenLoop: openLoop, Setpoint: sp,
			}, grid)
			Expect(err).NotTo(HaveOccurred())
			return res.Response.Values
		}
		unit, scaled := run(1), run(40)
		for i := range unit {
			Expect(scaled[i]).To(BeNumerically("~", 40*unit[i], 1e-9))
		}
	})

	It("flags an unstable loop without failing", func() {
		gains, err := control.FromTimeConstants(50, 0.5, 0)
		Expect(err).NotTo(HaveOccurred())

		res, err := closedloop.CloseLoop(context.Background(), simulator, closedloop.Loop{
			Gains: gains, OpenLoop: openLoop, Setpoint: 1,
		}, grid)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Response.Unstable()).To(BeTrue())
		Expect(errors.Is(res.Response.Warning, dynamo.ErrUnstable)).To(BeTrue())
	})

	It("rejects a non-finite setpoint", func() {
		gains, _ := control.FromTimeConstants(1, 1, 0)
		_, err := closedloop.CloseLoop(context.Background(), simulator, closedloop.Loop{
			Gains: gains, OpenLoop: openLoop, Setpoint: math.Inf(1),
		}, grid)
		Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue())
	})
})
