package network

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/elevsim/sim"
)

var _ = Describe("Utilization", func() {
	var kernel *sim.Kernel

	BeforeEach(func() {
		kernel = sim.MakeBuilder().Build()
	})

	It("should be disabled on a zero bit time bus", func() {
		bus := MakeBuilder().WithKernel(kernel).Build("physical")

		Expect(bus.Utilization().IsEnabled()).To(BeFalse())
		Expect(bus.Utilization().Report().Overall).To(Equal(-1.0))
		Expect(bus.Utilization().Report().String()).
			To(Equal("Utilization disabled"))

		_, system := kernel.PendingEvents()
		Expect(system).To(BeZero())
	})

	It("should account for busy time", func() {
		bus := MakeBuilder().
			WithKernel(kernel).
			WithBitTime(sim.Microsecond).
			Build("bus")
		tx := bus.NewPassiveConnection("tx")

		Expect(tx.SendOnce(NewPing("long", Channel{Type: 1}, 500000))).
			To(Succeed())

		Expect(kernel.RunUntil(250 * sim.Millisecond)).To(Succeed())
		Expect(bus.Utilization().BusyTime()).To(Equal(250 * sim.Millisecond))

		Expect(kernel.RunUntil(sim.Second)).To(Succeed())
		r := bus.Utilization().Report()
		Expect(r.Recent).To(BeNumerically("~", 0.5, 1e-9))
		Expect(r.Max).To(BeNumerically("~", 0.5, 1e-9))
		Expect(r.Overall).To(BeNumerically("~", 0.5, 1e-9))

		Expect(kernel.RunUntil(2 * sim.Second)).To(Succeed())
		r = bus.Utilization().Report()
		Expect(r.Recent).To(BeZero())
		Expect(r.Max).To(BeNumerically("~", 0.5, 1e-9))
		Expect(r.Overall).To(BeNumerically("~", 0.25, 1e-9))
		Expect(r.String()).
			To(Equal("Recent: 0.00 % Max: 50.00 %  Overall:  25.00 %"))
	})
})
