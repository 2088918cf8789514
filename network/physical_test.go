package network

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/elevsim/sim"
)

var _ = Describe("PhysicalNetwork", func() {
	var (
		kernel *sim.Kernel
		phys   *PhysicalNetwork
	)

	BeforeEach(func() {
		kernel = sim.MakeBuilder().Build()
		phys = NewPhysicalNetwork(kernel, nil)
	})

	It("should deliver without delay", func() {
		sensor := phys.Connect("sensor")
		ctrl := phys.Connect("controller")

		local := NewPing("position", Channel{Type: 0x10}, 32)
		Expect(ctrl.RegisterTimeTriggered(local)).To(Succeed())

		p := NewPing("position", Channel{Type: 0x10}, 32)
		p.Value = 12
		Expect(sensor.SendPeriodic(p, 10*sim.Millisecond)).To(Succeed())

		Expect(kernel.RunUntil(sim.Millisecond)).To(Succeed())
		Expect(local.Value).To(Equal(12))
		Expect(local.Timestamp).To(Equal(sim.Zero))
		Expect(phys.BitTime()).To(Equal(sim.Zero))
	})

	It("should allow one registration and one sender per connection", func() {
		c := phys.Connect("door")

		Expect(c.RegisterTimeTriggered(NewPing("a", Channel{Type: 1}, 1))).
			To(Succeed())
		Expect(c.RegisterTimeTriggered(NewPing("b", Channel{Type: 2}, 1))).
			To(MatchError(ErrIllegalState))

		Expect(c.SendPeriodic(NewPing("c", Channel{Type: 3}, 1), sim.Second)).
			To(Succeed())
		Expect(c.SendPeriodic(NewPing("d", Channel{Type: 4}, 1), sim.Second)).
			To(MatchError(ErrIllegalState))
	})

	It("should let framework connections register freely", func() {
		var seen []int
		fw := phys.FrameworkConnection("harness", NodeFunc(func(p Payload) {
			seen = append(seen, p.Meta().Channel.Type)
		}))

		Expect(fw.RegisterEventTriggered(NewPing("a", Channel{Type: 1}, 1))).
			To(Succeed())
		Expect(fw.RegisterEventTriggered(NewPing("b", Channel{Type: 2}, 1))).
			To(Succeed())

		Expect(fw.SendOnce(NewPing("b", Channel{Type: 2}, 1))).To(Succeed())
		Expect(fw.SendOnce(NewPing("a", Channel{Type: 1}, 1))).To(Succeed())
		Expect(kernel.RunUntil(sim.Millisecond)).To(Succeed())

		Expect(seen).To(Equal([]int{1, 2}))
	})
})
