package can

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

type dropFirst struct {
	dropped bool
}

func (d *dropFirst) Name() string { return "drop-first" }

func (d *dropFirst) Kind() network.FaultKind { return network.KindCustom }

func (d *dropFirst) CanDeliver(network.Payload) network.Verdict {
	return network.Pass
}

func (d *dropFirst) CanStart(network.Payload) network.Verdict {
	if d.dropped {
		return network.Pass
	}

	d.dropped = true

	return network.Drop
}

var _ = Describe("Network", func() {
	var (
		kernel *sim.Kernel
		bus    *Network
	)

	BeforeEach(func() {
		kernel = sim.MakeBuilder().Build()
		bus = NewNetwork(kernel, sim.Second/DefaultBitRate, nil)
	})

	It("should deliver mailboxes after their wire time", func() {
		tx := MustNewMailbox(0x1F000000)
		rx := MustNewMailbox(0x1F000000)

		Expect(bus.Connect("rx").RegisterTimeTriggered(rx)).To(Succeed())
		Expect(bus.Connect("tx").SendPeriodic(tx, 10*sim.Millisecond)).
			To(Succeed())

		Expect(kernel.RunUntil(sim.Millisecond)).To(Succeed())
		Expect(rx.Timestamp).To(Equal(73 * 8 * sim.Microsecond))
		Expect(bus.Senders()).To(Equal([]uint32{0x1F000000}))
	})

	It("should reject a second sender of the same id", func() {
		first := MustNewMailbox(0x1F000000)
		second := MustNewMailbox(0x1F000000)
		conn := bus.Connect("tx")

		Expect(conn.SendPeriodic(first, 10*sim.Millisecond)).To(Succeed())
		Expect(bus.Connect("other").SendPeriodic(second, 10*sim.Millisecond)).
			To(MatchError(ErrDuplicateSender))
		Expect(conn.SendPeriodic(first, 10*sim.Millisecond)).To(Succeed())
	})

	It("should report drops on the sending mailbox", func() {
		Expect(bus.RegisterFaultModel(&dropFirst{})).To(Succeed())

		tx := MustNewMailbox(0x1F000000)
		rx := MustNewMailbox(0x1F000000)
		Expect(bus.Connect("rx").RegisterTimeTriggered(rx)).To(Succeed())
		Expect(bus.Connect("tx").SendPeriodic(tx, 10*sim.Millisecond)).
			To(Succeed())

		Expect(kernel.RunUntil(sim.Millisecond)).To(Succeed())
		Expect(tx.LastDropped()).To(BeTrue())
		Expect(rx.Meta().HasTimestamp()).To(BeFalse())

		Expect(kernel.RunUntil(11 * sim.Millisecond)).To(Succeed())
		Expect(tx.LastDropped()).To(BeFalse())
		Expect(rx.LastDropped()).To(BeFalse())
		Expect(rx.Timestamp).To(Equal(10*sim.Millisecond + 584*sim.Microsecond))
	})
})
