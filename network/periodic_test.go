package network

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/elevsim/sim"
)

var _ = Describe("Periodic sender", func() {
	var (
		kernel *sim.Kernel
		bus    *Scheduler
		rec    *deliveryRecorder
		tx     *Connection
		local  *Ping
	)

	BeforeEach(func() {
		kernel = sim.MakeBuilder().WithSeed(3).Build()
		bus = MakeBuilder().
			WithKernel(kernel).
			WithBitTime(sim.Microsecond).
			Build("bus")
		rec = &deliveryRecorder{kernel: kernel}
		tx = bus.NewPassiveConnection("tx")

		local = NewPing("rx", Channel{Type: 5}, 100)
		Expect(bus.NewConnection("rx", rec).RegisterEventTriggered(local)).
			To(Succeed())
	})

	It("should send once every period", func() {
		p := NewPing("heartbeat", Channel{Type: 5}, 100)
		Expect(tx.SendPeriodic(p, sim.Millisecond)).To(Succeed())
		Expect(bus.PeriodicSenders()).
			To(HaveKeyWithValue(Channel{Type: 5}, sim.Millisecond))

		Expect(kernel.RunUntil(10 * sim.Millisecond)).To(Succeed())

		Expect(rec.got).To(HaveLen(10))
		for i, d := range rec.got {
			want := sim.VTime(i)*sim.Millisecond + 100*sim.Microsecond
			Expect(d.at).To(Equal(want))
		}
		Expect(bus.Stats().DeadlinesMissed).To(BeZero())
	})

	It("should reject a non-positive period", func() {
		p := NewPing("heartbeat", Channel{Type: 5}, 100)
		Expect(tx.SendPeriodic(p, 0)).To(MatchError(sim.ErrInvalidArgument))
		Expect(tx.SendPeriodic(p, -sim.Millisecond)).
			To(MatchError(sim.ErrInvalidArgument))
	})

	It("should reject a different period on the same channel", func() {
		p := NewPing("heartbeat", Channel{Type: 5}, 100)
		Expect(tx.SendPeriodic(p, sim.Millisecond)).To(Succeed())

		other := NewPing("heartbeat", Channel{Type: 5}, 100)
		Expect(tx.SendPeriodic(other, 2*sim.Millisecond)).
			To(MatchError(ErrPeriodChange))
	})

	It("should replace the payload sent with the same period", func() {
		p := NewPing("heartbeat", Channel{Type: 5}, 100)
		p.Value = 1
		Expect(tx.SendPeriodic(p, sim.Millisecond)).To(Succeed())
		Expect(kernel.RunUntil(500 * sim.Microsecond)).To(Succeed())

		replacement := NewPing("heartbeat", Channel{Type: 5}, 100)
		replacement.Value = 2
		Expect(tx.SendPeriodic(replacement, sim.Millisecond)).To(Succeed())
		Expect(replacement.Timestamp).To(Equal(100 * sim.Microsecond))

		Expect(kernel.RunUntil(1500 * sim.Microsecond)).To(Succeed())

		Expect(rec.got).To(HaveLen(2))
		Expect(rec.got[0].value).To(Equal(1))
		Expect(rec.got[1].value).To(Equal(2))
	})

	It("should not miss a deadline when replaced before the first send", func() {
		p := NewPing("heartbeat", Channel{Type: 5}, 100)
		p.Value = 1
		Expect(tx.SendPeriodic(p, sim.Millisecond)).To(Succeed())

		replacement := NewPing("heartbeat", Channel{Type: 5}, 100)
		replacement.Value = 2
		Expect(tx.SendPeriodic(replacement, sim.Millisecond)).To(Succeed())

		Expect(kernel.RunUntil(3 * sim.Millisecond)).To(Succeed())

		Expect(bus.Stats().DeadlinesMissed).To(BeZero())
		Expect(rec.got).To(HaveLen(3))
		Expect(rec.got[0].value).To(Equal(1))
		Expect(rec.got[1].value).To(Equal(2))
		Expect(rec.got[2].value).To(Equal(2))
	})

	It("should not miss a deadline when every instance is dropped at start",
		func() {
			fm := NewMockFaultModel(gomock.NewController(GinkgoT()))
			fm.EXPECT().Name().Return("drop-all").AnyTimes()
			fm.EXPECT().CanStart(gomock.Any()).Return(Drop).MinTimes(5)
			Expect(bus.RegisterFaultModel(fm)).To(Succeed())

			p := NewPing("heartbeat", Channel{Type: 5}, 100)
			Expect(tx.SendPeriodic(p, sim.Millisecond)).To(Succeed())

			Expect(kernel.RunUntil(5 * sim.Millisecond)).To(Succeed())

			Expect(rec.got).To(BeEmpty())
			Expect(bus.Stats().DroppedAtStart).To(BeNumerically(">=", 5))
			Expect(bus.Stats().DeadlinesMissed).To(BeZero())
		})

	It("should fail when the bus is blocked past the deadline", func() {
		blocker := NewPing("blocker", Channel{Type: 0}, 5000)
		Expect(tx.SendOnce(blocker)).To(Succeed())

		p := NewPing("heartbeat", Channel{Type: 5}, 100)
		Expect(tx.SendPeriodic(p, sim.Millisecond)).To(Succeed())

		err := kernel.RunUntil(10 * sim.Millisecond)
		Expect(err).To(HaveOccurred())

		var missed *DeadlineMissedError
		Expect(errors.As(err, &missed)).To(BeTrue())
		Expect(missed.Bus).To(Equal("bus"))
		Expect(missed.Deadline).To(Equal(sim.Millisecond))
		Expect(missed.LastTimestamp).To(Equal(NoTimestamp))
		Expect(kernel.Now()).To(Equal(sim.Millisecond))
		Expect(bus.Stats().DeadlinesMissed).To(Equal(uint64(1)))
	})

	It("should not check deadlines while the connection is disabled", func() {
		p := NewPing("heartbeat", Channel{Type: 5}, 100)
		Expect(tx.SendPeriodic(p, sim.Millisecond)).To(Succeed())
		Expect(kernel.RunUntil(500 * sim.Microsecond)).To(Succeed())

		tx.SetEnabled(false)
		Expect(kernel.RunUntil(5 * sim.Millisecond)).To(Succeed())

		Expect(rec.got).To(HaveLen(1))
	})
})
