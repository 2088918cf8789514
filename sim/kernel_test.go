package sim

import (
	"errors"
	"math/rand"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type timeRecorder struct {
	times []VTime
	ids   []int
}

func (r *timeRecorder) Handle(e *Event) error {
	r.times = append(r.times, e.Time())

	if id, ok := e.Data().(int); ok {
		r.ids = append(r.ids, id)
	}

	return nil
}

var _ = Describe("Kernel", func() {
	var (
		mockCtrl *gomock.Controller
		kernel   *Kernel
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		kernel = MakeBuilder().WithSeed(1).Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should release system events before simulation events", func() {
		a := NewMockHandler(mockCtrl)
		b := NewMockHandler(mockCtrl)
		c := NewMockHandler(mockCtrl)

		evtA, err := kernel.Schedule(a, 10, nil)
		Expect(err).ToNot(HaveOccurred())
		evtB, err := kernel.ScheduleSystem(b, 10, nil)
		Expect(err).ToNot(HaveOccurred())
		evtC, err := kernel.Schedule(c, 5, nil)
		Expect(err).ToNot(HaveOccurred())

		gomock.InOrder(
			c.EXPECT().Handle(evtC).Do(func(*Event) {
				Expect(kernel.Now()).To(Equal(VTime(5)))
			}),
			b.EXPECT().Handle(evtB),
			a.EXPECT().Handle(evtA),
		)

		Expect(kernel.RunUntil(20)).To(Succeed())
		Expect(kernel.Now()).To(Equal(VTime(20)))
		Expect(evtA.IsReleased()).To(BeTrue())
	})

	It("should reject negative delays", func() {
		h := NewMockHandler(mockCtrl)

		_, err := kernel.Schedule(h, -1, nil)
		Expect(err).To(MatchError(ErrInvalidArgument))

		_, err = kernel.ScheduleSystem(h, -5*Second, nil)
		Expect(err).To(MatchError(ErrInvalidArgument))

		_, err = kernel.Schedule(nil, 1, nil)
		Expect(err).To(MatchError(ErrInvalidArgument))
	})

	It("should not release cancelled events", func() {
		h := NewMockHandler(mockCtrl)

		evt1, _ := kernel.Schedule(h, 10, nil)
		evt2, _ := kernel.Schedule(h, 10, nil)
		evt3, _ := kernel.ScheduleSystem(h, 10, nil)

		kernel.Cancel(evt2)
		kernel.Cancel(evt2)
		kernel.Cancel(evt3)

		h.EXPECT().Handle(evt1)

		Expect(kernel.RunUntil(Forever)).To(Succeed())
		Expect(evt2.IsCancelled()).To(BeTrue())
		Expect(evt3.IsCancelled()).To(BeTrue())

		kernel.Cancel(evt1)
		Expect(evt1.IsReleased()).To(BeTrue())
	})

	It("should release system events in FIFO order", func() {
		rec := &timeRecorder{}

		for i := 0; i < 10; i++ {
			_, err := kernel.ScheduleSystem(rec, 3, i)
			Expect(err).ToNot(HaveOccurred())
		}

		Expect(kernel.RunUntil(3)).To(Succeed())
		Expect(rec.ids).To(Equal([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}))
	})

	It("should never move time backward", func() {
		rec := &timeRecorder{}
		rng := rand.New(rand.NewSource(7))

		for i := 0; i < 500; i++ {
			delay := VTime(rng.Int63n(int64(Second)))
			if i%3 == 0 {
				_, _ = kernel.ScheduleSystem(rec, delay, i)
			} else {
				_, _ = kernel.Schedule(rec, delay, i)
			}
		}

		Expect(kernel.RunUntil(500 * Millisecond)).To(Succeed())
		Expect(kernel.Now()).To(Equal(500 * Millisecond))

		for _, t := range rec.times {
			Expect(t).To(BeNumerically("<=", 500*Millisecond))
		}

		Expect(kernel.RunUntil(Second)).To(Succeed())
		Expect(rec.times).To(HaveLen(500))
		Expect(sort.SliceIsSorted(rec.times, func(i, j int) bool {
			return rec.times[i] < rec.times[j]
		})).To(BeTrue())
	})

	It("should reproduce tie-breaks with the same seed", func() {
		order := func(seed int64) []int {
			k := MakeBuilder().WithSeed(seed).Build()
			rec := &timeRecorder{}

			for i := 0; i < 20; i++ {
				_, _ = k.Schedule(rec, Millisecond, i)
			}

			Expect(k.RunUntil(Forever)).To(Succeed())

			return rec.ids
		}

		Expect(order(42)).To(Equal(order(42)))
		Expect(order(42)).ToNot(Equal(order(43)))
		Expect(order(42)).To(ConsistOf(order(43)))
	})

	It("should release events scheduled by handlers", func() {
		rec := &timeRecorder{}
		spawner := HandlerFunc(func(e *Event) error {
			_, err := kernel.Schedule(rec, 0, nil)
			return err
		})

		_, _ = kernel.Schedule(spawner, 4, nil)

		Expect(kernel.RunUntil(4)).To(Succeed())
		Expect(rec.times).To(Equal([]VTime{4}))
	})

	It("should stop at the end of simulation events", func() {
		rec := &timeRecorder{}

		var ticker HandlerFunc
		ticker = func(e *Event) error {
			_, err := kernel.ScheduleSystem(ticker, Second, nil)
			return err
		}

		_, _ = kernel.ScheduleSystem(ticker, Second, nil)
		_, _ = kernel.Schedule(rec, 3*Second, nil)

		Expect(kernel.RunUntil(Forever)).To(Succeed())
		Expect(kernel.Now()).To(Equal(3 * Second))
		Expect(kernel.IsBlocked()).To(BeTrue())

		simulation, system := kernel.PendingEvents()
		Expect(simulation).To(Equal(0))
		Expect(system).To(Equal(1))
	})

	It("should reject a limit in the past", func() {
		Expect(kernel.RunUntil(10)).To(Succeed())
		Expect(kernel.RunUntil(5)).To(MatchError(ErrInvalidArgument))
	})

	It("should respect the end time", func() {
		rec := &timeRecorder{}
		_, _ = kernel.Schedule(rec, 10, nil)
		_, _ = kernel.Schedule(rec, 15, nil)

		kernel.SetEndTime(12)

		Expect(kernel.RunUntil(Forever)).To(Succeed())
		Expect(rec.times).To(Equal([]VTime{10}))
		Expect(kernel.Now()).To(Equal(VTime(12)))
	})

	It("should end the simulation", func() {
		rec := &timeRecorder{}
		stopper := HandlerFunc(func(e *Event) error {
			kernel.EndSimulation()
			return nil
		})

		_, _ = kernel.Schedule(stopper, 5, nil)
		_, _ = kernel.Schedule(rec, 6, nil)

		Expect(kernel.RunUntil(100)).To(Succeed())
		Expect(rec.times).To(BeEmpty())
		Expect(kernel.Now()).To(Equal(VTime(5)))
		Expect(kernel.IsEnded()).To(BeTrue())

		_, err := kernel.Step()
		Expect(err).To(MatchError(ErrSimulationEnded))
	})

	It("should halt on handler errors", func() {
		failure := errors.New("boom")
		rec := &timeRecorder{}
		failing := HandlerFunc(func(e *Event) error {
			return failure
		})

		evt, _ := kernel.Schedule(failing, 5, nil)
		_, _ = kernel.Schedule(rec, 6, nil)

		err := kernel.RunUntil(100)

		var handlerErr *HandlerError
		Expect(errors.As(err, &handlerErr)).To(BeTrue())
		Expect(handlerErr.Event).To(BeIdenticalTo(evt))
		Expect(err).To(MatchError(failure))
		Expect(rec.times).To(BeEmpty())
		Expect(kernel.Now()).To(Equal(VTime(5)))
	})

	It("should step one event at a time", func() {
		rec := &timeRecorder{}
		_, _ = kernel.Schedule(rec, 2, 1)
		_, _ = kernel.ScheduleSystem(rec, 2, 0)

		released, err := kernel.Step()
		Expect(err).ToNot(HaveOccurred())
		Expect(released).To(BeTrue())
		Expect(rec.ids).To(Equal([]int{0}))

		released, _ = kernel.Step()
		Expect(released).To(BeTrue())
		Expect(rec.ids).To(Equal([]int{0, 1}))
		Expect(kernel.IsBlocked()).To(BeTrue())

		released, err = kernel.Step()
		Expect(err).ToNot(HaveOccurred())
		Expect(released).To(BeFalse())
		Expect(kernel.Now()).To(Equal(VTime(2)))
	})

	It("should invoke hooks around events", func() {
		hook := NewMockHook(mockCtrl)
		h := NewMockHandler(mockCtrl)
		kernel.AcceptHook(hook)

		evt, _ := kernel.Schedule(h, 1, nil)

		gomock.InOrder(
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
				Expect(ctx.Pos).To(Equal(HookPosBeforeEvent))
				Expect(ctx.Item).To(BeIdenticalTo(evt))
				Expect(ctx.Domain).To(BeIdenticalTo(kernel))
			}),
			h.EXPECT().Handle(evt),
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
				Expect(ctx.Pos).To(Equal(HookPosAfterEvent))
				Expect(ctx.Now).To(Equal(VTime(1)))
			}),
		)

		Expect(kernel.RunUntil(1)).To(Succeed())
	})

	It("should never release events at Forever", func() {
		h := NewMockHandler(mockCtrl)
		_, _ = kernel.ScheduleSystem(h, Forever, nil)

		Expect(kernel.RunUntil(Forever)).To(Succeed())

		released, err := kernel.Step()
		Expect(err).ToNot(HaveOccurred())
		Expect(released).To(BeFalse())
	})
})
