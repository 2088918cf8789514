package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Timer", func() {
	var (
		kernel *Kernel
		rec    *timeRecorder
	)

	BeforeEach(func() {
		kernel = MakeBuilder().Build()
		rec = &timeRecorder{}
	})

	It("should fire once after the delay", func() {
		timer := NewTimer(kernel, rec)
		Expect(timer.Start(5, 1)).To(Succeed())
		Expect(timer.IsRunning()).To(BeTrue())
		Expect(timer.FireTime()).To(Equal(VTime(5)))

		Expect(kernel.RunUntil(10)).To(Succeed())
		Expect(rec.times).To(Equal([]VTime{5}))
		Expect(rec.ids).To(Equal([]int{1}))
		Expect(timer.IsRunning()).To(BeFalse())
		Expect(timer.FireTime()).To(Equal(Forever))
	})

	It("should move the alarm when restarted", func() {
		timer := NewTimer(kernel, rec)
		Expect(timer.Start(5, nil)).To(Succeed())
		Expect(timer.Start(7, nil)).To(Succeed())

		Expect(kernel.RunUntil(10)).To(Succeed())
		Expect(rec.times).To(Equal([]VTime{7}))
	})

	It("should not fire when cancelled", func() {
		timer := NewTimer(kernel, rec)
		Expect(timer.Start(5, nil)).To(Succeed())
		timer.Cancel()
		timer.Cancel()

		Expect(kernel.RunUntil(10)).To(Succeed())
		Expect(rec.times).To(BeEmpty())
	})

	It("should allow the handler to restart the timer", func() {
		var timer *Timer
		timer = NewSystemTimer(kernel, HandlerFunc(func(e *Event) error {
			Expect(e.Kind()).To(Equal(SystemQueue))
			Expect(timer.IsRunning()).To(BeFalse())
			rec.times = append(rec.times, e.Time())

			return timer.Start(3, nil)
		}))

		Expect(timer.Start(3, nil)).To(Succeed())
		Expect(kernel.RunUntil(10)).To(Succeed())
		Expect(rec.times).To(Equal([]VTime{3, 6, 9}))
		Expect(timer.FireTime()).To(Equal(VTime(12)))
	})

	It("should reject an alarm in the past", func() {
		Expect(kernel.RunUntil(10)).To(Succeed())

		timer := NewTimer(kernel, rec)
		Expect(timer.StartAt(4, nil)).To(MatchError(ErrInvalidArgument))
		Expect(timer.StartAt(12, nil)).To(Succeed())
		Expect(timer.FireTime()).To(Equal(VTime(12)))
	})
})
