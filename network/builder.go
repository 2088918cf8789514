package network

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/elevsim/sim"
)

// Builder can help building schedulers.
type Builder struct {
	kernel            *sim.Kernel
	bitTime           sim.VTime
	utilizationPeriod sim.VTime
	log               *logrus.Entry
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		utilizationPeriod: DefaultUtilizationPeriod,
	}
}

// WithKernel sets the kernel that drives the bus.
func (b Builder) WithKernel(k *sim.Kernel) Builder {
	b.kernel = k
	return b
}

// WithBitTime sets the time it takes to transmit one bit. A zero bit time
// delivers every payload at the time it starts.
func (b Builder) WithBitTime(t sim.VTime) Builder {
	b.bitTime = t
	return b
}

// WithBitRate sets the bit time from a rate in bits per second.
func (b Builder) WithBitRate(bitsPerSecond int) Builder {
	if bitsPerSecond <= 0 {
		b.bitTime = 0
		return b
	}

	b.bitTime = sim.Second / sim.VTime(bitsPerSecond)

	return b
}

// WithUtilizationPeriod sets the window of the recent utilization.
func (b Builder) WithUtilizationPeriod(p sim.VTime) Builder {
	b.utilizationPeriod = p
	return b
}

// WithLogger sets the logger of the bus.
func (b Builder) WithLogger(log *logrus.Entry) Builder {
	b.log = log
	return b
}

// Build creates the scheduler.
func (b Builder) Build(name string) *Scheduler {
	log := b.log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	log = log.WithField("component", name)

	if b.kernel == nil {
		log.Panic("network: a kernel is required")
	}

	if b.bitTime.IsNegative() {
		log.Panicf("network: bit time %d is negative", int64(b.bitTime))
	}

	if b.utilizationPeriod <= 0 {
		log.Panicf("network: utilization period %s is not positive",
			b.utilizationPeriod)
	}

	s := &Scheduler{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		kernel:       b.kernel,
		bitTime:      b.bitTime,
		log:          log,
		queue:        newOutgoingQueue(),
		listeners:    make(map[Channel][]listener),
		receivers:    make(map[Channel][]listener),
		periodic:     make(map[Channel]*periodicSender),
	}
	s.timer = sim.NewTimer(b.kernel, s)
	s.arbitration = sim.NewTimer(b.kernel, sim.HandlerFunc(s.arbitrate))
	s.utilization = newUtilization(b.kernel, b.utilizationPeriod, b.bitTime > 0)

	log.WithField("bit_time", b.bitTime.String()).Debug("bus created")

	return s
}
