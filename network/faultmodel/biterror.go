package faultmodel

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// SubsystemBitError names the random stream of BitError.
const SubsystemBitError = "faultmodel/bit-error"

// BitErrorStats summarizes the effect of the bit errors.
type BitErrorStats struct {
	Drops   uint64
	Misses  uint64
	Elapsed sim.VTime
}

// Rate returns the number of aborted messages per second.
func (s BitErrorStats) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}

	return float64(s.Drops) / s.Elapsed.Seconds()
}

// BitError injects bit errors with a constant bit error rate. The distance
// between two errors is exponentially distributed, in bit times. An error that
// hits a message in flight aborts it; an error on an idle bus has no effect.
type BitError struct {
	base

	inverseBER int64
	rng        *rand.Rand
	timer      *sim.Timer
	startTime  sim.VTime
	disabled   bool
	stats      BitErrorStats
}

// NewBitError creates a fault model with one error every inverseBER bits on
// average.
func NewBitError(k *sim.Kernel, inverseBER int64) (*BitError, error) {
	if inverseBER <= 0 {
		return nil, fmt.Errorf("%w: inverse bit error rate %d",
			sim.ErrInvalidArgument, inverseBER)
	}

	b := &BitError{
		base:       newBase(k, "BitError", network.KindBitError),
		inverseBER: inverseBER,
		rng:        k.Random().ForSubsystem(SubsystemBitError),
		startTime:  k.Now(),
	}
	b.timer = sim.NewTimer(k, b)

	b.log.WithField("inverse_ber", inverseBER).Debug("bit error model created")

	return b, nil
}

// Attach starts injecting errors on the bus. A bus with a zero bit time
// disables the model.
func (b *BitError) Attach(s *network.Scheduler) error {
	if err := b.base.Attach(s); err != nil {
		return err
	}

	if s.BitTime() == 0 {
		b.disabled = true
		b.log.Warn("bit error model disabled because the bit time is zero")

		return nil
	}

	return b.scheduleNext()
}

// IsDisabled tells if the model gave up because of a zero bit time.
func (b *BitError) IsDisabled() bool {
	return b.disabled
}

// Stats returns the statistics so far.
func (b *BitError) Stats() BitErrorStats {
	stats := b.stats
	stats.Elapsed = b.kernel.Now() - b.startTime

	return stats
}

func (b *BitError) scheduleNext() error {
	u := b.rng.Float64()
	for u == 0 {
		u = b.rng.Float64()
	}

	bits := int64(-math.Log(u) * float64(b.inverseBER))
	b.log.WithField("bits", bits).Debug("next bit error")

	return b.timer.Start(b.bus.BitTime().Mul(bits), nil)
}

// Handle injects one bit error.
func (b *BitError) Handle(_ *sim.Event) error {
	if b.bus.IsMessagePending() {
		b.bus.DropCurrentMessage(b)
		b.stats.Drops++
		b.log.Info("bit error aborted the message in flight")
	} else {
		b.stats.Misses++
		b.log.Debug("bit error on an idle bus")
	}

	return b.scheduleNext()
}

// Report summarizes the bit errors.
func (b *BitError) Report() string {
	s := b.Stats()

	return fmt.Sprintf("Dropped %d messages in %.3f seconds - avg BER rate=%.2f",
		s.Drops, s.Elapsed.Seconds(), s.Rate())
}
