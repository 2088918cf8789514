package faultmodel

import (
	"fmt"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// BlackoutStats summarizes the blackouts of a bus.
type BlackoutStats struct {
	TotalDuration sim.VTime
	Drops         uint64
}

// Blackout silences a bus for a while. Nothing is delivered while the
// blackout lasts, and the message in flight when it ends is aborted.
type Blackout struct {
	base

	timer      *sim.Timer
	blackedOut bool
	lastStart  sim.VTime
	stats      BlackoutStats
}

// NewBlackout creates a blackout fault model. It does nothing until Start is
// called.
func NewBlackout(k *sim.Kernel) *Blackout {
	b := &Blackout{
		base: newBase(k, "Blackout", network.KindBlackout),
	}
	b.timer = sim.NewSystemTimer(k, b)

	return b
}

// Start blacks the bus out for duration. Starting again during a blackout
// moves its end.
func (b *Blackout) Start(duration sim.VTime) error {
	if b.bus == nil {
		return fmt.Errorf("%w: %s", ErrNotAttached, b.name)
	}

	if duration <= 0 {
		return fmt.Errorf("%w: blackout duration %s",
			sim.ErrInvalidArgument, duration)
	}

	restart := b.timer.IsRunning()

	if err := b.timer.Start(duration, nil); err != nil {
		return err
	}

	b.blackedOut = true

	if restart {
		b.log.Info("blackout restarted")
		return nil
	}

	b.lastStart = b.kernel.Now()
	b.log.Info("blackout started")

	return nil
}

// IsActive tells if the bus is blacked out.
func (b *Blackout) IsActive() bool {
	return b.blackedOut
}

// Stats returns the blackout statistics.
func (b *Blackout) Stats() BlackoutStats {
	return b.stats
}

// CanDeliver drops every message during a blackout.
func (b *Blackout) CanDeliver(network.Payload) network.Verdict {
	if !b.blackedOut {
		return network.Pass
	}

	b.stats.Drops++
	b.log.Debug("blackout in progress")

	return network.Drop
}

// Handle ends the blackout.
func (b *Blackout) Handle(_ *sim.Event) error {
	if b.bus.DropCurrentMessage(b) {
		b.stats.Drops++
	}

	b.blackedOut = false
	b.stats.TotalDuration += b.kernel.Now() - b.lastStart
	b.log.Info("blackout ended")

	return nil
}

// Report summarizes the blackouts.
func (b *Blackout) Report() string {
	return fmt.Sprintf("Total blackout duration: %s; Drop count=%d",
		b.stats.TotalDuration, b.stats.Drops)
}
