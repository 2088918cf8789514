package faultmodel

import (
	"fmt"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// Override replaces the content of every delivered message of a channel with
// the content of a forged payload, during an interval. The delivery time of
// the original message is kept. It unregisters itself when the interval ends.
type Override struct {
	base

	forged     network.Payload
	interval   *Interval
	overridden uint64
}

// NewOverride creates a fault model that delivers forged instead of the
// messages on its channel from start for duration.
func NewOverride(
	k *sim.Kernel,
	forged network.Payload,
	start, duration sim.VTime,
) (*Override, error) {
	if forged == nil {
		return nil, fmt.Errorf("%w: nil payload", sim.ErrInvalidArgument)
	}

	o := &Override{
		base: newBase(k,
			fmt.Sprintf("Override(%s)", forged.Meta().Channel),
			network.KindOverride),
		forged: forged,
	}

	interval, err := NewInterval(k, start, duration, nil, o.ended)
	if err != nil {
		return nil, err
	}

	o.interval = interval

	return o, nil
}

// Interval returns the interval of the fault.
func (o *Override) Interval() *Interval {
	return o.interval
}

// Overridden returns the number of messages rewritten so far.
func (o *Override) Overridden() uint64 {
	return o.overridden
}

// CanDeliver rewrites the message if it is on the forged channel.
func (o *Override) CanDeliver(p network.Payload) network.Verdict {
	if !o.interval.IsActive() ||
		p.Meta().Channel != o.forged.Meta().Channel {
		return network.Pass
	}

	if p.BitSize() != o.forged.BitSize() {
		o.log.WithField("payload", p.Meta().Name).
			Warn("forged payload has a different wire size, not overriding")

		return network.Pass
	}

	o.forged.Meta().Timestamp = p.Meta().Timestamp

	if err := p.CopyFrom(o.forged); err != nil {
		o.log.WithError(err).Error("cannot override message")
		return network.Pass
	}

	o.overridden++
	o.log.WithField("payload", p.Meta().Name).Debug("message overridden")

	return network.Pass
}

// Report summarizes the fault.
func (o *Override) Report() string {
	return fmt.Sprintf("Overrode %d messages on %s",
		o.overridden, o.forged.Meta().Channel)
}

func (o *Override) ended() error {
	if err := o.unregister(o); err != nil {
		return err
	}

	o.log.Info("end override")

	return nil
}
