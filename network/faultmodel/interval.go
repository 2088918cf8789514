// Package faultmodel provides the fault models that can be registered on a
// bus to drop, abort or rewrite messages.
package faultmodel

import (
	"fmt"

	"github.com/sarchlab/elevsim/sim"
)

// An Interval is a span of virtual time during which a fault is active. The
// boundaries are driven by system timers, so they never keep a simulation
// alive on their own.
type Interval struct {
	kernel   *sim.Kernel
	start    sim.VTime
	duration sim.VTime
	active   bool

	startTimer *sim.Timer
	endTimer   *sim.Timer

	onStart func() error
	onEnd   func() error
}

// NewInterval creates an interval that starts at the absolute time start and
// lasts for duration, which can be sim.Forever. An interval that starts now is
// active immediately and onStart is not called.
func NewInterval(
	k *sim.Kernel,
	start, duration sim.VTime,
	onStart, onEnd func() error,
) (*Interval, error) {
	now := k.Now()

	if start < now {
		return nil, fmt.Errorf("%w: interval cannot start in the past (%s < %s)",
			sim.ErrInvalidArgument, start, now)
	}

	if duration <= 0 {
		return nil, fmt.Errorf("%w: interval duration %s must be positive",
			sim.ErrInvalidArgument, duration)
	}

	i := &Interval{
		kernel:   k,
		start:    start,
		duration: duration,
		onStart:  onStart,
		onEnd:    onEnd,
	}
	i.startTimer = sim.NewSystemTimer(k, sim.HandlerFunc(i.begin))
	i.endTimer = sim.NewSystemTimer(k, sim.HandlerFunc(i.finish))

	if start == now {
		i.active = true
	} else if err := i.startTimer.StartAt(start, nil); err != nil {
		return nil, err
	}

	if !duration.IsForever() {
		if err := i.endTimer.StartAt(start.Add(duration), nil); err != nil {
			i.startTimer.Cancel()
			return nil, err
		}
	}

	return i, nil
}

// IsActive tells if the interval has started and not ended.
func (i *Interval) IsActive() bool {
	return i.active
}

// Start returns the time at which the interval starts.
func (i *Interval) Start() sim.VTime {
	return i.start
}

// End returns the time at which the interval ends, or sim.Forever.
func (i *Interval) End() sim.VTime {
	return i.start.Add(i.duration)
}

// Cancel deactivates the interval for good.
func (i *Interval) Cancel() {
	i.startTimer.Cancel()
	i.endTimer.Cancel()
	i.active = false
}

func (i *Interval) begin(_ *sim.Event) error {
	i.active = true

	if i.onStart != nil {
		return i.onStart()
	}

	return nil
}

func (i *Interval) finish(_ *sim.Event) error {
	i.active = false

	if i.onEnd != nil {
		return i.onEnd()
	}

	return nil
}
