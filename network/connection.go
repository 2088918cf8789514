package network

import (
	"fmt"

	"github.com/sarchlab/elevsim/sim"
)

// A Connection attaches a component to a bus. A connection created with a
// node can register for event-triggered payloads; a passive connection can
// only register time-triggered ones.
//
// A disabled connection silently discards what it sends and stops updating
// what it registered for.
type Connection struct {
	name      string
	scheduler *Scheduler
	node      Node
	enabled   bool
}

// Name returns the name of the connection.
func (c *Connection) Name() string {
	return c.name
}

// Scheduler returns the bus the connection is attached to.
func (c *Connection) Scheduler() *Scheduler {
	return c.scheduler
}

// SetEnabled turns the connection on or off.
func (c *Connection) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// IsEnabled tells if the connection is on.
func (c *Connection) IsEnabled() bool {
	return c.enabled
}

// RegisterTimeTriggered makes local receive a silent copy of every payload
// delivered on its channel.
func (c *Connection) RegisterTimeTriggered(local Payload) error {
	if local == nil {
		return fmt.Errorf("%w: nil payload", sim.ErrInvalidArgument)
	}

	s := c.scheduler
	ch := local.Meta().Channel
	s.listeners[ch] = append(s.listeners[ch], listener{conn: c, local: local})

	s.log.WithFields(map[string]any{
		"connection": c.name,
		"channel":    ch.String(),
	}).Debug("registered time-triggered")

	return nil
}

// RegisterEventTriggered makes local receive a copy of every payload
// delivered on its channel and notifies the node of the connection after
// each copy.
func (c *Connection) RegisterEventTriggered(local Payload) error {
	if local == nil {
		return fmt.Errorf("%w: nil payload", sim.ErrInvalidArgument)
	}

	if c.node == nil {
		return fmt.Errorf("%w: connection %q was created for time-triggered "+
			"payloads only", ErrIllegalState, c.name)
	}

	if err := c.RegisterTimeTriggered(local); err != nil {
		return err
	}

	s := c.scheduler
	ch := local.Meta().Channel
	s.receivers[ch] = append(s.receivers[ch], listener{conn: c, local: local})

	return nil
}

// SendOnce enqueues the payload for one transmission.
func (c *Connection) SendOnce(p Payload) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload", sim.ErrInvalidArgument)
	}

	if !c.enabled {
		return nil
	}

	c.scheduler.Enqueue(p)

	return nil
}

// SendPeriodic enqueues the payload now and then once every period. Each
// instance must complete before the next one is due, otherwise the periodic
// sender fails the run with a *DeadlineMissedError.
//
// Registering again for the same channel with the same period replaces the
// payload that is sent. A different period is an error.
func (c *Connection) SendPeriodic(p Payload, period sim.VTime) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload", sim.ErrInvalidArgument)
	}

	if period <= 0 || period.IsForever() {
		return fmt.Errorf("%w: period %s", sim.ErrInvalidArgument, period)
	}

	s := c.scheduler
	ch := p.Meta().Channel

	if ps, found := s.periodic[ch]; found {
		if ps.period != period {
			return fmt.Errorf("%w: channel %s is sent every %s, not %s",
				ErrPeriodChange, ch, ps.period, period)
		}

		p.Meta().Timestamp = ps.payload.Meta().Timestamp
		ps.payload = p
		ps.conn = c

		s.log.WithField("payload", payloadName(p)).
			Debug("periodic payload replaced")

		return nil
	}

	ps := newPeriodicSender(c, p, period)
	s.periodic[ch] = ps

	return ps.start()
}

// PeriodicSenders returns the channels sent periodically on the bus.
func (s *Scheduler) PeriodicSenders() map[Channel]sim.VTime {
	out := make(map[Channel]sim.VTime, len(s.periodic))
	for ch, ps := range s.periodic {
		out[ch] = ps.period
	}

	return out
}
