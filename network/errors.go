package network

import (
	"errors"
	"fmt"

	"github.com/sarchlab/elevsim/sim"
)

var (
	// ErrIllegalState is returned when an operation does not fit the way a
	// connection was created, such as an event-triggered registration on a
	// passive connection.
	ErrIllegalState = errors.New("network: illegal state")

	// ErrPeriodChange is returned when a periodic sender is registered again
	// with a different period.
	ErrPeriodChange = errors.New("network: period of a periodic sender cannot change")
)

// DeadlineMissedError reports a periodic sender whose previous instance did
// not complete before its deadline. It means the bus is oversubscribed and the
// run must stop.
type DeadlineMissedError struct {
	Bus           string
	Payload       string
	Channel       Channel
	Period        sim.VTime
	Deadline      sim.VTime
	LastTimestamp sim.VTime
}

func (e *DeadlineMissedError) Error() string {
	last := "never"
	if e.LastTimestamp != NoTimestamp {
		last = e.LastTimestamp.String()
	}

	return fmt.Sprintf(
		"network: %s: periodic sender %s (channel %s, period %s) "+
			"failed to meet deadline %s, last delivery %s",
		e.Bus, e.Payload, e.Channel, e.Period, e.Deadline, last)
}
