package sim

import "errors"

var (
	// ErrInvalidArgument is returned when a caller passes a value the kernel
	// cannot accept, such as a negative delay.
	ErrInvalidArgument = errors.New("sim: invalid argument")

	// ErrSimulationEnded is returned by Step when the simulation has been
	// ended explicitly.
	ErrSimulationEnded = errors.New("sim: simulation ended")
)

// HandlerError wraps an error returned by an event handler together with the
// event that produced it.
type HandlerError struct {
	Event *Event
	Err   error
}

func (e *HandlerError) Error() string {
	return "sim: handler failed at " + e.Event.Time().String() + ": " +
		e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
