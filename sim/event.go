package sim

import "fmt"

// QueueKind selects which of the two kernel queues an event lives in.
type QueueKind int

const (
	// SimulationQueue holds events that animate the simulated system. Events
	// at the same time are released in a randomized order.
	SimulationQueue QueueKind = iota

	// SystemQueue holds bookkeeping events of the harness itself. They are
	// released in FIFO order and before any simulation event of the same time.
	SystemQueue
)

func (k QueueKind) String() string {
	switch k {
	case SimulationQueue:
		return "simulation"
	case SystemQueue:
		return "system"
	default:
		return fmt.Sprintf("QueueKind(%d)", int(k))
	}
}

type eventState int

const (
	eventLive eventState = iota
	eventReleased
	eventCancelled
)

// A Handler defines what happens when an event is released.
//
// Returning an error halts the kernel; RunUntil and Step return the error
// wrapped in a HandlerError.
type Handler interface {
	Handle(e *Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(e *Event) error

// Handle calls f(e).
func (f HandlerFunc) Handle(e *Event) error {
	return f(e)
}

// An Event is a callback scheduled at a future virtual time. The kernel owns
// the event while it is queued. The pointer returned by Schedule is the handle
// used to cancel it.
type Event struct {
	time    VTime
	seq     uint64
	tie     uint64
	handler Handler
	data    any
	kind    QueueKind
	state   eventState

	heapIndex int
}

// Time returns the virtual time at which the event fires.
func (e *Event) Time() VTime {
	return e.time
}

// Seq returns the insertion sequence number of the event.
func (e *Event) Seq() uint64 {
	return e.seq
}

// Data returns the payload passed to Schedule.
func (e *Event) Data() any {
	return e.data
}

// Handler returns the handler that the event is delivered to.
func (e *Event) Handler() Handler {
	return e.handler
}

// Kind returns the queue the event was scheduled on.
func (e *Event) Kind() QueueKind {
	return e.kind
}

// IsScheduled tells if the event is still waiting to be released.
func (e *Event) IsScheduled() bool {
	return e.state == eventLive
}

// IsCancelled tells if the event was cancelled before its release.
func (e *Event) IsCancelled() bool {
	return e.state == eventCancelled
}

// IsReleased tells if the event handler has been invoked.
func (e *Event) IsReleased() bool {
	return e.state == eventReleased
}

func (e *Event) String() string {
	return fmt.Sprintf("Event[#%d %s @ %s]", e.seq, e.kind, e.time)
}
