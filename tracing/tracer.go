// Package tracing collects what happens to the payloads on a bus.
package tracing

import "github.com/sarchlab/elevsim/sim"

// A Tracer consumes the records of a bus.
type Tracer interface {
	Trace(rec MessageRecord)
}

// MessageFilter selects the records a tracer is interested in.
type MessageFilter func(rec MessageRecord) bool

// NamedHookable is a hookable object with a name, such as a bus.
type NamedHookable interface {
	sim.Hookable
	Name() string
}
