package network

import "fmt"

// Verdict is the answer of a fault model about a message.
type Verdict int

// The verdicts a fault model can return.
const (
	Pass Verdict = iota
	Drop
)

func (v Verdict) String() string {
	if v == Drop {
		return "drop"
	}

	return "pass"
}

// FaultKind enumerates the fault models that ship with the simulator.
type FaultKind int

// Kinds of fault models.
const (
	KindCustom FaultKind = iota
	KindBlockMessage
	KindBlackout
	KindDropMessages
	KindBitError
	KindOverride
)

var faultKindNames = map[FaultKind]string{
	KindCustom:       "custom",
	KindBlockMessage: "block-message",
	KindBlackout:     "blackout",
	KindDropMessages: "drop-messages",
	KindBitError:     "bit-error",
	KindOverride:     "override",
}

func (k FaultKind) String() string {
	if name, ok := faultKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("FaultKind(%d)", int(k))
}

// A FaultModel is consulted by a scheduler for every message. CanStart runs
// when a message is taken from the queue, before its transmission delay is
// known to the receivers. CanDeliver runs when the transmission completes and
// may mutate the in-flight payload, as long as its wire size does not change.
//
// Every registered fault model is consulted, even after another one voted to
// drop the message.
type FaultModel interface {
	Name() string
	Kind() FaultKind
	CanStart(p Payload) Verdict
	CanDeliver(p Payload) Verdict
}

// An Attacher is a fault model that needs to know the scheduler it is
// registered to, for example to abort the message in flight.
type Attacher interface {
	Attach(s *Scheduler) error
}

// A Summarizer can summarize what a fault model did during a run.
type Summarizer interface {
	Report() string
}
