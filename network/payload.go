package network

import (
	"fmt"

	"github.com/sarchlab/elevsim/sim"
)

// NoTimestamp marks a payload that has not been handed to the bus since it
// was last enqueued.
const NoTimestamp = sim.Forever

// A Channel identifies a logical message stream. Payloads on the same channel
// are the unit of subscription.
type Channel struct {
	Type        int
	Replication int
}

func (c Channel) String() string {
	return fmt.Sprintf("%#x/%d", c.Type, c.Replication)
}

// A Payload is a message that travels on a bus. The bus clones the payload
// of the sender when the transmission starts and copies the clone into every
// registered receiver when the transmission completes.
type Payload interface {
	Meta() *PayloadMeta

	// BitSize returns the number of bits the payload occupies on the wire.
	BitSize() int

	// Clone returns a copy that the sender can keep mutating without
	// affecting the copy.
	Clone() Payload

	// CopyFrom overwrites the content of the payload with the content of src,
	// which is on the same channel.
	CopyFrom(src Payload) error
}

// PayloadMeta contains the meta data that is attached to every payload.
type PayloadMeta struct {
	// ID identifies one transmission. The bus assigns a new ID to each clone.
	ID string

	Name    string
	Channel Channel

	// Timestamp is the time at which the last transmission completes or
	// completed. It is NoTimestamp while the payload waits in the queue.
	Timestamp sim.VTime
}

// NewPayloadMeta creates the meta data of a payload that has never been
// sent.
func NewPayloadMeta(name string, ch Channel) PayloadMeta {
	return PayloadMeta{
		Name:      name,
		Channel:   ch,
		Timestamp: NoTimestamp,
	}
}

// HasTimestamp tells if the payload has been handed to the bus.
func (m *PayloadMeta) HasTimestamp() bool {
	return m.Timestamp != NoTimestamp
}

// A DropMarker is a payload that remembers whether its last transmission was
// dropped.
type DropMarker interface {
	SetLastDropped(dropped bool)
}

// A Node receives the event-triggered payloads it registered for.
type Node interface {
	// Receive is called after local has been updated with the delivered
	// content.
	Receive(local Payload)
}

// NodeFunc adapts a function to the Node interface.
type NodeFunc func(local Payload)

// Receive calls f(local).
func (f NodeFunc) Receive(local Payload) {
	f(local)
}

// A Ping is a general purpose payload that carries a single integer. Its wire
// size is fixed.
type Ping struct {
	PayloadMeta

	Value int
	Bits  int
}

// NewPing creates a Ping on the channel.
func NewPing(name string, ch Channel, bits int) *Ping {
	return &Ping{
		PayloadMeta: NewPayloadMeta(name, ch),
		Bits:        bits,
	}
}

// Meta returns the meta data of the ping.
func (p *Ping) Meta() *PayloadMeta {
	return &p.PayloadMeta
}

// BitSize returns the fixed wire size of the ping.
func (p *Ping) BitSize() int {
	return p.Bits
}

// Clone returns a copy of the ping with a different ID.
func (p *Ping) Clone() Payload {
	clone := *p
	clone.ID = sim.GetIDGenerator().Generate()

	return &clone
}

// CopyFrom copies the value of another ping.
func (p *Ping) CopyFrom(src Payload) error {
	other, ok := src.(*Ping)
	if !ok {
		return fmt.Errorf("%w: cannot copy %T into a ping",
			sim.ErrInvalidArgument, src)
	}

	if other.Channel != p.Channel {
		return fmt.Errorf("%w: cannot copy channel %s into channel %s",
			sim.ErrInvalidArgument, other.Channel, p.Channel)
	}

	p.ID = other.ID
	p.Timestamp = other.Timestamp
	p.Value = other.Value
	p.Bits = other.Bits

	return nil
}

func (p *Ping) String() string {
	return fmt.Sprintf("%s[%s]=%d", p.Name, p.Channel, p.Value)
}
