package faultmodel

import (
	"fmt"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// BlockMessage drops every message of one type during an interval, either
// when the message is about to start or when it is about to be delivered. It
// unregisters itself when the interval ends.
type BlockMessage struct {
	base

	msgType    int
	atDelivery bool
	interval   *Interval
	blocked    uint64
}

// NewBlockMessage creates a fault model that blocks msgType from start for
// duration.
func NewBlockMessage(
	k *sim.Kernel,
	msgType int,
	start, duration sim.VTime,
	atDelivery bool,
) (*BlockMessage, error) {
	b := &BlockMessage{
		base: newBase(k, fmt.Sprintf("BlockMessage(%#x)", msgType),
			network.KindBlockMessage),
		msgType:    msgType,
		atDelivery: atDelivery,
	}

	interval, err := NewInterval(k, start, duration, b.started, b.ended)
	if err != nil {
		return nil, err
	}

	b.interval = interval

	return b, nil
}

// Interval returns the interval of the fault.
func (b *BlockMessage) Interval() *Interval {
	return b.interval
}

// Blocked returns the number of messages dropped so far.
func (b *BlockMessage) Blocked() uint64 {
	return b.blocked
}

// CanStart drops the message if the fault blocks at start.
func (b *BlockMessage) CanStart(p network.Payload) network.Verdict {
	if b.atDelivery {
		return network.Pass
	}

	return b.check(p)
}

// CanDeliver drops the message if the fault blocks at delivery.
func (b *BlockMessage) CanDeliver(p network.Payload) network.Verdict {
	if !b.atDelivery {
		return network.Pass
	}

	return b.check(p)
}

func (b *BlockMessage) check(p network.Payload) network.Verdict {
	if !b.interval.IsActive() || p.Meta().Channel.Type != b.msgType {
		return network.Pass
	}

	b.blocked++
	b.log.WithField("type", fmt.Sprintf("%#x", b.msgType)).
		Info("blocked message")

	return network.Drop
}

// Report summarizes the fault.
func (b *BlockMessage) Report() string {
	return fmt.Sprintf("Blocked %d messages of type %#x", b.blocked, b.msgType)
}

func (b *BlockMessage) started() error {
	b.log.Info("begin blocking")
	return nil
}

func (b *BlockMessage) ended() error {
	if err := b.unregister(b); err != nil {
		return err
	}

	b.log.Info("end blocking")

	return nil
}
