package tracing

import (
	"fmt"
	"strings"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// The events a MessageRecord can describe. They are the names of the scheduler
// hook positions.
var (
	EventEnqueue = network.HookPosEnqueue.Name
	EventTxStart = network.HookPosTxStart.Name
	EventTxDrop  = network.HookPosTxDrop.Name
	EventDeliver = network.HookPosDeliver.Name
	EventAbort   = network.HookPosAbort.Name
)

// A MessageRecord describes one thing that happened to a payload on a bus.
type MessageRecord struct {
	ID          string
	Time        float64
	TimeNS      int64
	Bus         string
	Event       string
	Payload     string
	Type        int
	Replication int
	Bits        int
	Stage       string
	FaultModels string
}

// At returns the time of the record.
func (r MessageRecord) At() sim.VTime {
	return sim.VTime(r.TimeNS)
}

// Channel returns the channel of the payload.
func (r MessageRecord) Channel() network.Channel {
	return network.Channel{Type: r.Type, Replication: r.Replication}
}

type named interface {
	Name() string
}

// RecordFromHook converts the context of a scheduler hook into a record. It
// returns false for contexts that do not come from a scheduler position.
func RecordFromHook(ctx sim.HookCtx) (MessageRecord, bool) {
	if !isMessagePos(ctx.Pos) {
		return MessageRecord{}, false
	}

	p, ok := ctx.Item.(network.Payload)
	if !ok {
		return MessageRecord{}, false
	}

	meta := p.Meta()
	rec := MessageRecord{
		ID:          meta.ID,
		Time:        ctx.Now.Seconds(),
		TimeNS:      int64(ctx.Now),
		Event:       ctx.Pos.Name,
		Payload:     describe(p),
		Type:        meta.Channel.Type,
		Replication: meta.Channel.Replication,
		Bits:        p.BitSize(),
	}

	if n, ok := ctx.Domain.(named); ok {
		rec.Bus = n.Name()
	}

	if d, ok := ctx.Detail.(network.DropDetail); ok {
		rec.Stage = d.Stage.String()
		rec.FaultModels = strings.Join(d.By, ",")
	}

	return rec, true
}

func isMessagePos(pos *sim.HookPos) bool {
	switch pos {
	case network.HookPosEnqueue,
		network.HookPosTxStart,
		network.HookPosTxDrop,
		network.HookPosDeliver,
		network.HookPosAbort:
		return true
	default:
		return false
	}
}

func describe(p network.Payload) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}

	if name := p.Meta().Name; name != "" {
		return name
	}

	return p.Meta().Channel.String()
}
