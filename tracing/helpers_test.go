package tracing

import (
	. "github.com/onsi/gomega"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// dropType drops every payload of one type when it starts.
type dropType struct {
	msgType int
}

func (d *dropType) Name() string { return "dropType" }

func (d *dropType) Kind() network.FaultKind { return network.KindCustom }

func (d *dropType) CanStart(p network.Payload) network.Verdict {
	if p.Meta().Channel.Type == d.msgType {
		return network.Drop
	}

	return network.Pass
}

func (d *dropType) CanDeliver(network.Payload) network.Verdict {
	return network.Pass
}

// newBus creates a bus that transmits one bit per microsecond.
func newBus() (*sim.Kernel, *network.Scheduler, *network.Connection) {
	k := sim.MakeBuilder().WithSeed(3).Build()
	bus := network.MakeBuilder().
		WithKernel(k).
		WithBitTime(sim.Microsecond).
		Build("bus")

	return k, bus, bus.NewPassiveConnection("tx")
}

func send(c *network.Connection, msgType, bits int) {
	p := network.NewPing("ping", network.Channel{Type: msgType}, bits)
	Expect(c.SendOnce(p)).To(Succeed())
}
