package network

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/elevsim/sim"
)

// A PhysicalNetwork carries the physical signals between the simulated plant
// and its sensors and actuators. It has a zero bit time, so every payload is
// delivered at the time it is sent.
type PhysicalNetwork struct {
	*Scheduler
}

// NewPhysicalNetwork creates a physical network.
func NewPhysicalNetwork(k *sim.Kernel, log *logrus.Entry) *PhysicalNetwork {
	s := MakeBuilder().
		WithKernel(k).
		WithLogger(log).
		Build("PhysicalNetwork")

	return &PhysicalNetwork{Scheduler: s}
}

// PhysicalConnection is the connection a module uses to reach the physical
// network. It can register one payload at most and send one payload at most.
type PhysicalConnection struct {
	conn        *Connection
	isReceiving bool
	isSending   bool
}

// Connect creates a physical connection.
func (n *PhysicalNetwork) Connect(name string) *PhysicalConnection {
	return &PhysicalConnection{conn: n.NewPassiveConnection(name)}
}

// FrameworkConnection creates an unrestricted connection, for the parts of
// the harness that observe or stimulate many signals.
func (n *PhysicalNetwork) FrameworkConnection(
	name string,
	node Node,
) *Connection {
	return n.NewConnection(name, node)
}

// RegisterTimeTriggered registers the only payload the connection receives.
func (c *PhysicalConnection) RegisterTimeTriggered(local Payload) error {
	if c.isReceiving {
		return fmt.Errorf("%w: %s already receives a physical payload",
			ErrIllegalState, c.conn.name)
	}

	if err := c.conn.RegisterTimeTriggered(local); err != nil {
		return err
	}

	c.isReceiving = true

	return nil
}

// SendPeriodic registers the only payload the connection sends.
func (c *PhysicalConnection) SendPeriodic(p Payload, period sim.VTime) error {
	if c.isSending {
		return fmt.Errorf("%w: %s already sends a physical payload",
			ErrIllegalState, c.conn.name)
	}

	if err := c.conn.SendPeriodic(p, period); err != nil {
		return err
	}

	c.isSending = true

	return nil
}

// SetEnabled turns the connection on or off.
func (c *PhysicalConnection) SetEnabled(enabled bool) {
	c.conn.SetEnabled(enabled)
}
