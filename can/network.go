package can

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// DefaultBitRate is the bit rate of the control network, in bits per second.
const DefaultBitRate = 125000

// ErrDuplicateSender is returned when two mailboxes send the same message id.
var ErrDuplicateSender = errors.New("can: message id is already sent")

// Network is the CAN bus that connects the controllers. Each message id can
// have one periodic sender only.
type Network struct {
	*network.Scheduler

	senders map[uint32]*Mailbox
}

// NewNetwork creates a CAN bus with the given bit time.
func NewNetwork(
	k *sim.Kernel,
	bitTime sim.VTime,
	log *logrus.Entry,
) *Network {
	s := network.MakeBuilder().
		WithKernel(k).
		WithBitTime(bitTime).
		WithLogger(log).
		Build("CANNetwork")

	return &Network{
		Scheduler: s,
		senders:   make(map[uint32]*Mailbox),
	}
}

// Senders returns the message ids that have a periodic sender, in ascending
// order.
func (n *Network) Senders() []uint32 {
	ids := make([]uint32, 0, len(n.senders))
	for id := range n.senders {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Connection is the connection a controller uses to reach the CAN bus.
type Connection struct {
	network *Network
	conn    *network.Connection
}

// Connect creates a CAN connection.
func (n *Network) Connect(name string) *Connection {
	return &Connection{
		network: n,
		conn:    n.NewPassiveConnection(name),
	}
}

// FrameworkConnection creates an unrestricted connection, for the parts of
// the harness that observe or stimulate the bus.
func (n *Network) FrameworkConnection(
	name string,
	node network.Node,
) *network.Connection {
	return n.NewConnection(name, node)
}

// RegisterTimeTriggered keeps m updated with every delivery of its message id.
func (c *Connection) RegisterTimeTriggered(m *Mailbox) error {
	if m == nil {
		return fmt.Errorf("%w: nil mailbox", sim.ErrInvalidArgument)
	}

	return c.conn.RegisterTimeTriggered(m)
}

// SendPeriodic sends m once every period. Only one mailbox can send a
// message id.
func (c *Connection) SendPeriodic(m *Mailbox, period sim.VTime) error {
	if m == nil {
		return fmt.Errorf("%w: nil mailbox", sim.ErrInvalidArgument)
	}

	if owner, found := c.network.senders[m.id]; found && owner != m {
		return fmt.Errorf("%w: %#x", ErrDuplicateSender, m.id)
	}

	if err := c.conn.SendPeriodic(m, period); err != nil {
		return err
	}

	c.network.senders[m.id] = m

	return nil
}

// SetEnabled turns the connection on or off.
func (c *Connection) SetEnabled(enabled bool) {
	c.conn.SetEnabled(enabled)
}
