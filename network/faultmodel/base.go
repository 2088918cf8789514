package faultmodel

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// ErrNotAttached is returned when a fault model needs a bus before it has been
// registered on one.
var ErrNotAttached = errors.New("faultmodel: not registered on a bus")

// base carries what every fault model has: a name, a kind, a logger and the
// bus it was registered on.
type base struct {
	name   string
	kind   network.FaultKind
	kernel *sim.Kernel
	log    *logrus.Entry
	bus    *network.Scheduler
}

func newBase(k *sim.Kernel, name string, kind network.FaultKind) base {
	return base{
		name:   name,
		kind:   kind,
		kernel: k,
		log:    k.Logger().WithField("component", name),
	}
}

// Name returns the name of the fault model.
func (b *base) Name() string {
	return b.name
}

// Kind returns the kind of the fault model.
func (b *base) Kind() network.FaultKind {
	return b.kind
}

// Bus returns the bus the fault model is registered on, or nil.
func (b *base) Bus() *network.Scheduler {
	return b.bus
}

// Attach records the bus the fault model is registered on.
func (b *base) Attach(s *network.Scheduler) error {
	if s == nil {
		return fmt.Errorf("%w: nil scheduler", sim.ErrInvalidArgument)
	}

	b.bus = s
	b.log = b.log.WithField("bus", s.Name())

	return nil
}

// CanStart lets every message start.
func (b *base) CanStart(network.Payload) network.Verdict {
	return network.Pass
}

// CanDeliver lets every message through.
func (b *base) CanDeliver(network.Payload) network.Verdict {
	return network.Pass
}

func (b *base) unregister(fm network.FaultModel) error {
	if b.bus == nil {
		return fmt.Errorf("%w: %s", ErrNotAttached, b.name)
	}

	b.bus.UnregisterFaultModel(fm)

	return nil
}
