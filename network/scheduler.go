package network

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/elevsim/sim"
)

// Stats counts what happened to the payloads of a scheduler.
type Stats struct {
	Enqueued          uint64
	Started           uint64
	Delivered         uint64
	DroppedAtStart    uint64
	DroppedAtDelivery uint64
	Aborted           uint64
	DeadlinesMissed   uint64
}

type listener struct {
	conn  *Connection
	local Payload
}

// A Scheduler models a shared bus. Payloads are transmitted one at a time in
// the order of their type, lowest first. The transmission of a payload takes
// its wire size times the bit time of the bus.
type Scheduler struct {
	*sim.HookableBase

	name    string
	kernel  *sim.Kernel
	bitTime sim.VTime
	log     *logrus.Entry

	queue   *outgoingQueue
	current Payload
	source  Payload
	timer   *sim.Timer

	// arbitration lets the payloads that a handler enqueues on an idle bus
	// compete, so that the one with the lowest type goes first.
	arbitration *sim.Timer

	listeners map[Channel][]listener
	receivers map[Channel][]listener
	periodic  map[Channel]*periodicSender

	faultModels []FaultModel
	utilization *Utilization
	stats       Stats
}

// Name returns the name of the bus.
func (s *Scheduler) Name() string {
	return s.name
}

// Kernel returns the kernel that drives the bus.
func (s *Scheduler) Kernel() *sim.Kernel {
	return s.kernel
}

// BitTime returns the time it takes to transmit one bit.
func (s *Scheduler) BitTime() sim.VTime {
	return s.bitTime
}

// Logger returns the logger of the bus.
func (s *Scheduler) Logger() *logrus.Entry {
	return s.log
}

// Utilization returns the utilization accounting of the bus.
func (s *Scheduler) Utilization() *Utilization {
	return s.utilization
}

// Stats returns the payload counters.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// QueueLen returns the number of payloads waiting for the bus.
func (s *Scheduler) QueueLen() int {
	return s.queue.Len()
}

// Queued returns the waiting payloads in transmission order.
func (s *Scheduler) Queued() []Payload {
	return s.queue.Snapshot()
}

// Current returns the payload in flight, or nil if the bus is idle.
func (s *Scheduler) Current() Payload {
	return s.current
}

// IsMessagePending tells if a payload is in flight.
func (s *Scheduler) IsMessagePending() bool {
	return s.current != nil
}

// NewConnection creates a connection that can receive event-triggered
// payloads on behalf of node.
func (s *Scheduler) NewConnection(name string, node Node) *Connection {
	return &Connection{
		name:      name,
		scheduler: s,
		node:      node,
		enabled:   true,
	}
}

// NewPassiveConnection creates a connection that only supports
// time-triggered reception.
func (s *Scheduler) NewPassiveConnection(name string) *Connection {
	return s.NewConnection(name, nil)
}

// RegisterFaultModel appends a fault model to the chain.
func (s *Scheduler) RegisterFaultModel(fm FaultModel) error {
	if fm == nil {
		return fmt.Errorf("%w: nil fault model", sim.ErrInvalidArgument)
	}

	if a, ok := fm.(Attacher); ok {
		if err := a.Attach(s); err != nil {
			return err
		}
	}

	s.faultModels = append(s.faultModels, fm)
	s.log.WithField("fault_model", fm.Name()).Info("fault model registered")

	return nil
}

// UnregisterFaultModel removes a fault model from the chain. It returns false
// if the fault model was not registered.
func (s *Scheduler) UnregisterFaultModel(fm FaultModel) bool {
	for i, registered := range s.faultModels {
		if registered == fm {
			s.faultModels = append(s.faultModels[:i:i], s.faultModels[i+1:]...)
			s.log.WithField("fault_model", fm.Name()).
				Info("fault model unregistered")

			return true
		}
	}

	return false
}

// FaultModels returns the registered fault models in registration order.
func (s *Scheduler) FaultModels() []FaultModel {
	return append([]FaultModel(nil), s.faultModels...)
}

// Enqueue puts a payload in the outgoing queue. If the bus is idle, the
// transmission starts at the current time, after every payload enqueued at
// the same time has entered the queue.
func (s *Scheduler) Enqueue(p Payload) {
	p.Meta().Timestamp = NoTimestamp
	s.queue.Push(p)
	s.stats.Enqueued++

	s.log.WithField("payload", payloadName(p)).Debug("enqueued")
	s.invoke(HookPosEnqueue, p, nil)

	if s.current == nil && !s.arbitration.IsRunning() {
		if err := s.arbitration.Start(0, nil); err != nil {
			s.log.Panic(err)
		}
	}
}

func (s *Scheduler) arbitrate(_ *sim.Event) error {
	if s.current == nil {
		s.sendNext()
	}

	return nil
}

func (s *Scheduler) sendNext() {
	for s.queue.Len() > 0 {
		p := s.queue.Pop()

		var droppers []string

		for _, fm := range s.FaultModels() {
			if fm.CanStart(p) == Drop {
				droppers = append(droppers, fm.Name())
			}
		}

		bits := p.BitSize()
		delay := s.bitTime.Mul(int64(bits))
		p.Meta().Timestamp = s.kernel.Now().Add(delay)

		if len(droppers) > 0 {
			s.stats.DroppedAtStart++
			markDropped(p, true)
			s.log.WithFields(logrus.Fields{
				"payload":      payloadName(p),
				"fault_models": droppers,
			}).Info("dropped at start")
			s.invoke(HookPosTxDrop, p,
				DropDetail{Stage: StageStart, By: droppers})

			continue
		}

		s.source = p
		s.current = p.Clone()
		s.stats.Started++
		s.utilization.start()

		s.log.WithFields(logrus.Fields{
			"payload": payloadName(p),
			"bits":    bits,
			"delay":   delay.String(),
		}).Debug("transmission started")
		s.invoke(HookPosTxStart, s.current,
			TxStartDetail{Bits: bits, Delay: delay})

		if err := s.timer.Start(delay, s.current); err != nil {
			s.log.Panic(err)
		}

		return
	}
}

// Handle completes the transmission in flight.
func (s *Scheduler) Handle(_ *sim.Event) error {
	p := s.current
	if p == nil {
		return nil
	}

	var droppers []string

	for _, fm := range s.FaultModels() {
		if fm.CanDeliver(p) == Drop {
			droppers = append(droppers, fm.Name())
		}
	}

	// A fault model aborted the payload from within CanDeliver. The abort
	// already released the bus.
	if s.current != p {
		return nil
	}

	var err error

	if len(droppers) == 0 {
		err = s.deliver(p)
	} else {
		s.stats.DroppedAtDelivery++
		markDropped(s.source, true)
		s.log.WithFields(logrus.Fields{
			"payload":      payloadName(p),
			"fault_models": droppers,
		}).Info("dropped at delivery")
		s.invoke(HookPosTxDrop, p,
			DropDetail{Stage: StageDelivery, By: droppers})
	}

	s.current = nil
	s.source = nil
	s.utilization.end()
	s.sendNext()

	return err
}

func (s *Scheduler) deliver(p Payload) error {
	ch := p.Meta().Channel

	markDropped(s.source, false)
	markDropped(p, false)

	for _, l := range s.listeners[ch] {
		if !l.conn.enabled {
			continue
		}

		if err := l.local.CopyFrom(p); err != nil {
			return fmt.Errorf("network: %s: delivering %s to %s: %w",
				s.name, payloadName(p), l.conn.name, err)
		}
	}

	for _, r := range s.receivers[ch] {
		if !r.conn.enabled {
			continue
		}

		r.conn.node.Receive(r.local)
	}

	s.stats.Delivered++
	s.log.WithField("payload", payloadName(p)).Debug("delivered")
	s.invoke(HookPosDeliver, p, nil)

	return nil
}

// DropCurrentMessage aborts the payload in flight on behalf of a fault model.
// The next queued payload starts immediately. It returns false if the bus is
// idle.
func (s *Scheduler) DropCurrentMessage(source FaultModel) bool {
	if s.current == nil {
		return false
	}

	by := "unknown"
	if source != nil {
		by = source.Name()
	}

	p := s.current

	s.timer.Cancel()
	s.current = nil
	markDropped(s.source, true)
	s.source = nil
	s.stats.Aborted++
	s.utilization.end()

	s.log.WithFields(logrus.Fields{
		"payload":     payloadName(p),
		"fault_model": by,
	}).Info("aborted in flight")
	s.invoke(HookPosAbort, p,
		DropDetail{Stage: StageInFlight, By: []string{by}})

	s.sendNext()

	return true
}

func (s *Scheduler) invoke(pos *sim.HookPos, p Payload, detail any) {
	if s.NumHooks() == 0 {
		return
	}

	s.InvokeHook(sim.HookCtx{
		Domain: s,
		Pos:    pos,
		Now:    s.kernel.Now(),
		Item:   p,
		Detail: detail,
	})
}

func markDropped(p Payload, dropped bool) {
	if m, ok := p.(DropMarker); ok {
		m.SetLastDropped(dropped)
	}
}

func payloadName(p Payload) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}

	meta := p.Meta()
	if meta.Name != "" {
		return meta.Name
	}

	return meta.Channel.String()
}
