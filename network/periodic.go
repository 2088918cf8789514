package network

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/elevsim/sim"
)

// periodicSender enqueues a payload once every period and checks that the
// previous instance made it through the bus before its deadline.
type periodicSender struct {
	conn     *Connection
	payload  Payload
	sent     Payload
	period   sim.VTime
	deadline sim.VTime
	timer    *sim.Timer
}

func newPeriodicSender(
	c *Connection,
	p Payload,
	period sim.VTime,
) *periodicSender {
	ps := &periodicSender{
		conn:    c,
		payload: p,
		period:  period,
	}
	ps.timer = sim.NewTimer(c.scheduler.kernel, ps)

	return ps
}

func (ps *periodicSender) start() error {
	ps.deadline = ps.conn.scheduler.kernel.Now().Add(ps.period)

	if err := ps.timer.Start(ps.period, nil); err != nil {
		return err
	}

	return ps.send()
}

// send enqueues the current payload and remembers the instance whose
// timestamp the next deadline check reads.
func (ps *periodicSender) send() error {
	if !ps.conn.enabled {
		ps.sent = nil
		return nil
	}

	ps.sent = ps.payload

	return ps.conn.SendOnce(ps.payload)
}

// Handle checks the deadline of the previous instance and sends the next one.
func (ps *periodicSender) Handle(_ *sim.Event) error {
	s := ps.conn.scheduler

	ts := NoTimestamp
	if ps.sent != nil {
		ts = ps.sent.Meta().Timestamp
	}

	if ps.sent != nil && ps.conn.enabled &&
		(ts == NoTimestamp || ts > ps.deadline) {
		s.stats.DeadlinesMissed++

		err := &DeadlineMissedError{
			Bus:           s.name,
			Payload:       payloadName(ps.payload),
			Channel:       ps.payload.Meta().Channel,
			Period:        ps.period,
			Deadline:      ps.deadline,
			LastTimestamp: ts,
		}
		s.log.WithFields(logrus.Fields{
			"payload":  err.Payload,
			"deadline": ps.deadline.String(),
		}).Error("periodic sender failed to meet deadline")

		return err
	}

	ps.deadline = ps.deadline.Add(ps.period)

	if err := ps.timer.Start(ps.period, nil); err != nil {
		return err
	}

	return ps.send()
}
