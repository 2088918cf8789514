package faultmodel

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// SubsystemDropMessages names the random stream of DropMessages.
const SubsystemDropMessages = "faultmodel/drop-messages"

// DropMessagesStats counts the decisions of DropMessages.
type DropMessagesStats struct {
	Dropped uint64
	Passed  uint64
}

// Ratio returns the fraction of dropped messages.
func (s DropMessagesStats) Ratio() float64 {
	total := s.Dropped + s.Passed
	if total == 0 {
		return 0
	}

	return float64(s.Dropped) / float64(total)
}

// DropMessages drops a percentage of the deliveries at random. The first
// instance of a type is never dropped, and neither is an instance that
// follows a dropped one, so a receiver never misses two instances in a row.
type DropMessages struct {
	base

	probability float64
	rng         *rand.Rand
	history     map[int]bool
	stats       DropMessagesStats
}

// NewDropMessages creates a fault model that drops percentage percent of the
// deliveries.
func NewDropMessages(k *sim.Kernel, percentage float64) (*DropMessages, error) {
	if math.IsNaN(percentage) || percentage < 0 || percentage > 100 {
		return nil, fmt.Errorf("%w: drop percentage %v is not in [0, 100]",
			sim.ErrInvalidArgument, percentage)
	}

	return &DropMessages{
		base:        newBase(k, "DropMessages", network.KindDropMessages),
		probability: percentage / 100,
		rng:         k.Random().ForSubsystem(SubsystemDropMessages),
		history:     make(map[int]bool),
	}, nil
}

// Stats returns the decision counters.
func (d *DropMessages) Stats() DropMessagesStats {
	return d.stats
}

// CanDeliver decides whether the message is dropped.
func (d *DropMessages) CanDeliver(p network.Payload) network.Verdict {
	t := p.Meta().Channel.Type

	drop := false
	if lastDropped, seen := d.history[t]; seen && !lastDropped {
		drop = d.rng.Float64() < d.probability
	}

	d.history[t] = drop

	if !drop {
		d.stats.Passed++
		return network.Pass
	}

	d.stats.Dropped++
	d.log.WithField("payload", p.Meta().Name).Info("message dropped")

	return network.Drop
}

// Report summarizes the decisions.
func (d *DropMessages) Report() string {
	return fmt.Sprintf("Drop count=%d, Not Dropped=%d, Percentage=%.2f",
		d.stats.Dropped, d.stats.Passed, d.stats.Ratio())
}
