package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// LatencyStats summarizes the time the payloads of a channel spent between
// entering the queue and reaching their receivers.
type LatencyStats struct {
	Delivered uint64
	Dropped   uint64
	Total     sim.VTime
	Max       sim.VTime
}

// Average returns the average latency of the delivered payloads.
func (s LatencyStats) Average() sim.VTime {
	if s.Delivered == 0 {
		return 0
	}

	return s.Total / sim.VTime(s.Delivered)
}

type busChannel struct {
	bus string
	ch  network.Channel
}

type inflight struct {
	ch       network.Channel
	enqueued sim.VTime
}

// LatencyTracer measures the latency of every channel it sees. If the same
// channel is queued more than once, the instances are matched in order.
type LatencyTracer struct {
	lock     sync.Mutex
	filter   MessageFilter
	queued   map[busChannel][]sim.VTime
	inflight map[string]inflight
	stats    map[busChannel]*LatencyStats
}

// NewLatencyTracer creates a tracer. A nil filter accepts every record.
func NewLatencyTracer(filter MessageFilter) *LatencyTracer {
	return &LatencyTracer{
		filter:   filter,
		queued:   make(map[busChannel][]sim.VTime),
		inflight: make(map[string]inflight),
		stats:    make(map[busChannel]*LatencyStats),
	}
}

// Trace updates the latency of the channel of the record.
func (t *LatencyTracer) Trace(rec MessageRecord) {
	if t.filter != nil && !t.filter(rec) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	key := busChannel{bus: rec.Bus, ch: rec.Channel()}

	switch rec.Event {
	case EventEnqueue:
		t.queued[key] = append(t.queued[key], rec.At())
	case EventTxStart:
		if enqueued, ok := t.pop(key); ok {
			t.inflight[rec.Bus] = inflight{ch: key.ch, enqueued: enqueued}
		}
	case EventTxDrop:
		if rec.Stage == network.StageStart.String() {
			t.pop(key)
		} else {
			delete(t.inflight, rec.Bus)
		}

		t.statsOf(key).Dropped++
	case EventAbort:
		delete(t.inflight, rec.Bus)
		t.statsOf(key).Dropped++
	case EventDeliver:
		f, ok := t.inflight[rec.Bus]
		if !ok || f.ch != key.ch {
			return
		}

		delete(t.inflight, rec.Bus)

		latency := rec.At().Sub(f.enqueued)
		s := t.statsOf(key)
		s.Delivered++
		s.Total += latency

		if latency > s.Max {
			s.Max = latency
		}
	}
}

func (t *LatencyTracer) pop(key busChannel) (sim.VTime, bool) {
	q := t.queued[key]
	if len(q) == 0 {
		return 0, false
	}

	enqueued := q[0]

	if len(q) == 1 {
		delete(t.queued, key)
	} else {
		t.queued[key] = q[1:]
	}

	return enqueued, true
}

func (t *LatencyTracer) statsOf(key busChannel) *LatencyStats {
	s, ok := t.stats[key]
	if !ok {
		s = &LatencyStats{}
		t.stats[key] = s
	}

	return s
}

// Stats returns the latency of a channel of a bus.
func (t *LatencyTracer) Stats(bus string, ch network.Channel) LatencyStats {
	t.lock.Lock()
	defer t.lock.Unlock()

	if s, ok := t.stats[busChannel{bus: bus, ch: ch}]; ok {
		return *s
	}

	return LatencyStats{}
}

// Channels returns the channels of a bus that have statistics, ordered by
// type and replication.
func (t *LatencyTracer) Channels(bus string) []network.Channel {
	t.lock.Lock()
	defer t.lock.Unlock()

	var out []network.Channel

	for key := range t.stats {
		if key.bus == bus {
			out = append(out, key.ch)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}

		return out[i].Replication < out[j].Replication
	})

	return out
}
