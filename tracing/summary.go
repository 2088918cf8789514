package tracing

import (
	"context"
	"sort"

	"github.com/sarchlab/elevsim/datarecording"
	"github.com/sarchlab/elevsim/network"
	"github.com/sarchlab/elevsim/sim"
)

// ChannelSummary counts what happened on one channel of a bus in a trace.
type ChannelSummary struct {
	Bus       string
	Channel   network.Channel
	Enqueued  int
	Started   int
	Delivered int
	Dropped   int
	Aborted   int
	Bits      int
	First     sim.VTime
	Last      sim.VTime
}

// ReadTrace reads the records a DBTracer stored. The records come back in
// the order they were traced.
func ReadTrace(
	ctx context.Context,
	r datarecording.DataReader,
	params datarecording.QueryParams,
) ([]MessageRecord, error) {
	if params.OrderBy == "" {
		params.OrderBy = "TimeNS, rowid"
	}

	return datarecording.QueryAll[MessageRecord](
		ctx, r, DefaultTableName, params)
}

// Summarize groups records by bus and channel. The summaries are sorted by
// bus, then by channel type and replication.
func Summarize(records []MessageRecord) []ChannelSummary {
	type key struct {
		bus string
		ch  network.Channel
	}

	byKey := make(map[key]*ChannelSummary)

	for _, rec := range records {
		k := key{bus: rec.Bus, ch: rec.Channel()}

		s, ok := byKey[k]
		if !ok {
			s = &ChannelSummary{
				Bus:     rec.Bus,
				Channel: k.ch,
				First:   rec.At(),
			}
			byKey[k] = s
		}

		s.Last = rec.At()

		switch rec.Event {
		case EventEnqueue:
			s.Enqueued++
		case EventTxStart:
			s.Started++
			s.Bits += rec.Bits
		case EventDeliver:
			s.Delivered++
		case EventTxDrop:
			s.Dropped++
		case EventAbort:
			s.Aborted++
		}
	}

	out := make([]ChannelSummary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Bus != out[j].Bus {
			return out[i].Bus < out[j].Bus
		}

		if out[i].Channel.Type != out[j].Channel.Type {
			return out[i].Channel.Type < out[j].Channel.Type
		}

		return out[i].Channel.Replication < out[j].Channel.Replication
	})

	return out
}
