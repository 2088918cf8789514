package network

import "container/heap"

// outgoingQueue orders payloads by type, lowest first. Payloads of the same
// type leave in the order they arrived.
type outgoingQueue struct {
	entries outgoingHeap
	nextSeq uint64
}

type outgoingEntry struct {
	payload Payload
	seq     uint64
}

func newOutgoingQueue() *outgoingQueue {
	return &outgoingQueue{}
}

func (q *outgoingQueue) Push(p Payload) {
	q.nextSeq++
	heap.Push(&q.entries, outgoingEntry{payload: p, seq: q.nextSeq})
}

func (q *outgoingQueue) Pop() Payload {
	if len(q.entries) == 0 {
		return nil
	}

	return heap.Pop(&q.entries).(outgoingEntry).payload
}

func (q *outgoingQueue) Len() int {
	return len(q.entries)
}

// Snapshot returns the queued payloads in transmission order.
func (q *outgoingQueue) Snapshot() []Payload {
	cp := make(outgoingHeap, len(q.entries))
	copy(cp, q.entries)

	out := make([]Payload, 0, len(cp))
	for len(cp) > 0 {
		out = append(out, heap.Pop(&cp).(outgoingEntry).payload)
	}

	return out
}

type outgoingHeap []outgoingEntry

func (h outgoingHeap) Len() int {
	return len(h)
}

func (h outgoingHeap) Less(i, j int) bool {
	ti := h[i].payload.Meta().Channel.Type
	tj := h[j].payload.Meta().Channel.Type

	if ti != tj {
		return ti < tj
	}

	return h[i].seq < h[j].seq
}

func (h outgoingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *outgoingHeap) Push(x any) {
	*h = append(*h, x.(outgoingEntry))
}

func (h *outgoingHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = outgoingEntry{}
	*h = old[:n-1]

	return e
}
