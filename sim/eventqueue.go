package sim

import (
	"container/heap"
)

// eventQueue is a queue of events ordered by time. Events at the same time
// are ordered by their tie-break key and then by insertion order.
type eventQueue struct {
	events eventHeap
}

func newEventQueue() *eventQueue {
	q := new(eventQueue)
	q.events = make([]*Event, 0)
	heap.Init(&q.events)

	return q
}

// Push adds an event to the event queue.
func (q *eventQueue) Push(evt *Event) {
	heap.Push(&q.events, evt)
}

// Pop removes and returns the next event, or nil if the queue is empty.
func (q *eventQueue) Pop() *Event {
	if q.events.Len() == 0 {
		return nil
	}

	return heap.Pop(&q.events).(*Event)
}

// Peek returns the next event without removing it, or nil if the queue is
// empty.
func (q *eventQueue) Peek() *Event {
	if q.events.Len() == 0 {
		return nil
	}

	return q.events[0]
}

// Remove takes a queued event out of the queue.
func (q *eventQueue) Remove(evt *Event) bool {
	i := evt.heapIndex
	if i < 0 || i >= len(q.events) || q.events[i] != evt {
		return false
	}

	heap.Remove(&q.events, i)

	return true
}

// Len returns the number of events in the queue.
func (q *eventQueue) Len() int {
	return q.events.Len()
}

type eventHeap []*Event

func (h eventHeap) Len() int {
	return len(h)
}

// Less returns true if the i-th event is released before the j-th event.
func (h eventHeap) Less(i, j int) bool {
	a, b := h[i], h[j]

	if a.time != b.time {
		return a.time < b.time
	}

	if a.tie != b.tie {
		return a.tie < b.tie
	}

	return a.seq < b.seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *eventHeap) Push(x any) {
	evt := x.(*Event)
	evt.heapIndex = len(*h)
	*h = append(*h, evt)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	evt := old[n-1]
	old[n-1] = nil
	evt.heapIndex = -1
	*h = old[0 : n-1]

	return evt
}
