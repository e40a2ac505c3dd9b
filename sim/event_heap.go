package sim

import "container/heap"

// timedEvent is a one-shot timed callback waiting in the event queue.
type timedEvent struct {
	time uint64
	seq  uint64
	cb   func() int32
}

// eventHeap implements a priority queue with deterministic ordering.
// Ordering: timestamp, then registration sequence.
type eventHeap struct {
	events []*timedEvent
}

func newEventHeap() *eventHeap {
	h := &eventHeap{events: make([]*timedEvent, 0)}
	heap.Init(h)
	return h
}

// Len implements heap.Interface.
func (h *eventHeap) Len() int {
	return len(h.events)
}

// Less implements heap.Interface. Two events due at the same timestamp fire
// in registration order.
func (h *eventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]
	if ei.time != ej.time {
		return ei.time < ej.time
	}
	return ei.seq < ej.seq
}

// Swap implements heap.Interface.
func (h *eventHeap) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
}

// Push implements heap.Interface.
func (h *eventHeap) Push(x any) {
	h.events = append(h.events, x.(*timedEvent))
}

// Pop implements heap.Interface.
func (h *eventHeap) Pop() any {
	old := h.events
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.events = old[:n-1]
	return item
}

// PushEvent adds an event to the queue.
func (h *eventHeap) PushEvent(ev *timedEvent) {
	heap.Push(h, ev)
}

// PopEvent removes and returns the earliest event, or nil if empty.
func (h *eventHeap) PopEvent() *timedEvent {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*timedEvent)
}

// Peek returns the earliest event without removing it, or nil if empty.
func (h *eventHeap) Peek() *timedEvent {
	if h.Len() == 0 {
		return nil
	}
	return h.events[0]
}
