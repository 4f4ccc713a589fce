// Package queue implements the cycling event priority queues: bounded
// max-heaps over event.Event ordered by (priority, insertion order), with
// lowest-priority eviction on overflow and per-cycle priority decay.
package queue

import (
	"container/heap"

	"ona/internal/event"
)

// DefaultEventDurability is the per-cycle multiplier applied to every
// queued event's priority absent configuration (spec: EVENT_DURABILITY=0.9999).
const DefaultEventDurability = 0.9999

type item struct {
	event    event.Event
	priority float64
	seq      int
}

// heapData is a max-heap on (priority, seq): higher priority pops first;
// among equal priorities, the earlier-inserted item pops first (stable
// tie-break per spec §4.J).
type heapData []*item

func (h heapData) Len() int { return len(h) }

func (h heapData) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h heapData) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *heapData) Push(x any) {
	*h = append(*h, x.(*item))
}

func (h *heapData) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Queue is a bounded priority queue of events. Zero value is not usable;
// construct with New.
type Queue struct {
	data    heapData
	max     int
	nextSeq int
}

// New creates an empty Queue that holds at most max events.
func New(max int) *Queue {
	return &Queue{max: max}
}

// Len reports how many events are currently queued.
func (q *Queue) Len() int { return q.data.Len() }

// Push inserts ev with the given priority. If the queue is already at
// capacity, the lowest-priority element (including ev itself, if it is the
// new lowest) is evicted to make room — per spec, queue overflow silently
// evicts rather than erroring.
func (q *Queue) Push(ev event.Event, priority float64) {
	heap.Push(&q.data, &item{event: ev, priority: priority, seq: q.nextSeq})
	q.nextSeq++

	if q.data.Len() <= q.max {
		return
	}
	worst := 0
	for i := 1; i < q.data.Len(); i++ {
		if q.data[i].priority < q.data[worst].priority ||
			(q.data[i].priority == q.data[worst].priority && q.data[i].seq > q.data[worst].seq) {
			worst = i
		}
	}
	heap.Remove(&q.data, worst)
}

// Pop removes and returns the highest-priority event. ok is false if the
// queue is empty.
func (q *Queue) Pop() (ev event.Event, ok bool) {
	if q.data.Len() == 0 {
		return event.Event{}, false
	}
	it := heap.Pop(&q.data).(*item)
	return it.event, true
}

// DecayAll multiplies every queued event's priority by durability, applied
// once per cycle (spec §5). The heap invariant is restored after mutating
// priorities in place.
func (q *Queue) DecayAll(durability float64) {
	for _, it := range q.data {
		it.priority *= durability
	}
	heap.Init(&q.data)
}
