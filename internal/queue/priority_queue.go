package queue

import (
	"container/heap"
	"sync"

	"github.com/petrijr/cascade/pkg/api"
)

// DefaultPriorityCapacity bounds a priority ingress unless overridden.
const DefaultPriorityCapacity = 200

// PriorityFunc computes the ordering key for a value. Smaller keys are
// polled first.
type PriorityFunc func(v any) float64

// Item wraps a value enqueued on a PriorityQueue. Callback, if present,
// is invoked on Value after the consuming node's transform completes.
type Item struct {
	Priority float64
	Value    any
	Callback func(v any)

	seq int64
}

// PriorityQueue is a bounded min-heap ordered by a caller-supplied
// priority function. It is safe for concurrent use. Ties are broken in
// offer order.
type PriorityQueue struct {
	mu       sync.Mutex
	heap     itemHeap
	seen     map[any]int
	capacity int
	prio     PriorityFunc
	nextSeq  int64
}

// NewPriority creates a PriorityQueue holding at most capacity items.
// capacity <= 0 uses DefaultPriorityCapacity.
func NewPriority(capacity int, prio PriorityFunc) *PriorityQueue {
	if capacity <= 0 {
		capacity = DefaultPriorityCapacity
	}
	return &PriorityQueue{
		seen:     make(map[any]int),
		capacity: capacity,
		prio:     prio,
	}
}

// Wrap turns a raw value into an Item keyed by the queue's priority
// function. Values that already are an *Item pass through unchanged, so
// callers can attach completion callbacks.
func (q *PriorityQueue) Wrap(v any) *Item {
	if it, ok := v.(*Item); ok {
		return it
	}
	return &Item{Priority: q.prio(v), Value: v}
}

// Offer enqueues it. It returns ErrQueueFull when the queue is at
// capacity.
func (q *PriorityQueue) Offer(it *Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.offerLocked(it)
}

// OfferUnique enqueues it unless an item wrapping an equal value is
// already enqueued. The wrapped value must be comparable.
func (q *PriorityQueue) OfferUnique(it *Item) error {
	if !isComparable(it.Value) {
		return api.ErrNotComparable
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.seen[it.Value] > 0 {
		return nil
	}
	return q.offerLocked(it)
}

func (q *PriorityQueue) offerLocked(it *Item) error {
	if q.heap.Len() >= q.capacity {
		return api.ErrQueueFull
	}
	it.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.heap, it)
	if isComparable(it.Value) {
		q.seen[it.Value]++
	}
	return nil
}

// Poll removes and returns the item with the smallest priority key. The
// second return is false when the queue is empty.
func (q *PriorityQueue) Poll() (*Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return nil, false
	}
	it := heap.Pop(&q.heap).(*Item)
	if isComparable(it.Value) {
		if q.seen[it.Value] <= 1 {
			delete(q.seen, it.Value)
		} else {
			q.seen[it.Value]--
		}
	}
	return it, true
}

// Empty reports whether the queue holds no items.
func (q *PriorityQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len() == 0
}

// Len returns the number of enqueued items.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// itemHeap implements heap.Interface over *Item.
type itemHeap []*Item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(*Item)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
