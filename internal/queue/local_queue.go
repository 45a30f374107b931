package queue

import (
	"reflect"
	"sync"

	"github.com/petrijr/cascade/pkg/api"
)

// LocalQueue is an unbounded FIFO queue. It is safe for concurrent use by
// any number of producers and consumers; Poll never blocks.
type LocalQueue struct {
	mu    sync.Mutex
	items []any

	// seen counts enqueued comparable values so OfferUnique can dedup
	// without scanning.
	seen map[any]int
}

// NewLocal creates an empty LocalQueue.
func NewLocal() *LocalQueue {
	return &LocalQueue{
		seen: make(map[any]int),
	}
}

// Offer enqueues v. It always succeeds.
func (q *LocalQueue) Offer(v any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, v)
	if isComparable(v) {
		q.seen[v]++
	}
}

// OfferUnique enqueues v unless an equal value is already enqueued, in
// which case it is a no-op. Values must be comparable; offering a
// non-comparable value returns ErrNotComparable.
//
// Equality is Go value equality, so items should be value-like: dedup of
// a value that is mutated after enqueue is undefined.
func (q *LocalQueue) OfferUnique(v any) error {
	if !isComparable(v) {
		return api.ErrNotComparable
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.seen[v] > 0 {
		return nil
	}
	q.items = append(q.items, v)
	q.seen[v]++
	return nil
}

// Poll removes and returns the oldest value. The second return is false
// when the queue is empty.
func (q *LocalQueue) Poll() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	v := q.items[0]
	q.items = q.items[1:]
	if isComparable(v) {
		if q.seen[v] <= 1 {
			delete(q.seen, v)
		} else {
			q.seen[v]--
		}
	}
	return v, true
}

// Empty reports whether the queue holds no values.
func (q *LocalQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the number of enqueued values.
func (q *LocalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func isComparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}
