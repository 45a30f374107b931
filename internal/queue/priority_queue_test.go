package queue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/cascade/pkg/api"
)

func neg(v any) float64 {
	return -float64(v.(int))
}

func TestPriorityQueueOrder(t *testing.T) {
	t.Parallel()

	q := NewPriority(10, neg)
	for _, v := range []int{3, 1, 2} {
		require.NoError(t, q.Offer(q.Wrap(v)))
	}

	// Larger values first under a negating key.
	for _, want := range []int{3, 2, 1} {
		it, ok := q.Poll()
		require.True(t, ok)
		require.Equal(t, want, it.Value)
	}

	_, ok := q.Poll()
	require.False(t, ok)
}

func TestPriorityQueueTieBreakIsOfferOrder(t *testing.T) {
	t.Parallel()

	q := NewPriority(10, func(any) float64 { return 0 })
	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, q.Offer(q.Wrap(v)))
	}
	for _, want := range []string{"a", "b", "c"} {
		it, ok := q.Poll()
		require.True(t, ok)
		require.Equal(t, want, it.Value)
	}
}

func TestPriorityQueueCapacity(t *testing.T) {
	t.Parallel()

	q := NewPriority(2, neg)
	require.NoError(t, q.Offer(q.Wrap(1)))
	require.NoError(t, q.Offer(q.Wrap(2)))

	err := q.Offer(q.Wrap(3))
	require.ErrorIs(t, err, api.ErrQueueFull)
	require.Equal(t, 2, q.Len())

	// Draining one makes room again.
	_, ok := q.Poll()
	require.True(t, ok)
	require.NoError(t, q.Offer(q.Wrap(3)))
}

func TestPriorityQueueOfferUnique(t *testing.T) {
	t.Parallel()

	q := NewPriority(10, neg)
	require.NoError(t, q.OfferUnique(q.Wrap(7)))
	require.NoError(t, q.OfferUnique(q.Wrap(7)))
	require.Equal(t, 1, q.Len())

	it, ok := q.Poll()
	require.True(t, ok)
	require.Equal(t, 7, it.Value)
	require.True(t, q.Empty())
}

func TestPriorityQueueWrapPassesItemsThrough(t *testing.T) {
	t.Parallel()

	q := NewPriority(10, neg)

	called := false
	it := &Item{Priority: -99, Value: 5, Callback: func(any) { called = true }}
	require.Same(t, it, q.Wrap(it))
	require.NoError(t, q.Offer(it))

	got, ok := q.Poll()
	require.True(t, ok)
	require.Same(t, it, got)
	require.NotNil(t, got.Callback)
	require.False(t, called, "queue must not invoke callbacks itself")
}

func TestPriorityQueueDefaultCapacity(t *testing.T) {
	t.Parallel()

	q := NewPriority(0, neg)
	for i := 0; i < DefaultPriorityCapacity; i++ {
		require.NoError(t, q.Offer(q.Wrap(i)))
	}
	require.ErrorIs(t, q.Offer(q.Wrap(-1)), api.ErrQueueFull)
}
