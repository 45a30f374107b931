package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/cascade/internal/queue"
	"github.com/petrijr/cascade/pkg/api"
	"github.com/petrijr/cascade/pkg/pool"
)

func identity(ctx context.Context, v any) (any, error) { return v, nil }

// collector records every value a leaf sees, thread-safe.
type collector struct {
	mu   sync.Mutex
	seen []any
}

func (c *collector) transform(ctx context.Context, v any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, v)
	return v, nil
}

func (c *collector) values() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.seen...)
}

func TestCompRewriteIdentityPlusDouble(t *testing.T) {
	t.Parallel()

	leaf := &collector{}
	root := api.NewNode(identity, api.WithID("root"))
	root.Children = []*api.Node{
		api.NewNode(func(ctx context.Context, v any) (any, error) {
			return leaf.transform(ctx, v.(int)*2)
		}, api.WithID("double")),
	}

	require.NoError(t, RunSync(context.Background(), root, []any{1, 2, 3}, nil))
	require.Equal(t, []any{2, 4, 6}, leaf.values())
}

func TestCompRewriteMultimapFanOut(t *testing.T) {
	t.Parallel()

	leaf := &collector{}
	mm := api.NewNode(func(ctx context.Context, v any) (any, error) {
		return []any{v, v.(int) + 10}, nil
	}, api.WithID("expand"), api.WithMultimap())
	mm.Children = []*api.Node{
		api.NewNode(leaf.transform, api.WithID("collect")),
	}
	root := api.NewNode(identity, api.WithID("root"))
	root.Children = []*api.Node{mm}

	require.NoError(t, RunSync(context.Background(), root, []any{1, 2}, nil))
	require.Equal(t, []any{1, 11, 2, 12}, leaf.values())
}

func TestCompRewritePredicateGating(t *testing.T) {
	t.Parallel()

	leaf := &collector{}
	root := api.NewNode(identity, api.WithID("root"))
	root.Children = []*api.Node{
		api.NewNode(leaf.transform, api.WithID("odds"),
			api.WithWhen(func(v any) bool { return v.(int)%2 == 1 })),
	}

	require.NoError(t, RunSync(context.Background(), root, []any{1, 2, 3, 4}, nil))
	require.Equal(t, []any{1, 3}, leaf.values())
}

func TestCompRewriteSwallowsTransformErrors(t *testing.T) {
	t.Parallel()

	leaf := &collector{}
	root := api.NewNode(func(ctx context.Context, v any) (any, error) {
		if v.(int) == 2 {
			return nil, errors.New("bad value")
		}
		return v, nil
	}, api.WithID("root"))
	root.Children = []*api.Node{api.NewNode(leaf.transform, api.WithID("leaf"))}

	require.NoError(t, RunSync(context.Background(), root, []any{1, 2, 3}, nil))
	require.Equal(t, []any{1, 3}, leaf.values(), "a failed input produces no output; siblings unaffected")
}

func TestCompRewriteRejectsAsyncNodes(t *testing.T) {
	t.Parallel()

	root := api.NewNode(nil, api.WithID("root"),
		api.WithAsync(func(ctx context.Context, v any, out api.Emitter) error { return nil }))

	_, err := CompRewrite(root, nil)
	require.Error(t, err)
}

func TestGraphRewriteFoldsInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(s string) Rewrite {
		return func(root *api.Node) error {
			order = append(order, s)
			return nil
		}
	}

	root := api.NewNode(identity)
	require.NoError(t, GraphRewrite(root, mark("a"), nil, mark("b")))
	require.Equal(t, []string{"a", "b"}, order)

	boom := errors.New("boom")
	err := GraphRewrite(root, mark("c"), func(*api.Node) error { return boom }, mark("d"))
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"a", "b", "c"}, order, "a failing pass stops the fold")
}

func TestQueueRewriteWiresEdges(t *testing.T) {
	t.Parallel()

	child := api.NewNode(identity, api.WithID("child"),
		api.WithWhen(func(v any) bool { return v.(int) > 1 }))
	mm := api.NewNode(identity, api.WithID("mm"), api.WithMultimap())
	mm.Children = []*api.Node{child}

	require.NoError(t, QueueRewrite(mm))

	// Every node except the root has an in; every non-leaf has an out.
	require.NotNil(t, mm.Runtime.Out)
	require.NotNil(t, child.Runtime.In)
	require.Nil(t, child.Runtime.Out)

	// Out expands multimap output and applies the child's predicate.
	require.NoError(t, mm.Runtime.Out(context.Background(), []any{1, 2, 3}))

	eq := child.Runtime.Queue.(*queue.LocalQueue)
	require.Equal(t, 2, eq.Len(), "value 1 must be rejected by the predicate")

	v, ok := child.Runtime.In()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestFIFOInDedups(t *testing.T) {
	t.Parallel()

	root := api.NewNode(identity, api.WithID("root"))
	require.NoError(t, FIFOIn(root))

	ctx := context.Background()
	require.NoError(t, root.Runtime.Offer(ctx, "x"))
	require.NoError(t, root.Runtime.Offer(ctx, "x"))

	q := root.Runtime.Queue.(*queue.LocalQueue)
	require.Equal(t, 1, q.Len())
}

func TestPriorityInOrdersAndUnwraps(t *testing.T) {
	t.Parallel()

	leaf := &collector{}
	root := api.NewNode(leaf.transform, api.WithID("root"))

	prio := func(v any) float64 { return -float64(v.(int)) }
	require.NoError(t, GraphRewrite(root, PriorityIn(prio, 0, nil)))

	ctx := context.Background()
	for _, v := range []int{3, 1, 2} {
		require.NoError(t, root.Runtime.Offer(ctx, v))
	}

	// Drain through the wrapped transform the way a worker would.
	for {
		task, ok := root.Runtime.In()
		if !ok {
			break
		}
		_, err := root.F(ctx, task)
		require.NoError(t, err)
	}
	require.Equal(t, []any{3, 2, 1}, leaf.values())
}

func TestPriorityInRunsItemCallback(t *testing.T) {
	t.Parallel()

	root := api.NewNode(identity, api.WithID("root"))
	require.NoError(t, GraphRewrite(root, PriorityIn(func(any) float64 { return 0 }, 0, nil)))

	var calledWith any
	it := &queue.Item{Priority: 1, Value: 42, Callback: func(v any) { calledWith = v }}

	ctx := context.Background()
	require.NoError(t, root.Runtime.Offer(ctx, it))

	task, ok := root.Runtime.In()
	require.True(t, ok)
	y, err := root.F(ctx, task)
	require.NoError(t, err)
	require.Equal(t, 42, y)
	require.Equal(t, 42, calledWith)
}

func TestPriorityInOverflowIsAnError(t *testing.T) {
	t.Parallel()

	root := api.NewNode(identity, api.WithID("root"))
	require.NoError(t, GraphRewrite(root, PriorityIn(func(any) float64 { return 0 }, 2, nil)))

	ctx := context.Background()
	require.NoError(t, root.Runtime.Offer(ctx, 1))
	require.NoError(t, root.Runtime.Offer(ctx, 2))
	require.ErrorIs(t, root.Runtime.Offer(ctx, 3), api.ErrQueueFull)
}

func TestPriorityInRequiresTransform(t *testing.T) {
	t.Parallel()

	root := api.NewNode(nil, api.WithID("root"))
	err := GraphRewrite(root, PriorityIn(func(any) float64 { return 0 }, 0, nil))
	require.Error(t, err)
}

func TestObserverRewriteWrapsEveryVertex(t *testing.T) {
	t.Parallel()

	root := api.NewNode(identity, api.WithID("root"))
	root.Children = []*api.Node{api.NewNode(identity, api.WithID("leaf"))}

	var wrapped []string
	obs := func(n *api.Node) api.Transform {
		wrapped = append(wrapped, n.ID)
		f := n.F
		return func(ctx context.Context, v any) (any, error) {
			return f(ctx, v)
		}
	}

	require.NoError(t, GraphRewrite(root, ObserverRewrite(obs)))
	require.ElementsMatch(t, []string{"root", "leaf"}, wrapped)
}

func fastYield() pool.YieldFunc {
	return pool.SleepYield(time.Millisecond)
}

// testPoolOptions keeps pooled tests fast: millisecond yields and short
// shutdown phases.
func testPoolOptions() PoolOptions {
	return PoolOptions{
		Yield:        fastYield(),
		DrainTimeout: time.Second,
		ForceTimeout: time.Second,
	}
}

func TestRunPoolEndToEnd(t *testing.T) {
	t.Parallel()

	leaf := &collector{}
	root := api.NewNode(identity, api.WithID("root"), api.WithThreads(1))
	root.Children = []*api.Node{
		api.NewNode(func(ctx context.Context, v any) (any, error) {
			return leaf.transform(ctx, v.(int)*2)
		}, api.WithID("double"), api.WithThreads(1)),
	}

	require.NoError(t, RunPool(root, testPoolOptions()))
	defer KillGraph(root, nil)

	ctx := context.Background()
	for _, v := range []int{1, 2, 3} {
		require.NoError(t, Offer(ctx, root, v))
	}

	require.Eventually(t, func() bool {
		return len(leaf.values()) == 3
	}, 10*time.Second, 5*time.Millisecond)
	require.ElementsMatch(t, []any{2, 4, 6}, leaf.values())
}

func TestRunPoolMatchesRunSyncObservations(t *testing.T) {
	t.Parallel()

	build := func(leaf *collector) *api.Node {
		mm := api.NewNode(func(ctx context.Context, v any) (any, error) {
			return []any{v, v.(int) + 10}, nil
		}, api.WithID("expand"), api.WithMultimap(), api.WithThreads(2))
		mm.Children = []*api.Node{
			api.NewNode(leaf.transform, api.WithID("collect"), api.WithThreads(2),
				api.WithWhen(func(v any) bool { return v.(int)%2 == 1 })),
		}
		root := api.NewNode(identity, api.WithID("root"), api.WithThreads(2))
		root.Children = []*api.Node{mm}
		return root
	}

	inputs := []any{1, 2, 3, 4, 5}

	syncLeaf := &collector{}
	require.NoError(t, RunSync(context.Background(), build(syncLeaf), inputs, nil))

	poolLeaf := &collector{}
	poolRoot := build(poolLeaf)
	require.NoError(t, RunPool(poolRoot, testPoolOptions()))
	defer KillGraph(poolRoot, nil)

	ctx := context.Background()
	for _, v := range inputs {
		require.NoError(t, Offer(ctx, poolRoot, v))
	}

	require.Eventually(t, func() bool {
		return len(poolLeaf.values()) == len(syncLeaf.values())
	}, 10*time.Second, 5*time.Millisecond)

	// Same multiset of leaf observations, modulo order.
	require.ElementsMatch(t, syncLeaf.values(), poolLeaf.values())
}

func TestRunPoolPriorityProcessingOrder(t *testing.T) {
	t.Parallel()

	leaf := &collector{}
	root := api.NewNode(leaf.transform, api.WithID("root"), api.WithThreads(1))

	prio := func(v any) float64 { return -float64(v.(int)) }
	require.NoError(t, GraphRewrite(root, QueueRewrite, PriorityIn(prio, 0, nil)))

	// Offer everything before the pool starts so the single worker
	// drains strictly in priority order.
	ctx := context.Background()
	for _, v := range []int{3, 1, 2} {
		require.NoError(t, Offer(ctx, root, v))
	}

	require.NoError(t, AddPool(root, testPoolOptions()))
	defer KillGraph(root, nil)

	require.Eventually(t, func() bool {
		return len(leaf.values()) == 3
	}, 10*time.Second, 5*time.Millisecond)
	require.Equal(t, []any{3, 2, 1}, leaf.values())
}
