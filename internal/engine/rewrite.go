// Package engine lowers declarative graphs into executable form: either a
// single composed function running on the caller's thread, or a set of
// pool-backed vertices joined by in-memory queues.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/petrijr/cascade/internal/queue"
	"github.com/petrijr/cascade/pkg/api"
	"github.com/petrijr/cascade/pkg/pool"
)

// Rewrite is a lowering pass over a graph. Passes mutate the tree in
// place; they run single-threaded before the graph starts.
type Rewrite func(root *api.Node) error

// GraphRewrite folds the given rewrites over the graph, left to right.
func GraphRewrite(root *api.Node, rewrites ...Rewrite) error {
	if root == nil {
		return fmt.Errorf("cascade: nil graph")
	}
	for _, rw := range rewrites {
		if rw == nil {
			continue
		}
		if err := rw(root); err != nil {
			return err
		}
	}
	return nil
}

func ensureRuntime(n *api.Node) *api.Runtime {
	if n.Runtime == nil {
		n.Runtime = &api.Runtime{}
	}
	return n.Runtime
}

// CompRewrite compiles the graph into one composed function: the node's
// predicate gates the input, the transform runs, and every output element
// is applied to each child in turn, recursively down to the leaves.
// Transform errors are logged and swallowed; a failed node produces no
// output for that input.
//
// Async nodes cannot run synchronously and make compilation fail.
func CompRewrite(root *api.Node, logger *slog.Logger) (api.Transform, error) {
	if root == nil {
		return nil, fmt.Errorf("cascade: nil graph")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return compileNode(root, logger)
}

func compileNode(n *api.Node, logger *slog.Logger) (api.Transform, error) {
	if n.F == nil {
		return nil, fmt.Errorf("cascade: node %s has no synchronous transform", n.ID)
	}

	children := make([]api.Transform, len(n.Children))
	for i, c := range n.Children {
		mono, err := compileNode(c, logger)
		if err != nil {
			return nil, err
		}
		children[i] = mono
	}

	node := n
	return func(ctx context.Context, x any) (any, error) {
		if node.When != nil && !node.When(x) {
			return nil, nil
		}
		y, err := node.F(ctx, x)
		if err != nil {
			logger.Error("node transform failed", "node", node.ID, "error", err)
			return nil, nil
		}
		outs, err := api.Outputs(node, y)
		if err != nil {
			logger.Error("node produced bad output", "node", node.ID, "error", err)
			return nil, nil
		}
		for _, z := range outs {
			for _, mono := range children {
				_, _ = mono(ctx, z)
			}
		}
		return y, nil
	}, nil
}

// QueueRewrite allocates one unbounded FIFO per child edge, bottom-up.
// Each child's In becomes the poll side of its edge queue; the parent's
// Out expands multimap output, applies each child's predicate, and offers
// admitted values into that child's edge queue.
func QueueRewrite(root *api.Node) error {
	if root == nil {
		return fmt.Errorf("cascade: nil graph")
	}
	queueNode(root)
	return nil
}

func queueNode(n *api.Node) {
	for _, c := range n.Children {
		queueNode(c)
	}
	if len(n.Children) == 0 {
		return
	}

	type edge struct {
		child *api.Node
		q     *queue.LocalQueue
	}
	edges := make([]edge, 0, len(n.Children))
	for _, c := range n.Children {
		q := queue.NewLocal()
		rt := ensureRuntime(c)
		rt.Queue = q
		rt.In = q.Poll
		edges = append(edges, edge{child: c, q: q})
	}

	node := n
	ensureRuntime(n).Out = func(ctx context.Context, y any) error {
		outs, err := api.Outputs(node, y)
		if err != nil {
			return err
		}
		for _, z := range outs {
			for _, e := range edges {
				if e.child.When != nil && !e.child.When(z) {
					continue
				}
				e.q.Offer(z)
			}
		}
		return nil
	}
}

// FIFOIn gives the root its own unbounded ingress queue and populates
// Offer (deduplicating) and In. This is the public entry point of a
// pooled graph.
func FIFOIn(root *api.Node) error {
	if root == nil {
		return fmt.Errorf("cascade: nil graph")
	}
	q := queue.NewLocal()
	rt := ensureRuntime(root)
	rt.Queue = q
	rt.In = q.Poll
	rt.Offer = func(ctx context.Context, v any) error {
		return q.OfferUnique(v)
	}
	return nil
}

// PriorityIn replaces the root's FIFO ingress with a bounded priority
// queue ordered by prio (smaller keys first). Offers beyond capacity are
// refused with ErrQueueFull and logged, never silently dropped. The
// root's transform is wrapped to unwrap priority items and run their
// completion callback after the transform returns.
//
// capacity <= 0 uses the default bound of 200. The root must carry a
// synchronous transform.
func PriorityIn(prio queue.PriorityFunc, capacity int, logger *slog.Logger) Rewrite {
	return func(root *api.Node) error {
		if prio == nil {
			return fmt.Errorf("cascade: priority ingress requires a priority function")
		}
		if root.F == nil {
			return fmt.Errorf("cascade: priority ingress requires a transform on the root")
		}
		if logger == nil {
			logger = slog.Default()
		}

		q := queue.NewPriority(capacity, prio)
		rt := ensureRuntime(root)
		rt.Queue = q
		rt.In = func() (any, bool) {
			it, ok := q.Poll()
			if !ok {
				return nil, false
			}
			return it, true
		}
		rt.Offer = func(ctx context.Context, v any) error {
			if err := q.OfferUnique(q.Wrap(v)); err != nil {
				logger.Error("priority ingress refused value", "node", root.ID, "error", err)
				return err
			}
			return nil
		}

		root.F = priorityFn(root.F)
		return nil
	}
}

// priorityFn adapts a transform to priority items: it unwraps the item,
// runs the original transform on the wrapped value, invokes the item's
// callback, and returns the transform's result.
func priorityFn(f api.Transform) api.Transform {
	return func(ctx context.Context, task any) (any, error) {
		it, ok := task.(*queue.Item)
		if !ok {
			return f(ctx, task)
		}
		y, err := f(ctx, it.Value)
		if it.Callback != nil {
			it.Callback(it.Value)
		}
		return y, err
	}
}

// PoolOptions tunes the pools created by AddPool. The zero value uses
// the engine defaults: slog.Default(), a 5s idle yield, and 60s for each
// shutdown phase.
type PoolOptions struct {
	Logger       *slog.Logger
	Yield        pool.YieldFunc
	DrainTimeout time.Duration
	ForceTimeout time.Duration
}

// AddPool walks every vertex and backs it with a running pool of Threads
// workers (default: host CPU count) driving the generic worker loop over
// the node's runtime bundle. Each pool's shutdown is appended to the
// node's shutdown actions.
func AddPool(root *api.Node, opts PoolOptions) error {
	if root == nil {
		return fmt.Errorf("cascade: nil graph")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var failed error
	api.Walk(root, func(n *api.Node) bool {
		if err := addNodePool(n, opts); err != nil {
			failed = err
			return false
		}
		return true
	})
	return failed
}

func addNodePool(n *api.Node, opts PoolOptions) error {
	if n.F == nil && n.Async == nil {
		return fmt.Errorf("cascade: node %s has no transform", n.ID)
	}

	threads := n.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	p, err := pool.NewWithConfig(threads, pool.Config{
		Name:         n.ID,
		Logger:       opts.Logger,
		DrainTimeout: opts.DrainTimeout,
		ForceTimeout: opts.ForceTimeout,
	})
	if err != nil {
		return err
	}

	ensureRuntime(n)

	// The scheduler re-reads the node on every iteration, so the loop
	// always drives the current bundle. The graph is immutable once
	// started; only earlier lowering passes rewrite these fields.
	scheduler := func() pool.Bundle {
		b := pool.Bundle{
			F:     n.F,
			Async: n.Async,
			In:    n.Runtime.In,
			Out:   n.Runtime.Out,
			Exec:  pool.Exec(pool.SyncExec{}),
		}
		if n.Async != nil {
			b.Exec = pool.AsyncExec{}
		}
		return b
	}

	if err := p.QueueWork(pool.Work(scheduler, opts.Yield), threads); err != nil {
		_ = p.Shutdown(context.Background())
		return err
	}

	n.Shutdown = append(n.Shutdown, func() error {
		return p.Shutdown(context.Background())
	})
	return nil
}

// ObserverRewrite maps obs over every vertex, replacing each transform
// with the one obs returns for it. Vertices without a synchronous
// transform are left alone.
func ObserverRewrite(obs api.Observer) Rewrite {
	return func(root *api.Node) error {
		if obs == nil {
			return fmt.Errorf("cascade: nil observer")
		}
		api.UpdateNodes(root, func(n *api.Node) {
			if n.F == nil {
				return
			}
			n.F = obs(n)
		})
		return nil
	}
}
