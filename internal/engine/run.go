package engine

import (
	"context"
	"log/slog"

	"github.com/petrijr/cascade/pkg/api"
)

// RunSync folds the given rewrites over the graph, compiles it into one
// composed function, and applies that function to each input on the
// caller's thread. No queues, no pools; useful for tests and batch runs.
func RunSync(ctx context.Context, root *api.Node, data []any, logger *slog.Logger, rewrites ...Rewrite) error {
	if err := GraphRewrite(root, rewrites...); err != nil {
		return err
	}
	mono, err := CompRewrite(root, logger)
	if err != nil {
		return err
	}
	for _, v := range data {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, _ = mono(ctx, v)
	}
	return nil
}

// RunPool lowers the graph for pooled execution and starts it. With no
// rewrites given it applies the standard lowering: edge queues, a FIFO
// ingress on the root, and a worker pool per vertex. Callers feed the
// running graph through the root's Offer and stop it with KillGraph.
func RunPool(root *api.Node, opts PoolOptions, rewrites ...Rewrite) error {
	if len(rewrites) == 0 {
		rewrites = []Rewrite{
			QueueRewrite,
			FIFOIn,
			func(root *api.Node) error { return AddPool(root, opts) },
		}
	}
	return GraphRewrite(root, rewrites...)
}

// Offer feeds a value into a running graph's ingress.
func Offer(ctx context.Context, root *api.Node, v any) error {
	if root == nil || root.Runtime == nil || root.Runtime.Offer == nil {
		return api.ErrNotLowered
	}
	return root.Runtime.Offer(ctx, v)
}
