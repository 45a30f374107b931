package cascade

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Runner bundles a built graph with pooled lowering and teardown to
// provide a simple process-local harness for development and tests.
//
// Typical usage:
//
//	runner := cascade.NewRunner(cursor.Graph())
//	if err := runner.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer runner.Stop()
//
//	_ = runner.Offer(ctx, value)
type Runner struct {
	// Graph is the root of the graph this runner drives.
	Graph *Node

	cfg      RunConfig
	rewrites []Rewrite

	mu      sync.Mutex
	running bool
}

// NewRunner constructs a Runner over the given graph with the standard
// pooled lowering. Rewrites, if given, replace that lowering, as in
// RunPool.
func NewRunner(root *Node, rewrites ...Rewrite) *Runner {
	return &Runner{
		Graph:    root,
		rewrites: rewrites,
	}
}

// NewRunnerWith is NewRunner with explicit configuration.
func NewRunnerWith(root *Node, cfg RunConfig, rewrites ...Rewrite) *Runner {
	return &Runner{
		Graph:    root,
		cfg:      cfg,
		rewrites: rewrites,
	}
}

// Start lowers the graph and starts its pools. Starting twice is an
// error.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("cascade: runner already started")
	}
	if err := RunPoolWith(r.Graph, r.cfg, r.rewrites...); err != nil {
		return err
	}
	r.running = true
	return nil
}

// Offer feeds a value into the running graph's ingress.
func (r *Runner) Offer(ctx context.Context, v any) error {
	return Offer(ctx, r.Graph, v)
}

// Stop kills the graph: every vertex's shutdown actions run, pools drain
// in two phases. Stop is idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	KillGraph(r.Graph)
}

// Drain polls until the given probe reports completion or the context
// expires. It is a convenience for tests: queues are in-memory and
// best-effort, so completion is observed through the caller's own state,
// not through the queues.
func (r *Runner) Drain(ctx context.Context, done func() bool) error {
	t := time.NewTicker(5 * time.Millisecond)
	defer t.Stop()
	for {
		if done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
