package pool

import (
	"context"
	"errors"
	"time"

	"github.com/petrijr/cascade/pkg/api"
)

// DefaultYield is how long an idle worker sleeps between polls.
const DefaultYield = 5 * time.Second

// Bundle is the per-iteration view of a node handed to the worker loop:
// the transform, the poll side of the input queue, the downstream emitter,
// and the execution strategy joining them.
type Bundle struct {
	F     api.Transform
	Async api.AsyncTransform
	In    api.PollFunc
	Out   api.Emitter
	Exec  Exec
}

// SchedulerFunc returns the bundle the worker loop should drive on its
// current iteration.
type SchedulerFunc func() Bundle

// YieldFunc parks an idle worker. It must return promptly once ctx is
// cancelled.
type YieldFunc func(ctx context.Context)

// SleepYield returns a YieldFunc sleeping for d, context-aware.
func SleepYield(d time.Duration) YieldFunc {
	return func(ctx context.Context) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
}

// Work builds a WorkFunc: each iteration fetches the current bundle from
// scheduler and polls its input. A polled task is run through the bundle's
// exec strategy; an empty poll yields (default: 5s sleep).
func Work(scheduler SchedulerFunc, yield YieldFunc) WorkFunc {
	if yield == nil {
		yield = SleepYield(DefaultYield)
	}
	return func(ctx context.Context) error {
		b := scheduler()
		if b.In != nil {
			if task, ok := b.In(); ok {
				exec := b.Exec
				if exec == nil {
					exec = SyncExec{}
				}
				return exec.Do(ctx, b, task)
			}
		}
		yield(ctx)
		return nil
	}
}

// Exec decides how a transform's result becomes child input, so the worker
// loop does not have to know.
type Exec interface {
	Do(ctx context.Context, b Bundle, task any) error
}

// SyncExec applies the transform and emits its return value: out(f(task)).
type SyncExec struct{}

func (SyncExec) Do(ctx context.Context, b Bundle, task any) error {
	if b.F == nil {
		return errors.New("cascade: bundle has no transform")
	}
	y, err := b.F(ctx, task)
	if err != nil {
		return err
	}
	if b.Out == nil {
		return nil
	}
	return b.Out(ctx, y)
}

// AsyncExec hands the emitter to the transform: f(task, out). The
// transform owns emission and may call out any number of times, possibly
// later.
type AsyncExec struct{}

func (AsyncExec) Do(ctx context.Context, b Bundle, task any) error {
	if b.Async == nil {
		return errors.New("cascade: bundle has no async transform")
	}
	return b.Async(ctx, task, b.Out)
}
