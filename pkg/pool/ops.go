package pool

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// Task is a unit of work submitted by the convenience operations.
type Task func(ctx context.Context) (any, error)

// Workers abstracts over "an externally owned pool" and "a thread count":
// the convenience operations accept either. A Count acquires a fresh pool
// and shuts it down afterwards; a *Pool is used as-is and stays running,
// ownership remains with the caller.
type Workers interface {
	acquire() (p *Pool, release func(), err error)
}

// Count is a thread count implementing Workers. The pool it creates is
// torn down once the operation returns.
type Count int

func (c Count) acquire() (*Pool, func(), error) {
	p, err := New(int(c))
	if err != nil {
		return nil, nil, err
	}
	return p, func() { _ = p.Shutdown(context.Background()) }, nil
}

func (p *Pool) acquire() (*Pool, func(), error) {
	return p, func() {}, nil
}

// SeqWork submits all tasks and blocks until every one has finished.
// Results are returned in task order; individual task errors are combined
// into the returned error without suppressing other results.
func SeqWork(ctx context.Context, w Workers, tasks []Task) ([]any, error) {
	p, release, err := w.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	results := make([]any, len(tasks))
	errs := make([]error, len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		i, task := i, task
		wg.Add(1)
		if err := p.Submit(func(_ context.Context) {
			defer wg.Done()
			results[i], errs[i] = task(ctx)
		}); err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	return results, multierr.Combine(errs...)
}

// MapWork applies f to every input on the pool and returns the outputs in
// input order.
func MapWork(ctx context.Context, w Workers, in []any, f func(ctx context.Context, v any) (any, error)) ([]any, error) {
	tasks := make([]Task, len(in))
	for i, v := range in {
		v := v
		tasks[i] = func(ctx context.Context) (any, error) {
			return f(ctx, v)
		}
	}
	return SeqWork(ctx, w, tasks)
}

// FilterWork returns the inputs admitted by pred, preserving input order.
func FilterWork(ctx context.Context, w Workers, in []any, pred func(ctx context.Context, v any) (bool, error)) ([]any, error) {
	keep, err := MapWork(ctx, w, in, func(ctx context.Context, v any) (any, error) {
		return pred(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(in))
	for i, k := range keep {
		if k.(bool) {
			out = append(out, in[i])
		}
	}
	return out, nil
}

// DoWork fires f for every input and awaits a latch counting completions.
// It returns the combined errors of all invocations.
func DoWork(ctx context.Context, w Workers, in []any, f func(ctx context.Context, v any) error) error {
	p, release, err := w.acquire()
	if err != nil {
		return err
	}
	defer release()

	errs := make([]error, len(in))

	var latch sync.WaitGroup
	for i, v := range in {
		i, v := i, v
		latch.Add(1)
		if err := p.Submit(func(_ context.Context) {
			defer latch.Done()
			errs[i] = f(ctx, v)
		}); err != nil {
			latch.Done()
			errs[i] = err
		}
	}
	latch.Wait()

	return multierr.Combine(errs...)
}

// ReduceWork folds f over the inputs using a thread-safe accumulator
// applied by the pool's workers. f must be commutative and associative up
// to the caller's needs: accumulation order follows completion order.
func ReduceWork(ctx context.Context, w Workers, init any, in []any, f func(acc, v any) any) (any, error) {
	var mu sync.Mutex
	acc := init

	err := DoWork(ctx, w, in, func(ctx context.Context, v any) error {
		mu.Lock()
		defer mu.Unlock()
		acc = f(acc, v)
		return nil
	})
	return acc, err
}
