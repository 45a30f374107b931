package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrijr/cascade/pkg/api"
	"github.com/petrijr/cascade/pkg/pool"
)

// RefillFunc produces a batch of source values for an idle ingress.
type RefillFunc func(ctx context.Context) ([]any, error)

// emptier is implemented by both ingress queue types.
type emptier interface {
	Empty() bool
}

// ScheduleRefill starts a scheduler firing every freq. On each tick, if
// the root's ingress queue is empty, refill is invoked and each non-nil
// result offered; per-item errors are logged and swallowed so one bad
// item does not starve the rest. A non-empty queue at tick time skips the
// refill entirely.
//
// The graph must already carry an ingress (FIFOIn or PriorityIn). A
// shutdown action stopping the scheduler is appended to the root.
func ScheduleRefill(refill RefillFunc, freq time.Duration, root *api.Node, logger *slog.Logger) (*pool.Scheduler, error) {
	if refill == nil {
		return nil, fmt.Errorf("cascade: nil refill")
	}
	if root == nil || root.Runtime == nil || root.Runtime.Offer == nil {
		return nil, api.ErrNotLowered
	}
	q, ok := root.Runtime.Queue.(emptier)
	if !ok {
		return nil, api.ErrNotLowered
	}
	if logger == nil {
		logger = slog.Default()
	}

	offer := root.Runtime.Offer
	tick := func(ctx context.Context) error {
		if !q.Empty() {
			return nil
		}
		items, err := refill(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item == nil {
				continue
			}
			if err := offer(ctx, item); err != nil {
				logger.Error("refill offer failed", "node", root.ID, "error", err)
			}
		}
		return nil
	}

	s := pool.ScheduleWork(tick, freq)
	root.Shutdown = append(root.Shutdown, func() error {
		s.Stop()
		return nil
	})
	return s, nil
}
