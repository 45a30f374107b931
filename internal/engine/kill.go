package engine

import (
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/petrijr/cascade/pkg/api"
)

// KillGraph visits every vertex pre-order and runs its shutdown actions,
// logging and swallowing per-action errors. It is idempotent and safe to
// call on a graph that was never started.
func KillGraph(root *api.Node, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	api.Walk(root, func(n *api.Node) bool {
		var errs error
		for _, stop := range n.Shutdown {
			if stop == nil {
				continue
			}
			errs = multierr.Append(errs, safeStop(stop))
		}
		if errs != nil {
			logger.Error("node shutdown failed", "node", n.ID, "error", errs)
		}
		return true
	})
}

func safeStop(stop api.ShutdownFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{r}
		}
	}()
	return stop()
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("shutdown panicked: %v", e.value)
}
