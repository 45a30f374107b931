package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer produces a replacement transform for a vertex. It is mapped
// over every node by the observer rewrite, giving uniform instrumentation
// a single seam.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay graph execution.
type Observer func(n *Node) Transform

// TimingObserver returns an Observer that wraps each node's transform with
// duration logging. If logger is nil, slog.Default() is used.
func TimingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(n *Node) Transform {
		f := n.F
		id := n.ID
		return func(ctx context.Context, v any) (any, error) {
			start := time.Now()
			y, err := f(ctx, v)
			d := time.Since(start)

			level := slog.LevelDebug
			if err != nil {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "node_transform",
				slog.String("node", id),
				slog.Duration("duration", d),
				slog.Any("error", err),
			)
			return y, err
		}
	}
}

// GraphMetrics collects simple counters and aggregate transform durations
// across a graph. Its Observe method is an Observer, so it can be applied
// with the observer rewrite:
//
//	metrics := &cascade.GraphMetrics{}
//	err := cascade.RunPool(root,
//	    cascade.ObserverRewrite(metrics.Observe),
//	    cascade.QueueRewrite, cascade.FIFOIn, cascade.AddPool())
type GraphMetrics struct {
	valuesProcessed   atomic.Int64
	valuesFailed      atomic.Int64
	totalTransformDur atomic.Int64 // nanoseconds
}

// GraphMetricsSnapshot is an immutable snapshot of GraphMetrics.
type GraphMetricsSnapshot struct {
	ValuesProcessed int64
	ValuesFailed    int64

	AvgTransformDuration time.Duration
}

// Observe implements Observer.
func (m *GraphMetrics) Observe(n *Node) Transform {
	f := n.F
	return func(ctx context.Context, v any) (any, error) {
		start := time.Now()
		y, err := f(ctx, v)
		if err != nil {
			m.valuesFailed.Add(1)
			return y, err
		}
		m.valuesProcessed.Add(1)
		m.totalTransformDur.Add(time.Since(start).Nanoseconds())
		return y, nil
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *GraphMetrics) Snapshot() GraphMetricsSnapshot {
	processed := m.valuesProcessed.Load()
	failed := m.valuesFailed.Load()
	totalNs := m.totalTransformDur.Load()

	var avg time.Duration
	if processed > 0 {
		avg = time.Duration(totalNs / processed)
	}

	return GraphMetricsSnapshot{
		ValuesProcessed:      processed,
		ValuesFailed:         failed,
		AvgTransformDuration: avg,
	}
}
