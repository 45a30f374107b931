package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ScheduledTask pairs a periodic function with its firing rate.
type ScheduledTask struct {
	Run   func(ctx context.Context) error
	Every time.Duration
}

// Scheduler runs periodic tasks on dedicated goroutines at a fixed rate.
// Task errors and panics are logged; a failing task keeps firing.
type Scheduler struct {
	log    *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// ScheduleWork starts a scheduler firing f every period.
func ScheduleWork(f func(ctx context.Context) error, period time.Duration) *Scheduler {
	return ScheduleAll([]ScheduledTask{{Run: f, Every: period}}, nil)
}

// ScheduleAll starts one scheduler driving all the given tasks. If logger
// is nil, slog.Default() is used.
func ScheduleAll(tasks []ScheduledTask, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		log:    logger,
		cancel: cancel,
	}

	for _, t := range tasks {
		if t.Run == nil || t.Every <= 0 {
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
	return s
}

func (s *Scheduler) loop(ctx context.Context, t ScheduledTask) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.fire(ctx, t.Run); err != nil {
				s.log.Error("scheduled task failed", "error", err)
			}
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, run func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return run(ctx)
}

// Stop cancels all tasks and waits for their goroutines to exit.
// It is idempotent.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}
