package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Outcome is the tagged result of one settled task.
type Outcome[T any] struct {
	Value T
	Err   error
}

// OK reports whether the task succeeded.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Task is a unit of work joined by SettleAll.
type Task[T any] func(ctx context.Context) (T, error)

// SettleAll runs every task concurrently and waits for all of them.
// A failing task, or a panic on the task's own goroutine, never cancels or
// fails its siblings. Goroutines a task spawns must recover for themselves.
// Outcomes are returned in task order. Task i is started after i*stagger.
func SettleAll[T any](ctx context.Context, stagger time.Duration, tasks []Task[T]) []Outcome[T] {
	outcomes := make([]Outcome[T], len(tasks))

	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(i int, task Task[T]) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = Outcome[T]{Err: fmt.Errorf("task %d panicked: %v", i, r)}
				}
			}()

			if err := wait(ctx, time.Duration(i)*stagger); err != nil {
				outcomes[i] = Outcome[T]{Err: err}
				return
			}

			v, err := task(ctx)
			outcomes[i] = Outcome[T]{Value: v, Err: err}
		}(i, task)
	}
	wg.Wait()

	return outcomes
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
