// Package scheduler runs delayed game work (AI replies, flip-backs) on an
// injectable clock so the owner can await completion and tests can drive
// time by hand.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

type Scheduler struct {
	clock clock.Clock
}

func New(c clock.Clock) *Scheduler {
	if c == nil {
		c = clock.New()
	}

	return &Scheduler{clock: c}
}

// Task is a scheduled function. Once scheduled it always runs; there is no
// cancellation.
type Task struct {
	done chan struct{}
}

func (that *Scheduler) After(delay time.Duration, fn func()) *Task {
	task := &Task{done: make(chan struct{})}

	that.clock.AfterFunc(delay, func() {
		defer close(task.done)
		fn()
	})

	return task
}

func (that *Task) Done() <-chan struct{} {
	return that.done
}

// Wait blocks until the task function has returned.
func (that *Task) Wait(ctx context.Context) error {
	select {
	case <-that.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait for task: %w", ctx.Err())
	}
}
