// Package taskrunner runs groups of named tasks concurrently with a
// bounded number of workers, collecting every failure instead of
// stopping at the first.
package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Task is a unit of work. The name labels its error when Run fails.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes task groups with at most maxWorkers running at
// once.
type Runner struct {
	maxWorkers int
}

// New creates a Runner. A non-positive maxWorkers defaults to the
// number of CPUs.
func New(maxWorkers int) *Runner {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &Runner{maxWorkers: maxWorkers}
}

// Run executes all tasks and waits for them. The returned error joins
// every task failure, each prefixed with the task name. A panicking
// task is reported as a failure rather than crashing the group. When
// ctx is canceled, tasks not yet started are skipped; already running
// ones see the cancellation through their context.
func (r *Runner) Run(ctx context.Context, tasks ...Task) error {
	sem := make(chan struct{}, r.maxWorkers)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

loop:
	for _, task := range tasks {
		if ctx.Err() != nil {
			fail(fmt.Errorf("submitting tasks: %w", ctx.Err()))
			break
		}

		select {
		case <-ctx.Done():
			fail(fmt.Errorf("submitting tasks: %w", ctx.Err()))
			break loop
		case sem <- struct{}{}:
			wg.Add(1)
			go func(t Task) {
				defer wg.Done()
				defer func() { <-sem }()
				defer func() {
					if p := recover(); p != nil {
						fail(fmt.Errorf("%s: panic: %v", t.Name, p))
					}
				}()

				if err := t.Run(ctx); err != nil {
					fail(fmt.Errorf("%s: %w", t.Name, err))
				}
			}(task)
		}
	}

	wg.Wait()
	return errors.Join(errs...)
}
