package executor

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrExecutorClosed is returned by Execute after Close.
var ErrExecutorClosed = errors.New("executor: closed")

// Task is one unit of work.
type Task[T any] func(ctx context.Context) (T, error)

// Result pairs a task's outcome with its original index, regardless of
// completion order.
type Result[T any] struct {
	Value    T
	Err      error
	Index    int
	Duration time.Duration
}

// Options configures an Executor.
type Options struct {
	Concurrency int
	Logger      *slog.Logger
}

// Executor runs homogeneous task batches with a bounded-concurrency
// fan-out. It holds no state between Execute calls beyond the
// concurrency setting.
type Executor struct {
	sem *semaphore.Weighted
	log *slog.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// New creates an Executor. Concurrency <= 0 defaults to GOMAXPROCS.
func New(opts Options) *Executor {
	n := opts.Concurrency
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		sem: semaphore.NewWeighted(int64(n)),
		log: log,
	}
}

// Execute runs tasks with bounded concurrency. Every result lands at its
// task's index. The first task failure (by start order) becomes the
// returned error, but already-started siblings are never cancelled and
// every remaining task still runs; callers get the full result slice
// either way. Context cancellation stops admitting new tasks — their
// results carry ctx.Err() — and is returned.
func Execute[T any](ctx context.Context, ex *Executor, tasks []Task[T]) ([]Result[T], error) {
	results := make([]Result[T], len(tasks))
	for i := range results {
		results[i].Index = i
	}
	if len(tasks) == 0 {
		return results, nil
	}

	ex.mu.Lock()
	if ex.closed {
		ex.mu.Unlock()
		for i := range results {
			results[i].Err = ErrExecutorClosed
		}
		return results, ErrExecutorClosed
	}
	ex.wg.Add(len(tasks))
	ex.mu.Unlock()

	var wg sync.WaitGroup
	for i, task := range tasks {
		if err := ex.sem.Acquire(ctx, 1); err != nil {
			// ctx cancelled: remaining tasks never start
			for j := i; j < len(tasks); j++ {
				results[j].Err = err
				ex.wg.Done()
			}
			break
		}
		wg.Add(1)
		go func(i int, task Task[T]) {
			defer func() {
				ex.sem.Release(1)
				ex.wg.Done()
				wg.Done()
			}()
			start := time.Now()
			v, err := task(ctx)
			results[i] = Result[T]{
				Value:    v,
				Err:      err,
				Index:    i,
				Duration: time.Since(start),
			}
		}(i, task)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	for i := range results {
		if results[i].Err != nil {
			return results, results[i].Err
		}
	}
	return results, nil
}

// Close waits for in-flight work and rejects subsequent Execute calls.
// Idempotent.
func (ex *Executor) Close() {
	ex.mu.Lock()
	if ex.closed {
		ex.mu.Unlock()
		return
	}
	ex.closed = true
	ex.mu.Unlock()
	ex.wg.Wait()
}
