package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vaultlint/internal/memory"
)

// ErrStopped is returned by Run when the queue was stopped before every
// item was dispatched.
var ErrStopped = errors.New("queue: stopped")

// State is the queue's lifecycle phase.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// Progress is an O(1) view of queue counters.
type Progress struct {
	Total    int
	Done     int
	Failed   int
	InFlight int
	State    State
}

// Options configures a Queue.
type Options struct {
	Concurrency int
	BatchSize   int
	Monitor     *memory.Monitor
	Strategy    StrategyFunc
	Logger      *slog.Logger
}

// pauseRecheck is how often a paused queue re-consults the monitor so it
// can auto-resume once memory is safe again.
const pauseRecheck = 50 * time.Millisecond

// Queue dispatches items in memory-adaptive batches with cooperative
// pause/resume. Pause never interrupts an in-flight item; it only gates
// new dispatch. Run is single-use.
//
// The pause gate is a channel recreated on each pause and closed on
// resume, so the dispatch loop blocks on it rather than busy-checking
// a flag.
type Queue[T any] struct {
	items []T
	work  func(context.Context, T) error
	opts  Options
	log   *slog.Logger

	mu       sync.Mutex
	state    State
	gate     chan struct{} // non-nil while paused
	done     int
	failed   int
	inFlight int
}

// New builds a queue over items; Run starts processing.
func New[T any](items []T, work func(context.Context, T) error, opts Options) *Queue[T] {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = opts.Concurrency
	}
	if opts.Strategy == nil {
		opts.Strategy = DefaultStrategy
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Queue[T]{
		items: items,
		work:  work,
		opts:  opts,
		log:   log,
		state: StateIdle,
	}
}

// Run processes every item and returns nil, or returns early with
// ErrStopped / ctx.Err(). Between batches it consults the strategy:
// Pause parks the queue until Resume is called or memory drops below
// critical again (auto-resume).
func (q *Queue[T]) Run(ctx context.Context) error {
	q.mu.Lock()
	if q.state != StateIdle {
		q.mu.Unlock()
		return errors.New("queue: Run is single-use")
	}
	q.state = StateRunning
	q.mu.Unlock()

	batchSize := q.opts.BatchSize
	next := 0

	for next < len(q.items) {
		if err := ctx.Err(); err != nil {
			q.complete()
			return err
		}

		batchSize = q.consult(batchSize)

		if stopped := q.waitWhilePaused(ctx); stopped {
			q.complete()
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrStopped
		}

		end := next + batchSize
		if end > len(q.items) {
			end = len(q.items)
		}
		q.runBatch(ctx, q.items[next:end])
		next = end
	}

	q.complete()
	return ctx.Err()
}

// consult applies the batching strategy against the monitor's latest
// reading. Without a monitor the batch size stays fixed.
func (q *Queue[T]) consult(cur int) int {
	if q.opts.Monitor == nil {
		return cur
	}
	s := q.opts.Monitor.Snapshot()
	lvl := q.opts.Monitor.Level(s)
	d := q.opts.Strategy(s, lvl, cur)

	if d.Pause {
		q.mu.Lock()
		if q.state == StateRunning {
			q.pauseLocked()
			q.log.Warn("queue paused", "reason", d.Reason)
		}
		q.mu.Unlock()
	}

	if d.BatchSize < 1 {
		return 1
	}
	return d.BatchSize
}

// waitWhilePaused blocks on the pause gate. While paused it re-checks
// the monitor every pauseRecheck so a drop below critical resumes the
// queue without an explicit Resume. Returns true when the queue was
// stopped or the context cancelled.
func (q *Queue[T]) waitWhilePaused(ctx context.Context) bool {
	for {
		q.mu.Lock()
		switch q.state {
		case StateCompleted:
			q.mu.Unlock()
			return true
		case StatePaused:
		default:
			q.mu.Unlock()
			return false
		}
		gate := q.gate
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return true
		case <-gate:
			// resumed or stopped; loop re-checks state
		case <-time.After(pauseRecheck):
			if q.opts.Monitor != nil && q.opts.Monitor.IsSafe() {
				q.log.Info("memory safe again, resuming queue")
				q.Resume()
			}
		}
	}
}

// runBatch executes one batch with bounded worker fan-out.
func (q *Queue[T]) runBatch(ctx context.Context, batch []T) {
	sem := make(chan struct{}, q.opts.Concurrency)
	var wg sync.WaitGroup
	for i := range batch {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		q.mu.Lock()
		q.inFlight++
		q.mu.Unlock()

		go func(item T) {
			defer func() {
				<-sem
				wg.Done()
			}()
			err := q.work(ctx, item)
			q.mu.Lock()
			q.inFlight--
			if err != nil {
				q.failed++
			} else {
				q.done++
			}
			q.mu.Unlock()
		}(batch[i])
	}
	wg.Wait()
}

// pauseLocked flips running -> paused and arms the gate. Caller holds mu.
func (q *Queue[T]) pauseLocked() {
	q.state = StatePaused
	q.gate = make(chan struct{})
}

// openGateLocked releases any waiter. Caller holds mu.
func (q *Queue[T]) openGateLocked() {
	if q.gate != nil {
		close(q.gate)
		q.gate = nil
	}
}

// Pause gates new dispatch; in-flight items run to completion. A pause
// on an idle or completed queue is a no-op.
func (q *Queue[T]) Pause() {
	q.mu.Lock()
	if q.state == StateRunning {
		q.pauseLocked()
	}
	q.mu.Unlock()
}

// Resume restarts dispatching after a Pause.
func (q *Queue[T]) Resume() {
	q.mu.Lock()
	if q.state == StatePaused {
		q.state = StateRunning
		q.openGateLocked()
	}
	q.mu.Unlock()
}

// Stop terminally completes the queue; Run returns ErrStopped after
// in-flight items finish.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	q.state = StateCompleted
	q.openGateLocked()
	q.mu.Unlock()
}

func (q *Queue[T]) complete() {
	q.mu.Lock()
	q.state = StateCompleted
	q.openGateLocked()
	q.mu.Unlock()
}

// Progress returns a consistent counter snapshot, safe concurrently.
func (q *Queue[T]) Progress() Progress {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Progress{
		Total:    len(q.items),
		Done:     q.done,
		Failed:   q.failed,
		InFlight: q.inFlight,
		State:    q.state,
	}
}
