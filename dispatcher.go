package cardstack

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// ErrDispatcherClosed is returned for work submitted to, or still waiting in,
// a closed Dispatcher.
var ErrDispatcherClosed = errors.New("cardstack: dispatcher closed")

// TaskPanicError reports a panic recovered while running a dispatched task.
type TaskPanicError struct {
	Value any
	Stack []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("cardstack: dispatched task panicked: %v", e.Value)
}

type coordinatorKey struct{}

// withCoordinator marks ctx as running on d's coordinating goroutine.
func withCoordinator(ctx context.Context, d *Dispatcher) context.Context {
	return context.WithValue(ctx, coordinatorKey{}, d)
}

// OnCoordinator reports whether ctx was handed out by d to code running on
// its coordinating goroutine.
func OnCoordinator(ctx context.Context, d *Dispatcher) bool {
	owner, _ := ctx.Value(coordinatorKey{}).(*Dispatcher)
	return owner != nil && owner == d
}

type task struct {
	fn        func(context.Context)
	done      chan error // nil for async tasks
	cancelled atomic.Bool
}

// Dispatcher moves work from other goroutines onto the coordinating
// goroutine. The coordinator calls Drain once per tick (and whenever Wake
// fires); everyone else calls RunOnCoordinator or RunOnCoordinatorAsync.
//
// Tasks run in submission order. Submissions from one goroutine therefore
// keep their order; submissions from different goroutines interleave in
// whatever order they reached the queue.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []*task
	closed bool
	wake   chan struct{}

	onPanic func(error)
}

// NewDispatcher creates a dispatcher. onPanic receives panics recovered from
// async tasks (which have no waiter to report to); it may be nil.
func NewDispatcher(onPanic func(error)) *Dispatcher {
	return &Dispatcher{
		wake:    make(chan struct{}, 1),
		onPanic: onPanic,
	}
}

// RunOnCoordinator runs fn on the coordinating goroutine and waits for it.
// When ctx already carries this dispatcher's coordinator marker, fn runs
// inline, so nested calls from coordinator code cannot deadlock.
//
// If ctx is cancelled first, ctx.Err() is returned and the task is skipped
// unless it has already started. A panic in fn is returned as *TaskPanicError.
func (d *Dispatcher) RunOnCoordinator(ctx context.Context, fn func(context.Context)) error {
	if OnCoordinator(ctx, d) {
		fn(ctx)
		return nil
	}
	t := &task{fn: fn, done: make(chan error, 1)}
	if err := d.enqueue(t); err != nil {
		return err
	}
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		t.cancelled.Store(true)
		return ctx.Err()
	}
}

// RunOnCoordinatorAsync queues fn for the next drain without waiting.
func (d *Dispatcher) RunOnCoordinatorAsync(fn func(context.Context)) error {
	return d.enqueue(&task{fn: fn})
}

// Call runs fn on the coordinating goroutine and returns its result.
func Call[T any](ctx context.Context, d *Dispatcher, fn func(context.Context) T) (T, error) {
	result := make(chan T, 1)
	err := d.RunOnCoordinator(ctx, func(ctx context.Context) {
		result <- fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-result, nil
}

func (d *Dispatcher) enqueue(t *task) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.queue = append(d.queue, t)
	d.mu.Unlock()
	d.Wake()
	return nil
}

// Wake signals the coordinator that work is pending. Non-blocking.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Woken returns a channel that receives after new work is queued.
func (d *Dispatcher) Woken() <-chan struct{} {
	return d.wake
}

// Len returns the number of queued tasks.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Drain runs the tasks queued before the call, in order, and returns how many
// ran. Tasks queued while draining (including by the drained tasks) wait for
// the next Drain. Must only be called from the coordinating goroutine.
func (d *Dispatcher) Drain(ctx context.Context) int {
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()

	cctx := withCoordinator(ctx, d)
	n := 0
	for i, t := range batch {
		batch[i] = nil
		if t.cancelled.Load() {
			continue
		}
		d.run(cctx, t)
		n++
	}
	return n
}

func (d *Dispatcher) run(ctx context.Context, t *task) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = &TaskPanicError{Value: r, Stack: debug.Stack()}
		}
		if t.done != nil {
			t.done <- err
		} else if err != nil && d.onPanic != nil {
			d.onPanic(err)
		}
	}()
	t.fn(ctx)
}

// Close rejects further work and releases every waiting caller with
// ErrDispatcherClosed. Queued async tasks are dropped. Idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, t := range batch {
		if t.done != nil {
			t.done <- ErrDispatcherClosed
		}
	}
}
