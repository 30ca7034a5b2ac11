package cardstack

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ErrRunnerStopped is returned by Run after Stop.
var ErrRunnerStopped = errors.New("cardstack: runner stopped")

// Interpreter executes handler bodies. Invoke is called on the runner
// goroutine, one body at a time; it reaches the entity tree only through the
// proxy, whose methods marshal onto the coordinating goroutine.
type Interpreter interface {
	Invoke(ctx context.Context, self *Proxy, handler, body string, args []any) error
}

// InterpreterFunc adapts a plain function to Interpreter.
type InterpreterFunc func(ctx context.Context, self *Proxy, handler, body string, args []any) error

// Invoke calls f.
func (f InterpreterFunc) Invoke(ctx context.Context, self *Proxy, handler, body string, args []any) error {
	return f(ctx, self, handler, body, args)
}

// HandlerError wraps an error or panic from one handler invocation.
type HandlerError struct {
	Entity  string
	Handler string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Entity, e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

type job struct {
	proxy   *Proxy
	name    string
	handler string
	body    string
	args    []any
	fn      func(ctx context.Context)
}

// Runner is the script goroutine. Jobs (handler invocations and queued
// functions) run strictly one after another in submission order.
type Runner struct {
	stack  *Stack
	interp Interpreter

	mu     sync.Mutex
	queue  []job
	busy   bool
	signal chan struct{}

	periodicQueued atomic.Int32
	stopped        atomic.Bool
	stopOnce       sync.Once
	stopCh         chan struct{}
	done           chan struct{}
	startTime      time.Time
}

// NewRunner creates a runner for s and attaches it, so card changes and
// periodic ticks start queueing handlers.
func NewRunner(s *Stack, interp Interpreter) *Runner {
	r := &Runner{
		stack:  s,
		interp: interp,
		signal: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	r.startTime = s.now()
	s.runner = r
	return r
}

// Start runs the runner loop on a new goroutine.
func (r *Runner) Start(ctx context.Context) {
	go func() { _ = r.Run(ctx) }()
}

// Run executes jobs until ctx is done or Stop is called. It returns ctx.Err()
// or ErrRunnerStopped.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	for {
		j, err := r.next(ctx)
		if err != nil {
			return err
		}
		r.run(ctx, j)
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}
}

func (r *Runner) next(ctx context.Context) (job, error) {
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			j := r.queue[0]
			r.queue[0] = job{}
			r.queue = r.queue[1:]
			r.busy = true
			r.mu.Unlock()
			return j, nil
		}
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return job{}, ctx.Err()
		case <-r.stopCh:
			return job{}, ErrRunnerStopped
		case <-r.signal:
		}
	}
}

func (r *Runner) run(ctx context.Context, j job) {
	if j.handler == "OnPeriodic" {
		defer r.periodicQueued.Add(-1)
	}
	if r.stopped.Load() {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.stack.reportError(&HandlerError{Entity: j.name, Handler: j.handler,
				Err: &TaskPanicError{Value: p, Stack: debug.Stack()}})
		}
	}()
	if j.fn != nil {
		j.fn(ctx)
		return
	}
	if !j.proxy.alive() {
		return
	}
	// Torn down from another goroutine, detach still pending.
	if e := j.proxy.Entity(); e == nil || e.IsTornDown() {
		return
	}
	if err := r.interp.Invoke(ctx, j.proxy, j.handler, j.body, j.args); err != nil {
		r.stack.reportError(&HandlerError{Entity: j.name, Handler: j.handler, Err: err})
	}
}

func (r *Runner) enqueue(j job) {
	r.mu.Lock()
	r.queue = append(r.queue, j)
	r.mu.Unlock()
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// RunHandler queues the named handler of e if it has a non-blank body.
// Must be called on the coordinating goroutine. Reports whether a job was
// queued.
func (r *Runner) RunHandler(e *Entity, name string, args ...any) bool {
	if r.stopped.Load() || e.IsTornDown() {
		return false
	}
	body, ok := e.Handler(name)
	if !ok || isBlank(body) {
		return false
	}
	if name == "OnPeriodic" {
		r.periodicQueued.Add(1)
	}
	r.enqueue(job{proxy: e.Proxy(), name: e.Name(), handler: name, body: body, args: args})
	return true
}

// RunSetup queues OnSetup for e and every descendant, parents first.
func (r *Runner) RunSetup(e *Entity) {
	e.Walk(func(x *Entity) bool {
		r.RunHandler(x, "OnSetup")
		return true
	})
}

// EnqueueFunction queues fn to run on the runner goroutine. Safe from any
// goroutine.
func (r *Runner) EnqueueFunction(fn func(ctx context.Context)) {
	if r.stopped.Load() {
		return
	}
	r.enqueue(job{fn: fn})
}

// PeriodicQueued returns the number of queued or running OnPeriodic jobs.
func (r *Runner) PeriodicQueued() int {
	return int(r.periodicQueued.Load())
}

// Pending returns the number of queued jobs.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Idle reports whether no job is queued or running.
func (r *Runner) Idle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue) == 0 && !r.busy
}

// StartTime returns when the runner was created.
func (r *Runner) StartTime() time.Time {
	return r.startTime
}

// Stop discards queued jobs and ends Run after the current job returns. It
// does not wait; use Wait for that. Idempotent.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		r.mu.Lock()
		dropped := 0
		for _, j := range r.queue {
			if j.handler == "OnPeriodic" {
				dropped++
			}
		}
		clear(r.queue)
		r.queue = nil
		r.mu.Unlock()
		r.periodicQueued.Add(-int32(dropped))
		close(r.stopCh)
	})
}

// Wait blocks until Run has returned. Run must have been started.
func (r *Runner) Wait() {
	<-r.done
}
