package cardstack

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// queuedHandlers returns "name.handler" for every job waiting in r.
func queuedHandlers(r *Runner) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, j := range r.queue {
		out = append(out, j.name+"."+j.handler)
	}
	return out
}

// startRunner attaches a running runner to s and stops it at cleanup.
func startRunner(t *testing.T, s *Stack, interp Interpreter) *Runner {
	t.Helper()
	r := NewRunner(s, interp)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	t.Cleanup(func() {
		cancel()
		r.Wait()
	})
	return r
}

func settle(t *testing.T, s *Stack) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
}

// recorder is an interpreter that logs every invocation.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) Invoke(_ context.Context, _ *Proxy, handler, body string, _ []any) error {
	r.mu.Lock()
	r.calls = append(r.calls, handler+":"+body)
	r.mu.Unlock()
	return nil
}

func (r *recorder) log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// --- Execution ---

func TestRunnerRunsInOrder(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.CurrentCard()
	a := addButton(card, "a", Point{})
	b := addButton(card, "b", Point{})
	a.SetHandler("OnClick", "one")
	b.SetHandler("OnMessage", "two")
	rec := &recorder{}
	r := startRunner(t, s, rec)

	r.RunHandler(a, "OnClick")
	r.RunHandler(b, "OnMessage", "hi")
	settle(t, s)
	equalNames(t, "calls", rec.log(), []string{"OnClick:one", "OnMessage:two"})
	if !r.Idle() {
		t.Error("runner should be idle after settling")
	}
}

func TestRunHandlerSkipsBlankBodies(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{})
	r := NewRunner(s, &recorder{})
	if r.RunHandler(b, "OnClick") {
		t.Error("empty handler should not be queued")
	}
	b.SetHandler("OnClick", " \t\n")
	if r.RunHandler(b, "OnClick") {
		t.Error("blank handler should not be queued")
	}
	if r.RunHandler(b, "OnNothing") {
		t.Error("missing handler should not be queued")
	}
	if r.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", r.Pending())
	}
}

func TestRunnerProxyWrites(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{})
	b.SetHandler("OnClick", "set")
	r := startRunner(t, s, InterpreterFunc(func(ctx context.Context, self *Proxy, _, _ string, _ []any) error {
		return self.Set(ctx, "title", "Clicked")
	}))
	r.RunHandler(b, "OnClick")
	settle(t, s)
	if got := b.StringProperty("title"); got != "Clicked" {
		t.Errorf("title = %q, want %q", got, "Clicked")
	}
}

func TestRunnerReportsErrors(t *testing.T) {
	errs := make(chan error, 2)
	s, _ := newTestStack(t, Options{OnError: func(err error) { errs <- err }})
	b := addButton(s.CurrentCard(), "a", Point{})
	b.SetHandler("OnClick", "fail")
	b.SetHandler("OnMessage", "panic")
	failure := errors.New("bad handler")
	r := startRunner(t, s, InterpreterFunc(func(_ context.Context, _ *Proxy, handler, _ string, _ []any) error {
		if handler == "OnMessage" {
			panic("kaboom")
		}
		return failure
	}))

	r.RunHandler(b, "OnClick")
	r.RunHandler(b, "OnMessage", "x")
	settle(t, s)

	var herr *HandlerError
	first := <-errs
	if !errors.As(first, &herr) || herr.Handler != "OnClick" || herr.Entity != "a" || !errors.Is(first, failure) {
		t.Errorf("first error = %v", first)
	}
	second := <-errs
	var perr *TaskPanicError
	if !errors.As(second, &perr) || perr.Value != "kaboom" {
		t.Errorf("second error = %v, want a recovered panic", second)
	}
}

func TestRunnerSkipsTornDownEntities(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{})
	b.SetHandler("OnClick", "x")
	rec := &recorder{}
	r := NewRunner(s, rec)
	r.RunHandler(b, "OnClick")
	b.Teardown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	settle(t, s)
	if len(rec.log()) != 0 {
		t.Errorf("handler of a torn down entity ran: %v", rec.log())
	}
	r.Stop()
	r.Wait()
}

func TestEnqueueFunction(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	r := startRunner(t, s, &recorder{})
	ran := make(chan struct{})
	r.EnqueueFunction(func(context.Context) { close(ran) })
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("queued function did not run")
	}
}

func TestRunnerStop(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{})
	b.SetHandler("OnClick", "x")
	r := NewRunner(s, &recorder{})
	r.RunHandler(b, "OnClick")
	r.Stop()
	if r.Pending() != 0 {
		t.Error("Stop should discard queued jobs")
	}
	if r.RunHandler(b, "OnClick") {
		t.Error("stopped runner should refuse jobs")
	}
	if err := r.Run(context.Background()); !errors.Is(err, ErrRunnerStopped) {
		t.Errorf("Run = %v, want ErrRunnerStopped", err)
	}
	r.Stop()
}

// --- Scheduling ---

func TestPeriodicHandlers(t *testing.T) {
	s, _ := newTestStack(t, Options{PeriodicEvery: 1})
	b := addButton(s.CurrentCard(), "a", Point{})
	b.SetHandler("OnPeriodic", "tick")
	r := NewRunner(s, &recorder{})

	s.Update(context.Background())
	if r.PeriodicQueued() != 1 || r.Pending() != 1 {
		t.Fatalf("PeriodicQueued = %d, Pending = %d, want 1, 1", r.PeriodicQueued(), r.Pending())
	}
	s.Update(context.Background())
	if r.Pending() != 1 {
		t.Errorf("periodic handlers should not pile up, Pending = %d", r.Pending())
	}
	r.Stop()
	if r.PeriodicQueued() != 0 {
		t.Errorf("Stop should reset the periodic count, got %d", r.PeriodicQueued())
	}
}

func TestPeriodicEvery(t *testing.T) {
	s, _ := newTestStack(t, Options{PeriodicEvery: 3})
	b := addButton(s.CurrentCard(), "a", Point{})
	b.SetHandler("OnPeriodic", "tick")
	r := NewRunner(s, &recorder{})
	s.Update(context.Background())
	s.Update(context.Background())
	if r.Pending() != 0 {
		t.Error("periodic handlers should wait for the third tick")
	}
	s.Update(context.Background())
	if r.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", r.Pending())
	}
}

func TestNoPeriodicWhileEditing(t *testing.T) {
	s, _ := newTestStack(t, Options{PeriodicEvery: 1, Editing: true})
	b := addButton(s.CurrentCard(), "a", Point{})
	b.SetHandler("OnPeriodic", "tick")
	r := NewRunner(s, &recorder{})
	s.Update(context.Background())
	if r.Pending() != 0 {
		t.Error("editing stacks should not run periodic handlers")
	}
}

func TestCardChangeHandlers(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	first := s.CurrentCard()
	second := NewEntity(KindCard)
	second.SetPropertyQuiet("name", "second")
	s.Root().AddChild(second)
	first.SetHandler("OnHideCard", "bye")
	second.SetHandler("OnShowCard", "hello")
	r := NewRunner(s, &recorder{})

	s.LoadCard(1)
	equalNames(t, "queued", queuedHandlers(r), []string{"card_1.OnHideCard", "second.OnShowCard"})
}

func TestRunSetupParentsFirst(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.CurrentCard()
	g := NewEntity(KindGroup)
	card.AddChild(g)
	b := NewEntity(KindButton)
	g.AddChild(b)
	for _, e := range []*Entity{card, g, b} {
		e.SetHandler("OnSetup", "init")
	}
	r := NewRunner(s, &recorder{})
	r.RunSetup(card)
	equalNames(t, "queued", queuedHandlers(r), []string{"card_1.OnSetup", "group_1.OnSetup", "button_1.OnSetup"})
}
