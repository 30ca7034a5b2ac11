package cardstack

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for deterministic animation tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// newTestStack returns a stack on a fake clock with one empty card.
func newTestStack(t *testing.T, opts Options) (*Stack, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	if opts.Clock == nil {
		opts.Clock = clk.Now
	}
	s := NewStack(opts)
	t.Cleanup(s.Close)
	return s, clk
}

// coordinatorCtx returns a context that runs s's dispatched work inline.
func coordinatorCtx(s *Stack) context.Context {
	return withCoordinator(context.Background(), s.dispatcher)
}

// addButton appends a button at pos to card without going through the undo log.
func addButton(card *Entity, name string, pos Point) *Entity {
	b := NewEntity(KindButton)
	b.SetPropertyQuiet("name", name)
	b.SetPropertyQuiet("position", pos)
	card.AddChild(b)
	return b
}

// --- Construction ---

func TestNewStackDefaults(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	if got := len(s.Cards()); got != 1 {
		t.Fatalf("len(Cards) = %d, want 1", got)
	}
	if s.CardIndex() != 0 {
		t.Errorf("CardIndex = %d, want 0", s.CardIndex())
	}
	if s.CurrentCard().Name() != "card_1" {
		t.Errorf("card name = %q, want %q", s.CurrentCard().Name(), "card_1")
	}
	if s.Dirty() {
		t.Error("new stack should be clean")
	}
	if s.Commands().CanUndo() {
		t.Error("new stack should have nothing to undo")
	}
	if s.IsEditing() {
		t.Error("default stack should not be editing")
	}
}

func TestLoadRejectsNonStack(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	if err := s.Load(NewEntity(KindCard)); err == nil {
		t.Error("Load(card) should fail")
	}
	if err := s.Load(NewEntity(KindStack)); !errors.Is(err, ErrNoCards) {
		t.Errorf("Load(empty stack) = %v, want ErrNoCards", err)
	}
}

func TestLoadReplacesTree(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	old := s.Root()

	root := NewEntity(KindStack)
	root.AddChild(NewEntity(KindCard))
	second := NewEntity(KindCard)
	second.SetPropertyQuiet("name", "card_2")
	root.AddChild(second)
	if err := s.Load(root); err != nil {
		t.Fatal(err)
	}
	if !old.IsTornDown() {
		t.Error("previous root should be torn down")
	}
	if s.Root() != root || len(s.Cards()) != 2 {
		t.Errorf("Root not replaced")
	}
	if second.Stack() != s {
		t.Error("loaded entities should be owned by the stack")
	}
	if s.Dirty() {
		t.Error("loaded stack should be clean")
	}
}

// --- Cards ---

func TestLoadCardClamps(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	s.AddCard()
	s.AddCard()
	s.LoadCard(99)
	if s.CardIndex() != 2 {
		t.Errorf("LoadCard(99) index = %d, want 2", s.CardIndex())
	}
	s.LoadCard(-5)
	if s.CardIndex() != 0 {
		t.Errorf("LoadCard(-5) index = %d, want 0", s.CardIndex())
	}
}

func TestAddCardUndo(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.AddCard()
	if s.CurrentCard() != card || s.CardIndex() != 1 {
		t.Fatalf("new card should be current at index 1, got %d", s.CardIndex())
	}
	if card.Name() != "card_2" {
		t.Errorf("card name = %q, want %q", card.Name(), "card_2")
	}
	s.Undo()
	if len(s.Cards()) != 1 || s.CardIndex() != 0 {
		t.Errorf("after undo: %d cards, index %d", len(s.Cards()), s.CardIndex())
	}
	if !card.IsTornDown() {
		t.Error("undone card should be torn down")
	}
	s.Redo()
	if s.CurrentCard() != card {
		t.Error("redo should restore the same card")
	}
}

func TestRemoveCardRefusesLast(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	if s.RemoveCard() {
		t.Error("removing the only card should fail")
	}
	s.AddCard()
	if !s.RemoveCard() {
		t.Fatal("RemoveCard should succeed with two cards")
	}
	if len(s.Cards()) != 1 {
		t.Errorf("len(Cards) = %d, want 1", len(s.Cards()))
	}
	s.Undo()
	if len(s.Cards()) != 2 || s.CardIndex() != 1 {
		t.Errorf("after undo: %d cards, index %d", len(s.Cards()), s.CardIndex())
	}
}

func TestDuplicateCard(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	addButton(s.CurrentCard(), "go", Point{5, 5})
	dup := s.DuplicateCard()
	if dup == nil || s.CurrentCard() != dup {
		t.Fatal("duplicate should become current")
	}
	if dup.Name() != "card_2" {
		t.Errorf("name = %q, want %q", dup.Name(), "card_2")
	}
	if dup.FindChildByName("go") == nil {
		t.Error("duplicate should carry the views")
	}
}

func TestReorderCurrentCard(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	first := s.CurrentCard()
	s.AddCard()
	s.LoadCard(0)
	if !s.ReorderCurrentCard(OrderForward) {
		t.Fatal("ReorderCurrentCard should succeed")
	}
	if s.CardAt(1) != first || s.CurrentCard() != first {
		t.Error("first card should now be second and current")
	}
	if s.ReorderCurrentCard(OrderForward) {
		t.Error("moving past the end should fail")
	}
	s.Undo()
	if s.CardAt(0) != first {
		t.Error("undo should restore the card order")
	}
}

// --- Selection ---

func TestSelectExtendToggles(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.CurrentCard()
	a := addButton(card, "a", Point{})
	b := addButton(card, "b", Point{})
	s.Select(a, false)
	s.Select(b, true)
	if got := len(s.Selection()); got != 2 {
		t.Fatalf("len(Selection) = %d, want 2", got)
	}
	s.Select(a, true)
	sel := s.Selection()
	if len(sel) != 1 || sel[0] != b {
		t.Errorf("Selection = %v, want [b]", sel)
	}
}

func TestSelectRefusesMixing(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.CurrentCard()
	a := addButton(card, "a", Point{})
	s.Select(card, false)
	s.Select(a, true)
	if sel := s.Selection(); len(sel) != 1 || sel[0] != a {
		t.Errorf("card and view should not be selected together, got %v", sel)
	}
}

func TestSelectRefusesGroupExtension(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.CurrentCard()
	a := addButton(card, "a", Point{})
	g := NewEntity(KindGroup)
	card.AddChild(g)
	inner := NewEntity(KindButton)
	inner.SetPropertyQuiet("name", "inner")
	g.AddChild(inner)

	s.Select(a, false)
	s.Select(inner, true)
	if sel := s.Selection(); len(sel) != 1 || sel[0] != inner {
		t.Errorf("extending into a group should replace, got %v", sel)
	}
	s.Select(a, true)
	if sel := s.Selection(); len(sel) != 1 || sel[0] != a {
		t.Errorf("extending out of a group should replace, got %v", sel)
	}
}

func TestEditingSelectsCard(t *testing.T) {
	s, _ := newTestStack(t, Options{Editing: true})
	sel := s.Selection()
	if len(sel) != 1 || sel[0] != s.CurrentCard() {
		t.Errorf("editing stack should select its current card, got %v", sel)
	}
}

func TestSelectAll(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.CurrentCard()
	addButton(card, "a", Point{})
	addButton(card, "b", Point{})
	s.SelectAll()
	if got := len(s.Selection()); got != 2 {
		t.Errorf("len(Selection) = %d, want 2", got)
	}
}

// --- Dirty state ---

func TestDirtyAndMarkSaved(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{})
	s.MarkSaved()
	s.SetProperty(b, "title", "Hello")
	if !s.Dirty() {
		t.Error("stack should be dirty after an edit")
	}
	s.MarkSaved()
	if s.Dirty() {
		t.Error("MarkSaved should clear dirty")
	}
}

// --- Tick ---

func TestUpdateRunsOnTickAfterAnimations(t *testing.T) {
	s, clk := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{})
	b.AnimatePosition(time.Second, Point{10, 0}, nil, nil)

	var seen Point
	s.OnTick(func(ctx context.Context) {
		seen = b.Position()
		if !OnCoordinator(ctx, s.Dispatcher()) {
			t.Error("OnTick ctx should be marked as coordinator")
		}
	})
	clk.Advance(time.Second)
	s.Update(context.Background())
	if seen != (Point{10, 0}) {
		t.Errorf("OnTick saw %v, want (10, 0)", seen)
	}
}

func TestUpdateDrainsDispatcher(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	ran := false
	if err := s.Dispatcher().RunOnCoordinatorAsync(func(context.Context) { ran = true }); err != nil {
		t.Fatal(err)
	}
	s.Update(context.Background())
	if !ran {
		t.Error("Update should drain queued tasks")
	}
}

func TestSpeedIntegration(t *testing.T) {
	s, clk := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{})
	b.SetProperty("speed", Point{10, -5})
	s.Update(context.Background())
	clk.Advance(2 * time.Second)
	s.Update(context.Background())
	if got := b.Position(); got != (Point{20, -10}) {
		t.Errorf("Position = %v, want (20, -10)", got)
	}
}

func TestCloseTearsDown(t *testing.T) {
	s := NewStack(Options{})
	root := s.Root()
	s.Close()
	if !root.IsTornDown() {
		t.Error("Close should tear the tree down")
	}
	if err := s.Dispatcher().RunOnCoordinatorAsync(func(context.Context) {}); !errors.Is(err, ErrDispatcherClosed) {
		t.Errorf("dispatch after Close = %v, want ErrDispatcherClosed", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestStack(t, Options{TPS: 1000})
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan struct{}, 1)
	s.OnTick(func(context.Context) {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	<-ticks
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}
