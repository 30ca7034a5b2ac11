package cardstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

// NoCard is the card index while no card is loaded.
const NoCard = -1

const (
	defaultTPS           = 60
	defaultPeriodicEvery = 2
)

// ErrNoCards is returned when loading a stack entity without any cards.
var ErrNoCards = errors.New("cardstack: stack has no cards")

// Options configures a Stack. The zero value is usable.
type Options struct {
	// TPS is the headless tick rate used by Run. Default 60.
	TPS int
	// PeriodicEvery runs OnPeriodic handlers every N ticks. Default 2.
	PeriodicEvery int
	// Editing puts the stack in authoring mode: card changes select the card
	// and do not run OnShowCard/OnHideCard.
	Editing bool
	// Debug enables tree checks and per-tick stats at debug level.
	Debug bool
	// Logger receives debug logging. Default discards.
	Logger *slog.Logger
	// Clock returns the current time. Default time.Now.
	Clock func() time.Time
	// Clipboard backs Copy, Cut and Paste. Default is an in-memory clipboard.
	Clipboard Clipboard
	// OnError receives handler errors and recovered panics from async tasks.
	// Default logs them at warn level.
	OnError func(error)
}

// Stack is the top-level object: it owns the entity tree, the change
// notifier, the animation scheduler, the dispatcher into the coordinating
// goroutine and the undo log. Unless noted, methods must be called on the
// coordinating goroutine (from Update, an OnTick callback or a dispatched
// task).
type Stack struct {
	ID uuid.UUID

	root       *Entity
	notifier   Notifier
	scheduler  *Scheduler
	dispatcher *Dispatcher
	commands   *CommandLog
	runner     *Runner
	clipboard  Clipboard

	logger  *slog.Logger
	now     func() time.Time
	onError func(error)
	editing bool
	debug   bool

	tps           int
	periodicEvery int
	ticks         uint64

	cardIndex int
	selection []*Entity
	onTick    []func(context.Context)

	pointer pointerState
	session *Session
}

// NewStack creates a stack with one empty card, a clean dirty state and an
// empty undo log.
func NewStack(opts Options) *Stack {
	s := &Stack{
		ID:            uuid.New(),
		logger:        opts.Logger,
		now:           opts.Clock,
		onError:       opts.OnError,
		editing:       opts.Editing,
		tps:           opts.TPS,
		periodicEvery: opts.PeriodicEvery,
		clipboard:     opts.Clipboard,
		cardIndex:     NoCard,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.onError == nil {
		s.onError = func(err error) {
			s.logger.Warn("stack error", "err", err)
		}
	}
	if s.tps <= 0 {
		s.tps = defaultTPS
	}
	if s.periodicEvery <= 0 {
		s.periodicEvery = defaultPeriodicEvery
	}
	if s.clipboard == nil {
		s.clipboard = &MemoryClipboard{}
	}
	s.dispatcher = NewDispatcher(s.reportError)
	s.SetDebugMode(opts.Debug)

	root := NewEntity(KindStack)
	root.AddChild(NewEntity(KindCard))
	if err := s.Load(root); err != nil {
		panic(err)
	}
	return s
}

// Load replaces the stack's tree with root, which must be a stack entity with
// at least one card. The undo log is cleared and the first card loaded.
func (s *Stack) Load(root *Entity) error {
	if root.kind != KindStack {
		return fmt.Errorf("cardstack: load: root is a %s, want stack", root.kind)
	}
	if root.NumChildren() == 0 {
		return ErrNoCards
	}
	if s.root != nil {
		s.loadCard(NoCard, false)
		s.root.Teardown()
	}
	s.root = root
	root.setOwner(s)
	s.scheduler = NewScheduler(root)
	s.commands = NewCommandLog(root, s.logger)
	s.cardIndex = NoCard
	root.SetDirty(false)
	s.loadCard(0, false)
	return nil
}

// Root returns the stack entity.
func (s *Stack) Root() *Entity {
	return s.root
}

// Subscribe registers a change listener. Safe from any goroutine.
func (s *Stack) Subscribe(l Listener) (unsubscribe func()) {
	return s.notifier.Subscribe(l)
}

// Notifier returns the stack's change notifier.
func (s *Stack) Notifier() *Notifier {
	return &s.notifier
}

// Dispatcher returns the dispatcher into the coordinating goroutine.
// Safe from any goroutine.
func (s *Stack) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Scheduler returns the animation scheduler.
func (s *Stack) Scheduler() *Scheduler {
	return s.scheduler
}

// Commands returns the undo log.
func (s *Stack) Commands() *CommandLog {
	return s.commands
}

// Logger returns the stack's logger.
func (s *Stack) Logger() *slog.Logger {
	return s.logger
}

// Runner returns the attached script runner, or nil.
func (s *Stack) Runner() *Runner {
	return s.runner
}

// IsEditing reports whether the stack is in authoring mode.
func (s *Stack) IsEditing() bool {
	return s.editing
}

// SetDebugMode enables or disables debug mode. When enabled, tree operations
// on torn down entities panic, tree depth and child count warnings are
// logged, and per-tick stats are logged at debug level.
func (s *Stack) SetDebugMode(enabled bool) {
	s.debug = enabled
	globalDebug = enabled
}

func (s *Stack) clock() time.Time {
	return s.now()
}

func (s *Stack) reportError(err error) {
	s.onError(err)
}

// --- Undo ---

// Submit applies cmd and records it for undo.
func (s *Stack) Submit(cmd Command) bool {
	return s.commands.Submit(cmd, true)
}

// Undo reverts the most recent command.
func (s *Stack) Undo() bool {
	return s.commands.Undo()
}

// Redo re-applies the most recently undone command.
func (s *Stack) Redo() bool {
	return s.commands.Redo()
}

// Dirty reports whether the document has unsaved changes.
func (s *Stack) Dirty() bool {
	return s.root.Dirty()
}

// MarkSaved clears the dirty state of the whole document.
func (s *Stack) MarkSaved() {
	s.root.SetDirty(false)
}

// --- Cards ---

// Cards returns the cards in order. The returned slice MUST NOT be mutated.
func (s *Stack) Cards() []*Entity {
	return s.root.children
}

// CardAt returns the card at index, or nil.
func (s *Stack) CardAt(index int) *Entity {
	if index < 0 || index >= s.root.NumChildren() {
		return nil
	}
	return s.root.children[index]
}

// CardIndex returns the index of the current card, or NoCard.
func (s *Stack) CardIndex() int {
	return s.cardIndex
}

// CurrentCard returns the current card, or nil.
func (s *Stack) CurrentCard() *Entity {
	return s.CardAt(s.cardIndex)
}

// LoadCard makes the card at index current, clamping index into range.
func (s *Stack) LoadCard(index int) {
	n := s.root.NumChildren()
	if n == 0 {
		return
	}
	s.loadCard(min(max(index, 0), n-1), false)
}

// LoadCardEntity makes card current. No-op for entities that are not cards
// of this stack.
func (s *Stack) LoadCardEntity(card *Entity) {
	if i := s.root.ChildIndex(card); i >= 0 {
		s.loadCard(i, false)
	}
}

// keepCurrentCard runs fn, which may restructure the card list, and then
// re-points the card index at the card that was current before.
func (s *Stack) keepCurrentCard(fn func()) {
	cur := s.CurrentCard()
	fn()
	if cur == nil {
		return
	}
	if i := s.root.ChildIndex(cur); i >= 0 {
		s.cardIndex = i
	} else if n := s.root.NumChildren(); n > 0 {
		s.loadCard(min(s.cardIndex, n-1), true)
	}
}

// loadCard switches the current card. NoCard unloads. With reload the card
// is refreshed without hide/show handlers.
func (s *Stack) loadCard(index int, reload bool) {
	if index == s.cardIndex && !reload {
		return
	}
	if !s.editing && !reload && s.runner != nil {
		if old := s.CurrentCard(); old != nil {
			s.runner.RunHandler(old, "OnHideCard")
		}
	}
	s.cardIndex = index
	s.pointer.hovered, s.pointer.pressed = nil, nil
	s.ClearSelection()
	card := s.CurrentCard()
	if card == nil {
		return
	}
	if s.editing {
		s.Select(card, false)
	}
	s.notifier.Notify(Event{Type: EventCardChanged, Entity: card, Parent: s.root})
	if !s.editing && !reload && s.runner != nil {
		s.runner.RunHandler(card, "OnShowCard")
	}
}

// --- Selection ---

// Selection returns a copy of the selected entities in selection order.
func (s *Stack) Selection() []*Entity {
	return slices.Clone(s.selection)
}

// ClearSelection deselects everything.
func (s *Stack) ClearSelection() {
	if len(s.selection) == 0 {
		return
	}
	s.selection = s.selection[:0]
	s.notifier.Notify(Event{Type: EventSelectionChanged})
}

// Select selects e. With extend, e is toggled in the current selection
// instead of replacing it. Extension is refused (falls back to replacing)
// into or out of a group, and between a card and views.
func (s *Stack) Select(e *Entity, extend bool) {
	if e == nil {
		s.ClearSelection()
		return
	}
	if extend && inGroup(e) {
		extend = false
	}
	if extend && len(s.selection) > 0 && inGroup(s.selection[0]) {
		extend = false
	}
	if extend && len(s.selection) > 0 && (e.kind == KindCard) != (s.selection[0].kind == KindCard) {
		extend = false
	}
	if !extend {
		s.selection = s.selection[:0]
	}
	if i := slices.Index(s.selection, e); extend && i >= 0 {
		s.selection = slices.Delete(s.selection, i, i+1)
	} else {
		s.selection = append(s.selection, e)
	}
	s.notifier.Notify(Event{Type: EventSelectionChanged, Entity: e})
}

// SelectAll selects every top-level view on the current card.
func (s *Stack) SelectAll() {
	s.ClearSelection()
	if card := s.CurrentCard(); card != nil {
		for _, c := range card.children {
			s.Select(c, true)
		}
	}
}

func (s *Stack) deselect(e *Entity) {
	if i := slices.Index(s.selection, e); i >= 0 {
		s.selection = slices.Delete(s.selection, i, i+1)
		s.notifier.Notify(Event{Type: EventSelectionChanged, Entity: e})
	}
}

func inGroup(e *Entity) bool {
	return e.parent != nil && e.parent.kind == KindGroup
}

// --- Tick ---

// OnTick registers fn to run at the end of every Update, after animations
// have been applied. This is the refresh point for renderers.
func (s *Stack) OnTick(fn func(ctx context.Context)) {
	s.onTick = append(s.onTick, fn)
}

// Update runs one coordinator tick: queued dispatcher work, the attached
// session step, one injected pointer event, one scheduler step, periodic
// handlers every PeriodicEvery ticks, then OnTick callbacks.
func (s *Stack) Update(ctx context.Context) {
	ctx = withCoordinator(ctx, s.dispatcher)

	var stats debugStats
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
	}

	stats.tasks = s.dispatcher.Drain(ctx)
	if s.session != nil {
		s.session.step(s)
	}
	s.processInjectedInput()

	if s.debug {
		stats.drainTime = time.Since(t0)
		t0 = time.Now()
	}

	stats.updates, stats.finishes = s.scheduler.Tick(s.now())

	if s.debug {
		stats.animateTime = time.Since(t0)
		t0 = time.Now()
	}

	s.ticks++
	if s.runner != nil && s.ticks%uint64(s.periodicEvery) == 0 && s.runner.PeriodicQueued() == 0 {
		if card := s.CurrentCard(); card != nil && !s.editing {
			card.Walk(func(e *Entity) bool {
				s.runner.RunHandler(e, "OnPeriodic")
				return true
			})
		}
	}

	if s.debug {
		stats.periodicTime = time.Since(t0)
		s.debugLog(stats)
	}

	for _, fn := range s.onTick {
		fn(ctx)
	}
}

// Run drives Update at the configured TPS until ctx is done, draining
// dispatched work between ticks as soon as it arrives. For windowed hosts
// call Update from the host's own loop instead.
func (s *Stack) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.tps))
	defer ticker.Stop()
	cctx := withCoordinator(ctx, s.dispatcher)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Update(ctx)
		case <-s.dispatcher.Woken():
			s.dispatcher.Drain(cctx)
		}
	}
}

// Settle drains dispatched work until the attached runner is idle or ctx is
// done. Headless hosts on a virtual clock call it after Update so handler
// effects land on the tick that queued them. Must be called on the
// coordinating goroutine.
func (s *Stack) Settle(ctx context.Context) error {
	if s.runner == nil {
		return nil
	}
	cctx := withCoordinator(ctx, s.dispatcher)
	poll := time.NewTicker(time.Millisecond)
	defer poll.Stop()
	for {
		s.dispatcher.Drain(cctx)
		if s.runner.Idle() && s.dispatcher.Len() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.dispatcher.Woken():
		case <-poll.C:
		}
	}
}

// Close stops the runner, releases every dispatcher waiter and tears the tree
// down, cancelling all animations.
func (s *Stack) Close() {
	if s.runner != nil {
		s.runner.Stop()
	}
	s.dispatcher.Close()
	s.root.Teardown()
}
