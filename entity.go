package cardstack

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// --- ID counter ---

// entityIDCounter is shared by the coordinator and script goroutines, so it
// is atomic (entities are cloned on either side).
var entityIDCounter atomic.Uint32

func nextEntityID() uint32 {
	return entityIDCounter.Add(1)
}

// --- Entity ---

// Entity is a node of the authored document: the stack, a card, a group or a
// leaf view. A single struct is used for every kind; the Kind selects the
// property schema.
//
// Properties, handlers and tree links are owned by the coordinating goroutine.
// The animations map, the torn-down flag and the owner are guarded by animMu:
// the coordinator writes owner under it and other goroutines read it under it.
type Entity struct {
	ID   uint32
	kind Kind

	// Hierarchy. The parent owns its children; parent is a plain back pointer.
	parent   *Entity
	children []*Entity
	owner    *Stack // written under animMu

	properties map[string]any
	handlers   map[string]string
	dirty      bool

	animMu     sync.Mutex
	animations map[string][]*Animation
	tornDown   bool // guarded by animMu

	proxy *Proxy
}

// NewEntity creates a detached entity of the given kind with default
// properties and empty handlers.
func NewEntity(kind Kind) *Entity {
	s := schemas[kind]
	return &Entity{
		ID:         nextEntityID(),
		kind:       kind,
		properties: s.newProperties(),
		handlers:   s.newHandlers(),
		animations: map[string][]*Animation{},
	}
}

// Kind returns the entity's kind.
func (e *Entity) Kind() Kind {
	return e.kind
}

// Name returns the entity's name property.
func (e *Entity) Name() string {
	s, _ := e.properties["name"].(string)
	return s
}

// Stack returns the owning stack, or nil while the entity is detached from
// any stack or torn down.
func (e *Entity) Stack() *Stack {
	return e.owner
}

func (e *Entity) String() string {
	return "<" + e.kind.String() + ":'" + e.Name() + "'>"
}

// --- Tree manipulation ---

// canContain reports whether a child of kind c may be placed under p.
func canContain(p, c Kind) bool {
	switch p {
	case KindStack:
		return c == KindCard
	case KindCard, KindGroup:
		return c.IsView()
	}
	return false
}

// AddChild appends child to this entity's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil, child is an ancestor of this entity (cycle) or the
// kinds cannot nest (a card inside a group, a view inside the stack).
func (e *Entity) AddChild(child *Entity) {
	e.InsertChild(child, len(e.children)-boolToInt(child != nil && child.parent == e))
}

// InsertChild inserts child at index among this entity's children.
// Same reparenting, cycle and nesting checks as AddChild.
func (e *Entity) InsertChild(child *Entity, index int) {
	if child == nil {
		panic("cardstack: cannot add nil child")
	}
	if globalDebug {
		debugCheckTornDown(e, "InsertChild (parent)")
	}
	if isAncestor(child, e) {
		panic("cardstack: adding child would create a cycle")
	}
	if !canContain(e.kind, child.kind) {
		panic("cardstack: a " + e.kind.String() + " cannot contain a " + child.kind.String())
	}
	limit := len(e.children)
	if child.parent == e {
		limit--
	}
	if index < 0 || index > limit {
		panic("cardstack: child index out of range")
	}
	if child.parent != nil {
		child.parent.removeChildByPtr(child)
	}
	child.parent = e
	e.children = append(e.children, nil)
	copy(e.children[index+1:], e.children[index:])
	e.children[index] = child
	e.dirty = true
	if e.owner != nil {
		child.setOwner(e.owner)
	}
	if globalDebug {
		debugCheckTreeDepth(child)
		debugCheckChildCount(e)
	}
	e.emit(Event{Type: EventChildAdded, Entity: child, Parent: e})
}

// RemoveChild detaches child from this entity. The child keeps its own
// children, properties and owner so it can be re-inserted later.
// Panics if child.parent != e.
func (e *Entity) RemoveChild(child *Entity) {
	if child.parent != e {
		panic("cardstack: child's parent is not this entity")
	}
	e.removeChildByPtr(child)
	child.parent = nil
	e.dirty = true
	e.emit(Event{Type: EventChildRemoved, Entity: child, Parent: e})
}

// RemoveChildAt removes and returns the child at the given index.
func (e *Entity) RemoveChildAt(index int) *Entity {
	if index < 0 || index >= len(e.children) {
		panic("cardstack: child index out of range")
	}
	child := e.children[index]
	e.RemoveChild(child)
	return child
}

// RemoveFromParent detaches this entity from its parent.
// No-op if this entity has no parent.
func (e *Entity) RemoveFromParent() {
	if e.parent == nil {
		return
	}
	e.parent.RemoveChild(e)
}

// Parent returns the parent entity, or nil for the root and detached entities.
func (e *Entity) Parent() *Entity {
	return e.parent
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (e *Entity) Children() []*Entity {
	return e.children
}

// NumChildren returns the number of children.
func (e *Entity) NumChildren() int {
	return len(e.children)
}

// ChildAt returns the child at the given index.
func (e *Entity) ChildAt(index int) *Entity {
	return e.children[index]
}

// ChildIndex returns the index of child among this entity's children, or -1.
func (e *Entity) ChildIndex(child *Entity) int {
	for i, c := range e.children {
		if c == child {
			return i
		}
	}
	return -1
}

// SetChildIndex moves child to a new index among its siblings.
func (e *Entity) SetChildIndex(child *Entity, index int) {
	if child.parent != e {
		panic("cardstack: child's parent is not this entity")
	}
	nc := len(e.children)
	if index < 0 || index >= nc {
		panic("cardstack: child index out of range")
	}
	oldIndex := e.ChildIndex(child)
	if oldIndex == index {
		return
	}
	// Shift elements to fill the gap and open the target slot.
	if oldIndex < index {
		copy(e.children[oldIndex:], e.children[oldIndex+1:index+1])
	} else {
		copy(e.children[index+1:], e.children[index:oldIndex])
	}
	e.children[index] = child
	e.dirty = true
	e.emit(Event{Type: EventChildMoved, Entity: child, Parent: e})
}

// OrderMoveTo moves this entity to index among its siblings. Indexes wrap, so
// -1 is the front-most position.
func (e *Entity) OrderMoveTo(index int) {
	p := e.parent
	if p == nil || len(p.children) == 0 {
		return
	}
	n := len(p.children)
	index = ((index % n) + n) % n
	p.SetChildIndex(e, index)
}

// OrderMoveBy moves this entity by delta positions among its siblings.
func (e *Entity) OrderMoveBy(delta int) {
	if e.parent == nil {
		return
	}
	index := e.parent.ChildIndex(e) + delta
	if index < 0 || index >= len(e.parent.children) {
		return
	}
	e.parent.SetChildIndex(e, index)
}

// FindChildByName returns the direct child with the given name, or nil.
func (e *Entity) FindChildByName(name string) *Entity {
	for _, c := range e.children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// FindByName searches this entity and its descendants depth-first and returns
// the first entity with the given name, or nil.
func (e *Entity) FindByName(name string) *Entity {
	if e.Name() == name {
		return e
	}
	for _, c := range e.children {
		if found := c.FindByName(name); found != nil {
			return found
		}
	}
	return nil
}

// Card returns the nearest card at or above this entity, or nil for the
// stack and for views that are not on a card.
func (e *Entity) Card() *Entity {
	for p := e; p != nil; p = p.parent {
		if p.kind == KindCard {
			return p
		}
	}
	return nil
}

// Path returns the dot-separated names from below the root down to this entity.
func (e *Entity) Path() string {
	var parts []string
	for m := e; m.parent != nil; m = m.parent {
		parts = append(parts, m.Name())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// IsHidden reports whether this entity or any ancestor has hidden set.
func (e *Entity) IsHidden() bool {
	for p := e; p != nil; p = p.parent {
		if h, _ := p.properties["hidden"].(bool); h {
			return true
		}
	}
	return false
}

// Walk calls fn for this entity and every descendant, parents first.
// Returning false from fn skips the entity's subtree.
func (e *Entity) Walk(fn func(*Entity) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.children {
		c.Walk(fn)
	}
}

// --- Dirty state ---

// SetDirty marks the entity dirty. Clearing it clears the whole subtree.
func (e *Entity) SetDirty(dirty bool) {
	e.dirty = dirty
	if dirty {
		return
	}
	for _, c := range e.children {
		c.SetDirty(false)
	}
}

// Dirty reports whether this entity or any descendant has unsaved changes.
func (e *Entity) Dirty() bool {
	if e.dirty {
		return true
	}
	for _, c := range e.children {
		if c.Dirty() {
			return true
		}
	}
	return false
}

// --- Teardown ---

// Teardown marks this entity and its subtree as torn down: in-flight
// animations are cancelled (running OnCancel), pending ones are dropped, and
// the parent and owner references are released. Children stay attached to
// the torn-down entity so SetBackUp can restore the subtree. Idempotent.
// Must be called on the coordinating goroutine; elsewhere use TeardownFrom.
func (e *Entity) Teardown() {
	if !e.markTornDown() {
		return
	}
	e.RemoveFromParent()
	e.releaseTree()
}

// TeardownFrom is Teardown for any goroutine. The torn-down flag is set and
// the entity's animations stop immediately, so the scheduler no longer
// advances the subtree. The cancel callbacks and the tree detach run on the
// owning stack's coordinator, inline when ctx carries its marker. It blocks
// until they have run or ctx is done.
func (e *Entity) TeardownFrom(ctx context.Context) error {
	e.animMu.Lock()
	if e.tornDown {
		e.animMu.Unlock()
		return nil
	}
	e.tornDown = true
	cancelled := e.takeAnimationsLocked("")
	owner := e.owner
	e.animMu.Unlock()

	detach := func(context.Context) {
		runCancels(cancelled)
		// SetBackUp may have revived the entity before the detach ran.
		if !e.IsTornDown() {
			return
		}
		e.RemoveFromParent()
		e.releaseTree()
	}
	if owner == nil {
		detach(ctx)
		return nil
	}
	return owner.dispatcher.RunOnCoordinator(ctx, detach)
}

// markTornDown sets the torn-down flag and cancels the entity's animations.
// Reports false if it was already torn down.
func (e *Entity) markTornDown() bool {
	e.animMu.Lock()
	if e.tornDown {
		e.animMu.Unlock()
		return false
	}
	e.tornDown = true
	cancelled := e.takeAnimationsLocked("")
	e.animMu.Unlock()
	runCancels(cancelled)
	return true
}

// releaseTree tears down the children and drops the parent, owner and proxy
// references of e.
func (e *Entity) releaseTree() {
	for _, c := range e.children {
		if c.markTornDown() {
			c.releaseTree()
		}
	}
	e.parent = nil
	e.animMu.Lock()
	e.owner = nil
	e.animMu.Unlock()
	if e.proxy != nil {
		e.proxy.release()
		e.proxy = nil
	}
}

// SetBackUp reverses Teardown for the whole subtree: the torn-down flag is
// cleared, the owner restored and every child's parent re-linked.
func (e *Entity) SetBackUp(owner *Stack) {
	e.animMu.Lock()
	wasDown := e.tornDown
	e.tornDown = false
	if wasDown {
		e.owner = owner
	}
	e.animMu.Unlock()
	if !wasDown {
		return
	}
	for _, c := range e.children {
		c.SetBackUp(owner)
		c.parent = e
	}
}

// IsTornDown reports whether Teardown has been called without a matching SetBackUp.
func (e *Entity) IsTornDown() bool {
	e.animMu.Lock()
	defer e.animMu.Unlock()
	return e.tornDown
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of (or equal to) entity.
func isAncestor(candidate, entity *Entity) bool {
	for p := entity; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from e.children without clearing child.parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (e *Entity) removeChildByPtr(child *Entity) {
	for i, c := range e.children {
		if c == child {
			copy(e.children[i:], e.children[i+1:])
			e.children[len(e.children)-1] = nil
			e.children = e.children[:len(e.children)-1]
			return
		}
	}
}

// setOwner assigns the stack owner to the entity and all its descendants.
func (e *Entity) setOwner(s *Stack) {
	e.animMu.Lock()
	e.owner = s
	e.animMu.Unlock()
	for _, c := range e.children {
		c.setOwner(s)
	}
}

func (e *Entity) emit(ev Event) {
	if e.owner != nil {
		e.owner.notifier.Notify(ev)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
