package cardstack

import (
	"cmp"
	"reflect"
	"slices"
)

// cardScope is embedded by commands that act on one card. Before applying
// they switch the stack back to that card so the edit is visible.
type cardScope struct {
	stack     *Stack
	cardIndex int
}

func (c cardScope) load() {
	if c.stack != nil {
		c.stack.loadCard(c.cardIndex, false)
	}
}

func (c cardScope) card() *Entity {
	if c.stack == nil {
		return nil
	}
	return c.stack.CardAt(c.cardIndex)
}

func (c cardScope) selectOnly(entities ...*Entity) {
	if c.stack == nil {
		return
	}
	c.stack.ClearSelection()
	for _, e := range entities {
		c.stack.Select(e, true)
	}
}

func newCardScope(s *Stack) cardScope {
	if s == nil {
		return cardScope{cardIndex: NoCard}
	}
	return cardScope{stack: s, cardIndex: s.CardIndex()}
}

// --- Property and handler edits ---

// SetPropertyCommand writes one property. The previous value is captured at
// construction. On redo (and on every undo after the first Do) the target is
// selected again.
type SetPropertyCommand struct {
	cardScope
	entity      *Entity
	key         string
	newValue    any
	oldValue    any
	interactive bool
	hasRun      bool
}

// NewSetPropertyCommand creates an interactive property edit on s's current card.
// s may be nil for edits outside any stack.
func NewSetPropertyCommand(s *Stack, e *Entity, key string, value any) *SetPropertyCommand {
	return &SetPropertyCommand{
		cardScope:   newCardScope(s),
		entity:      e,
		key:         key,
		newValue:    value,
		oldValue:    e.GetProperty(key),
		interactive: s != nil,
	}
}

// NonInteractive stops the command from changing the current card and
// selection. Used by scripted edits.
func (c *SetPropertyCommand) NonInteractive() *SetPropertyCommand {
	c.interactive = false
	return c
}

func (c *SetPropertyCommand) Name() string { return "Set Property" }

// Do applies the new value. The first run fails when the value is rejected
// or equal to the current one, so no-op edits are not recorded.
func (c *SetPropertyCommand) Do() bool {
	c.focus()
	before := c.entity.GetProperty(c.key)
	c.entity.SetProperty(c.key, c.newValue)
	if !c.hasRun && reflect.DeepEqual(before, c.entity.GetProperty(c.key)) {
		return false
	}
	c.hasRun = true
	return true
}

func (c *SetPropertyCommand) Undo() bool {
	c.focus()
	c.entity.SetProperty(c.key, c.oldValue)
	return true
}

func (c *SetPropertyCommand) focus() {
	if !c.interactive {
		return
	}
	c.load()
	if c.hasRun {
		c.selectOnly(c.entity)
	}
}

// SetHandlerCommand replaces one handler body.
type SetHandlerCommand struct {
	cardScope
	entity      *Entity
	key         string
	newBody     string
	oldBody     string
	interactive bool
	hasRun      bool
}

// NewSetHandlerCommand creates an interactive handler edit on s's current card.
func NewSetHandlerCommand(s *Stack, e *Entity, name, body string) *SetHandlerCommand {
	old, _ := e.Handler(name)
	return &SetHandlerCommand{
		cardScope:   newCardScope(s),
		entity:      e,
		key:         name,
		newBody:     body,
		oldBody:     old,
		interactive: s != nil,
	}
}

func (c *SetHandlerCommand) Name() string { return "Set Handler" }

func (c *SetHandlerCommand) Do() bool {
	if c.interactive {
		c.load()
		if c.hasRun {
			c.selectOnly(c.entity)
		}
	}
	c.entity.SetHandler(c.key, c.newBody)
	c.hasRun = true
	return true
}

func (c *SetHandlerCommand) Undo() bool {
	if c.interactive {
		c.load()
		c.selectOnly(c.entity)
	}
	c.entity.SetHandler(c.key, c.oldBody)
	return true
}

// --- Geometry edits ---

// MoveCommand offsets the position of several entities by the same delta.
type MoveCommand struct {
	cardScope
	entities []*Entity
	delta    Point
}

// NewMoveCommand moves entities on s's current card by delta.
func NewMoveCommand(s *Stack, entities []*Entity, delta Point) *MoveCommand {
	return &MoveCommand{cardScope: newCardScope(s), entities: slices.Clone(entities), delta: delta}
}

func (c *MoveCommand) Name() string { return "Move" }

func (c *MoveCommand) Do() bool   { return c.move(c.delta) }
func (c *MoveCommand) Undo() bool { return c.move(c.delta.Scale(-1)) }

func (c *MoveCommand) move(d Point) bool {
	c.load()
	for _, e := range c.entities {
		e.SetProperty("position", e.Position().Add(d))
	}
	c.selectOnly(c.entities...)
	return true
}

// ResizeCommand grows an entity by a size delta. Resizing a card resizes the
// stack, since every card shares the stack's size.
type ResizeCommand struct {
	cardScope
	entity *Entity
	delta  Size
}

// NewResizeCommand resizes e by delta.
func NewResizeCommand(s *Stack, e *Entity, delta Size) *ResizeCommand {
	return &ResizeCommand{cardScope: newCardScope(s), entity: e, delta: delta}
}

func (c *ResizeCommand) Name() string { return "Resize" }

func (c *ResizeCommand) Do() bool   { return c.resize(1) }
func (c *ResizeCommand) Undo() bool { return c.resize(-1) }

func (c *ResizeCommand) resize(sign float64) bool {
	c.load()
	target := c.entity
	if target.kind == KindCard && c.stack != nil {
		target = c.stack.root
	}
	size := target.Size()
	target.SetProperty("size", Size{size.Width + sign*c.delta.Width, size.Height + sign*c.delta.Height})
	c.selectOnly(c.entity)
	return true
}

// FlipCommand toggles the flip flags of an image or shape. It is its own inverse.
type FlipCommand struct {
	cardScope
	entity *Entity
	fx, fy bool
}

// NewFlipCommand flips e horizontally and/or vertically.
func NewFlipCommand(s *Stack, e *Entity, fx, fy bool) *FlipCommand {
	return &FlipCommand{cardScope: newCardScope(s), entity: e, fx: fx, fy: fy}
}

func (c *FlipCommand) Name() string { return "Flip" }

func (c *FlipCommand) Do() bool   { return c.flip() }
func (c *FlipCommand) Undo() bool { return c.flip() }

func (c *FlipCommand) flip() bool {
	c.load()
	c.entity.PerformFlips(c.fx, c.fy)
	c.selectOnly(c.entity)
	return true
}

// --- Structural edits ---

// AddEntitiesCommand appends views to a card. While undone the command owns
// the torn down entities and restores them on redo.
type AddEntitiesCommand struct {
	cardScope
	entities []*Entity
}

// NewAddEntitiesCommand adds entities to s's current card.
func NewAddEntitiesCommand(s *Stack, entities []*Entity) *AddEntitiesCommand {
	return &AddEntitiesCommand{cardScope: newCardScope(s), entities: slices.Clone(entities)}
}

func (c *AddEntitiesCommand) Name() string { return "Add Views" }

func (c *AddEntitiesCommand) Do() bool {
	card := c.card()
	if card == nil || len(c.entities) == 0 {
		return false
	}
	for _, e := range c.entities {
		e.SetBackUp(c.stack)
	}
	c.load()
	for _, e := range c.entities {
		card.AddChild(e)
	}
	c.selectOnly(c.entities...)
	return true
}

func (c *AddEntitiesCommand) Undo() bool {
	if c.card() == nil {
		return false
	}
	c.load()
	for _, e := range c.entities {
		c.stack.deselect(e)
		e.Teardown()
	}
	return true
}

// AddCardCommand inserts a card into the stack at an index.
type AddCardCommand struct {
	stack *Stack
	index int
	card  *Entity
}

// NewAddCardCommand inserts card at index.
func NewAddCardCommand(s *Stack, index int, card *Entity) *AddCardCommand {
	return &AddCardCommand{stack: s, index: index, card: card}
}

func (c *AddCardCommand) Name() string { return "Add Card" }

func (c *AddCardCommand) Do() bool {
	root := c.stack.root
	if c.index < 0 || c.index > root.NumChildren() {
		return false
	}
	c.card.SetBackUp(c.stack)
	c.stack.loadCard(NoCard, false)
	root.InsertChild(c.card, c.index)
	if c.stack.runner != nil {
		c.stack.runner.RunSetup(c.card)
	}
	c.stack.loadCard(c.index, false)
	return true
}

func (c *AddCardCommand) Undo() bool {
	if c.card.parent != c.stack.root {
		return false
	}
	c.stack.loadCard(NoCard, false)
	c.card.Teardown()
	c.stack.loadCard(max(c.index-1, 0), false)
	return true
}

// RemoveEntitiesCommand removes views from a card, or a single card from the
// stack. Each view's sibling index is captured on Do; Undo reinserts the
// views at exactly those indices. Removing the last card is refused.
type RemoveEntitiesCommand struct {
	cardScope
	entities []*Entity
	indexes  []int
}

// NewRemoveEntitiesCommand removes entities from s's current card. Group
// children are skipped; delete the group instead.
func NewRemoveEntitiesCommand(s *Stack, entities []*Entity) *RemoveEntitiesCommand {
	var keep []*Entity
	for _, e := range entities {
		if e.parent != nil && e.parent.kind == KindGroup {
			continue
		}
		keep = append(keep, e)
	}
	return &RemoveEntitiesCommand{cardScope: newCardScope(s), entities: keep}
}

func (c *RemoveEntitiesCommand) Name() string {
	if c.removesCard() {
		return "Remove Card"
	}
	return "Remove Views"
}

func (c *RemoveEntitiesCommand) removesCard() bool {
	return len(c.entities) == 1 && c.entities[0].kind == KindCard
}

func (c *RemoveEntitiesCommand) Do() bool {
	if len(c.entities) == 0 || c.stack == nil {
		return false
	}
	if c.removesCard() {
		return c.removeCard()
	}
	card := c.card()
	if card == nil {
		return false
	}
	c.load()

	type placed struct {
		e     *Entity
		index int
	}
	ps := make([]placed, 0, len(c.entities))
	for _, e := range c.entities {
		if i := card.ChildIndex(e); i >= 0 {
			ps = append(ps, placed{e, i})
		}
	}
	if len(ps) == 0 {
		return false
	}
	slices.SortFunc(ps, func(a, b placed) int { return cmp.Compare(a.index, b.index) })
	c.entities = c.entities[:0]
	c.indexes = c.indexes[:0]
	for _, p := range ps {
		c.entities = append(c.entities, p.e)
		c.indexes = append(c.indexes, p.index)
	}
	for _, e := range c.entities {
		c.stack.deselect(e)
		e.Teardown()
	}
	return true
}

func (c *RemoveEntitiesCommand) removeCard() bool {
	root := c.stack.root
	card := c.entities[0]
	if root.NumChildren() <= 1 || card.parent != root {
		return false
	}
	c.cardIndex = root.ChildIndex(card)
	c.stack.loadCard(NoCard, false)
	card.Teardown()
	c.stack.loadCard(min(c.cardIndex, root.NumChildren()-1), false)
	return true
}

func (c *RemoveEntitiesCommand) Undo() bool {
	if c.stack == nil {
		return false
	}
	for _, e := range c.entities {
		e.SetBackUp(c.stack)
	}
	if c.removesCard() {
		root := c.stack.root
		c.stack.loadCard(NoCard, false)
		root.InsertChild(c.entities[0], min(c.cardIndex, root.NumChildren()))
		c.stack.loadCard(c.cardIndex, false)
		return true
	}
	card := c.card()
	if card == nil {
		return false
	}
	c.load()
	// Ascending order: every earlier index is already occupied by the time
	// a later one is inserted, so each entity lands at its captured index.
	for i, e := range c.entities {
		card.InsertChild(e, min(c.indexes[i], card.NumChildren()))
	}
	c.selectOnly(c.entities...)
	return true
}

// ReorderCommand moves a set of views on one card from oldIndexes to
// newIndexes (both ascending, same length). Undo swaps the sets.
type ReorderCommand struct {
	cardScope
	oldIndexes []int
	newIndexes []int
}

// NewReorderCommand reorders views on s's current card.
func NewReorderCommand(s *Stack, oldIndexes, newIndexes []int) *ReorderCommand {
	return &ReorderCommand{
		cardScope:  newCardScope(s),
		oldIndexes: slices.Clone(oldIndexes),
		newIndexes: slices.Clone(newIndexes),
	}
}

func (c *ReorderCommand) Name() string { return "Reorder Views" }

func (c *ReorderCommand) Do() bool   { return c.move(c.oldIndexes, c.newIndexes) }
func (c *ReorderCommand) Undo() bool { return c.move(c.newIndexes, c.oldIndexes) }

func (c *ReorderCommand) move(from, to []int) bool {
	card := c.card()
	if card == nil || len(from) != len(to) || len(from) == 0 {
		return false
	}
	for _, i := range append(slices.Clone(from), to...) {
		if i < 0 || i >= card.NumChildren() {
			return false
		}
	}
	selected := c.stack.Selection()

	// Pop from the highest index down, then insert lowest first.
	moved := make([]*Entity, 0, len(from))
	for i := len(from) - 1; i >= 0; i-- {
		moved = append(moved, card.RemoveChildAt(from[i]))
	}
	for _, i := range to {
		e := moved[len(moved)-1]
		moved = moved[:len(moved)-1]
		card.InsertChild(e, i)
	}
	c.stack.loadCard(c.cardIndex, true)
	c.selectOnly(selected...)
	return true
}

// ReorderCardCommand moves one card to a new index in the stack.
type ReorderCardCommand struct {
	stack    *Stack
	from, to int
}

// NewReorderCardCommand moves the card at from to to.
func NewReorderCardCommand(s *Stack, from, to int) *ReorderCardCommand {
	return &ReorderCardCommand{stack: s, from: from, to: to}
}

func (c *ReorderCardCommand) Name() string { return "Reorder Card" }

func (c *ReorderCardCommand) Do() bool   { return c.move(c.from, c.to) }
func (c *ReorderCardCommand) Undo() bool { return c.move(c.to, c.from) }

func (c *ReorderCardCommand) move(from, to int) bool {
	root := c.stack.root
	n := root.NumChildren()
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	root.SetChildIndex(root.ChildAt(from), to)
	c.stack.loadCard(to, true)
	return true
}

// GroupCommand moves sibling views into a group. The group created by the
// first Do is reused on every redo.
type GroupCommand struct {
	cardScope
	entities []*Entity
	group    *Entity
	indexes  []int
}

// NewGroupCommand groups entities on s's current card.
func NewGroupCommand(s *Stack, entities []*Entity) *GroupCommand {
	return &GroupCommand{cardScope: newCardScope(s), entities: slices.Clone(entities)}
}

// Group returns the container, or nil before the first Do.
func (c *GroupCommand) Group() *Entity { return c.group }

func (c *GroupCommand) Name() string { return "Group Views" }

func (c *GroupCommand) Do() bool {
	card := c.card()
	if card == nil {
		return false
	}
	c.load()
	group, indexes := c.stack.groupEntities(card, c.entities, c.group)
	if group == nil {
		return false
	}
	c.group, c.indexes = group, indexes
	c.selectOnly(group)
	return true
}

func (c *GroupCommand) Undo() bool {
	card := c.card()
	if card == nil || c.group == nil || c.group.parent != card {
		return false
	}
	c.load()
	children := c.stack.ungroupEntity(card, c.group, c.indexes)
	c.selectOnly(children...)
	return true
}

// UngroupCommand dissolves groups into their card. Undo regroups the same
// children into the same group entities at the same indexes.
type UngroupCommand struct {
	cardScope
	groups  []*Entity
	members [][]*Entity
	indexes []int
}

// NewUngroupCommand ungroups groups on s's current card.
func NewUngroupCommand(s *Stack, groups []*Entity) *UngroupCommand {
	var keep []*Entity
	for _, g := range groups {
		if g.kind == KindGroup {
			keep = append(keep, g)
		}
	}
	return &UngroupCommand{cardScope: newCardScope(s), groups: keep}
}

func (c *UngroupCommand) Name() string { return "Ungroup Views" }

func (c *UngroupCommand) Do() bool {
	card := c.card()
	if card == nil || len(c.groups) == 0 {
		return false
	}
	c.load()
	c.stack.ClearSelection()
	c.members = c.members[:0]
	c.indexes = c.indexes[:0]
	for _, g := range c.groups {
		if g.parent != card {
			c.members = append(c.members, nil)
			c.indexes = append(c.indexes, -1)
			continue
		}
		c.indexes = append(c.indexes, card.ChildIndex(g))
		c.members = append(c.members, c.stack.ungroupEntity(card, g, nil))
	}
	for _, m := range c.members {
		for _, e := range m {
			c.stack.Select(e, true)
		}
	}
	return true
}

func (c *UngroupCommand) Undo() bool {
	card := c.card()
	if card == nil || len(c.members) != len(c.groups) {
		return false
	}
	c.load()
	// Regroup in reverse so later groups see the same sibling layout they
	// left behind.
	for i := len(c.groups) - 1; i >= 0; i-- {
		if c.members[i] == nil {
			continue
		}
		c.stack.regroupAt(card, c.members[i], c.groups[i], c.indexes[i])
	}
	c.selectOnly(c.groups...)
	return true
}
