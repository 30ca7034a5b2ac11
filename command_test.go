package cardstack

import (
	"testing"
)

// recordCommand is a Command that appends to a shared log.
type recordCommand struct {
	name string
	ok   bool
	log  *[]string
}

func (c *recordCommand) Name() string { return c.name }

func (c *recordCommand) Do() bool {
	*c.log = append(*c.log, "do "+c.name)
	return c.ok
}

func (c *recordCommand) Undo() bool {
	*c.log = append(*c.log, "undo "+c.name)
	return c.ok
}

func childNames(e *Entity) []string {
	names := make([]string, 0, e.NumChildren())
	for _, c := range e.Children() {
		names = append(names, c.Name())
	}
	return names
}

func equalNames(t *testing.T, what string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("%s = %v, want %v", what, got, want)
		}
	}
}

// --- CommandLog ---

func TestCommandLogUndoRedoText(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	field := NewEntity(KindField)
	s.CurrentCard().AddChild(field)
	s.MarkSaved()

	s.SetProperty(field, "text", "A")
	s.SetProperty(field, "text", "B")
	if got := field.StringProperty("text"); got != "B" {
		t.Fatalf("text = %q, want %q", got, "B")
	}

	s.Undo()
	if got := field.StringProperty("text"); got != "A" {
		t.Errorf("after undo text = %q, want %q", got, "A")
	}
	if !s.Dirty() {
		t.Error("one edit left to undo, stack should still be dirty")
	}
	s.Undo()
	if got := field.StringProperty("text"); got != "Text" {
		t.Errorf("after second undo text = %q, want %q", got, "Text")
	}
	if s.Dirty() {
		t.Error("undoing to the start should clear dirty")
	}
	if s.Undo() {
		t.Error("Undo with nothing to undo should return false")
	}

	s.Redo()
	if got := field.StringProperty("text"); got != "A" {
		t.Errorf("after redo text = %q, want %q", got, "A")
	}
	s.Redo()
	if got := field.StringProperty("text"); got != "B" {
		t.Errorf("after second redo text = %q, want %q", got, "B")
	}
	if s.Redo() {
		t.Error("Redo with nothing to redo should return false")
	}
}

func TestCommandLogSubmitTruncatesRedo(t *testing.T) {
	var log []string
	l := NewCommandLog(nil, nil)
	l.Submit(&recordCommand{name: "a", ok: true, log: &log}, true)
	l.Submit(&recordCommand{name: "b", ok: true, log: &log}, true)
	l.Undo()
	if !l.CanRedo() || l.RedoName() != "b" {
		t.Fatalf("RedoName = %q, want %q", l.RedoName(), "b")
	}
	l.Submit(&recordCommand{name: "c", ok: true, log: &log}, true)
	if l.Len() != 2 {
		t.Errorf("Len = %d, want 2", l.Len())
	}
	if l.CanRedo() {
		t.Error("a new submit should drop the redo tail")
	}
	if l.UndoName() != "c" {
		t.Errorf("UndoName = %q, want %q", l.UndoName(), "c")
	}
}

func TestCommandLogFailedSubmitNotStored(t *testing.T) {
	var log []string
	l := NewCommandLog(nil, nil)
	if l.Submit(&recordCommand{name: "x", ok: false, log: &log}, true) {
		t.Error("Submit should report the failed Do")
	}
	if l.Len() != 0 || l.CanUndo() {
		t.Error("failed command should not be stored")
	}
}

func TestCommandLogSubmitWithoutStoring(t *testing.T) {
	var log []string
	l := NewCommandLog(nil, nil)
	if !l.Submit(&recordCommand{name: "x", ok: true, log: &log}, false) {
		t.Error("Submit should report the applied Do")
	}
	if l.Len() != 0 {
		t.Errorf("Len = %d, want 0", l.Len())
	}
}

func TestCommandLogFailedUndoKeepsCursor(t *testing.T) {
	var log []string
	l := NewCommandLog(nil, nil)
	cmd := &recordCommand{name: "x", ok: true, log: &log}
	l.Submit(cmd, true)
	cmd.ok = false
	if l.Undo() {
		t.Error("Undo should report failure")
	}
	if !l.CanUndo() {
		t.Error("cursor should not move on a failed undo")
	}
}

func TestCommandLogClear(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{})
	s.SetProperty(b, "title", "x")
	s.Commands().Clear()
	if s.Commands().Len() != 0 || s.Dirty() {
		t.Error("Clear should drop history and mark clean")
	}
}

// --- CommandGroup ---

func TestCommandGroupOrder(t *testing.T) {
	var log []string
	g := NewCommandGroup("both",
		&recordCommand{name: "a", ok: true, log: &log},
		&recordCommand{name: "b", ok: true, log: &log},
		&recordCommand{name: "c", ok: true, log: &log},
	)
	l := NewCommandLog(nil, nil)
	l.Submit(g, true)
	l.Undo()
	equalNames(t, "log", log, []string{"do a", "do b", "do c", "undo c", "undo b", "undo a"})
	if l.RedoName() != "both" {
		t.Errorf("RedoName = %q, want %q", l.RedoName(), "both")
	}
}

func TestCommandGroupPartialSuccess(t *testing.T) {
	var log []string
	g := NewCommandGroup("mixed",
		&recordCommand{name: "fail", ok: false, log: &log},
		&recordCommand{name: "ok", ok: true, log: &log},
	)
	if !g.Do() {
		t.Error("group with one applied member should succeed")
	}
	equalNames(t, "log", log, []string{"do fail", "do ok"})

	none := NewCommandGroup("none", &recordCommand{name: "x", ok: false, log: &log})
	if none.Do() {
		t.Error("group with no applied member should fail")
	}
}

// --- Structural commands ---

func TestRemoveEntitiesRestoresIndexes(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.CurrentCard()
	var views []*Entity
	for _, name := range []string{"v0", "v1", "v2", "v3", "v4", "v5"} {
		views = append(views, addButton(card, name, Point{}))
	}

	if !s.DeleteEntities([]*Entity{views[4], views[1], views[3]}) {
		t.Fatal("DeleteEntities failed")
	}
	equalNames(t, "after delete", childNames(card), []string{"v0", "v2", "v5"})
	for _, i := range []int{1, 3, 4} {
		if !views[i].IsTornDown() {
			t.Errorf("%s should be torn down", views[i].Name())
		}
	}

	s.Undo()
	equalNames(t, "after undo", childNames(card), []string{"v0", "v1", "v2", "v3", "v4", "v5"})
	for i, v := range views {
		if card.ChildAt(i) != v {
			t.Errorf("index %d holds %s, want the original entity", i, card.ChildAt(i).Name())
		}
		if v.IsTornDown() {
			t.Errorf("%s should be restored", v.Name())
		}
	}
	if got := len(s.Selection()); got != 3 {
		t.Errorf("restored views should be selected, got %d", got)
	}

	s.Redo()
	equalNames(t, "after redo", childNames(card), []string{"v0", "v2", "v5"})
}

func TestRemoveEntitiesSkipsGroupChildren(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.CurrentCard()
	g := NewEntity(KindGroup)
	card.AddChild(g)
	inner := NewEntity(KindButton)
	g.AddChild(inner)
	if s.DeleteEntities([]*Entity{inner}) {
		t.Error("deleting a group child should be refused")
	}
	if inner.Parent() != g {
		t.Error("group child should stay in place")
	}
}

func TestAddEntityUndo(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	b := s.AddEntity(KindButton)
	if b == nil || b.Parent() != s.CurrentCard() {
		t.Fatal("AddEntity should add to the current card")
	}
	if sel := s.Selection(); len(sel) != 1 || sel[0] != b {
		t.Error("added entity should be selected")
	}
	s.Undo()
	if !b.IsTornDown() || s.CurrentCard().NumChildren() != 0 {
		t.Error("undo should remove the added entity")
	}
	s.Redo()
	if b.IsTornDown() || b.Parent() != s.CurrentCard() {
		t.Error("redo should restore the same entity")
	}
	if s.AddEntity(KindCard) != nil {
		t.Error("AddEntity(card) should be refused")
	}
}

func TestSetPropertyNoOpNotStored(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{})
	s.MarkSaved()

	tests := []struct {
		key   string
		value any
	}{
		{"style", "Fancy"},
		{"name", "42"},
		{"title", 7},
		{"title", "Button"},
	}
	for _, tt := range tests {
		if s.SetProperty(b, tt.key, tt.value) {
			t.Errorf("SetProperty(%s, %v) = true, want false", tt.key, tt.value)
		}
	}
	if s.Commands().CanUndo() {
		t.Error("rejected or unchanged edits should not be undoable")
	}

	if !s.SetProperty(b, "title", "Go") {
		t.Fatal("a real edit should be stored")
	}
	s.Undo()
	if !s.Redo() || b.StringProperty("title") != "Go" {
		t.Errorf("redo = %q, want %q", b.StringProperty("title"), "Go")
	}
}

func TestSetPropertyUndoShowsCard(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{})
	second := NewEntity(KindCard)
	s.Root().AddChild(second)

	s.SetProperty(b, "title", "x")
	s.LoadCard(1)
	s.Undo()
	if s.CardIndex() != 0 {
		t.Errorf("undoing an edit should show its card, index = %d", s.CardIndex())
	}
	if b.StringProperty("title") != "Button" {
		t.Errorf("title = %q, want %q", b.StringProperty("title"), "Button")
	}
	if sel := s.Selection(); len(sel) != 1 || sel[0] != b {
		t.Error("undo should select the edited entity")
	}
}

func TestReorderSelection(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.CurrentCard()
	a := addButton(card, "a", Point{})
	addButton(card, "b", Point{})
	addButton(card, "c", Point{})

	s.Select(a, false)
	if !s.ReorderSelection(OrderFront) {
		t.Fatal("ReorderSelection(front) failed")
	}
	equalNames(t, "after front", childNames(card), []string{"b", "c", "a"})
	if s.ReorderSelection(OrderFront) {
		t.Error("already in front, reorder should be refused")
	}
	if s.ReorderSelection(OrderForward) {
		t.Error("moving past the front should be refused")
	}
	s.Undo()
	equalNames(t, "after undo", childNames(card), []string{"a", "b", "c"})
	if sel := s.Selection(); len(sel) != 1 || sel[0] != a {
		t.Error("selection should survive reordering")
	}
}

func TestReorderSelectionBlock(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.CurrentCard()
	a := addButton(card, "a", Point{})
	b := addButton(card, "b", Point{})
	addButton(card, "c", Point{})
	addButton(card, "d", Point{})

	s.Select(a, false)
	s.Select(b, true)
	s.ReorderSelection(OrderForward)
	equalNames(t, "after forward", childNames(card), []string{"c", "a", "b", "d"})
	s.ReorderSelection(OrderBack)
	equalNames(t, "after back", childNames(card), []string{"a", "b", "c", "d"})
}

func TestFlipSelection(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	card := s.CurrentCard()
	r := NewEntity(KindRect)
	card.AddChild(r)
	btn := addButton(card, "b", Point{})
	s.Select(r, false)
	s.Select(btn, true)
	if !s.FlipSelection(true) {
		t.Fatal("FlipSelection failed")
	}
	if !r.BoolProperty("xFlipped") || r.BoolProperty("yFlipped") {
		t.Error("rect should be flipped horizontally only")
	}
	s.Undo()
	if r.BoolProperty("xFlipped") {
		t.Error("undo should unflip")
	}

	s.Select(btn, false)
	if s.FlipSelection(true) {
		t.Error("buttons cannot be flipped")
	}
}

func TestMoveAndResizeCommands(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{10, 10})
	s.Submit(NewMoveCommand(s, []*Entity{b}, Point{5, -5}))
	if b.Position() != (Point{15, 5}) {
		t.Errorf("Position = %v, want (15, 5)", b.Position())
	}
	s.Submit(NewResizeCommand(s, b, Size{10, 10}))
	if b.Size() != (Size{110, 34}) {
		t.Errorf("Size = %v, want (110, 34)", b.Size())
	}
	s.Undo()
	s.Undo()
	if b.Position() != (Point{10, 10}) || b.Size() != (Size{100, 24}) {
		t.Errorf("after undo: %v %v", b.Position(), b.Size())
	}
}

func TestSetHandlerCommand(t *testing.T) {
	s, _ := newTestStack(t, Options{})
	b := addButton(s.CurrentCard(), "a", Point{})
	s.SetHandler(b, "OnClick", "goto next")
	if body, _ := b.Handler("OnClick"); body != "goto next" {
		t.Errorf("OnClick = %q", body)
	}
	s.Undo()
	if body, _ := b.Handler("OnClick"); body != "" {
		t.Errorf("after undo OnClick = %q, want empty", body)
	}
}
