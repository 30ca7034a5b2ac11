package cardstack

import "testing"

// groupFixture returns a stack whose card holds x, a, mid, b (in that order),
// with a and b selected.
func groupFixture(t *testing.T) (s *Stack, card, a, b *Entity) {
	t.Helper()
	s, _ = newTestStack(t, Options{})
	card = s.CurrentCard()
	addButton(card, "x", Point{})
	a = addButton(card, "a", Point{10, 10})
	addButton(card, "mid", Point{})
	b = addButton(card, "b", Point{50, 100})
	s.Select(a, false)
	s.Select(b, true)
	return s, card, a, b
}

func TestGroupSelectionFrame(t *testing.T) {
	s, card, a, b := groupFixture(t)
	g := s.GroupSelection()
	if g == nil {
		t.Fatal("GroupSelection returned nil")
	}
	if g.Name() != "group_1" {
		t.Errorf("group name = %q, want %q", g.Name(), "group_1")
	}
	equalNames(t, "card", childNames(card), []string{"x", "group_1", "mid"})
	equalNames(t, "group", childNames(g), []string{"a", "b"})

	if g.Position() != (Point{10, 10}) {
		t.Errorf("group Position = %v, want (10, 10)", g.Position())
	}
	if g.Size() != (Size{140, 114}) {
		t.Errorf("group Size = %v, want (140, 114)", g.Size())
	}
	if a.Position() != (Point{0, 0}) || b.Position() != (Point{40, 90}) {
		t.Errorf("member positions = %v, %v, want (0, 0), (40, 90)", a.Position(), b.Position())
	}
	if b.AbsolutePosition() != (Point{50, 100}) {
		t.Errorf("b AbsolutePosition = %v, want (50, 100)", b.AbsolutePosition())
	}
	if sel := s.Selection(); len(sel) != 1 || sel[0] != g {
		t.Error("the new group should be selected")
	}
}

func TestGroupUndoRedoKeepsIdentity(t *testing.T) {
	s, card, a, b := groupFixture(t)
	g := s.GroupSelection()

	s.Undo()
	equalNames(t, "after undo", childNames(card), []string{"x", "a", "mid", "b"})
	if a.Position() != (Point{10, 10}) || b.Position() != (Point{50, 100}) {
		t.Errorf("positions after undo = %v, %v", a.Position(), b.Position())
	}
	if !g.IsTornDown() {
		t.Error("group should be torn down after undo")
	}

	s.Redo()
	if card.ChildAt(1) != g {
		t.Error("redo should reuse the same group entity")
	}
	if g.IsTornDown() {
		t.Error("group should be restored on redo")
	}
	equalNames(t, "group after redo", childNames(g), []string{"a", "b"})
}

func TestGroupSelectionNeedsTwo(t *testing.T) {
	s, _, a, _ := groupFixture(t)
	s.Select(a, false)
	if s.GroupSelection() != nil {
		t.Error("a single view should not be grouped")
	}
}

func TestUngroupSelection(t *testing.T) {
	s, card, a, b := groupFixture(t)
	g := s.GroupSelection()

	if !s.UngroupSelection() {
		t.Fatal("UngroupSelection failed")
	}
	equalNames(t, "after ungroup", childNames(card), []string{"x", "a", "b", "mid"})
	if b.AbsolutePosition() != (Point{50, 100}) || b.Parent() != card {
		t.Errorf("b should be back on the card at (50, 100), got %v", b.AbsolutePosition())
	}
	if got := len(s.Selection()); got != 2 {
		t.Errorf("ungrouped members should be selected, got %d", got)
	}

	s.Undo()
	if card.ChildAt(1) != g || g.IsTornDown() {
		t.Fatal("undo should restore the same group at its index")
	}
	equalNames(t, "card after undo", childNames(card), []string{"x", "group_1", "mid"})
	if a.Parent() != g || a.Position() != (Point{0, 0}) {
		t.Errorf("a should be back in the group at (0, 0), got %v", a.Position())
	}
}

func TestNextGroupName(t *testing.T) {
	s, card, _, _ := groupFixture(t)
	s.GroupSelection()
	c := addButton(card, "c", Point{})
	d := addButton(card, "d", Point{})
	s.Select(c, false)
	s.Select(d, true)
	g := s.GroupSelection()
	if g == nil || g.Name() != "group_2" {
		t.Errorf("second group should be group_2, got %v", g)
	}
}
