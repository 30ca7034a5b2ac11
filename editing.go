package cardstack

import (
	"fmt"
	"slices"
)

// Direction is a z-order or card-order move.
type Direction uint8

const (
	OrderFront    Direction = iota // to the front (last child)
	OrderForward                   // one step toward the front
	OrderBackward                  // one step toward the back
	OrderBack                      // to the back (first child)
)

var directionNames = [...]string{"front", "forward", "backward", "back"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", d)
}

// ParseDirection parses a direction name as returned by String.
func ParseDirection(s string) (Direction, bool) {
	i := slices.Index(directionNames[:], s)
	if i < 0 {
		return 0, false
	}
	return Direction(i), true
}

// AddEntity creates a view of kind on the current card with a free name and
// records the addition for undo.
func (s *Stack) AddEntity(kind Kind) *Entity {
	card := s.CurrentCard()
	if card == nil || !kind.IsView() {
		return nil
	}
	e := NewEntity(kind)
	DeduplicateNamesInCard(card, []*Entity{e})
	s.Submit(NewAddEntitiesCommand(s, []*Entity{e}))
	return e
}

// AddCard inserts a new empty card after the current one.
func (s *Stack) AddCard() *Entity {
	card := NewEntity(KindCard)
	card.SetPropertyQuiet("name", DeduplicateName("card_1", s.cardNames()))
	s.Submit(NewAddCardCommand(s, s.cardIndex+1, card))
	return card
}

// DuplicateCard inserts a copy of the current card after it.
func (s *Stack) DuplicateCard() *Entity {
	cur := s.CurrentCard()
	if cur == nil {
		return nil
	}
	card := cur.Copy()
	card.SetPropertyQuiet("name", DeduplicateName(card.Name(), s.cardNames()))
	s.Submit(NewAddCardCommand(s, s.cardIndex+1, card))
	return card
}

// RemoveCard removes the current card. The last card cannot be removed.
func (s *Stack) RemoveCard() bool {
	if s.root.NumChildren() <= 1 {
		return false
	}
	return s.Submit(NewRemoveEntitiesCommand(s, []*Entity{s.CurrentCard()}))
}

// DeleteEntities removes entities in one undoable step. A single card is
// removed as with RemoveCard; group children are skipped.
func (s *Stack) DeleteEntities(entities []*Entity) bool {
	if len(entities) == 1 && entities[0].kind == KindCard {
		if entities[0] != s.CurrentCard() {
			s.LoadCardEntity(entities[0])
		}
		return s.RemoveCard()
	}
	cmd := NewRemoveEntitiesCommand(s, entities)
	if len(cmd.entities) == 0 {
		return false
	}
	return s.Submit(cmd)
}

// GroupSelection groups the selected top-level views, if at least two.
func (s *Stack) GroupSelection() *Entity {
	card := s.CurrentCard()
	if card == nil {
		return nil
	}
	var entities []*Entity
	for _, e := range card.children {
		if slices.Contains(s.selection, e) {
			entities = append(entities, e)
		}
	}
	if len(entities) < 2 {
		return nil
	}
	cmd := NewGroupCommand(s, entities)
	if !s.Submit(cmd) {
		return nil
	}
	return cmd.Group()
}

// UngroupSelection dissolves the selected groups.
func (s *Stack) UngroupSelection() bool {
	card := s.CurrentCard()
	if card == nil {
		return false
	}
	var groups []*Entity
	for _, e := range card.children {
		if e.kind == KindGroup && slices.Contains(s.selection, e) {
			groups = append(groups, e)
		}
	}
	if len(groups) == 0 {
		return false
	}
	return s.Submit(NewUngroupCommand(s, groups))
}

// ReorderSelection moves the selected top-level views in z-order as a block.
// Refused if the card or a group child is selected, or the move would leave
// the child range.
func (s *Stack) ReorderSelection(dir Direction) bool {
	card := s.CurrentCard()
	if card == nil || len(s.selection) == 0 {
		return false
	}
	var oldIndexes []int
	for _, e := range s.selection {
		if e.parent != card {
			return false
		}
		oldIndexes = append(oldIndexes, card.ChildIndex(e))
	}
	slices.Sort(oldIndexes)

	n, first := card.NumChildren(), oldIndexes[0]
	newIndexes := make([]int, len(oldIndexes))
	for i := range oldIndexes {
		var idx int
		switch dir {
		case OrderBack:
			idx = i
		case OrderForward:
			idx = first + 1 + i
		case OrderBackward:
			idx = first - 1 + i
		case OrderFront:
			idx = n - len(oldIndexes) + i
		}
		if idx < 0 || idx >= n {
			return false
		}
		newIndexes[i] = idx
	}
	if slices.Equal(oldIndexes, newIndexes) {
		return false
	}
	return s.Submit(NewReorderCommand(s, oldIndexes, newIndexes))
}

// ReorderCurrentCard moves the current card one step forward or backward.
func (s *Stack) ReorderCurrentCard(dir Direction) bool {
	cur := s.cardIndex
	if cur == NoCard {
		return false
	}
	next := cur
	switch dir {
	case OrderForward:
		next = cur + 1
	case OrderBackward:
		next = cur - 1
	case OrderFront:
		next = s.root.NumChildren() - 1
	case OrderBack:
		next = 0
	}
	next = min(max(next, 0), s.root.NumChildren()-1)
	if next == cur {
		return false
	}
	return s.Submit(NewReorderCardCommand(s, cur, next))
}

// FlipSelection flips every selected image or shape in one undoable step.
func (s *Stack) FlipSelection(horizontal bool) bool {
	var cmds []Command
	for _, e := range s.selection {
		if _, ok := schemas[e.kind].types["xFlipped"]; ok {
			cmds = append(cmds, NewFlipCommand(s, e, horizontal, !horizontal))
		}
	}
	if len(cmds) == 0 {
		return false
	}
	return s.Submit(NewCommandGroup("Flip Objects", cmds...))
}

// SetProperty writes a property through the undo log.
func (s *Stack) SetProperty(e *Entity, key string, value any) bool {
	return s.Submit(NewSetPropertyCommand(s, e, key, value))
}

// SetHandler writes a handler body through the undo log.
func (s *Stack) SetHandler(e *Entity, name, body string) bool {
	return s.Submit(NewSetHandlerCommand(s, e, name, body))
}
