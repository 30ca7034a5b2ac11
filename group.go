package cardstack

import (
	"cmp"
	"slices"
)

// groupEntities moves the entities that are direct children of card into
// group, creating a new group when group is nil. The group takes the union
// of the members' frames and is inserted at the lowest member index. Returns
// the group and the members' original indexes (ascending, matching the
// group's child order), or nil if fewer than two entities qualify.
func (s *Stack) groupEntities(card *Entity, entities []*Entity, group *Entity) (*Entity, []int) {
	type placed struct {
		e     *Entity
		index int
	}
	var ps []placed
	for _, e := range entities {
		if e.parent == card && e.kind.IsView() {
			ps = append(ps, placed{e, card.ChildIndex(e)})
		}
	}
	if len(ps) < 2 {
		return nil, nil
	}
	slices.SortFunc(ps, func(a, b placed) int { return cmp.Compare(a.index, b.index) })

	if group == nil {
		group = NewEntity(KindGroup)
		group.SetPropertyQuiet("name", NextAvailableName(card, "group"))
	} else {
		group.SetBackUp(s)
	}

	frame := ps[0].e.Frame()
	for _, p := range ps[1:] {
		frame = frame.Union(p.e.Frame())
	}
	origin := Point{frame.X, frame.Y}

	indexes := make([]int, len(ps))
	for i := len(ps) - 1; i >= 0; i-- {
		card.RemoveChild(ps[i].e)
		indexes[i] = ps[i].index
	}
	for _, p := range ps {
		p.e.SetProperty("position", p.e.Position().Sub(origin))
		group.AddChild(p.e)
	}
	group.SetProperty("position", origin)
	group.SetProperty("size", Size{frame.Width, frame.Height})
	card.InsertChild(group, indexes[0])
	return group, indexes
}

// ungroupEntity moves group's children back onto card, converting their
// positions to card coordinates, and tears the group down. With indexes the
// children return to those exact sibling indexes (ascending); otherwise they
// take the group's place in order. Returns the former children.
func (s *Stack) ungroupEntity(card, group *Entity, indexes []int) []*Entity {
	at := card.ChildIndex(group)
	origin := group.Position()
	children := slices.Clone(group.children)
	for _, c := range children {
		group.RemoveChild(c)
		c.SetProperty("position", c.Position().Add(origin))
	}
	group.Teardown()
	for i, c := range children {
		index := at + i
		if i < len(indexes) {
			index = indexes[i]
		}
		card.InsertChild(c, min(index, card.NumChildren()))
	}
	return children
}

// regroupAt reverses ungroupEntity: members move back into the torn down
// group, which is restored at index with its previous frame.
func (s *Stack) regroupAt(card *Entity, members []*Entity, group *Entity, index int) {
	group.SetBackUp(s)
	origin := group.Position()
	for _, m := range members {
		if m.parent == card {
			card.RemoveChild(m)
		}
	}
	for _, m := range members {
		m.SetProperty("position", m.Position().Sub(origin))
		group.AddChild(m)
	}
	card.InsertChild(group, min(index, card.NumChildren()))
}
