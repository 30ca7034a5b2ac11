package cardstack

// pointerPhase distinguishes the synthetic pointer events.
type pointerPhase uint8

const (
	pointerPress pointerPhase = iota
	pointerMove
	pointerRelease
)

// syntheticPointerEvent is one injected pointer event in card coordinates.
type syntheticPointerEvent struct {
	pos   Point
	phase pointerPhase
}

// pointerState tracks hover and press targets between injected events.
type pointerState struct {
	queue   []syntheticPointerEvent
	pos     Point
	hovered *Entity
	pressed *Entity
}

// InjectPress queues a pointer press at (x, y) on the current card. Events
// are consumed one per Update.
func (s *Stack) InjectPress(x, y float64) {
	s.pointer.queue = append(s.pointer.queue, syntheticPointerEvent{pos: Point{x, y}, phase: pointerPress})
}

// InjectMove queues a pointer move to (x, y).
func (s *Stack) InjectMove(x, y float64) {
	s.pointer.queue = append(s.pointer.queue, syntheticPointerEvent{pos: Point{x, y}, phase: pointerMove})
}

// InjectRelease queues a pointer release at (x, y).
func (s *Stack) InjectRelease(x, y float64) {
	s.pointer.queue = append(s.pointer.queue, syntheticPointerEvent{pos: Point{x, y}, phase: pointerRelease})
}

// InjectClick queues a press followed by a release at the same point.
// Consumes two ticks.
func (s *Stack) InjectClick(x, y float64) {
	s.InjectPress(x, y)
	s.InjectRelease(x, y)
}

// InjectDrag queues a press at (fromX, fromY), linearly interpolated moves
// and a release at (toX, toY), spread over frames ticks (minimum 2).
func (s *Stack) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	s.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		s.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	s.InjectRelease(toX, toY)
}

// PendingInjections returns the number of queued synthetic events.
func (s *Stack) PendingInjections() int {
	return len(s.pointer.queue)
}

// MousePos returns the last injected pointer position.
func (s *Stack) MousePos() Point {
	return s.pointer.pos
}

// HitTest returns the front-most visible view on the current card whose frame
// contains p, descending into groups. Falls back to the card itself.
func (s *Stack) HitTest(p Point) *Entity {
	card := s.CurrentCard()
	if card == nil {
		return nil
	}
	if hit := hitTest(card, p); hit != nil {
		return hit
	}
	return card
}

func hitTest(parent *Entity, p Point) *Entity {
	for i := len(parent.children) - 1; i >= 0; i-- {
		c := parent.children[i]
		if c.BoolProperty("hidden") || !c.AbsoluteFrame().Contains(p) {
			continue
		}
		if c.kind == KindGroup {
			if hit := hitTest(c, p); hit != nil {
				return hit
			}
			continue
		}
		return c
	}
	return nil
}

// processInjectedInput consumes one queued event and queues the matching
// mouse handlers. Returns true if an event was consumed.
func (s *Stack) processInjectedInput() bool {
	ps := &s.pointer
	if len(ps.queue) == 0 {
		return false
	}
	evt := ps.queue[0]
	copy(ps.queue, ps.queue[1:])
	ps.queue = ps.queue[:len(ps.queue)-1]

	ps.pos = evt.pos
	target := s.HitTest(evt.pos)
	if target == nil {
		return true
	}
	if target != ps.hovered {
		if ps.hovered != nil && !ps.hovered.IsTornDown() {
			s.dispatchPointer(ps.hovered, "OnMouseExit", evt.pos)
		}
		ps.hovered = target
		s.dispatchPointer(target, "OnMouseEnter", evt.pos)
	}
	switch evt.phase {
	case pointerPress:
		ps.pressed = target
		s.dispatchPointer(target, "OnMouseDown", evt.pos)
	case pointerMove:
		s.dispatchPointer(target, "OnMouseMove", evt.pos)
	case pointerRelease:
		s.dispatchPointer(target, "OnMouseUp", evt.pos)
		if ps.pressed == target && target.kind == KindButton && s.runner != nil && !s.editing {
			s.runner.RunHandler(target, "OnClick", evt.pos)
		}
		ps.pressed = nil
	}
	return true
}

// dispatchPointer queues handler name on target and each ancestor up to the
// card.
func (s *Stack) dispatchPointer(target *Entity, name string, pos Point) {
	if s.runner == nil || s.editing {
		return
	}
	for e := target; e != nil && e.kind != KindStack; e = e.parent {
		s.runner.RunHandler(e, name, pos)
	}
}
