package cardstack

import "time"

// finishEntry is an animation that reached progress 1.0 during a tick.
type finishEntry struct {
	e *Entity
	a *Animation
}

// Scheduler advances every animation in an entity tree. Tick is called once
// per coordinator tick; it is not safe for concurrent use with itself.
type Scheduler struct {
	root *Entity
	last time.Time

	// Buffers reused across ticks.
	entities []*Entity
	updates  []pendingUpdate
	finishes []finishEntry
}

// NewScheduler creates a scheduler for the tree rooted at root.
func NewScheduler(root *Entity) *Scheduler {
	return &Scheduler{root: root}
}

// Reset forgets the previous tick time, so the next Tick integrates no speed.
func (s *Scheduler) Reset() {
	s.last = time.Time{}
}

// Tick advances the tree to now. Speed is integrated into position for views
// without an active "position" animation, then each started animation gets
// its update callback. Finish callbacks (and the start of queued successors)
// run only after every entity has been updated, so an animation started by a
// finish callback is first advanced on the next tick. An animation stopped
// after its progress was computed gets no further update. Torn down subtrees
// are skipped.
//
// Returns the number of update and finish callbacks invoked.
func (s *Scheduler) Tick(now time.Time) (updated, finished int) {
	var elapsed float64
	if !s.last.IsZero() && now.After(s.last) {
		elapsed = now.Sub(s.last).Seconds()
	}
	s.last = now

	// Callbacks may restructure the tree; iterate over a snapshot.
	s.entities = s.entities[:0]
	s.root.Walk(func(e *Entity) bool {
		if e.IsTornDown() {
			return false
		}
		s.entities = append(s.entities, e)
		return true
	})

	s.finishes = s.finishes[:0]
	for _, e := range s.entities {
		if e.IsTornDown() {
			continue
		}
		if elapsed > 0 && e.kind.IsView() && !e.IsAnimating("position") {
			if v := e.Speed(); v != (Point{}) {
				e.SetProperty("position", e.Position().Add(v.Scale(elapsed)))
			}
		}

		s.updates = s.updates[:0]
		s.updates, s.finishes = e.collectAnimations(now, s.updates, s.finishes)
		for _, u := range s.updates {
			if e.runUpdate(u.a, u.progress) {
				updated++
			}
		}
	}

	for i := range s.finishes {
		f := s.finishes[i]
		s.finishes[i] = finishEntry{}
		f.e.finishAnimation(f.a)
		finished++
	}
	s.finishes = s.finishes[:0]
	clear(s.entities)
	s.entities = s.entities[:0]
	return updated, finished
}
