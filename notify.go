package cardstack

import "sync"

// Event describes one change to the entity tree. Key is set for property and
// handler changes; Parent is set for structural changes.
type Event struct {
	Type   EventType
	Entity *Entity
	Parent *Entity
	Key    string
}

// Listener receives change events. Events are delivered synchronously on the
// goroutine that made the change, which by convention is the coordinator.
// Listeners must not block.
type Listener interface {
	OnChange(Event)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(Event)

// OnChange calls f(ev).
func (f ListenerFunc) OnChange(ev Event) { f(ev) }

// Notifier fans change events out to its listeners. Subscribing and
// notifying are safe from any goroutine.
type Notifier struct {
	mu        sync.Mutex
	listeners []*subscription
	muted     int
}

type subscription struct {
	l Listener
}

// Subscribe adds a listener and returns a function that removes it.
func (n *Notifier) Subscribe(l Listener) (unsubscribe func()) {
	sub := &subscription{l: l}
	n.mu.Lock()
	n.listeners = append(n.listeners, sub)
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, s := range n.listeners {
			if s == sub {
				n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
				return
			}
		}
	}
}

// Notify delivers ev to every listener registered at the time of the call.
func (n *Notifier) Notify(ev Event) {
	n.mu.Lock()
	if n.muted > 0 || len(n.listeners) == 0 {
		n.mu.Unlock()
		return
	}
	subs := make([]*subscription, len(n.listeners))
	copy(subs, n.listeners)
	n.mu.Unlock()
	for _, s := range subs {
		s.l.OnChange(ev)
	}
}

// Mute suppresses delivery until the returned function is called. Mutes nest.
// Used while building a tree that no observer has seen yet.
func (n *Notifier) Mute() (unmute func()) {
	n.mu.Lock()
	n.muted++
	n.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			n.muted--
			n.mu.Unlock()
		})
	}
}
