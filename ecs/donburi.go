package ecs

import (
	"github.com/phanxgames/cardstack"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// ChangeEvent is the ECS-facing form of a cardstack change. Entity references
// are flattened to stable identifiers so systems never touch the tree off the
// coordinating goroutine.
type ChangeEvent struct {
	Type   cardstack.EventType
	Kind   cardstack.Kind
	Name   string
	Path   string
	Parent string
	Key    string
}

// ChangeEventType is the Donburi event type for cardstack change events.
var ChangeEventType = events.NewEventType[ChangeEvent]()

type donburiListener struct {
	world donburi.World
}

// NewDonburiListener creates a Listener backed by a Donburi world.
// Change events are published to ChangeEventType and can be consumed with
// events.Subscribe and ProcessEvents.
func NewDonburiListener(world donburi.World) cardstack.Listener {
	return &donburiListener{world: world}
}

func (l *donburiListener) OnChange(ev cardstack.Event) {
	ChangeEventType.Publish(l.world, toChangeEvent(ev))
}

func toChangeEvent(ev cardstack.Event) ChangeEvent {
	out := ChangeEvent{Type: ev.Type, Key: ev.Key}
	if ev.Entity != nil {
		out.Kind = ev.Entity.Kind()
		out.Name = ev.Entity.Name()
		out.Path = ev.Entity.Path()
	}
	if ev.Parent != nil {
		out.Parent = ev.Parent.Path()
	}
	return out
}
