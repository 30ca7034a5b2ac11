// Package ecs provides ECS adapters for cardstack change events.
//
// The primary adapter is [NewDonburiListener], which bridges cardstack change
// events (property, handler and structure changes, card switches) into a
// [Donburi] world as typed events. Subscribe to [ChangeEventType] in your ECS
// systems to receive them.
//
// Usage:
//
//	unsubscribe := stack.Subscribe(ecs.NewDonburiListener(world))
//	defer unsubscribe()
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
