// Package cardstack is the runtime core of a card-based authoring and
// playback environment.
//
// A document is a tree of entities rooted at a stack: the stack holds cards,
// cards hold views (buttons, text fields, labels, images, shapes, web views)
// and groups, and groups hold further views. Every entity carries a typed,
// schema-validated property map and a map of named event handlers whose
// bodies are executed by a pluggable [Interpreter].
//
// # Quick start
//
//	s := cardstack.NewStack(cardstack.Options{})
//	btn := s.AddEntity(cardstack.KindButton)
//	s.SetProperty(btn, "title", "Go")
//	s.SetHandler(btn, "OnClick", `goto next`)
//
//	r := cardstack.NewRunner(s, interp)
//	r.Start(ctx)
//	s.Run(ctx)
//
// # Goroutines
//
// Two goroutines cooperate. The coordinating goroutine owns the tree: it runs
// [Stack.Update] (or [Stack.Run]), which drains the [Dispatcher], advances the
// animation [Scheduler] and queues periodic handlers. The runner goroutine
// executes handler bodies one at a time. Handlers reach the tree only through
// a [Proxy], whose methods marshal onto the coordinator with
// [Dispatcher.RunOnCoordinator] and [Call]. Animation queues carry their own
// lock, so [Entity.StopAnimation] and [Entity.Teardown] are safe from either
// goroutine.
//
// # Changes and undo
//
// Property, handler and structure changes are reported to listeners
// registered with [Stack.Subscribe], then mark the entity and its ancestors
// dirty. Authoring operations are reversible [Command] values recorded in a
// [CommandLog]; undoing back to the start clears the dirty state.
//
// # Animation
//
// Animations are queued per key on each entity and advanced once per tick:
// all updates run first, then finished animations are retired and the next
// in each queue started. Easing functions come from [gween].
//
// [gween]: https://github.com/tanema/gween
package cardstack
