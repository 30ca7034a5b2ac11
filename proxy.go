package cardstack

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tanema/gween/ease"
)

// TypeError reports a script-facing call made with an argument of the wrong
// type. The call has no effect.
type TypeError struct {
	Op   string
	Arg  string
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: %s must be %s, got %T", e.Op, e.Arg, e.Want, e.Got)
}

// easings maps script-visible easing names to gween functions.
var easings = map[string]ease.TweenFunc{
	"":             nil,
	"Linear":       ease.Linear,
	"InQuad":       ease.InQuad,
	"OutQuad":      ease.OutQuad,
	"InOutQuad":    ease.InOutQuad,
	"InCubic":      ease.InCubic,
	"OutCubic":     ease.OutCubic,
	"InOutCubic":   ease.InOutCubic,
	"InSine":       ease.InSine,
	"OutSine":      ease.OutSine,
	"InOutSine":    ease.InOutSine,
	"InBack":       ease.InBack,
	"OutBack":      ease.OutBack,
	"InOutBack":    ease.InOutBack,
	"InBounce":     ease.InBounce,
	"OutBounce":    ease.OutBounce,
	"InOutBounce":  ease.InOutBounce,
	"InElastic":    ease.InElastic,
	"OutElastic":   ease.OutElastic,
	"InOutElastic": ease.InOutElastic,
}

// Proxy is the handle script code holds for an entity. Every method marshals
// onto the coordinating goroutine through the stack's dispatcher, so it is
// safe from the runner goroutine. Once the entity is torn down the proxy goes
// inert: reads return zero values and writes do nothing.
//
// Code already running on the coordinator (dispatched tasks, OnTick and
// animation callbacks) must pass a context carrying the coordinator marker,
// such as the one Update hands to OnTick; with any other context the call
// waits for a drain that cannot happen and deadlocks.
type Proxy struct {
	mu     sync.Mutex
	entity *Entity
	stack  *Stack
}

// Proxy returns the entity's script handle, creating it on first use.
// Must be called on the coordinating goroutine.
func (e *Entity) Proxy() *Proxy {
	if e.proxy == nil {
		e.proxy = &Proxy{entity: e}
	}
	if e.owner != nil {
		e.proxy.mu.Lock()
		e.proxy.stack = e.owner
		e.proxy.mu.Unlock()
	}
	return e.proxy
}

func (p *Proxy) release() {
	p.mu.Lock()
	p.entity = nil
	p.mu.Unlock()
}

func (p *Proxy) alive() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entity != nil && p.stack != nil
}

// do runs fn with the live entity on the coordinator. Inert proxies skip fn.
func (p *Proxy) do(ctx context.Context, fn func(ctx context.Context, e *Entity)) error {
	p.mu.Lock()
	s := p.stack
	p.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.dispatcher.RunOnCoordinator(ctx, func(ctx context.Context) {
		p.mu.Lock()
		e := p.entity
		p.mu.Unlock()
		if e != nil && !e.IsTornDown() {
			fn(ctx, e)
		}
	})
}

// Entity returns the underlying entity, or nil once released. The entity may
// only be touched on the coordinating goroutine.
func (p *Proxy) Entity() *Entity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entity
}

// --- Properties ---

// Kind returns the entity kind.
func (p *Proxy) Kind(ctx context.Context) (Kind, error) {
	var k Kind
	err := p.do(ctx, func(_ context.Context, e *Entity) { k = e.kind })
	return k, err
}

// Name returns the entity name.
func (p *Proxy) Name(ctx context.Context) (string, error) {
	var name string
	err := p.do(ctx, func(_ context.Context, e *Entity) { name = e.Name() })
	return name, err
}

// Get reads a property.
func (p *Proxy) Get(ctx context.Context, key string) (any, error) {
	var v any
	err := p.do(ctx, func(_ context.Context, e *Entity) { v = e.GetProperty(key) })
	return v, err
}

// Set writes a property. Unknown keys and values of the wrong type are
// reported as *TypeError; values of the right type that fail validation
// (invalid names, unknown choices) are silently ignored.
func (p *Proxy) Set(ctx context.Context, key string, value any) error {
	var terr error
	err := p.do(ctx, func(_ context.Context, e *Entity) {
		typ, ok := schemas[e.kind].types[key]
		if !ok {
			terr = &TypeError{Op: "Set", Arg: key, Want: "a property of " + e.kind.String(), Got: value}
			return
		}
		if !valueFits(typ, value) {
			terr = &TypeError{Op: "Set", Arg: key, Want: typ.String(), Got: value}
			return
		}
		e.SetProperty(key, value)
	})
	if terr != nil {
		return terr
	}
	return err
}

// valueFits reports whether v has a Go type usable for typ, ignoring
// domain validation.
func valueFits(typ PropType, v any) bool {
	switch typ {
	case PropString, PropFile, PropChoice:
		_, ok := v.(string)
		return ok
	case PropColor:
		_, ok := coerceColor(v)
		return ok
	}
	_, ok := coerceValue(typ, v, nil)
	return ok
}

// Show clears the hidden flag.
func (p *Proxy) Show(ctx context.Context) error { return p.Set(ctx, "hidden", false) }

// Hide sets the hidden flag.
func (p *Proxy) Hide(ctx context.Context) error { return p.Set(ctx, "hidden", true) }

// Visible reports whether neither the entity nor an ancestor is hidden.
func (p *Proxy) Visible(ctx context.Context) (bool, error) {
	var v bool
	err := p.do(ctx, func(_ context.Context, e *Entity) { v = !e.IsHidden() })
	return v, err
}

// --- Navigation ---

// Child returns the direct child named name, or nil.
func (p *Proxy) Child(ctx context.Context, name string) (*Proxy, error) {
	var c *Proxy
	err := p.do(ctx, func(_ context.Context, e *Entity) {
		if found := e.FindChildByName(name); found != nil {
			c = found.Proxy()
		}
	})
	return c, err
}

// Parent returns the parent's proxy, or nil.
func (p *Proxy) Parent(ctx context.Context) (*Proxy, error) {
	var c *Proxy
	err := p.do(ctx, func(_ context.Context, e *Entity) {
		if e.parent != nil {
			c = e.parent.Proxy()
		}
	})
	return c, err
}

// Card returns the enclosing card's proxy, or nil.
func (p *Proxy) Card(ctx context.Context) (*Proxy, error) {
	var c *Proxy
	err := p.do(ctx, func(_ context.Context, e *Entity) {
		if card := e.Card(); card != nil {
			c = card.Proxy()
		}
	})
	return c, err
}

// --- Messages ---

// SendMessage queues the entity's OnMessage handler with message.
func (p *Proxy) SendMessage(ctx context.Context, message any) error {
	msg, ok := message.(string)
	if !ok {
		return &TypeError{Op: "SendMessage", Arg: "message", Want: "string", Got: message}
	}
	return p.do(ctx, func(_ context.Context, e *Entity) {
		if r := p.stack.runner; r != nil {
			r.RunHandler(e, "OnMessage", msg)
		}
	})
}

// GoToCard makes another card current. which is a card index, a card name,
// or one of "next", "previous", "first" and "last". Moving past either end
// wraps around.
func (p *Proxy) GoToCard(ctx context.Context, which any) error {
	var terr error
	err := p.do(ctx, func(_ context.Context, _ *Entity) {
		s := p.stack
		n := s.root.NumChildren()
		switch w := which.(type) {
		case string:
			switch w {
			case "next":
				s.LoadCard((s.cardIndex + 1) % n)
			case "previous":
				s.LoadCard((s.cardIndex - 1 + n) % n)
			case "first":
				s.LoadCard(0)
			case "last":
				s.LoadCard(n - 1)
			default:
				card := s.root.FindChildByName(w)
				if card == nil {
					terr = &TypeError{Op: "GoToCard", Arg: "which", Want: "a card name", Got: which}
					return
				}
				s.LoadCardEntity(card)
			}
		default:
			f, ok := toFloat(which)
			if !ok {
				terr = &TypeError{Op: "GoToCard", Arg: "which", Want: "a card index or name", Got: which}
				return
			}
			s.LoadCard(int(f))
		}
	})
	if terr != nil {
		return terr
	}
	return err
}

// --- Lifecycle ---

// Clone copies the entity with overrides applied. A cloned view joins the
// same card with a free name; a cloned card is inserted after the original.
// The clone's OnSetup is queued. Unknown override keys are ignored.
func (p *Proxy) Clone(ctx context.Context, overrides map[string]any) (*Proxy, error) {
	var out *Proxy
	err := p.do(ctx, func(_ context.Context, e *Entity) {
		s := p.stack
		c := e.Copy()
		// Size before center, so the center lands where asked.
		if size, ok := overrides["size"]; ok {
			c.SetPropertyQuiet("size", size)
		}
		for k, v := range overrides {
			if k != "size" {
				c.SetPropertyQuiet(k, v)
			}
		}
		if e.kind == KindCard {
			c.SetPropertyQuiet("name", DeduplicateName(c.Name(), s.cardNames()))
			s.keepCurrentCard(func() { s.root.InsertChild(c, s.root.ChildIndex(e)+1) })
		} else {
			card := e.Card()
			if card == nil {
				return
			}
			DeduplicateNamesInCard(card, []*Entity{c})
			card.AddChild(c)
		}
		if s.runner != nil {
			s.runner.RunSetup(c)
		}
		out = c.Proxy()
	})
	return out, err
}

// Delete removes the entity. Group children and the last card are refused
// without error.
func (p *Proxy) Delete(ctx context.Context) error {
	return p.do(ctx, func(_ context.Context, e *Entity) {
		s := p.stack
		if e.parent == nil || e.parent.kind == KindGroup {
			return
		}
		if e.kind == KindCard {
			if s.root.NumChildren() <= 1 {
				return
			}
			wasCurrent := e == s.CurrentCard()
			index := s.root.ChildIndex(e)
			if !wasCurrent {
				s.keepCurrentCard(e.Teardown)
				return
			}
			s.loadCard(NoCard, false)
			e.Teardown()
			s.loadCard(min(index, s.root.NumChildren()-1), false)
			return
		}
		s.deselect(e)
		e.Teardown()
	})
}

// --- Z-order ---

// OrderToFront moves the entity in front of its siblings. For a card this
// moves it to the end of the stack.
func (p *Proxy) OrderToFront(ctx context.Context) error {
	return p.order(ctx, func(e *Entity) { e.OrderMoveTo(-1) })
}

// OrderForward moves the entity one step toward the front.
func (p *Proxy) OrderForward(ctx context.Context) error {
	return p.order(ctx, func(e *Entity) { e.OrderMoveBy(1) })
}

// OrderBackward moves the entity one step toward the back.
func (p *Proxy) OrderBackward(ctx context.Context) error {
	return p.order(ctx, func(e *Entity) { e.OrderMoveBy(-1) })
}

// OrderToBack moves the entity behind its siblings.
func (p *Proxy) OrderToBack(ctx context.Context) error {
	return p.order(ctx, func(e *Entity) { e.OrderMoveTo(0) })
}

// OrderToIndex moves the entity to index among its siblings. Negative
// indexes count from the front.
func (p *Proxy) OrderToIndex(ctx context.Context, index any) error {
	f, ok := toFloat(index)
	if !ok {
		return &TypeError{Op: "OrderToIndex", Arg: "index", Want: "a number", Got: index}
	}
	return p.order(ctx, func(e *Entity) { e.OrderMoveTo(int(f)) })
}

func (p *Proxy) order(ctx context.Context, fn func(e *Entity)) error {
	return p.do(ctx, func(_ context.Context, e *Entity) {
		if e.kind == KindCard {
			p.stack.keepCurrentCard(func() { fn(e) })
			return
		}
		fn(e)
	})
}

// --- Geometry ---

// IsTouching reports whether the frames of two entities on the same card
// overlap.
func (p *Proxy) IsTouching(ctx context.Context, other *Proxy) (bool, error) {
	if other == nil {
		return false, &TypeError{Op: "IsTouching", Arg: "other", Want: "an object", Got: other}
	}
	var touching bool
	err := p.do(ctx, func(_ context.Context, e *Entity) {
		o := other.Entity()
		if o == nil || o.IsTornDown() || o.Card() != e.Card() {
			return
		}
		touching = e.AbsoluteFrame().Intersects(o.AbsoluteFrame())
	})
	return touching, err
}

// IsTouchingPoint reports whether pt (card coordinates) is inside the frame.
func (p *Proxy) IsTouchingPoint(ctx context.Context, pt any) (bool, error) {
	at, ok := coercePoint(pt)
	if !ok {
		return false, &TypeError{Op: "IsTouchingPoint", Arg: "point", Want: "a point", Got: pt}
	}
	var touching bool
	err := p.do(ctx, func(_ context.Context, e *Entity) {
		touching = e.AbsoluteFrame().Contains(at)
	})
	return touching, err
}

// --- Animation ---

// AnimatePosition moves the entity to end over duration seconds with the
// named easing. onFinished, if non-nil, is queued on the runner afterwards.
func (p *Proxy) AnimatePosition(ctx context.Context, duration, end any, easing string, onFinished func(context.Context)) error {
	d, to, fn, err := animArgs("AnimatePosition", duration, end, easing)
	if err != nil {
		return err
	}
	return p.do(ctx, func(_ context.Context, e *Entity) {
		e.AnimatePosition(d, to, fn, p.finisher(onFinished))
	})
}

// AnimateCenter moves the entity's center to end over duration seconds.
func (p *Proxy) AnimateCenter(ctx context.Context, duration, end any, easing string, onFinished func(context.Context)) error {
	d, to, fn, err := animArgs("AnimateCenter", duration, end, easing)
	if err != nil {
		return err
	}
	return p.do(ctx, func(_ context.Context, e *Entity) {
		e.AnimateCenter(d, to, fn, p.finisher(onFinished))
	})
}

// AnimateSize resizes the entity to end over duration seconds.
func (p *Proxy) AnimateSize(ctx context.Context, duration, end any, easing string, onFinished func(context.Context)) error {
	d, to, fn, err := animArgs("AnimateSize", duration, end, easing)
	if err != nil {
		return err
	}
	return p.do(ctx, func(_ context.Context, e *Entity) {
		e.AnimateSize(d, Size{to.X, to.Y}, fn, p.finisher(onFinished))
	})
}

// AnimateRotation turns an image to end degrees over duration seconds.
func (p *Proxy) AnimateRotation(ctx context.Context, duration, end any, easing string, onFinished func(context.Context)) error {
	d, err := animDuration("AnimateRotation", duration)
	if err != nil {
		return err
	}
	deg, ok := toFloat(end)
	if !ok {
		return &TypeError{Op: "AnimateRotation", Arg: "endRotation", Want: "a number", Got: end}
	}
	fn, err := animEasing("AnimateRotation", easing)
	if err != nil {
		return err
	}
	return p.do(ctx, func(_ context.Context, e *Entity) {
		if e.kind != KindImage {
			return
		}
		e.AnimateRotation(d, int(deg), fn, p.finisher(onFinished))
	})
}

// AnimateColor blends the color property key to end over duration seconds.
func (p *Proxy) AnimateColor(ctx context.Context, key string, duration, end any, easing string, onFinished func(context.Context)) error {
	d, err := animDuration("AnimateColor", duration)
	if err != nil {
		return err
	}
	color, ok := end.(string)
	if !ok {
		return &TypeError{Op: "AnimateColor", Arg: "endColor", Want: "a color string", Got: end}
	}
	fn, err := animEasing("AnimateColor", easing)
	if err != nil {
		return err
	}
	return p.do(ctx, func(_ context.Context, e *Entity) {
		if typ, ok := schemas[e.kind].types[key]; !ok || typ != PropColor {
			return
		}
		e.AnimateColor(key, d, color, fn, p.finisher(onFinished))
	})
}

// StopAnimating cancels the animation on key, or every animation when key
// is empty.
func (p *Proxy) StopAnimating(ctx context.Context, key string) error {
	return p.do(ctx, func(_ context.Context, e *Entity) {
		e.StopAnimation(key)
	})
}

// IsAnimating reports whether key (or any key, when empty) is animating.
func (p *Proxy) IsAnimating(ctx context.Context, key string) (bool, error) {
	var v bool
	err := p.do(ctx, func(_ context.Context, e *Entity) { v = e.IsAnimating(key) })
	return v, err
}

// finisher turns a script callback into a coordinator-side finish hook that
// queues the callback on the runner.
func (p *Proxy) finisher(fn func(context.Context)) func() {
	if fn == nil {
		return nil
	}
	return func() {
		if r := p.stack.runner; r != nil {
			r.EnqueueFunction(fn)
		}
	}
}

func animDuration(op string, duration any) (time.Duration, error) {
	secs, ok := toFloat(duration)
	if !ok {
		return 0, &TypeError{Op: op, Arg: "duration", Want: "a number", Got: duration}
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func animEasing(op, name string) (ease.TweenFunc, error) {
	fn, ok := easings[name]
	if !ok {
		return nil, &TypeError{Op: op, Arg: "easing", Want: "an easing name", Got: name}
	}
	return fn, nil
}

func animArgs(op string, duration, end any, easing string) (time.Duration, Point, ease.TweenFunc, error) {
	d, err := animDuration(op, duration)
	if err != nil {
		return 0, Point{}, nil, err
	}
	to, ok := coercePoint(end)
	if !ok {
		return 0, Point{}, nil, &TypeError{Op: op, Arg: "end", Want: "a point", Got: end}
	}
	fn, err := animEasing(op, easing)
	if err != nil {
		return 0, Point{}, nil, err
	}
	return d, to, fn, nil
}
