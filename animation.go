package cardstack

import (
	"context"
	"time"

	"github.com/tanema/gween/ease"
)

// UpdateFunc receives the linear progress of an animation in [0, 1].
type UpdateFunc func(progress float64, a *Animation)

// AnimationFunc is a start, finish or cancel callback.
type AnimationFunc func(a *Animation)

// Animation is one timed interpolation of one property key. Animations on the
// same key form a FIFO queue; only the head is active. Callbacks run on the
// goroutine that ticks the Scheduler (or calls AddAnimation/StopAnimation)
// and must not block.
type Animation struct {
	Key      string
	Duration time.Duration
	// State is scratch space shared by the callbacks of this animation.
	State map[string]any

	update   UpdateFunc
	onStart  AnimationFunc
	onFinish AnimationFunc
	onCancel AnimationFunc

	// guarded by the entity's animMu
	active   bool // head of its queue, OnStart invoked or in progress
	started  bool // OnStart returned and start is set
	start    time.Time
	progress float64
	updating bool // update callback in progress
	cancel   bool // cancelled while updating; onCancel runs when it returns
}

// Progress returns the last progress value passed to the update callback.
func (a *Animation) Progress() float64 {
	return a.progress
}

// AddAnimation queues an animation for key. If key has no active animation
// this one becomes active and onStart runs before AddAnimation returns;
// otherwise it waits until the ones ahead of it finish. Any callback may be
// nil. Returns nil if the entity is torn down.
func (e *Entity) AddAnimation(key string, duration time.Duration, update UpdateFunc,
	onStart, onFinish, onCancel AnimationFunc) *Animation {
	a := &Animation{
		Key:      key,
		Duration: duration,
		State:    map[string]any{},
		update:   update,
		onStart:  onStart,
		onFinish: onFinish,
		onCancel: onCancel,
	}
	e.animMu.Lock()
	if e.tornDown {
		e.animMu.Unlock()
		return nil
	}
	q := e.animations[key]
	startNow := len(q) == 0
	e.animations[key] = append(q, a)
	if startNow {
		a.active = true
	}
	e.animMu.Unlock()

	if startNow {
		e.startAnimation(a)
	}
	return a
}

// startAnimation runs onStart outside the lock, then stamps the start time
// unless the animation was cancelled from inside onStart.
func (e *Entity) startAnimation(a *Animation) {
	if a.onStart != nil {
		a.onStart(a)
	}
	now := e.now()
	e.animMu.Lock()
	if a.active {
		a.start = now
		a.started = true
	}
	e.animMu.Unlock()
}

// finishAnimation pops a (which must still head its queue), runs onFinish and
// starts the next queued animation for the key.
func (e *Entity) finishAnimation(a *Animation) {
	e.animMu.Lock()
	q := e.animations[a.Key]
	if len(q) == 0 || q[0] != a {
		e.animMu.Unlock()
		return
	}
	a.active = false
	var next *Animation
	if len(q) > 1 {
		q[0] = nil
		e.animations[a.Key] = q[1:]
		next = q[1]
		next.active = true
	} else {
		delete(e.animations, a.Key)
	}
	e.animMu.Unlock()

	if a.onFinish != nil {
		a.onFinish(a)
	}
	if next != nil {
		e.startAnimation(next)
	}
}

// StopAnimation cancels the active animation for key, running its onCancel,
// and drops the animations queued behind it without running any of their
// callbacks. An empty key stops every key. If the active animation's update
// callback is running, onCancel runs as soon as that callback returns.
//
// The queue bookkeeping is safe from any goroutine, but onCancel runs on the
// caller. Goroutines other than the coordinator should use StopAnimationFrom.
func (e *Entity) StopAnimation(key string) {
	e.animMu.Lock()
	cancelled := e.takeAnimationsLocked(key)
	e.animMu.Unlock()
	runCancels(cancelled)
}

// StopAnimationFrom is StopAnimation for any goroutine. The animations stop
// immediately; the onCancel callbacks run on the owning stack's coordinator,
// inline when ctx carries its marker. It blocks until they have run or ctx is
// done.
func (e *Entity) StopAnimationFrom(ctx context.Context, key string) error {
	e.animMu.Lock()
	cancelled := e.takeAnimationsLocked(key)
	owner := e.owner
	e.animMu.Unlock()
	if len(cancelled) == 0 {
		return nil
	}
	if owner == nil {
		runCancels(cancelled)
		return nil
	}
	return owner.dispatcher.RunOnCoordinator(ctx, func(context.Context) { runCancels(cancelled) })
}

// IsAnimating reports whether key has an active animation. An empty key
// reports whether any key does.
func (e *Entity) IsAnimating(key string) bool {
	e.animMu.Lock()
	defer e.animMu.Unlock()
	if key == "" {
		return len(e.animations) > 0
	}
	return len(e.animations[key]) > 0
}

// IsAnimatingTree reports whether e or any descendant has a queued
// animation.
func (e *Entity) IsAnimatingTree() bool {
	found := false
	e.Walk(func(x *Entity) bool {
		if !found && x.IsAnimating("") {
			found = true
		}
		return !found
	})
	return found
}

// takeAnimationsLocked removes the queue for key (or all queues) and returns
// the active heads that need their onCancel run. Caller holds animMu.
func (e *Entity) takeAnimationsLocked(key string) []*Animation {
	var active []*Animation
	take := func(k string) {
		q := e.animations[k]
		if len(q) > 0 && q[0].active {
			q[0].active = false
			if q[0].updating {
				q[0].cancel = true
			} else {
				active = append(active, q[0])
			}
		}
		delete(e.animations, k)
	}
	if key != "" {
		take(key)
		return active
	}
	for k := range e.animations {
		take(k)
	}
	return active
}

func runCancels(anims []*Animation) {
	for _, a := range anims {
		if a.onCancel != nil {
			a.onCancel(a)
		}
	}
}

// pendingUpdate is one update callback computed under the lock and invoked
// after it is released.
type pendingUpdate struct {
	a        *Animation
	progress float64
}

// collectAnimations computes progress for every started head animation and
// appends the results to updates; heads reaching 1.0 are also appended to
// finishes.
func (e *Entity) collectAnimations(now time.Time, updates []pendingUpdate, finishes []finishEntry) ([]pendingUpdate, []finishEntry) {
	e.animMu.Lock()
	defer e.animMu.Unlock()
	for _, q := range e.animations {
		a := q[0]
		if !a.started {
			continue
		}
		p := 1.0
		if a.Duration > 0 {
			p = float64(now.Sub(a.start)) / float64(a.Duration)
		}
		if p > 1 {
			p = 1
		}
		if p < a.progress {
			p = a.progress
		}
		a.progress = p
		updates = append(updates, pendingUpdate{a: a, progress: p})
		if p == 1 {
			finishes = append(finishes, finishEntry{e: e, a: a})
		}
	}
	return updates, finishes
}

// runUpdate invokes a's update callback unless a was cancelled after its
// progress was collected. Reports whether the callback ran.
func (e *Entity) runUpdate(a *Animation, progress float64) bool {
	e.animMu.Lock()
	if !a.active {
		e.animMu.Unlock()
		return false
	}
	a.updating = true
	e.animMu.Unlock()
	defer e.endUpdate(a)
	if a.update != nil {
		a.update(progress, a)
	}
	return true
}

func (e *Entity) endUpdate(a *Animation) {
	e.animMu.Lock()
	a.updating = false
	cancelled := a.cancel
	a.cancel = false
	e.animMu.Unlock()
	if cancelled && a.onCancel != nil {
		a.onCancel(a)
	}
}

func (e *Entity) now() time.Time {
	e.animMu.Lock()
	owner := e.owner
	e.animMu.Unlock()
	if owner != nil {
		return owner.clock()
	}
	return time.Now()
}

// --- Tween helpers ---

// eased maps linear progress through an optional gween easing function.
func eased(fn ease.TweenFunc, progress float64) float64 {
	if fn == nil {
		return progress
	}
	return float64(fn(float32(progress), 0, 1, 1))
}

// AnimatePosition moves the entity to end (card coordinates) over duration.
// While it runs, speed reports the average velocity; it is reset to zero on
// finish or cancel. fn may be nil for linear motion. onFinished runs on the
// ticking goroutine after the final update.
func (e *Entity) AnimatePosition(duration time.Duration, end Point, fn ease.TweenFunc, onFinished func()) *Animation {
	return e.AddAnimation("position", duration,
		func(progress float64, a *Animation) {
			origin := a.State["origin"].(Point)
			offset := a.State["offset"].(Point)
			e.SetAbsolutePosition(origin.Add(offset.Scale(eased(fn, progress))))
		},
		func(a *Animation) {
			origin := e.AbsolutePosition()
			offset := end.Sub(origin)
			a.State["origin"] = origin
			a.State["offset"] = offset
			if duration > 0 {
				e.SetProperty("speed", offset.Scale(1/duration.Seconds()))
			}
		},
		func(*Animation) {
			e.SetPropertyQuiet("speed", Point{})
			if onFinished != nil {
				onFinished()
			}
		},
		func(*Animation) {
			e.SetProperty("speed", Point{})
		})
}

// AnimateCenter moves the entity so its center reaches end over duration.
// It shares the "position" queue with AnimatePosition.
func (e *Entity) AnimateCenter(duration time.Duration, end Point, fn ease.TweenFunc, onFinished func()) *Animation {
	return e.AddAnimation("position", duration,
		func(progress float64, a *Animation) {
			origin := a.State["origin"].(Point)
			offset := a.State["offset"].(Point)
			e.SetCenter(origin.Add(offset.Scale(eased(fn, progress))))
		},
		func(a *Animation) {
			origin := e.Center()
			offset := end.Sub(origin)
			a.State["origin"] = origin
			a.State["offset"] = offset
			if duration > 0 {
				e.SetProperty("speed", offset.Scale(1/duration.Seconds()))
			}
		},
		func(*Animation) {
			e.SetPropertyQuiet("speed", Point{})
			if onFinished != nil {
				onFinished()
			}
		},
		func(*Animation) {
			e.SetProperty("speed", Point{})
		})
}

// AnimateSize resizes the entity to end over duration.
func (e *Entity) AnimateSize(duration time.Duration, end Size, fn ease.TweenFunc, onFinished func()) *Animation {
	return e.AddAnimation("size", duration,
		func(progress float64, a *Animation) {
			origin := a.State["origin"].(Size)
			t := eased(fn, progress)
			e.SetProperty("size", Size{
				origin.Width + (end.Width-origin.Width)*t,
				origin.Height + (end.Height-origin.Height)*t,
			})
		},
		func(a *Animation) {
			a.State["origin"] = e.Size()
		},
		finishCallback(onFinished), nil)
}

// AnimateRotation turns an image to end degrees over duration.
func (e *Entity) AnimateRotation(duration time.Duration, end int, fn ease.TweenFunc, onFinished func()) *Animation {
	return e.AddAnimation("rotation", duration,
		func(progress float64, a *Animation) {
			origin := a.State["origin"].(int)
			e.SetProperty("rotation", origin+int(float64(end-origin)*eased(fn, progress)))
		},
		func(a *Animation) {
			a.State["origin"] = e.IntProperty("rotation")
		},
		finishCallback(onFinished), nil)
}

// AnimateColor blends a color property (fillColor, penColor, textColor) to
// end over duration in Lab space. Unparseable colors leave the property alone.
func (e *Entity) AnimateColor(key string, duration time.Duration, end string, fn ease.TweenFunc, onFinished func()) *Animation {
	target, ok := ParseColor(end)
	if !ok {
		return nil
	}
	return e.AddAnimation(key, duration,
		func(progress float64, a *Animation) {
			origin, ok := ParseColor(a.State["origin"].(string))
			if !ok {
				return
			}
			e.SetProperty(key, origin.BlendLab(target, eased(fn, progress)).Clamped().Hex())
		},
		func(a *Animation) {
			a.State["origin"] = e.StringProperty(key)
		},
		finishCallback(onFinished), nil)
}

func finishCallback(fn func()) AnimationFunc {
	if fn == nil {
		return nil
	}
	return func(*Animation) { fn() }
}
