package cardstack

import (
	"maps"
	"math"
	"reflect"
	"regexp"
	"slices"
)

var (
	nonWordChars = regexp.MustCompile(`\W+`)
	validName    = regexp.MustCompile(`^[A-Za-z][A-Za-z_0-9]*$`)
)

// IsValidName reports whether s matches the identifier syntax required of
// entity names.
func IsValidName(s string) bool {
	return validName.MatchString(s)
}

// SetProperty validates and stores a property value and notifies listeners
// when it changed. See SetPropertyQuiet for the rules.
func (e *Entity) SetProperty(key string, value any) {
	e.setProperty(key, value, true)
}

// SetPropertyQuiet stores a property value without emitting a change event.
//
// The value is coerced to the key's declared type. Values that cannot be
// coerced, unknown keys, names failing identifier syntax and choices outside
// the option list are ignored and the prior value is kept. Sizes are clamped
// to the kind's minimum. Writing "center" moves the entity. Writes to a torn
// down entity are ignored.
func (e *Entity) SetPropertyQuiet(key string, value any) {
	e.setProperty(key, value, false)
}

func (e *Entity) setProperty(key string, value any, notify bool) {
	if e.IsTornDown() {
		return
	}
	s := schemas[e.kind]
	typ, ok := s.types[key]
	if !ok {
		return
	}

	switch key {
	case "center":
		p, ok := coercePoint(value)
		if !ok {
			return
		}
		size := e.Size()
		e.setAbsolutePosition(Point{p.X - size.Width/2, p.Y - size.Height/2}, notify)
		return
	case "name":
		str, ok := value.(string)
		if !ok {
			return
		}
		str = nonWordChars.ReplaceAllString(str, "")
		if !validName.MatchString(str) {
			// Observers re-read the retained name.
			if notify {
				e.emit(Event{Type: EventPropertyChanged, Entity: e, Key: key})
			}
			return
		}
		value = str
	}

	v, ok := coerceValue(typ, value, s.choices[key])
	if !ok {
		return
	}
	switch {
	case key == "size":
		v = clampSize(v.(Size), s.minSize)
	case key == "rotation" && e.kind == KindImage:
		r := v.(int) % 360
		if r < 0 {
			r += 360
		}
		v = r
	}

	if reflect.DeepEqual(e.properties[key], v) {
		return
	}
	e.properties[key] = v
	e.dirty = true
	if notify {
		e.emit(Event{Type: EventPropertyChanged, Entity: e, Key: key})
	}
}

// GetProperty returns a property value, or nil for unknown keys. The derived
// "center" key is computed from the absolute position and size.
func (e *Entity) GetProperty(key string) any {
	if key == "center" {
		if _, ok := schemas[e.kind].types["center"]; !ok {
			return nil
		}
		return e.Center()
	}
	return e.properties[key]
}

// Properties returns a copy of the stored property map.
func (e *Entity) Properties() map[string]any {
	return maps.Clone(e.properties)
}

// StringProperty returns a string-like property, or "".
func (e *Entity) StringProperty(key string) string {
	s, _ := e.properties[key].(string)
	return s
}

// IntProperty returns an int property, or 0.
func (e *Entity) IntProperty(key string) int {
	i, _ := e.properties[key].(int)
	return i
}

// BoolProperty returns a bool property, or false.
func (e *Entity) BoolProperty(key string) bool {
	b, _ := e.properties[key].(bool)
	return b
}

// Position returns the parent-relative position.
func (e *Entity) Position() Point {
	p, _ := e.properties["position"].(Point)
	return p
}

// Size returns the size property.
func (e *Entity) Size() Size {
	s, _ := e.properties["size"].(Size)
	return s
}

// Speed returns the speed property in points per second.
func (e *Entity) Speed() Point {
	p, _ := e.properties["speed"].(Point)
	return p
}

// AbsolutePosition returns the position relative to the enclosing card by
// summing ancestor positions up to, but excluding, the nearest card.
func (e *Entity) AbsolutePosition() Point {
	pos := e.Position()
	for p := e.parent; p != nil && p.kind != KindCard; p = p.parent {
		pos = pos.Add(p.Position())
	}
	return pos
}

// SetAbsolutePosition stores pos, given relative to the enclosing card, as
// the parent-relative position.
func (e *Entity) SetAbsolutePosition(pos Point) {
	e.setAbsolutePosition(pos, true)
}

func (e *Entity) setAbsolutePosition(pos Point, notify bool) {
	for p := e.parent; p != nil && p.kind != KindCard; p = p.parent {
		pos = pos.Sub(p.Position())
	}
	e.setProperty("position", pos, notify)
}

// Center returns the center of the entity in card coordinates.
func (e *Entity) Center() Point {
	p := e.AbsolutePosition()
	s := e.Size()
	return Point{p.X + s.Width/2, p.Y + s.Height/2}
}

// SetCenter moves the entity so its center lands on c (card coordinates).
func (e *Entity) SetCenter(c Point) {
	e.SetProperty("center", c)
}

// Frame returns the parent-relative frame.
func (e *Entity) Frame() Rect {
	p, s := e.Position(), e.Size()
	return Rect{p.X, p.Y, s.Width, s.Height}
}

// AbsoluteFrame returns the frame in card coordinates.
func (e *Entity) AbsoluteFrame() Rect {
	p, s := e.AbsolutePosition(), e.Size()
	return Rect{p.X, p.Y, s.Width, s.Height}
}

// PerformFlips toggles xFlipped and/or yFlipped on images and shapes.
func (e *Entity) PerformFlips(fx, fy bool) {
	if _, ok := schemas[e.kind].types["xFlipped"]; !ok {
		return
	}
	if fx {
		e.SetProperty("xFlipped", !e.BoolProperty("xFlipped"))
	}
	if fy {
		e.SetProperty("yFlipped", !e.BoolProperty("yFlipped"))
	}
}

// --- Handlers ---

// Handler returns the body of the named handler and whether the entity has it.
func (e *Entity) Handler(name string) (string, bool) {
	body, ok := e.handlers[name]
	return body, ok
}

// SetHandler stores a handler body. The body is opaque; it is never parsed here.
func (e *Entity) SetHandler(name, body string) {
	if old, ok := e.handlers[name]; ok && old == body {
		return
	}
	e.handlers[name] = body
	e.dirty = true
	e.emit(Event{Type: EventHandlerChanged, Entity: e, Key: name})
}

// Handlers returns a copy of the handler map.
func (e *Entity) Handlers() map[string]string {
	return maps.Clone(e.handlers)
}

// HandlerKeys returns the handler names in sorted order.
func (e *Entity) HandlerKeys() []string {
	return slices.Sorted(maps.Keys(e.handlers))
}

// --- Coercion ---

func coerceValue(typ PropType, v any, choices []string) (any, bool) {
	switch typ {
	case PropString, PropFile:
		s, ok := v.(string)
		return s, ok
	case PropChoice:
		s, ok := v.(string)
		if !ok || !slices.Contains(choices, s) {
			return nil, false
		}
		return s, true
	case PropInt:
		f, ok := toFloat(v)
		if !ok {
			return nil, false
		}
		return int(f), true
	case PropFloat:
		f, ok := toFloat(v)
		return f, ok
	case PropBool:
		b, ok := v.(bool)
		return b, ok
	case PropPoint:
		p, ok := coercePoint(v)
		return Point{math.Round(p.X), math.Round(p.Y)}, ok
	case PropFloatPoint:
		p, ok := coercePoint(v)
		return p, ok
	case PropSize:
		if s, ok := v.(Size); ok {
			return s, true
		}
		p, ok := coercePoint(v)
		return Size{p.X, p.Y}, ok
	case PropColor:
		return coerceColor(v)
	case PropDict:
		d, ok := v.(map[string]any)
		if ok && d == nil {
			d = map[string]any{}
		}
		return d, ok
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func coercePoint(v any) (Point, bool) {
	switch p := v.(type) {
	case Point:
		return p, true
	case Size:
		return Point{p.Width, p.Height}, true
	case [2]float64:
		return Point{p[0], p[1]}, true
	case [2]int:
		return Point{float64(p[0]), float64(p[1])}, true
	case []float64:
		if len(p) == 2 {
			return Point{p[0], p[1]}, true
		}
	case []int:
		if len(p) == 2 {
			return Point{float64(p[0]), float64(p[1])}, true
		}
	case []any:
		if len(p) == 2 {
			x, okx := toFloat(p[0])
			y, oky := toFloat(p[1])
			if okx && oky {
				return Point{x, y}, true
			}
		}
	}
	return Point{}, false
}
