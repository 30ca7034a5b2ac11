package cardstack

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
)

// ErrUnknownKind is returned by FromData for an unrecognized type name.
var ErrUnknownKind = errors.New("cardstack: unknown entity type")

// EntityData is the serializable form of an entity subtree. Points and sizes
// are two-element lists; handlers with blank bodies, transient properties
// (hidden, speed) and an empty data dict are omitted.
type EntityData struct {
	Type       string            `json:"type" yaml:"type"`
	Handlers   map[string]string `json:"handlers,omitempty" yaml:"handlers,omitempty"`
	Properties map[string]any    `json:"properties" yaml:"properties"`
	Children   []EntityData      `json:"children,omitempty" yaml:"children,omitempty"`
}

// Data returns the serializable form of e and its descendants.
func (e *Entity) Data() EntityData {
	d := EntityData{
		Type:       e.kind.String(),
		Properties: make(map[string]any, len(e.properties)),
	}
	for k, body := range e.handlers {
		if isBlank(body) {
			continue
		}
		if d.Handlers == nil {
			d.Handlers = map[string]string{}
		}
		d.Handlers[k] = body
	}
	types := schemas[e.kind].types
	for k, v := range e.properties {
		if k == "hidden" || k == "speed" {
			continue
		}
		switch types[k] {
		case PropPoint, PropFloatPoint:
			p := v.(Point)
			d.Properties[k] = []float64{p.X, p.Y}
		case PropSize:
			s := v.(Size)
			d.Properties[k] = []float64{s.Width, s.Height}
		case PropDict:
			m := sanitizeDict(v.(map[string]any), map[uintptr]bool{})
			if len(m) > 0 {
				d.Properties[k] = m
			}
		default:
			d.Properties[k] = v
		}
	}
	for _, c := range e.children {
		d.Children = append(d.Children, c.Data())
	}
	return d
}

// FromData builds a detached entity subtree. Unknown property keys and values
// that fail validation are ignored, as with SetProperty. The result is clean.
func FromData(d EntityData) (*Entity, error) {
	kind, ok := ParseKind(d.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, d.Type)
	}
	e := NewEntity(kind)
	maps.Copy(e.handlers, d.Handlers)
	for k, v := range d.Properties {
		e.SetPropertyQuiet(k, v)
	}
	for _, cd := range d.Children {
		c, err := FromData(cd)
		if err != nil {
			return nil, err
		}
		if !canContain(kind, c.kind) {
			return nil, fmt.Errorf("cardstack: a %s cannot contain a %s", kind, c.kind)
		}
		e.AddChild(c)
	}
	e.SetDirty(false)
	return e, nil
}

// Copy returns a detached deep copy of e with fresh IDs. Transient properties
// are carried over too.
func (e *Entity) Copy() *Entity {
	c, err := FromData(e.Data())
	if err != nil {
		// Data always produces a known kind and legal nesting.
		panic(err)
	}
	c.SetPropertyQuiet("speed", e.Speed())
	c.SetPropertyQuiet("hidden", e.BoolProperty("hidden"))
	return c
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
		default:
			return false
		}
	}
	return true
}

// sanitizeDict keeps only values that serialize to JSON and YAML: scalars,
// lists, string-keyed maps, points and sizes. Other values are stringified;
// cycles are dropped.
func sanitizeDict(in map[string]any, seen map[uintptr]bool) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	ptr := reflect.ValueOf(in).Pointer()
	seen[ptr] = true
	defer delete(seen, ptr)
	out := make(map[string]any, len(in))
	for k, v := range in {
		if sv, ok := sanitizeValue(v, seen); ok {
			out[k] = sv
		}
	}
	return out
}

func sanitizeValue(v any, seen map[uintptr]bool) (any, bool) {
	switch x := v.(type) {
	case nil, bool, string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return x, true
	case Point:
		return []any{x.X, x.Y}, true
	case Size:
		return []any{x.Width, x.Height}, true
	case map[string]any:
		if seen[reflect.ValueOf(x).Pointer()] {
			return nil, false
		}
		return sanitizeDict(x, seen), true
	case []any:
		out := make([]any, 0, len(x))
		for _, item := range x {
			if sv, ok := sanitizeValue(item, seen); ok {
				out = append(out, sv)
			}
		}
		return out, true
	}
	return fmt.Sprint(v), true
}
