package cardstack

import "math"

// Point is a 2D coordinate or vector. Positions, speeds and centers all use it.
// The coordinate system has its origin at the top-left of the card.
type Point struct {
	X, Y float64
}

// Add returns p + o.
func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y} }

// Sub returns p - o.
func (p Point) Sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y} }

// Scale returns p multiplied by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Size is a width/height pair.
type Size struct {
	Width, Height float64
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Union returns the smallest rectangle containing both r and other.
func (r Rect) Union(other Rect) Rect {
	x0 := math.Min(r.X, other.X)
	y0 := math.Min(r.Y, other.Y)
	x1 := math.Max(r.X+r.Width, other.X+other.Width)
	y1 := math.Max(r.Y+r.Height, other.Y+other.Height)
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

// Kind distinguishes the behavior and property set of an Entity.
type Kind uint8

const (
	KindStack     Kind = iota // document root, owns the cards
	KindCard                  // one page of the stack
	KindGroup                 // container of views, never of cards
	KindButton                // clickable button
	KindField                 // editable text field
	KindLabel                 // static text
	KindImage                 // image file view
	KindPen                   // freehand shape
	KindLine                  // straight line shape
	KindRect                  // rectangle shape
	KindOval                  // ellipse shape
	KindPoly                  // polygon shape
	KindRoundRect             // rounded rectangle shape
)

var kindNames = [...]string{
	KindStack:     "stack",
	KindCard:      "card",
	KindGroup:     "group",
	KindButton:    "button",
	KindField:     "field",
	KindLabel:     "label",
	KindImage:     "image",
	KindPen:       "pen",
	KindLine:      "line",
	KindRect:      "rect",
	KindOval:      "oval",
	KindPoly:      "poly",
	KindRoundRect: "roundrect",
}

// String returns the serialized type name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind returns the Kind for a serialized type name. The legacy names
// "textfield" and "textlabel" are accepted.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "textfield":
		return KindField, true
	case "textlabel":
		return KindLabel, true
	}
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsShape reports whether the kind is one of the drawn shape variants.
func (k Kind) IsShape() bool {
	return k >= KindPen && k <= KindRoundRect
}

// IsView reports whether the kind lives on a card (anything but stack and card).
func (k Kind) IsView() bool {
	return k != KindStack && k != KindCard
}

// PropType is the declared value type of a property key.
type PropType uint8

const (
	PropString     PropType = iota // string
	PropInt                        // int
	PropFloat                      // float64
	PropBool                       // bool
	PropPoint                      // Point with integral components
	PropFloatPoint                 // Point
	PropSize                       // Size
	PropChoice                     // string restricted to an option list
	PropColor                      // CSS color name or hex string
	PropDict                       // map[string]any
	PropFile                       // path string
)

var propTypeNames = [...]string{
	"string", "int", "float", "bool", "point", "floatpoint", "size", "choice", "color", "dict", "file",
}

func (t PropType) String() string {
	if int(t) < len(propTypeNames) {
		return propTypeNames[t]
	}
	return "unknown"
}

// EventType identifies a kind of change Event.
type EventType uint8

const (
	EventPropertyChanged EventType = iota // a property value changed (or was rejected)
	EventHandlerChanged                   // a handler body changed
	EventChildAdded                       // Entity was attached under Parent
	EventChildRemoved                     // Entity was detached from Parent
	EventChildMoved                       // Entity changed index under Parent
	EventCardChanged                      // the stack's current card changed
	EventSelectionChanged                 // the editing selection changed
)

var eventTypeNames = [...]string{
	"propertyChanged", "handlerChanged", "childAdded", "childRemoved", "childMoved", "cardChanged", "selectionChanged",
}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "unknown"
}
