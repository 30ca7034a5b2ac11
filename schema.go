package cardstack

import "maps"

// schema is the immutable property and handler table for one Kind. All
// schemas are built once at package init and never mutated afterwards, so
// they are shared freely between goroutines.
type schema struct {
	types    map[string]PropType
	defaults map[string]any
	choices  map[string][]string
	keys     []string // inspector order
	handlers []string
	minSize  Size
	baseName string
}

var schemas [len(kindNames)]*schema

var (
	alignmentChoices = []string{"Left", "Center", "Right"}
	fontChoices      = []string{"Default", "Serif", "Sans-Serif", "Mono"}
	fitChoices       = []string{"Center", "Stretch", "Contain", "Fill"}
	buttonStyles     = []string{"Border", "Borderless", "Checkbox", "Radio"}
)

var baseHandlers = []string{
	"OnSetup", "OnMouseEnter", "OnMouseDown", "OnMouseMove",
	"OnMouseUp", "OnMouseExit", "OnMessage", "OnPeriodic",
}

func init() {
	for k := range kindNames {
		schemas[k] = buildSchema(Kind(k))
	}
}

func newBaseSchema(k Kind) *schema {
	s := &schema{
		types: map[string]PropType{
			"name":   PropString,
			"size":   PropSize,
			"hidden": PropBool,
			"data":   PropDict,
		},
		defaults: map[string]any{
			"name":   k.String() + "_1",
			"size":   Size{},
			"hidden": false,
			"data":   map[string]any{},
		},
		choices:  map[string][]string{},
		keys:     []string{"name"},
		handlers: append([]string(nil), baseHandlers...),
		minSize:  Size{20, 20},
		baseName: k.String(),
	}
	if k.IsView() {
		s.types["position"] = PropFloatPoint
		s.types["speed"] = PropFloatPoint
		s.types["center"] = PropFloatPoint
		s.defaults["position"] = Point{}
		s.defaults["speed"] = Point{}
		s.keys = append(s.keys, "position", "size")
	}
	return s
}

func (s *schema) add(key string, typ PropType, def any) {
	s.types[key] = typ
	s.defaults[key] = def
}

func (s *schema) addChoice(key string, def string, options []string) {
	s.add(key, PropChoice, def)
	s.choices[key] = options
}

func buildSchema(k Kind) *schema {
	s := newBaseSchema(k)
	switch k {
	case KindStack:
		s.add("canSave", PropBool, false)
		s.add("canResize", PropBool, false)
		s.defaults["name"] = "stack"
		s.defaults["size"] = Size{500, 500}
		s.keys = []string{"size", "canSave", "canResize"}
		s.handlers = nil
	case KindCard:
		s.add("fillColor", PropColor, "white")
		s.defaults["size"] = Size{500, 500}
		s.keys = append(s.keys, "fillColor")
		s.handlers = append(s.handlers, "OnShowCard", "OnHideCard", "OnKeyDown", "OnKeyUp", "OnResize")
	case KindGroup:
		s.defaults["size"] = Size{20, 20}
	case KindButton:
		s.add("title", PropString, "Button")
		s.addChoice("style", "Border", buttonStyles)
		s.defaults["size"] = Size{100, 24}
		s.keys = []string{"name", "title", "style", "position", "size"}
		s.handlers = append(s.handlers, "OnClick")
	case KindField, KindLabel:
		s.add("text", PropString, "Text")
		s.addChoice("alignment", "Left", alignmentChoices)
		s.addChoice("font", "Default", fontChoices)
		s.add("fontSize", PropInt, 18)
		s.add("textColor", PropColor, "black")
		s.keys = []string{"name", "text", "alignment", "font", "fontSize", "textColor"}
		if k == KindField {
			s.add("editable", PropBool, true)
			s.add("multiline", PropBool, false)
			s.keys = append(s.keys, "editable", "multiline")
			s.handlers = append(s.handlers, "OnTextChanged", "OnTextEnter")
			s.defaults["size"] = Size{100, 24}
		} else {
			s.add("autoShrink", PropBool, true)
			s.keys = append(s.keys, "autoShrink")
			s.defaults["size"] = Size{100, 24}
		}
		s.keys = append(s.keys, "position", "size")
	case KindImage:
		s.add("file", PropFile, "")
		s.addChoice("fit", "Contain", fitChoices)
		s.add("rotation", PropInt, 0)
		s.add("xFlipped", PropBool, false)
		s.add("yFlipped", PropBool, false)
		s.minSize = Size{2, 2}
		s.defaults["size"] = Size{80, 80}
		s.keys = []string{"name", "file", "fit", "rotation", "position", "size"}
	default:
		// shapes
		s.add("penColor", PropColor, "black")
		s.add("penThickness", PropInt, 2)
		s.add("xFlipped", PropBool, false)
		s.add("yFlipped", PropBool, false)
		s.keys = append(s.keys, "penColor", "penThickness")
		if k == KindPen || k == KindLine {
			s.minSize = Size{1, 1}
		} else {
			s.add("fillColor", PropColor, "white")
			s.keys = append(s.keys, "fillColor")
		}
		if k == KindRoundRect {
			s.add("cornerRadius", PropInt, 8)
			s.keys = append(s.keys, "cornerRadius")
		}
		s.defaults["size"] = Size{60, 60}
	}
	s.defaults["size"] = clampSize(s.defaults["size"].(Size), s.minSize)
	return s
}

// newProperties returns a fresh property map populated with the schema
// defaults. Dict values are copied so entities never share a map.
func (s *schema) newProperties() map[string]any {
	props := make(map[string]any, len(s.defaults))
	for k, v := range s.defaults {
		if d, ok := v.(map[string]any); ok {
			v = maps.Clone(d)
		}
		props[k] = v
	}
	return props
}

func (s *schema) newHandlers() map[string]string {
	h := make(map[string]string, len(s.handlers))
	for _, name := range s.handlers {
		h[name] = ""
	}
	return h
}

func clampSize(v, min Size) Size {
	if v.Width < min.Width {
		v.Width = min.Width
	}
	if v.Height < min.Height {
		v.Height = min.Height
	}
	return v
}

// PropertyType returns the declared type of key for the given kind.
func PropertyType(k Kind, key string) (PropType, bool) {
	t, ok := schemas[k].types[key]
	return t, ok
}

// PropertyChoices returns the allowed options of a choice property, or nil.
func PropertyChoices(k Kind, key string) []string {
	return schemas[k].choices[key]
}

// PropertyKeys returns the inspector-ordered keys for the kind. The returned
// slice MUST NOT be mutated.
func PropertyKeys(k Kind) []string {
	return schemas[k].keys
}

// HandlerNames returns the handler names every entity of the kind carries.
// The returned slice MUST NOT be mutated.
func HandlerNames(k Kind) []string {
	return schemas[k].handlers
}

// MinSize returns the smallest size an entity of the kind may take.
func MinSize(k Kind) Size {
	return schemas[k].minSize
}
