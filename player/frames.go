package player

import (
	"image/color"

	"github.com/phanxgames/cardstack"
)

// frame is one flat rectangle to paint, in card coordinates.
type frame struct {
	rect   cardstack.Rect
	fill   color.RGBA
	stroke color.RGBA
	pen    float64
	label  string
}

// appendFrames appends the frames for card and its visible descendants in
// paint order (back to front).
func appendFrames(dst []frame, card *cardstack.Entity) []frame {
	dst = append(dst, frame{
		rect: card.AbsoluteFrame(),
		fill: propColor(card, "fillColor", color.RGBA{255, 255, 255, 255}),
	})
	card.Walk(func(e *cardstack.Entity) bool {
		if e == card {
			return true
		}
		if e.BoolProperty("hidden") {
			return false
		}
		if e.Kind() == cardstack.KindGroup {
			return true
		}
		dst = append(dst, viewFrame(e))
		return true
	})
	return dst
}

func viewFrame(e *cardstack.Entity) frame {
	f := frame{rect: e.AbsoluteFrame()}
	switch e.Kind() {
	case cardstack.KindButton:
		f.fill = color.RGBA{230, 230, 230, 255}
		f.stroke = color.RGBA{0, 0, 0, 255}
		f.pen = 1
		f.label = e.StringProperty("title")
	case cardstack.KindField, cardstack.KindLabel:
		f.stroke = propColor(e, "textColor", color.RGBA{0, 0, 0, 255})
		if e.Kind() == cardstack.KindField {
			f.fill = color.RGBA{255, 255, 255, 255}
			f.pen = 1
		}
		f.label = e.StringProperty("text")
	case cardstack.KindImage:
		f.stroke = color.RGBA{128, 128, 128, 255}
		f.pen = 1
		f.label = e.StringProperty("file")
	default:
		if e.Kind().IsShape() {
			f.fill = propColor(e, "fillColor", color.RGBA{})
			f.stroke = propColor(e, "penColor", color.RGBA{0, 0, 0, 255})
			f.pen = float64(e.IntProperty("penThickness"))
		} else {
			f.stroke = color.RGBA{128, 128, 128, 255}
			f.pen = 1
		}
	}
	return f
}

// propColor resolves a color property, falling back to def for unset or
// unparseable values.
func propColor(e *cardstack.Entity, key string, def color.RGBA) color.RGBA {
	s := e.StringProperty(key)
	if s == "" {
		return def
	}
	c, ok := cardstack.ParseColor(s)
	if !ok {
		return def
	}
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{r, g, b, 255}
}
