package cardstack

import (
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// namedColors lists the CSS color names accepted by color properties.
var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"lime":    "#00ff00",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"gray":    "#808080",
	"grey":    "#808080",
	"silver":  "#c0c0c0",
	"pink":    "#ffc0cb",
	"brown":   "#a52a2a",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"navy":    "#000080",
	"teal":    "#008080",
	"maroon":  "#800000",
	"olive":   "#808000",
}

// coerceColor normalizes a color property value. Known names are kept as
// lowercase names, hex strings become canonical "#rrggbb" and color.Color
// values are converted to hex. The second result is false for anything else.
func coerceColor(v any) (string, bool) {
	switch c := v.(type) {
	case string:
		s := strings.ToLower(strings.TrimSpace(c))
		if _, ok := namedColors[s]; ok {
			return s, true
		}
		if !strings.HasPrefix(s, "#") {
			return "", false
		}
		parsed, err := colorful.Hex(s)
		if err != nil {
			return "", false
		}
		return parsed.Hex(), true
	case color.Color:
		parsed, ok := colorful.MakeColor(c)
		if !ok {
			return "", false
		}
		return parsed.Hex(), true
	}
	return "", false
}

// ParseColor resolves a stored color property value to a colorful.Color.
// Renderers use it to turn "fillColor" and friends into pixels.
func ParseColor(s string) (colorful.Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}
