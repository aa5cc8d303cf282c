package diagram

import (
	"fmt"
	"strings"
)

// Theme is the display mode a diagram is rendered for.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark"; empty means light.
func ParseTheme(value string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(value))) {
	case "", Light:
		return Light, nil
	case Dark:
		return Dark, nil
	default:
		return "", fmt.Errorf("unknown theme %q", value)
	}
}

// Style is the color table of a theme. Engines draw with it and the
// repainter maps stray whites onto Background.
type Style struct {
	Text            string
	NodeFill        string
	NodeStroke      string
	EdgeStroke      string
	LabelBackground string
	ClusterFill     string
	ClusterStroke   string
	Background      string
}

var styles = map[Theme]Style{
	Light: {
		Text:            "#000000",
		NodeFill:        "#ffffff",
		NodeStroke:      "#000000",
		EdgeStroke:      "#000000",
		LabelBackground: "#ffffff",
		ClusterFill:     "#ffffff",
		ClusterStroke:   "#000000",
		Background:      "#ffffff",
	},
	Dark: {
		Text:            "#f3f4f6",
		NodeFill:        "#374151",
		NodeStroke:      "#9ca3af",
		EdgeStroke:      "#9ca3af",
		LabelBackground: "#374151",
		ClusterFill:     "#1f2937",
		ClusterStroke:   "#9ca3af",
		Background:      "#374151",
	},
}

// Style returns the color table of t. Unknown themes use Light.
func (t Theme) Style() Style {
	if s, ok := styles[t]; ok {
		return s
	}
	return styles[Light]
}

// Palette is the screen palette matching t.
func (t Theme) Palette() Palette {
	if t == Dark {
		return ScreenDark
	}
	return ScreenLight
}

// Palette names a color scheme applied to rendered markup.
type Palette string

const (
	ScreenLight Palette = "screen-light"
	ScreenDark  Palette = "screen-dark"
	// PrintSafe forces black on white regardless of theme.
	PrintSafe Palette = "print-safe"
)

// ParsePalette validates a palette name.
func ParsePalette(value string) (Palette, error) {
	switch p := Palette(strings.ToLower(strings.TrimSpace(value))); p {
	case ScreenLight, ScreenDark, PrintSafe:
		return p, nil
	default:
		return "", fmt.Errorf("unknown palette %q", value)
	}
}
