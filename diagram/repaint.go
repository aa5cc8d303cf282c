package diagram

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PrintBackgroundClass marks the background rectangle injected for print.
const PrintBackgroundClass = "print-background"

// paperColor is white spelled in a form the rules never match, so the
// injected rectangle and the print surfaces survive repeated print
// repaints untouched.
const paperColor = "rgb(255, 255, 255)"

const inkColor = "#000000"

const whiteToken = `(#fff(?:fff)?|white)`

type ruleScope int

const (
	// scopeMarkup rules run over the whole serialized markup.
	scopeMarkup ruleScope = iota
	// scopeStyleAttr rules run over the value of each style="..." attribute.
	scopeStyleAttr
)

type repaintRule struct {
	name    string
	scope   ruleScope
	pattern *regexp.Regexp
	// template keeps the captured context around the replaced color.
	template func(color string) string
	// remap rewrites a whole match from its submatches, for rules whose
	// replacement depends on the matched property and color.
	remap  func(groups []string) string
	colors map[Palette]string
}

// fillColors paint white surfaces.
var fillColors = map[Palette]string{
	ScreenLight: styles[Light].Background,
	ScreenDark:  styles[Dark].Background,
	PrintSafe:   inkColor,
}

// textColors paint white inline text.
var textColors = map[Palette]string{
	ScreenLight: styles[Light].Text,
	ScreenDark:  styles[Dark].Text,
	PrintSafe:   inkColor,
}

var repaintRules = []repaintRule{
	{
		name:     "fill-attribute",
		scope:    scopeMarkup,
		pattern:  regexp.MustCompile(`(?i)(\sfill\s*=\s*)(["'])\s*` + whiteToken + `\s*(["'])`),
		template: func(color string) string { return "${1}${2}" + color + "${4}" },
		colors:   fillColors,
	},
	{
		name:     "fill-declaration",
		scope:    scopeStyleAttr,
		pattern:  regexp.MustCompile(`(?i)(^|[;\s])(fill\s*:\s*)` + whiteToken + `\b`),
		template: func(color string) string { return "${1}${2}" + color },
		colors:   fillColors,
	},
	{
		name:     "color-declaration",
		scope:    scopeStyleAttr,
		pattern:  regexp.MustCompile(`(?i)(^|[;\s])(color\s*:\s*)` + whiteToken + `\b`),
		template: func(color string) string { return "${1}${2}" + color },
		colors:   textColors,
	},
	{
		// Dark theme colors reach the markup through engine attributes,
		// inline styles and theme stylesheets alike.
		name:    "dark-theme-colors",
		scope:   scopeMarkup,
		pattern: darkColorPattern(),
		remap:   printDarkColor,
		colors:  map[Palette]string{PrintSafe: inkColor},
	},
}

// darkSurfaces are the dark theme colors drawn as areas.
var darkSurfaces = map[string]bool{
	strings.ToLower(styles[Dark].NodeFill):        true,
	strings.ToLower(styles[Dark].LabelBackground): true,
	strings.ToLower(styles[Dark].ClusterFill):     true,
	strings.ToLower(styles[Dark].Background):      true,
}

func darkColorPattern() *regexp.Regexp {
	s := styles[Dark]
	seen := map[string]bool{}
	var colors []string
	for _, c := range []string{s.Text, s.NodeFill, s.NodeStroke, s.EdgeStroke, s.LabelBackground, s.ClusterFill, s.ClusterStroke, s.Background} {
		c = strings.ToLower(c)
		if seen[c] {
			continue
		}
		seen[c] = true
		colors = append(colors, regexp.QuoteMeta(c))
	}
	return regexp.MustCompile(`(?i)(\b(?:fill|stroke|stop-color|background-color|background|color)\s*(?:=\s*["']\s*|:\s*))(` +
		strings.Join(colors, "|") + `)\b`)
}

// printDarkColor turns dark surfaces into paper and everything else the
// dark theme draws into ink.
func printDarkColor(groups []string) string {
	prop := strings.ToLower(groups[1])
	color := strings.ToLower(groups[2])
	surfaceProp := strings.HasPrefix(prop, "fill") || strings.HasPrefix(prop, "background")
	if surfaceProp && darkSurfaces[color] {
		return groups[1] + paperColor
	}
	return groups[1] + inkColor
}

var (
	styleAttrPattern       = regexp.MustCompile(`(?i)(\sstyle\s*=\s*)(?:"([^"]*)"|'([^']*)')`)
	printBackgroundPattern = regexp.MustCompile(`<rect\b[^>]*\bclass="` + PrintBackgroundClass + `"[^>]*?(?:/>|>\s*</rect>)`)
	svgOpenPattern         = regexp.MustCompile(`(?i)<svg\b[^>]*>`)
	viewBoxPattern         = regexp.MustCompile(`(?i)\bviewBox\s*=\s*["']([^"']+)["']`)
)

// Repaint rewrites white fills and colors in SVG markup for palette p.
// Screen palettes map white fills to the theme background and white text
// to the theme text color. PrintSafe maps white to black, turns dark
// theme surfaces into white and dark theme strokes and text into black,
// and places a white, black-outlined background rectangle as the first
// child of the root svg element. Repaint is idempotent.
func Repaint(markup string, p Palette) string {
	if markup == "" {
		return markup
	}
	if _, ok := fillColors[p]; !ok {
		return markup
	}

	out := markup
	for _, rule := range repaintRules {
		color, ok := rule.colors[p]
		if !ok {
			continue
		}
		replace := func(s string) string {
			if rule.remap != nil {
				return rule.pattern.ReplaceAllStringFunc(s, func(m string) string {
					return rule.remap(rule.pattern.FindStringSubmatch(m))
				})
			}
			return rule.pattern.ReplaceAllString(s, rule.template(color))
		}
		switch rule.scope {
		case scopeMarkup:
			out = replace(out)
		case scopeStyleAttr:
			out = rewriteStyleAttrs(out, replace)
		}
	}

	if p == PrintSafe {
		out = injectPrintBackground(out)
	}
	return out
}

// rewriteStyleAttrs applies fn to the value of every style attribute.
func rewriteStyleAttrs(markup string, fn func(string) string) string {
	return styleAttrPattern.ReplaceAllStringFunc(markup, func(attr string) string {
		m := styleAttrPattern.FindStringSubmatch(attr)
		if m == nil {
			return attr
		}
		if strings.HasSuffix(attr, `"`) {
			return m[1] + `"` + fn(m[2]) + `"`
		}
		return m[1] + "'" + fn(m[3]) + "'"
	})
}

func injectPrintBackground(markup string) string {
	markup = printBackgroundPattern.ReplaceAllString(markup, "")
	loc := svgOpenPattern.FindStringIndex(markup)
	if loc == nil {
		return markup
	}
	rect := printBackgroundRect(markup[loc[0]:loc[1]])
	return markup[:loc[1]] + rect + markup[loc[1]:]
}

func printBackgroundRect(svgOpen string) string {
	x, y, w, h := "0", "0", "100%", "100%"
	if m := viewBoxPattern.FindStringSubmatch(svgOpen); m != nil {
		fields := strings.FieldsFunc(m[1], func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
		if len(fields) == 4 && allNumbers(fields) {
			x, y, w, h = fields[0], fields[1], fields[2], fields[3]
		}
	}
	return fmt.Sprintf(`<rect class="%s" x="%s" y="%s" width="%s" height="%s" fill="%s" stroke="#000000" stroke-width="1"/>`,
		PrintBackgroundClass, x, y, w, h, paperColor)
}

func allNumbers(values []string) bool {
	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}
