package exportpdf

import (
	"strings"

	exporttemplate "github.com/goliatone/go-workflow-export/adapters/template"
	"github.com/goliatone/go-workflow-export/export"
)

const pageTemplate = "print-page"

const printPage = `<!DOCTYPE html>
<html lang="{{ lang }}" dir="{{ dir }}">
<head>
<meta charset="utf-8">
<title>{{ title }}</title>
<style>
@page { size: {{ page_size }}{% if landscape %} landscape{% endif %}; margin: {{ margin_top }} {{ margin_right }} {{ margin_bottom }} {{ margin_left }}; }
html, body { margin: 0; padding: 0; background: {{ background }}; }
body { font-family: Arial, Helvetica, sans-serif; -webkit-print-color-adjust: exact; print-color-adjust: exact; }
svg { max-width: 100%; height: auto; }
{% if avoid_all %}body * { break-inside: avoid; page-break-inside: avoid; }
{% endif %}{% if css_breaks %}.page-break-before { break-before: page; page-break-before: always; }
.page-break-after { break-after: page; page-break-after: always; }
.page-break-avoid { break-inside: avoid; page-break-inside: avoid; }
{% endif %}{% if legacy_breaks %}.page-break { display: block; height: 0; break-after: page; page-break-after: always; }
{% endif %}</style>
</head>
<body>{{ content|safe }}</body>
</html>
`

var pages = exporttemplate.NewExecutor("pdf").MustRegister(map[string]string{pageTemplate: printPage})

type pageData struct {
	Title    string
	Lang     string
	Dir      string
	Content  string
	Geometry export.Geometry
}

func (d pageData) context() map[string]any {
	g := d.Geometry
	background := g.Background
	if background == "" {
		background = "transparent"
	}
	lang := d.Lang
	if lang == "" {
		lang = "en"
	}
	dir := d.Dir
	if dir == "" {
		dir = "ltr"
	}
	return map[string]any{
		"title":         d.Title,
		"lang":          lang,
		"dir":           dir,
		"content":       d.Content,
		"page_size":     strings.ToLower(g.PageSize),
		"landscape":     g.Landscape,
		"margin_top":    g.MarginTop,
		"margin_right":  g.MarginRight,
		"margin_bottom": g.MarginBottom,
		"margin_left":   g.MarginLeft,
		"background":    background,
		"avoid_all":     g.HasPageBreak(export.PageBreakAvoidAll),
		"css_breaks":    g.HasPageBreak(export.PageBreakCSS),
		"legacy_breaks": g.HasPageBreak(export.PageBreakLegacy),
	}
}
