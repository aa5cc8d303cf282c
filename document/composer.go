package document

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	exporttemplate "github.com/goliatone/go-workflow-export/adapters/template"
	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/dom"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
	"github.com/goliatone/go-workflow-export/strategy"
)

// DefaultMaxDiagramWidth bounds the exported diagram width in CSS pixels.
const DefaultMaxDiagramWidth = 600.0

// RenderStateAttr records the state of the last committed render on the
// diagram container.
const RenderStateAttr = "data-render-state"

// Exporter produces the stored artifact of a composed document.
type Exporter interface {
	ToPDF(ctx context.Context, doc *dom.Element, filename string, geometry export.Geometry) (export.ArtifactRef, error)
}

// Meta describes the document being exported.
type Meta struct {
	StrategyType     string
	Industry         string
	Language         locale.Language
	Created          time.Time
	Geometry         export.Geometry
	FilenameTemplate string
}

// Composer prepares a live document for export and restores it afterwards.
type Composer struct {
	Exporter        Exporter
	Templates       exporttemplate.TemplateExecutor
	Geometry        export.Geometry
	MaxDiagramWidth float64
	RenderTimeout   time.Duration
	// Guard serializes access to the diagram container with display renders.
	Guard  *semaphore.Weighted
	Logger export.Logger
	Now    func() time.Time
}

// NewComposer returns a composer with the default templates and geometry.
func NewComposer(exporter Exporter) *Composer {
	return &Composer{
		Exporter:        exporter,
		Templates:       Templates(),
		Geometry:        export.DefaultGeometry(),
		MaxDiagramWidth: DefaultMaxDiagramWidth,
		RenderTimeout:   dom.DefaultRenderTimeout,
		Logger:          export.NopLogger{},
	}
}

// Export composes doc for print and hands it to the exporter. The header,
// the diagram size and the diagram palette are restored before Export
// returns, whether or not the exporter succeeded.
func (c *Composer) Export(ctx context.Context, doc, container *dom.Element, meta Meta) (export.ArtifactRef, error) {
	if c == nil || c.Exporter == nil {
		return export.ArtifactRef{}, export.NewError(export.KindValidation, "composer requires an exporter", nil)
	}
	if doc == nil || container == nil {
		return export.ArtifactRef{}, export.NewError(export.KindValidation, "composer requires a document and a diagram container", nil)
	}
	lang := meta.Language
	if !lang.Valid() {
		lang = locale.English
	}
	typeName := strategyTypeName(meta.StrategyType, lang)

	header, err := c.header(doc, lang, typeName, meta)
	if err != nil {
		return export.ArtifactRef{}, err
	}
	if err := doc.InsertBefore(header, doc.FirstElementChild()); err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindInternal, "insert export header", err)
	}
	defer header.Remove()

	if state, _ := container.Attr(RenderStateAttr); state != string(diagram.StateFailed) && state != string(diagram.StateEmpty) {
		signal, err := dom.WaitForRender(ctx, container, c.RenderTimeout)
		if err != nil {
			return export.ArtifactRef{}, err
		}
		if signal == dom.SignalTimedOut {
			c.logger().Infof("diagram not rendered within %s, exporting current content", c.renderTimeout())
		}
	}

	if c.Guard != nil {
		if err := c.Guard.Acquire(ctx, 1); err != nil {
			return export.ArtifactRef{}, err
		}
		defer c.Guard.Release(1)
	}

	snapshot := container.InnerHTML()
	defer func() {
		if err := container.SetInnerHTML(snapshot); err != nil {
			c.logger().Errorf("restore diagram container: %v", err)
		}
	}()

	if svg := container.QuerySelector("svg"); svg != nil {
		fitWidth(svg, c.maxDiagramWidth())
	}
	if err := container.SetInnerHTML(diagram.Repaint(container.InnerHTML(), diagram.PrintSafe)); err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindInternal, "repaint diagram for print", err)
	}

	filename, err := export.RenderFilename(meta.FilenameTemplate, export.FilenameData{
		Prefix:   lang.Messages().FilenamePrefix,
		TypeName: typeName,
		Industry: meta.Industry,
	}, c.now())
	if err != nil {
		return export.ArtifactRef{}, err
	}

	geometry := meta.Geometry.Merge(c.Geometry).Merge(export.DefaultGeometry())
	return c.Exporter.ToPDF(ctx, doc, filename, geometry)
}

func (c *Composer) header(doc *dom.Element, lang locale.Language, typeName string, meta Meta) (*dom.Element, error) {
	templates := c.Templates
	if templates == nil {
		templates = Templates()
	}
	created := meta.Created
	if created.IsZero() {
		created = c.now()
	}
	msgs := lang.Messages()
	markup, err := execute(templates, headerTemplate, map[string]any{
		"dir":        lang.Direction(),
		"title":      lang.Title(typeName, meta.Industry),
		"date_label": msgs.CreationDate,
		"date":       lang.FormatDate(created),
	})
	if err != nil {
		return nil, err
	}
	holder, err := doc.Document().ParseFragment(markup, "div")
	if err != nil {
		return nil, export.NewError(export.KindInternal, "parse export header", err)
	}
	header := holder.FirstElementChild()
	if header == nil {
		return nil, export.NewError(export.KindInternal, "export header template produced no element", nil)
	}
	return header, nil
}

func strategyTypeName(id string, lang locale.Language) string {
	if id == "" {
		id = strategy.General
	}
	if t, ok := strategy.Lookup(id); ok {
		return t.DisplayName(lang)
	}
	return id
}

const maxWidthStyle = "max-width"

var (
	lengthPattern = regexp.MustCompile(`^\s*([0-9]*\.?[0-9]+)\s*(px|pt|in|cm|mm)?\s*$`)
	pixelsPerUnit = map[string]float64{"": 1, "px": 1, "pt": 96.0 / 72.0, "in": 96, "cm": 96 / 2.54, "mm": 96 / 25.4}
)

// fitWidth scales svg down so its rendered width is at most limit CSS pixels,
// keeping the aspect ratio. Smaller diagrams are left as they are.
func fitWidth(svg *dom.Element, limit float64) {
	width, height, ok := svgSize(svg)
	if !ok || width <= limit {
		return
	}
	if _, has := svg.Attr("viewBox"); !has {
		w, _ := svg.Attr("width")
		h, _ := svg.Attr("height")
		vw, _ := parseLength(w)
		vh, _ := parseLength(h)
		if vw > 0 && vh > 0 {
			svg.SetAttr("viewBox", fmt.Sprintf("0 0 %s %s", formatFloat(vw/pixelsPerUnit[unitOf(w)]), formatFloat(vh/pixelsPerUnit[unitOf(h)])))
		}
	}
	scaled := height * limit / width
	svg.SetAttr("width", formatFloat(limit))
	svg.SetAttr("height", formatFloat(math.Round(scaled*100)/100))
	if svg.Style(maxWidthStyle) != "" {
		svg.SetStyle(maxWidthStyle, formatFloat(limit)+"px")
	}
}

// svgSize returns the rendered size in CSS pixels from the width and height
// attributes, falling back to the viewBox.
func svgSize(svg *dom.Element) (float64, float64, bool) {
	w, _ := svg.Attr("width")
	h, _ := svg.Attr("height")
	width, okW := parseLength(w)
	height, okH := parseLength(h)
	if okW && okH && width > 0 && height > 0 {
		return width, height, true
	}
	viewBox, _ := svg.Attr("viewBox")
	fields := strings.FieldsFunc(viewBox, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) != 4 {
		return 0, 0, false
	}
	vw, errW := strconv.ParseFloat(fields[2], 64)
	vh, errH := strconv.ParseFloat(fields[3], 64)
	if errW != nil || errH != nil || vw <= 0 || vh <= 0 {
		return 0, 0, false
	}
	return vw, vh, true
}

// parseLength converts an attribute length to CSS pixels.
func parseLength(value string) (float64, bool) {
	m := lengthPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return amount * pixelsPerUnit[strings.ToLower(m[2])], true
}

func unitOf(value string) string {
	m := lengthPattern.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[2])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Composer) maxDiagramWidth() float64 {
	if c.MaxDiagramWidth <= 0 {
		return DefaultMaxDiagramWidth
	}
	return c.MaxDiagramWidth
}

func (c *Composer) renderTimeout() time.Duration {
	if c.RenderTimeout <= 0 {
		return dom.DefaultRenderTimeout
	}
	return c.RenderTimeout
}

func (c *Composer) logger() export.Logger {
	if c.Logger == nil {
		return export.NopLogger{}
	}
	return c.Logger
}

func (c *Composer) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
