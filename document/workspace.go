package document

import (
	"context"
	"html"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/dom"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
	"github.com/goliatone/go-workflow-export/strategy"
)

// Options configure a new workspace.
type Options struct {
	ID          string
	Industry    string
	Language    locale.Language
	Theme       diagram.Theme
	Orientation diagram.Orientation
	Created     time.Time
}

// Workspace is one live strategy document with its diagram slot.
type Workspace struct {
	ID       string
	Response strategy.Response
	Industry string
	Language locale.Language
	Created  time.Time

	doc       *dom.Document
	root      *dom.Element
	container *dom.Element

	renderer *diagram.Renderer
	composer Composer
	metrics  export.MetricsHook
	logger   export.Logger

	// guard serializes container writes between renders and exports.
	guard *semaphore.Weighted
	// exportSlot admits one export at a time.
	exportSlot *semaphore.Weighted
	tickets    atomic.Uint64

	mu          sync.RWMutex
	current     diagram.Diagram
	committed   uint64
	theme       diagram.Theme
	orientation diagram.Orientation
}

// NewWorkspace builds the document for resp. The diagram container starts
// empty; call Render to fill it.
func NewWorkspace(resp strategy.Response, renderer *diagram.Renderer, composer Composer, opts Options) (*Workspace, error) {
	if renderer == nil {
		return nil, export.NewError(export.KindValidation, "workspace requires a renderer", nil)
	}
	lang := opts.Language
	if !lang.Valid() {
		lang = resp.Language()
	}
	theme := opts.Theme
	if theme == "" {
		theme = diagram.Light
	}
	source := diagram.NewSource(resp.WorkflowDiagram)
	orientation := opts.Orientation
	if orientation == "" {
		orientation = source.Orientation
	}
	created := opts.Created
	if created.IsZero() {
		created = time.Now()
	}

	ws := &Workspace{
		ID:          opts.ID,
		Response:    resp,
		Industry:    opts.Industry,
		Language:    lang,
		Created:     created,
		renderer:    renderer,
		composer:    composer,
		logger:      composer.Logger,
		guard:       semaphore.NewWeighted(1),
		exportSlot:  semaphore.NewWeighted(1),
		theme:       theme,
		orientation: orientation,
	}
	if ws.logger == nil {
		ws.logger = export.NopLogger{}
	}
	ws.composer.Guard = ws.guard
	if err := ws.build(); err != nil {
		return nil, err
	}
	return ws, nil
}

func (w *Workspace) build() error {
	templates := w.composer.Templates
	if templates == nil {
		templates = Templates()
		w.composer.Templates = templates
	}
	msgs := w.Language.Messages()
	markup, err := execute(templates, contentTemplate, map[string]any{
		"strategy_heading": msgs.StrategyHeading,
		"kpi_heading":      msgs.KPIHeading,
		"diagram_heading":  msgs.DiagramHeading,
		"paragraphs":       w.Response.Paragraphs(),
		"kpis":             w.Response.KPIs,
	})
	if err != nil {
		return err
	}

	w.doc = dom.NewDocument()
	w.root = w.doc.CreateElement("article")
	w.root.SetAttr("class", "strategy-document")
	w.root.SetAttr("lang", w.Language.Tag().String())
	w.root.SetAttr("dir", w.Language.Direction())
	if err := w.root.SetInnerHTML(markup); err != nil {
		return export.NewError(export.KindInternal, "build document", err)
	}
	if err := w.doc.Body().AppendChild(w.root); err != nil {
		return export.NewError(export.KindInternal, "attach document", err)
	}
	w.container = w.doc.GetElementByID(DiagramContainerID)
	if w.container == nil {
		return export.NewError(export.KindInternal, "content template has no diagram container", nil)
	}
	return nil
}

// SetMetrics installs a metrics hook.
func (w *Workspace) SetMetrics(hook export.MetricsHook) {
	w.metrics = hook
}

// Root is the document element that gets exported.
func (w *Workspace) Root() *dom.Element { return w.root }

// Container is the diagram container.
func (w *Workspace) Container() *dom.Element { return w.container }

// Diagram returns the last committed render.
func (w *Workspace) Diagram() diagram.Diagram {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// View returns the current theme and orientation.
func (w *Workspace) View() (diagram.Theme, diagram.Orientation) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.theme, w.orientation
}

// Render lays out the diagram for theme and orientation and commits it to
// the container. Empty values keep the current setting. A render that
// finishes after a newer one has committed is discarded and reported as a
// conflict. Rendering the identity and theme already on display is a no-op.
func (w *Workspace) Render(ctx context.Context, theme diagram.Theme, orientation diagram.Orientation) (diagram.Diagram, error) {
	w.mu.Lock()
	if theme == "" {
		theme = w.theme
	}
	if orientation == "" {
		orientation = w.orientation
	}
	w.theme, w.orientation = theme, orientation
	src := diagram.NewSource(w.Response.WorkflowDiagram).WithOrientation(orientation)
	current := w.current
	w.mu.Unlock()

	if current.Generation > 0 && current.Theme == theme && current.Source.Identity() == src.Identity() && current.State != diagram.StateFailed {
		return current, nil
	}

	ticket := w.tickets.Add(1)
	d, err := w.renderer.Render(ctx, src, theme, w.Language)
	if err != nil {
		return d, err
	}
	d.Generation = ticket

	if err := w.guard.Acquire(ctx, 1); err != nil {
		return d, err
	}
	defer w.guard.Release(1)

	w.mu.Lock()
	if ticket < w.committed {
		w.mu.Unlock()
		w.logger.Debugf("workspace %s: discarding render %d, %d already committed", w.ID, ticket, w.committed)
		return d, export.NewError(export.KindConflict, "render superseded by a newer render", nil)
	}
	w.committed = ticket
	w.current = d
	w.mu.Unlock()

	markup := d.Markup
	if d.State == diagram.StateEmpty {
		markup = emptyPlaceholder(w.Language)
	}
	if err := w.container.SetInnerHTML(markup); err != nil {
		return d, export.NewError(export.KindInternal, "commit diagram", err)
	}
	w.container.SetAttr(RenderStateAttr, string(d.State))
	w.container.SetAttr("data-theme", string(d.Theme))
	w.container.SetAttr("data-orientation", string(src.Orientation))

	event := export.EventRenderCommitted
	if d.State == diagram.StateFailed {
		event = export.EventRenderFailed
	}
	w.emit(ctx, export.MetricsEvent{
		Name:      event,
		Theme:     string(theme),
		Bytes:     int64(len(d.Markup)),
		Duration:  d.Duration,
		ErrorKind: export.KindFromError(d.Failure),
	})
	return d, nil
}

// Export composes and exports the document. A second export while one is
// in flight is rejected with a conflict error.
func (w *Workspace) Export(ctx context.Context, geometry export.Geometry, filenameTemplate string) (export.ArtifactRef, error) {
	if !w.exportSlot.TryAcquire(1) {
		w.emit(ctx, export.MetricsEvent{Name: export.EventExportRejected, ErrorKind: export.KindConflict})
		return export.ArtifactRef{}, export.NewError(export.KindConflict, w.Language.Messages().ExportInProgress, nil)
	}
	defer w.exportSlot.Release(1)

	start := time.Now()
	ref, err := w.composer.Export(ctx, w.root, w.container, Meta{
		StrategyType:     w.Response.StrategyType,
		Industry:         w.Industry,
		Language:         w.Language,
		Created:          w.Created,
		Geometry:         geometry,
		FilenameTemplate: filenameTemplate,
	})
	evt := export.MetricsEvent{Duration: time.Since(start)}
	if err != nil {
		evt.Name = export.EventExportFailed
		evt.ErrorKind = export.KindFromError(err)
		w.emit(ctx, evt)
		return export.ArtifactRef{}, err
	}
	evt.Name = export.EventExportCompleted
	evt.Bytes = ref.Meta.Size
	evt.Pages = ref.Meta.Pages
	w.emit(ctx, evt)
	return ref, nil
}

// HTML serializes the live document.
func (w *Workspace) HTML() string {
	return w.root.OuterHTML()
}

func (w *Workspace) emit(ctx context.Context, evt export.MetricsEvent) {
	if w.metrics == nil {
		return
	}
	evt.DocumentID = w.ID
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if err := w.metrics.Emit(ctx, evt); err != nil {
		w.logger.Errorf("metrics emit %s: %v", evt.Name, err)
	}
}

func emptyPlaceholder(lang locale.Language) string {
	return `<p class="diagram-empty">` + html.EscapeString(lang.Messages().DiagramEmpty) + `</p>`
}
