package diagram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
)

// LayoutConfig is the fixed layout configuration handed to engines.
type LayoutConfig struct {
	Style       Style
	FontFamily  string
	FontSize    int
	NodeSpacing int
	RankSpacing int
	Padding     int
	// UseMaxWidth lets the engine scale the drawing to its container.
	UseMaxWidth bool
}

// DefaultLayout returns the layout used for every render.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		FontFamily:  "Arial",
		FontSize:    14,
		NodeSpacing: 20,
		RankSpacing: 50,
		Padding:     8,
	}
}

// Engine lays out a diagram source and emits SVG markup.
type Engine interface {
	Layout(ctx context.Context, src Source, cfg LayoutConfig) ([]byte, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, src Source, cfg LayoutConfig) ([]byte, error)

func (fn EngineFunc) Layout(ctx context.Context, src Source, cfg LayoutConfig) ([]byte, error) {
	return fn(ctx, src, cfg)
}

// State is the outcome of a render.
type State string

const (
	StateRendered State = "rendered"
	StateFailed   State = "failed"
	StateEmpty    State = "empty"
)

// Diagram is the result of one render.
type Diagram struct {
	Source     Source
	Theme      Theme
	Palette    Palette
	Markup     string
	State      State
	Failure    error
	Generation uint64
	Duration   time.Duration
}

// ErrorClass marks the failure placeholder.
const ErrorClass = "diagram-error"

// Renderer turns sources into themed markup.
type Renderer struct {
	Engine Engine
	Layout LayoutConfig
	Logger export.Logger
	Now    func() time.Time
}

// NewRenderer builds a renderer with the default layout.
func NewRenderer(engine Engine) *Renderer {
	return &Renderer{Engine: engine, Layout: DefaultLayout(), Logger: export.NopLogger{}}
}

// Render lays out src for theme. Engine failures are recoverable: the
// returned Diagram carries a localized placeholder and the failure, and the
// error is nil. Only context cancellation is returned as an error.
func (r *Renderer) Render(ctx context.Context, src Source, theme Theme, lang locale.Language) (Diagram, error) {
	if r == nil {
		return Diagram{}, export.NewError(export.KindInternal, "renderer is nil", nil)
	}
	if theme == "" {
		theme = Light
	}
	palette := theme.Palette()
	result := Diagram{Source: src, Theme: theme, Palette: palette}

	if src.Empty() {
		result.State = StateEmpty
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if r.Engine == nil {
		return r.fail(result, lang, export.NewError(export.KindRender, "diagram engine not configured", nil)), nil
	}

	cfg := r.Layout
	if cfg.FontFamily == "" {
		cfg = DefaultLayout()
	}
	cfg.Style = theme.Style()

	start := r.now()
	out, err := r.Engine.Layout(ctx, src, cfg)
	result.Duration = r.now().Sub(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ctxErr)) {
			return result, ctxErr
		}
		return r.fail(result, lang, export.NewError(export.KindRender, "diagram layout failed", err)), nil
	}

	markup := string(out)
	idx := strings.Index(markup, "<svg")
	if idx < 0 {
		return r.fail(result, lang, export.NewError(export.KindRender, "engine output has no svg element", nil)), nil
	}

	result.Markup = Repaint(strings.TrimSpace(markup[idx:]), palette)
	result.State = StateRendered
	r.logger().Debugf("diagram rendered theme=%s orientation=%s bytes=%d", theme, src.normalizedOrientation(), len(result.Markup))
	return result, nil
}

// Placeholder is the markup shown in place of a diagram that failed to render.
func Placeholder(lang locale.Language) string {
	return fmt.Sprintf(`<p class="%s">%s</p>`, ErrorClass, html.EscapeString(lang.Messages().DiagramFailed))
}

func (r *Renderer) fail(result Diagram, lang locale.Language, err error) Diagram {
	r.logger().Errorf("diagram render failed: %v", err)
	result.State = StateFailed
	result.Failure = err
	result.Markup = Placeholder(lang)
	return result
}

func (r *Renderer) logger() export.Logger {
	if r.Logger == nil {
		return export.NopLogger{}
	}
	return r.Logger
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
