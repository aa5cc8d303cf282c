package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	exportpdf "github.com/goliatone/go-workflow-export/adapters/pdf"
	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
)

// Validate checks that the configuration holds usable values.
func (c *Config) Validate() error {
	switch c.Diagram.Engine {
	case EngineGraphviz, EngineMermaid:
	default:
		return invalid("invalid diagram.engine %q: must be graphviz or mermaid", c.Diagram.Engine)
	}
	switch c.PDF.Engine {
	case PDFChromium, PDFWKHTMLTOPDF:
	default:
		return invalid("invalid pdf.engine %q: must be chromium or wkhtmltopdf", c.PDF.Engine)
	}
	if c.PDF.Timeout < 0 || c.Diagram.LoadTimeout < 0 || c.Document.RenderTimeout < 0 {
		return invalid("timeouts must be non-negative")
	}
	if !exportpdf.KnownPageSize(c.Page.Size) {
		return invalid("unsupported page.size %q", c.Page.Size)
	}
	if c.Page.Scale <= 0 || c.Page.DPI <= 0 {
		return invalid("page.scale and page.dpi must be positive")
	}
	if _, err := diagram.ParseTheme(c.Document.Theme); err != nil {
		return invalid("invalid document.theme: %v", err)
	}
	if _, err := diagram.ParseOrientation(c.Document.Orientation); err != nil {
		return invalid("invalid document.orientation: %v", err)
	}
	if c.Document.MaxDiagramWidth <= 0 {
		return invalid("document.max_diagram_width must be positive")
	}
	if c.Document.FilenameTemplate != "" {
		if _, err := export.RenderFilename(c.Document.FilenameTemplate, export.FilenameData{Prefix: "x", TypeName: "x", Industry: "x"}, time.Now()); err != nil {
			return invalid("invalid document.filename_template: %v", err)
		}
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		return invalid("storage.dir is required")
	}
	if c.Storage.Retention < 0 || c.Storage.FailedRetention < 0 || c.Storage.CleanupInterval < 0 {
		return invalid("storage retention and cleanup interval must be non-negative")
	}
	if c.Batch.MaxItems < 0 || c.Batch.MinInterval < 0 {
		return invalid("batch limits must be non-negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Geometry converts the page section into export geometry.
func (c *Config) Geometry() export.Geometry {
	g := export.Geometry{
		PageSize:     strings.ToUpper(strings.TrimSpace(c.Page.Size)),
		Landscape:    c.Page.Landscape,
		MarginTop:    c.Page.Margin,
		MarginBottom: c.Page.Margin,
		MarginLeft:   c.Page.Margin,
		MarginRight:  c.Page.Margin,
		Scale:        c.Page.Scale,
		DPI:          c.Page.DPI,
	}
	if c.Page.AllowExternalAssets {
		g.ExternalAssets = export.ExternalAssetsAllow
	}
	return g.Merge(export.DefaultGeometry())
}

// Retention returns the export retention policy.
func (c *Config) Retention() export.Retention {
	return export.Retention{TTL: c.Storage.Retention, FailedTTL: c.Storage.FailedRetention}
}

// Theme returns the default document theme.
func (c *Config) Theme() diagram.Theme {
	theme, _ := diagram.ParseTheme(c.Document.Theme)
	return theme
}

// Orientation returns the forced diagram orientation, or "" to follow
// the diagram header.
func (c *Config) Orientation() diagram.Orientation {
	if strings.TrimSpace(c.Document.Orientation) == "" {
		return ""
	}
	o, _ := diagram.ParseOrientation(c.Document.Orientation)
	return o
}

// Language returns the forced document language, or "" to detect it
// from the strategy text.
func (c *Config) Language() locale.Language {
	if strings.TrimSpace(c.Document.Language) == "" {
		return ""
	}
	return locale.Parse(c.Document.Language)
}

// Layout returns the engine layout settings.
func (c *Config) Layout() diagram.LayoutConfig {
	layout := diagram.DefaultLayout()
	if c.Diagram.FontFamily != "" {
		layout.FontFamily = c.Diagram.FontFamily
	}
	if c.Diagram.FontSize > 0 {
		layout.FontSize = c.Diagram.FontSize
	}
	return layout
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return 0, invalid("invalid log.level %q", c.Log.Level)
	}
	return level, nil
}

func invalid(format string, args ...any) error {
	return export.NewError(export.KindValidation, fmt.Sprintf(format, args...), nil)
}
