package export

import (
	"context"
	"io"
	"time"
)

// PageBreakMode mirrors the pagination modes of browser print pipelines.
type PageBreakMode string

const (
	// PageBreakAvoidAll keeps every block element on a single page when it fits.
	PageBreakAvoidAll PageBreakMode = "avoid-all"
	// PageBreakCSS honours break-before/after/inside declarations and the
	// page-break-before/page-break-after marker classes.
	PageBreakCSS PageBreakMode = "css"
	// PageBreakLegacy honours explicit page-break marker elements.
	PageBreakLegacy PageBreakMode = "legacy"
)

// ExternalAssetsPolicy controls network access while printing.
type ExternalAssetsPolicy string

const (
	ExternalAssetsUnspecified ExternalAssetsPolicy = ""
	ExternalAssetsAllow       ExternalAssetsPolicy = "allow"
	ExternalAssetsBlock       ExternalAssetsPolicy = "block"
)

// Geometry describes the page layout and raster settings of an export.
type Geometry struct {
	PageSize       string
	Landscape      bool
	MarginTop      string
	MarginBottom   string
	MarginLeft     string
	MarginRight    string
	Scale          float64
	DPI            int
	Background     string
	PageBreak      []PageBreakMode
	ExternalAssets ExternalAssetsPolicy
}

// DefaultGeometry returns letter portrait pages with half inch margins,
// rendered at 3x / 300 DPI on a transparent background.
func DefaultGeometry() Geometry {
	return Geometry{
		PageSize:       "LETTER",
		MarginTop:      "0.5in",
		MarginBottom:   "0.5in",
		MarginLeft:     "0.5in",
		MarginRight:    "0.5in",
		Scale:          3,
		DPI:            300,
		Background:     "transparent",
		PageBreak:      []PageBreakMode{PageBreakAvoidAll, PageBreakCSS, PageBreakLegacy},
		ExternalAssets: ExternalAssetsBlock,
	}
}

// Merge fills zero fields of g from fallback.
func (g Geometry) Merge(fallback Geometry) Geometry {
	out := g
	if out.PageSize == "" {
		out.PageSize = fallback.PageSize
	}
	if !out.Landscape {
		out.Landscape = fallback.Landscape
	}
	if out.MarginTop == "" {
		out.MarginTop = fallback.MarginTop
	}
	if out.MarginBottom == "" {
		out.MarginBottom = fallback.MarginBottom
	}
	if out.MarginLeft == "" {
		out.MarginLeft = fallback.MarginLeft
	}
	if out.MarginRight == "" {
		out.MarginRight = fallback.MarginRight
	}
	if out.Scale == 0 {
		out.Scale = fallback.Scale
	}
	if out.DPI == 0 {
		out.DPI = fallback.DPI
	}
	if out.Background == "" {
		out.Background = fallback.Background
	}
	if len(out.PageBreak) == 0 {
		out.PageBreak = append([]PageBreakMode(nil), fallback.PageBreak...)
	}
	if out.ExternalAssets == ExternalAssetsUnspecified {
		out.ExternalAssets = fallback.ExternalAssets
	}
	return out
}

// HasPageBreak reports whether mode is enabled.
func (g Geometry) HasPageBreak(mode PageBreakMode) bool {
	for _, m := range g.PageBreak {
		if m == mode {
			return true
		}
	}
	return false
}

// Artifact names the file an export produces.
type Artifact struct {
	Filename string
	Geometry Geometry
}

// ArtifactMeta describes stored artifacts.
type ArtifactMeta struct {
	ContentType string
	Size        int64
	Pages       int
	Filename    string
	CreatedAt   time.Time
}

// ArtifactRef references a stored artifact.
type ArtifactRef struct {
	Key  string
	Meta ArtifactMeta
}

// ArtifactStore persists export artifacts.
type ArtifactStore interface {
	Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error)
	Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error)
	Delete(ctx context.Context, key string) error
}

// ExportState describes the lifecycle of an export attempt.
type ExportState string

const (
	StateRunning   ExportState = "running"
	StateCompleted ExportState = "completed"
	StateFailed    ExportState = "failed"
)

// ExportRecord is the history entry of one export attempt.
type ExportRecord struct {
	ID           string
	DocumentID   string
	Filename     string
	StrategyType string
	Industry     string
	Language     string
	State        ExportState
	Artifact     ArtifactRef
	ErrorKind    ErrorKind
	Error        string
	CreatedAt    time.Time
	CompletedAt  time.Time
}

// HistoryFilter filters tracker lists.
type HistoryFilter struct {
	DocumentID string
	State      ExportState
	Since      time.Time
	Until      time.Time
	Limit      int
}

// Tracker records export attempts.
type Tracker interface {
	Start(ctx context.Context, record ExportRecord) (string, error)
	Complete(ctx context.Context, id string, ref ArtifactRef) error
	Fail(ctx context.Context, id string, err error) error
	Status(ctx context.Context, id string) (ExportRecord, error)
	List(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error)
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards log output.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// Metrics event names.
const (
	EventRenderCommitted = "diagram.render.committed"
	EventRenderFailed    = "diagram.render.failed"
	EventExportCompleted = "document.export.completed"
	EventExportFailed    = "document.export.failed"
	EventExportRejected  = "document.export.rejected"
)

// MetricsEvent describes pipeline observations.
type MetricsEvent struct {
	Name       string
	DocumentID string
	ExportID   string
	Theme      string
	Bytes      int64
	Pages      int
	Duration   time.Duration
	ErrorKind  ErrorKind
	Timestamp  time.Time
}

// MetricsHook emits metrics-friendly observations.
type MetricsHook interface {
	Emit(ctx context.Context, evt MetricsEvent) error
}
