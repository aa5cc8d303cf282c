package exportpdf

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/goliatone/go-workflow-export/dom"
	"github.com/goliatone/go-workflow-export/export"
)

// ContentType is the media type of stored artifacts.
const ContentType = "application/pdf"

// DefaultKeyPrefix prefixes artifact keys.
const DefaultKeyPrefix = "exports"

// Exporter turns a composed document into a stored PDF artifact.
type Exporter struct {
	Engine       Engine
	Store        export.ArtifactStore
	Logger       export.Logger
	MaxHTMLBytes int64
	KeyPrefix    string
	Now          func() time.Time
	NewID        func() string
}

// ToPDF prints doc with geometry and stores the result under filename.
// It does not modify doc.
func (e *Exporter) ToPDF(ctx context.Context, doc *dom.Element, filename string, geometry export.Geometry) (export.ArtifactRef, error) {
	if e == nil || e.Engine == nil {
		return export.ArtifactRef{}, export.NewError(export.KindValidation, "pdf exporter requires engine", nil)
	}
	if e.Store == nil {
		return export.ArtifactRef{}, export.NewError(export.KindValidation, "pdf exporter requires artifact store", nil)
	}
	filename = strings.TrimSpace(filename)
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return export.ArtifactRef{}, export.NewError(export.KindValidation, "invalid artifact filename", nil)
	}
	if doc == nil || (strings.TrimSpace(doc.TextContent()) == "" && doc.QuerySelector("svg") == nil) {
		return export.ArtifactRef{}, export.NewError(export.KindExport, "document is empty", nil)
	}
	geometry = geometry.Merge(export.DefaultGeometry())

	lang, _ := doc.Attr("lang")
	dir, _ := doc.Attr("dir")
	data := pageData{
		Title:    strings.TrimSuffix(filename, path.Ext(filename)),
		Lang:     lang,
		Dir:      dir,
		Content:  doc.OuterHTML(),
		Geometry: geometry,
	}
	page := newLimitedBuffer(e.MaxHTMLBytes)
	if err := pages.ExecuteTemplate(page, pageTemplate, data.context()); err != nil {
		return export.ArtifactRef{}, err
	}

	start := e.now()
	pdf, err := e.Engine.Render(ctx, RenderRequest{HTML: page.Bytes(), Geometry: geometry})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return export.ArtifactRef{}, ctxErr
		}
		var exportErr *export.ExportError
		if errors.As(err, &exportErr) && exportErr.Kind != export.KindInternal {
			return export.ArtifactRef{}, err
		}
		return export.ArtifactRef{}, export.NewError(export.KindExport, "pdf rasterization failed", err)
	}

	pageCount, err := inspectPDF(pdf)
	if err != nil {
		return export.ArtifactRef{}, err
	}

	key := path.Join(e.keyPrefix(), e.newID(), filename)
	ref, err := e.Store.Put(ctx, key, bytes.NewReader(pdf), export.ArtifactMeta{
		ContentType: ContentType,
		Pages:       pageCount,
		Filename:    filename,
		CreatedAt:   e.now(),
	})
	if err != nil {
		if export.KindFromError(err) == export.KindValidation {
			return export.ArtifactRef{}, err
		}
		return export.ArtifactRef{}, export.NewError(export.KindExport, "store pdf artifact", err)
	}

	e.logger().Infof("pdf exported key=%s pages=%d bytes=%d in %s", ref.Key, pageCount, len(pdf), e.now().Sub(start))
	return ref, nil
}

func inspectPDF(pdf []byte) (int, error) {
	if len(pdf) == 0 {
		return 0, export.NewError(export.KindExport, "engine returned an empty pdf", nil)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		return 0, export.NewError(export.KindExport, "engine output is not a pdf", nil)
	}
	count, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		return 0, export.NewError(export.KindExport, "unreadable pdf", err)
	}
	if count < 1 {
		return 0, export.NewError(export.KindExport, "pdf has no pages", nil)
	}
	return count, nil
}

func (e *Exporter) keyPrefix() string {
	if e.KeyPrefix == "" {
		return DefaultKeyPrefix
	}
	return e.KeyPrefix
}

func (e *Exporter) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e *Exporter) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Exporter) logger() export.Logger {
	if e.Logger == nil {
		return export.NopLogger{}
	}
	return e.Logger
}
