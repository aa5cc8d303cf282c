package command

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/strategy"
)

// OpenDocument opens a strategy document and renders its diagram.
type OpenDocument struct {
	Response strategy.Response
	Options  document.OpenOptions
	Result   *string
}

func (OpenDocument) Type() string { return "document:open" }

func (msg OpenDocument) Validate() error {
	if !msg.Response.Success {
		return errors.New("strategy response must be successful", errors.CategoryValidation).
			WithTextCode("RESPONSE_UNSUCCESSFUL")
	}
	if strings.TrimSpace(msg.Response.Strategy) == "" && strings.TrimSpace(msg.Response.WorkflowDiagram) == "" {
		return errors.New("strategy response has no content", errors.CategoryValidation).
			WithTextCode("RESPONSE_EMPTY")
	}
	return nil
}

// RenderDiagram re-renders the diagram of an open document.
type RenderDiagram struct {
	DocumentID  string
	Theme       string
	Orientation string
	Result      *diagram.Diagram
}

func (RenderDiagram) Type() string { return "diagram:render" }

func (msg RenderDiagram) Validate() error {
	if msg.DocumentID == "" {
		return errors.New("document ID is required", errors.CategoryValidation).
			WithTextCode("DOCUMENT_ID_REQUIRED")
	}
	if _, err := diagram.ParseTheme(msg.Theme); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid theme").
			WithTextCode("THEME_INVALID")
	}
	if _, err := diagram.ParseOrientation(msg.Orientation); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid orientation").
			WithTextCode("ORIENTATION_INVALID")
	}
	return nil
}

// ExportDocument exports an open document to PDF.
type ExportDocument struct {
	DocumentID string
	Options    document.ExportOptions
	Result     *export.ExportRecord
}

func (ExportDocument) Type() string { return "document:export" }

func (msg ExportDocument) Validate() error {
	if msg.DocumentID == "" {
		return errors.New("document ID is required", errors.CategoryValidation).
			WithTextCode("DOCUMENT_ID_REQUIRED")
	}
	if msg.Options.Geometry.Scale < 0 || msg.Options.Geometry.DPI < 0 {
		return errors.New("scale and DPI must not be negative", errors.CategoryValidation).
			WithTextCode("GEOMETRY_INVALID")
	}
	return nil
}

// CloseDocument forgets an open document.
type CloseDocument struct {
	DocumentID string
}

func (CloseDocument) Type() string { return "document:close" }

func (msg CloseDocument) Validate() error {
	if msg.DocumentID == "" {
		return errors.New("document ID is required", errors.CategoryValidation).
			WithTextCode("DOCUMENT_ID_REQUIRED")
	}
	return nil
}

// CleanupExports removes expired export artifacts and records.
type CleanupExports struct {
	Now    time.Time
	Result *int
}

func (CleanupExports) Type() string { return "exports:cleanup" }

func (msg CleanupExports) Validate() error { return nil }
