package query

import (
	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-workflow-export/export"
)

// ExportStatus requests an export record.
type ExportStatus struct {
	ExportID string
}

func (ExportStatus) Type() string { return "export:status" }

func (msg ExportStatus) Validate() error {
	if msg.ExportID == "" {
		return errors.New("export ID is required", errors.CategoryValidation).
			WithTextCode("EXPORT_ID_REQUIRED")
	}
	return nil
}

// ExportHistory requests export history.
type ExportHistory struct {
	Filter export.HistoryFilter
}

func (ExportHistory) Type() string { return "export:history" }

func (msg ExportHistory) Validate() error {
	if msg.Filter.Limit < 0 {
		return errors.New("limit must not be negative", errors.CategoryValidation).
			WithTextCode("LIMIT_INVALID")
	}
	if !msg.Filter.Since.IsZero() && !msg.Filter.Until.IsZero() && msg.Filter.Until.Before(msg.Filter.Since) {
		return errors.New("until must not precede since", errors.CategoryValidation).
			WithTextCode("RANGE_INVALID")
	}
	return nil
}

// DocumentView requests the current state of an open document.
type DocumentView struct {
	DocumentID string
	// IncludeHTML adds the serialized document to the view.
	IncludeHTML bool
}

func (DocumentView) Type() string { return "document:view" }

func (msg DocumentView) Validate() error {
	if msg.DocumentID == "" {
		return errors.New("document ID is required", errors.CategoryValidation).
			WithTextCode("DOCUMENT_ID_REQUIRED")
	}
	return nil
}
