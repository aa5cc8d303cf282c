package command

import (
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/query"
)

// RegisterHandlers subscribes the document commands and queries on the
// go-command dispatcher. When reg is set the handlers are registered too.
func RegisterHandlers(reg *gcmd.Registry, svc *document.Service) ([]dispatcher.Subscription, error) {
	if svc == nil {
		return nil, errors.New("document service is required", errors.CategoryValidation).
			WithTextCode("SERVICE_REQUIRED")
	}

	open := NewOpenDocumentHandler(svc)
	render := NewRenderDiagramHandler(svc)
	exp := NewExportDocumentHandler(svc)
	closeDoc := NewCloseDocumentHandler(svc)
	cleanup := NewCleanupExportsHandler(svc)

	status := query.NewExportStatusHandler(svc)
	history := query.NewExportHistoryHandler(svc)
	view := query.NewDocumentViewHandler(svc)

	subscriptions := []dispatcher.Subscription{
		dispatcher.SubscribeCommand(open),
		dispatcher.SubscribeCommand(render),
		dispatcher.SubscribeCommand(exp),
		dispatcher.SubscribeCommand(closeDoc),
		dispatcher.SubscribeCommand(cleanup),
		dispatcher.SubscribeQuery(status),
		dispatcher.SubscribeQuery(history),
		dispatcher.SubscribeQuery(view),
	}

	if reg != nil {
		handlers := []any{open, render, exp, closeDoc, cleanup, status, history, view}
		for _, handler := range handlers {
			if err := reg.RegisterCommand(handler); err != nil {
				return subscriptions, err
			}
		}
	}

	return subscriptions, nil
}
