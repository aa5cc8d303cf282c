package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goliatone/go-workflow-export/export"
)

// slogLogger adapts slog to export.Logger.
type slogLogger struct {
	log *slog.Logger
}

var _ export.Logger = slogLogger{}

func newLogger(w io.Writer, level slog.Level, format string) slogLogger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slogLogger{log: slog.New(handler).With("app", "workflowpdf")}
}

func (l slogLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l slogLogger) Infof(format string, args ...any) {
	l.log.Info(fmt.Sprintf(format, args...))
}

func (l slogLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}
