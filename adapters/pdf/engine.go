package exportpdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-workflow-export/export"
)

// DefaultMaxHTMLBytes guards in-memory HTML buffering before PDF conversion.
const DefaultMaxHTMLBytes int64 = 8 * 1024 * 1024

// RenderRequest contains a print page and its geometry.
type RenderRequest struct {
	HTML     []byte
	Geometry export.Geometry
}

// Engine renders HTML content into PDF bytes.
type Engine interface {
	Render(ctx context.Context, req RenderRequest) ([]byte, error)
}

// EngineFunc adapts a function to an Engine.
type EngineFunc func(ctx context.Context, req RenderRequest) ([]byte, error)

func (f EngineFunc) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	if f == nil {
		return nil, errors.New("pdf engine func is nil")
	}
	return f(ctx, req)
}

// WKHTMLTOPDFEngine invokes wkhtmltopdf for HTML-to-PDF conversion.
type WKHTMLTOPDFEngine struct {
	Command string
	Args    []string
	Env     []string
	Timeout time.Duration
}

// Render executes wkhtmltopdf using stdin/stdout for HTML/PDF.
func (e WKHTMLTOPDFEngine) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	cmdPath := strings.TrimSpace(e.Command)
	if cmdPath == "" {
		cmdPath = "wkhtmltopdf"
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cmdCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := append(wkhtmltopdfArgs(req.Geometry.Merge(export.DefaultGeometry())), e.Args...)
	args = append(args, "-", "-")
	cmd := exec.CommandContext(cmdCtx, cmdPath, args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	cmd.Stdin = bytes.NewReader(req.HTML)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = "wkhtmltopdf failed"
		}
		return nil, export.NewError(export.KindExport, message, err)
	}
	return stdout.Bytes(), nil
}

func wkhtmltopdfArgs(g export.Geometry) []string {
	args := []string{
		"--quiet",
		"--print-media-type",
		"--enable-local-file-access",
		"--page-size", pageSizeName(g.PageSize),
		"--margin-top", g.MarginTop,
		"--margin-bottom", g.MarginBottom,
		"--margin-left", g.MarginLeft,
		"--margin-right", g.MarginRight,
		"--encoding", "utf-8",
	}
	if g.Landscape {
		args = append(args, "--orientation", "Landscape")
	}
	if g.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(g.DPI))
	}
	if strings.EqualFold(g.Background, "transparent") {
		args = append(args, "--no-background")
	} else {
		args = append(args, "--background")
	}
	if g.ExternalAssets == export.ExternalAssetsBlock {
		args = append(args, "--disable-external-links")
	}
	return args
}

func pageSizeName(size string) string {
	upper := strings.ToUpper(strings.TrimSpace(size))
	if upper == "" {
		return "Letter"
	}
	return upper[:1] + strings.ToLower(upper[1:])
}

type limitedBuffer struct {
	buf     bytes.Buffer
	maxSize int64
}

func newLimitedBuffer(maxSize int64) *limitedBuffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxHTMLBytes
	}
	return &limitedBuffer{maxSize: maxSize}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.maxSize > 0 && int64(b.buf.Len()+len(p)) > b.maxSize {
		return 0, export.NewError(export.KindValidation, fmt.Sprintf("print page exceeds %d bytes", b.maxSize), nil)
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
