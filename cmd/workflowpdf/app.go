package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-workflow-export/adapters/chromium"
	graphvizengine "github.com/goliatone/go-workflow-export/adapters/graphviz"
	mermaidengine "github.com/goliatone/go-workflow-export/adapters/mermaid"
	exportotel "github.com/goliatone/go-workflow-export/adapters/otel"
	exportpdf "github.com/goliatone/go-workflow-export/adapters/pdf"
	storefs "github.com/goliatone/go-workflow-export/adapters/store/fs"
	trackerbun "github.com/goliatone/go-workflow-export/adapters/tracker/bun"
	"github.com/goliatone/go-workflow-export/config"
	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/export"
)

// App holds the wired pipeline.
type App struct {
	Config  *config.Config
	Logger  export.Logger
	Service *document.Service

	closers []io.Closer
}

// NewApp wires engines, storage and history from cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger export.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}

	var browser *chromium.Browser
	sharedBrowser := func() *chromium.Browser {
		if browser == nil {
			browser = chromium.NewBrowser(cfg.PDF.ChromePath, cfg.PDF.ChromeArgs...)
			browser.Timeout = cfg.PDF.Timeout
			app.closers = append(app.closers, browser)
		}
		return browser
	}

	engine, err := app.diagramEngine(sharedBrowser)
	if err != nil {
		app.Close()
		return nil, err
	}

	var pdfEngine exportpdf.Engine
	switch cfg.PDF.Engine {
	case config.PDFWKHTMLTOPDF:
		pdfEngine = exportpdf.WKHTMLTOPDFEngine{Command: cfg.PDF.WKHTMLTOPDF, Timeout: cfg.PDF.Timeout}
	default:
		pdfEngine = &exportpdf.ChromiumEngine{Browser: sharedBrowser()}
	}

	store := storefs.NewStore(cfg.Storage.Dir)
	tracker, err := app.tracker(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	hook, err := exportotel.NewHook()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("creating metrics hook: %w", err)
	}

	exporter := &exportpdf.Exporter{
		Engine:       pdfEngine,
		Store:        store,
		Logger:       logger,
		MaxHTMLBytes: cfg.PDF.MaxHTMLBytes,
	}
	composer := document.NewComposer(exporter)
	composer.Geometry = cfg.Geometry()
	composer.MaxDiagramWidth = cfg.Document.MaxDiagramWidth
	composer.RenderTimeout = cfg.Document.RenderTimeout
	composer.Logger = logger

	renderer := diagram.NewRenderer(engine)
	renderer.Layout = cfg.Layout()
	renderer.Logger = logger

	app.Service = &document.Service{
		Renderer:  renderer,
		Composer:  composer,
		Tracker:   tracker,
		Store:     store,
		Metrics:   hook,
		Logger:    logger,
		Retention: cfg.Retention(),
	}
	return app, nil
}

func (a *App) diagramEngine(browser func() *chromium.Browser) (diagram.Engine, error) {
	cfg := a.Config.Diagram
	if cfg.Engine != config.EngineMermaid {
		engine := graphvizengine.New()
		engine.Logger = a.Logger
		a.closers = append(a.closers, engine)
		return engine, nil
	}

	engine := &mermaidengine.Engine{
		Browser:     browser(),
		ScriptURL:   cfg.MermaidURL,
		LoadTimeout: cfg.LoadTimeout,
		Logger:      a.Logger,
	}
	if cfg.MermaidScript != "" {
		script, err := os.ReadFile(cfg.MermaidScript)
		if err != nil {
			return nil, fmt.Errorf("reading mermaid script: %w", err)
		}
		engine.Script = script
	}
	return engine, nil
}

func (a *App) tracker(ctx context.Context) (export.Tracker, error) {
	dsn := a.Config.Storage.Database
	if dsn == "" {
		return export.NewMemoryTracker(), nil
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	a.closers = append(a.closers, db)

	tracker := trackerbun.NewTracker(db)
	if err := tracker.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("preparing history schema: %w", err)
	}
	return tracker, nil
}

// Close releases the browser, the graphviz instance and the database.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.Errorf("close: %v", err)
		}
	}
	a.closers = nil
}
