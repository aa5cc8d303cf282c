// Package config loads the workflowpdf configuration from defaults, an
// optional YAML file and WORKFLOWPDF_ environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/dom"
	"github.com/goliatone/go-workflow-export/export"
)

// EnvPrefix prefixes environment overrides. A double underscore nests:
// WORKFLOWPDF_PAGE__SIZE sets page.size.
const EnvPrefix = "WORKFLOWPDF_"

// Diagram engines.
const (
	EngineGraphviz = "graphviz"
	EngineMermaid  = "mermaid"
)

// PDF engines.
const (
	PDFChromium    = "chromium"
	PDFWKHTMLTOPDF = "wkhtmltopdf"
)

// Config is the full application configuration.
type Config struct {
	Diagram  DiagramConfig  `koanf:"diagram"`
	PDF      PDFConfig      `koanf:"pdf"`
	Page     PageConfig     `koanf:"page"`
	Document DocumentConfig `koanf:"document"`
	Storage  StorageConfig  `koanf:"storage"`
	Server   ServerConfig   `koanf:"server"`
	Batch    BatchConfig    `koanf:"batch"`
	Log      LogConfig      `koanf:"log"`
}

// DiagramConfig selects the layout engine.
type DiagramConfig struct {
	Engine string `koanf:"engine"`
	// MermaidScript is a local mermaid bundle; MermaidURL is loaded when empty.
	MermaidScript string        `koanf:"mermaid_script"`
	MermaidURL    string        `koanf:"mermaid_url"`
	LoadTimeout   time.Duration `koanf:"load_timeout"`
	FontFamily    string        `koanf:"font_family"`
	FontSize      int           `koanf:"font_size"`
}

// PDFConfig selects the rasterizer.
type PDFConfig struct {
	Engine       string        `koanf:"engine"`
	ChromePath   string        `koanf:"chrome_path"`
	ChromeArgs   []string      `koanf:"chrome_args"`
	WKHTMLTOPDF  string        `koanf:"wkhtmltopdf"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxHTMLBytes int64         `koanf:"max_html_bytes"`
}

// PageConfig is the default export geometry.
type PageConfig struct {
	Size      string  `koanf:"size"`
	Landscape bool    `koanf:"landscape"`
	Margin    string  `koanf:"margin"`
	Scale     float64 `koanf:"scale"`
	DPI       int     `koanf:"dpi"`
	// AllowExternalAssets lets the rasterizer fetch remote resources.
	AllowExternalAssets bool `koanf:"allow_external_assets"`
}

// DocumentConfig holds document defaults.
type DocumentConfig struct {
	Theme            string        `koanf:"theme"`
	// Orientation forces TD or LR; empty follows the diagram header.
	Orientation      string        `koanf:"orientation"`
	Language         string        `koanf:"language"`
	MaxDiagramWidth  float64       `koanf:"max_diagram_width"`
	RenderTimeout    time.Duration `koanf:"render_timeout"`
	FilenameTemplate string        `koanf:"filename_template"`
}

// StorageConfig locates artifacts and export history.
type StorageConfig struct {
	Dir string `koanf:"dir"`
	// Database is a sqlite DSN; empty keeps history in memory.
	Database string `koanf:"database"`
	// Retention expires finished exports; zero keeps them.
	Retention       time.Duration `koanf:"retention"`
	FailedRetention time.Duration `koanf:"failed_retention"`
	// CleanupInterval is how often serve prunes expired exports.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr     string `koanf:"addr"`
	BasePath string `koanf:"base_path"`
	// AccessLog enables the fiber request logger.
	AccessLog bool `koanf:"access_log"`
}

// BatchConfig bounds batch exports.
type BatchConfig struct {
	MaxItems    int           `koanf:"max_items"`
	MinInterval time.Duration `koanf:"min_interval"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	geometry := export.DefaultGeometry()
	return &Config{
		Diagram: DiagramConfig{
			Engine:      EngineGraphviz,
			LoadTimeout: 10 * time.Second,
			FontFamily:  diagram.DefaultLayout().FontFamily,
			FontSize:    diagram.DefaultLayout().FontSize,
		},
		PDF: PDFConfig{
			Engine:      PDFChromium,
			WKHTMLTOPDF: "wkhtmltopdf",
			Timeout:     time.Minute,
		},
		Page: PageConfig{
			Size:   geometry.PageSize,
			Margin: geometry.MarginTop,
			Scale:  geometry.Scale,
			DPI:    geometry.DPI,
		},
		Document: DocumentConfig{
			Theme:           string(diagram.Light),
			MaxDiagramWidth: document.DefaultMaxDiagramWidth,
			RenderTimeout:   dom.DefaultRenderTimeout,
		},
		Storage: StorageConfig{
			Dir:             "exports",
			CleanupInterval: time.Hour,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			BasePath:  "/api",
			AccessLog: true,
		},
		Batch: BatchConfig{
			MaxItems:    50,
			MinInterval: 0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (when it exists) over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}
