// Package mermaidengine lays out diagram sources with mermaid.js inside a
// headless Chromium tab.
package mermaidengine

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/goliatone/go-workflow-export/adapters/chromium"
	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/export"
)

// DefaultScriptURL is the mermaid bundle loaded when no inline script is set.
const DefaultScriptURL = "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"

const defaultLoadTimeout = 10 * time.Second

// Engine renders diagrams with mermaid.js.
type Engine struct {
	Browser *chromium.Browser
	// Script is an inline mermaid bundle; when empty ScriptURL is loaded.
	Script      []byte
	ScriptURL   string
	LoadTimeout time.Duration
	Logger      export.Logger

	seq atomic.Uint64
}

var _ diagram.Engine = (*Engine)(nil)

// Layout renders src in a fresh tab and returns the svg markup.
func (e *Engine) Layout(ctx context.Context, src diagram.Source, cfg diagram.LayoutConfig) ([]byte, error) {
	if e == nil || e.Browser == nil {
		return nil, export.NewError(export.KindInternal, "mermaid engine requires a browser", nil)
	}

	script, err := renderScript(fmt.Sprintf("mermaid-diagram-%d", e.seq.Add(1)), src, cfg)
	if err != nil {
		return nil, err
	}

	tabCtx, cancel, err := e.Browser.Tab(ctx)
	if err != nil {
		return nil, export.NewError(export.KindInternal, "mermaid engine init failed", err)
	}
	defer cancel()

	var loaded bool
	var svg string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, e.hostPage()).Do(ctx)
		}),
		chromedp.Poll(`typeof window.mermaid !== "undefined"`, &loaded, chromedp.WithPollingTimeout(e.loadTimeout())),
		chromedp.Evaluate(script, &svg, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("mermaid: %w", err)
	}
	e.logger().Debugf("mermaid layout bytes=%d", len(svg))
	return []byte(svg), nil
}

func (e *Engine) hostPage() string {
	if len(e.Script) > 0 {
		return "<!DOCTYPE html><html><head><meta charset=\"utf-8\"><script>" + string(e.Script) + "</script></head><body></body></html>"
	}
	url := e.ScriptURL
	if url == "" {
		url = DefaultScriptURL
	}
	return fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="utf-8"><script src="%s"></script></head><body></body></html>`, html.EscapeString(url))
}

func (e *Engine) loadTimeout() time.Duration {
	if e.LoadTimeout > 0 {
		return e.LoadTimeout
	}
	return defaultLoadTimeout
}

func (e *Engine) logger() export.Logger {
	if e.Logger == nil {
		return export.NopLogger{}
	}
	return e.Logger
}

type flowchartConfig struct {
	UseMaxWidth    bool `json:"useMaxWidth"`
	DiagramPadding int  `json:"diagramPadding"`
	NodeSpacing    int  `json:"nodeSpacing"`
	RankSpacing    int  `json:"rankSpacing"`
	HTMLLabels     bool `json:"htmlLabels"`
}

type mermaidConfig struct {
	StartOnLoad   bool            `json:"startOnLoad"`
	Theme         string          `json:"theme"`
	ThemeCSS      string          `json:"themeCSS"`
	FontFamily    string          `json:"fontFamily"`
	Flowchart     flowchartConfig `json:"flowchart"`
	SecurityLevel string          `json:"securityLevel"`
}

func initConfig(cfg diagram.LayoutConfig) mermaidConfig {
	return mermaidConfig{
		Theme:      "neutral",
		ThemeCSS:   themeCSS(cfg),
		FontFamily: cfg.FontFamily,
		Flowchart: flowchartConfig{
			UseMaxWidth:    cfg.UseMaxWidth,
			DiagramPadding: cfg.Padding,
			NodeSpacing:    cfg.NodeSpacing,
			RankSpacing:    cfg.RankSpacing,
			HTMLLabels:     true,
		},
		SecurityLevel: "loose",
	}
}

func themeCSS(cfg diagram.LayoutConfig) string {
	s := cfg.Style
	return fmt.Sprintf(`
.label text, text, .edgeLabel, .nodeLabel, .label, .edgePath, .arrowheadPath, tspan {
  fill: %[1]s !important;
  color: %[1]s !important;
  font-size: %[2]dpx !important;
  font-family: '%[3]s', sans-serif !important;
}
.node rect, .node polygon, .node circle, .cluster rect {
  fill: %[4]s !important;
  stroke: %[5]s !important;
}
.cluster rect { fill: %[6]s !important; }
.edgePath .path, .flowchart-link { stroke: %[7]s !important; }
.edgeLabel, .edgeLabel rect { background-color: %[8]s !important; fill: %[8]s !important; }
.label foreignObject div, .label foreignObject span, .label foreignObject p {
  color: %[1]s !important;
  fill: %[1]s !important;
}
`, s.Text, cfg.FontSize, cfg.FontFamily, s.NodeFill, s.NodeStroke, s.ClusterFill, s.EdgeStroke, s.LabelBackground)
}

func renderScript(id string, src diagram.Source, cfg diagram.LayoutConfig) (string, error) {
	config, err := json.Marshal(initConfig(cfg))
	if err != nil {
		return "", fmt.Errorf("mermaid: encode config: %w", err)
	}
	text, err := json.Marshal(src.WithOrientation(src.Orientation).Text)
	if err != nil {
		return "", fmt.Errorf("mermaid: encode source: %w", err)
	}
	return fmt.Sprintf(`(async () => {
  window.mermaid.initialize(%s);
  const { svg } = await window.mermaid.render(%q, %s);
  return svg;
})()`, config, id, text), nil
}
