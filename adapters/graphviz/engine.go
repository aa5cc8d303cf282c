// Package graphvizengine lays out flowchart sources in process with the
// Graphviz dot algorithm compiled to WebAssembly.
package graphvizengine

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/export"
)

const pointsPerPixel = 0.75

// Engine renders diagram sources to SVG. A single Graphviz instance is
// created lazily and shared; layouts are serialized because the instance
// is not safe for concurrent use.
type Engine struct {
	Logger export.Logger

	mu sync.Mutex
	gv *graphviz.Graphviz
}

// New returns an engine with a no-op logger.
func New() *Engine {
	return &Engine{Logger: export.NopLogger{}}
}

var _ diagram.Engine = (*Engine)(nil)

// Layout parses src and renders it with the dot layout.
func (e *Engine) Layout(ctx context.Context, src diagram.Source, cfg diagram.LayoutConfig) ([]byte, error) {
	chart, err := diagram.ParseFlowchart(src)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	gv, err := e.instance(ctx)
	if err != nil {
		return nil, err
	}

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("graphviz: create graph: %w", err)
	}
	defer graph.Close()

	if err := build(graph, chart, cfg); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("graphviz: render svg: %w", err)
	}
	e.logger().Debugf("graphviz layout nodes=%d edges=%d bytes=%d", len(chart.Nodes), len(chart.Edges), buf.Len())
	return buf.Bytes(), nil
}

// Close releases the Graphviz instance.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gv == nil {
		return nil
	}
	err := e.gv.Close()
	e.gv = nil
	return err
}

func (e *Engine) instance(ctx context.Context) (*graphviz.Graphviz, error) {
	if e.gv != nil {
		return e.gv, nil
	}
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("graphviz: create instance: %w", err)
	}
	gv.SetLayout(graphviz.DOT)
	e.gv = gv
	return gv, nil
}

func (e *Engine) logger() export.Logger {
	if e.Logger == nil {
		return export.NopLogger{}
	}
	return e.Logger
}

func build(graph *cgraph.Graph, chart *diagram.Flowchart, cfg diagram.LayoutConfig) error {
	style := cfg.Style
	fontSize := float64(cfg.FontSize) * pointsPerPixel

	if chart.Orientation == diagram.LeftRight {
		graph.SetRankDir(cgraph.LRRank)
	} else {
		graph.SetRankDir(cgraph.TBRank)
	}
	graph.SetBackgroundColor("transparent")
	graph.SetNodeSeparator(pixelsToInches(cfg.NodeSpacing))
	graph.SetRankSeparator(pixelsToInches(cfg.RankSpacing))
	graph.SetPad(pixelsToInches(cfg.Padding))
	graph.SetFontName(cfg.FontFamily)
	graph.SetFontSize(fontSize)
	graph.SetFontColor(style.Text)

	parents := map[string]*cgraph.Graph{}
	for _, cluster := range chart.Clusters {
		sub, err := graph.CreateSubGraphByName("cluster_" + cluster.ID)
		if err != nil {
			return fmt.Errorf("graphviz: create cluster %s: %w", cluster.ID, err)
		}
		sub.SetLabel(cluster.Label)
		sub.SetFontColor(style.Text)
		if isWhite(style.ClusterFill) {
			sub.SetStyle(cgraph.GraphStyle("rounded"))
		} else {
			sub.SetStyle(cgraph.GraphStyle("rounded,filled"))
			if err := sub.SafeSet("fillcolor", style.ClusterFill, ""); err != nil {
				return fmt.Errorf("graphviz: cluster fill: %w", err)
			}
		}
		if err := sub.SafeSet("color", style.ClusterStroke, ""); err != nil {
			return fmt.Errorf("graphviz: cluster stroke: %w", err)
		}
		for _, id := range cluster.Nodes {
			parents[id] = sub
		}
	}

	nodes := make(map[string]*cgraph.Node, len(chart.Nodes))
	for _, n := range chart.Nodes {
		owner := graph
		if sub, ok := parents[n.ID]; ok {
			owner = sub
		}
		gvNode, err := owner.CreateNodeByName(n.ID)
		if err != nil {
			return fmt.Errorf("graphviz: create node %s: %w", n.ID, err)
		}
		gvNode.SetLabel(nodeLabel(n.Label))
		gvNode.SetFontName(cfg.FontFamily)
		gvNode.SetFontSize(fontSize)
		applyNodeStyle(gvNode, n, chart.NodeStyle(n), style)
		nodes[n.ID] = gvNode
	}

	for i, edge := range chart.Edges {
		from, to := nodes[edge.From], nodes[edge.To]
		if from == nil || to == nil {
			return fmt.Errorf("graphviz: edge %s->%s references unknown node", edge.From, edge.To)
		}
		gvEdge, err := graph.CreateEdgeByName(fmt.Sprintf("e%d", i), from, to)
		if err != nil {
			return fmt.Errorf("graphviz: create edge %s->%s: %w", edge.From, edge.To, err)
		}
		gvEdge.SetColor(style.EdgeStroke)
		gvEdge.SetFontColor(style.Text)
		gvEdge.SetFontName(cfg.FontFamily)
		gvEdge.SetFontSize(fontSize)
		if edge.Label != "" {
			gvEdge.SetLabel(nodeLabel(edge.Label))
		}
		switch edge.Stroke {
		case diagram.StrokeDotted:
			gvEdge.SetStyle(cgraph.DashedEdgeStyle)
		case diagram.StrokeThick:
			gvEdge.SetStyle(cgraph.BoldEdgeStyle)
		}
		if !edge.Arrow {
			gvEdge.SetArrowHead(cgraph.NoneArrow)
		}
		if edge.Bidirectional {
			gvEdge.SetDir(cgraph.BothDir)
		}
	}
	return nil
}

func applyNodeStyle(gvNode *cgraph.Node, n *diagram.Node, props map[string]string, style diagram.Style) {
	styles := []string{}
	switch n.Shape {
	case diagram.ShapeRounded, diagram.ShapeStadium:
		gvNode.SetShape(cgraph.BoxShape)
		styles = append(styles, "rounded")
	case diagram.ShapeCircle:
		gvNode.SetShape(cgraph.CircleShape)
	case diagram.ShapeDiamond:
		gvNode.SetShape(cgraph.DiamondShape)
	case diagram.ShapeHexagon:
		gvNode.SetShape(cgraph.HexagonShape)
	case diagram.ShapeCylinder:
		gvNode.SetShape(cgraph.Shape("cylinder"))
	case diagram.ShapeSubroutine:
		gvNode.SetShape(cgraph.Shape("component"))
	case diagram.ShapeFlag:
		gvNode.SetShape(cgraph.Shape("cds"))
	case diagram.ShapeSlanted:
		gvNode.SetShape(cgraph.Shape("parallelogram"))
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}

	fill := style.NodeFill
	if v := props["fill"]; v != "" {
		fill = v
	}
	stroke := style.NodeStroke
	if v := props["stroke"]; v != "" {
		stroke = v
	}
	text := style.Text
	if v := props["color"]; v != "" {
		text = v
	}

	// White fills are left unfilled so print repaints never blacken nodes.
	if !isWhite(fill) {
		styles = append(styles, "filled")
		gvNode.SetFillColor(fill)
	}
	if len(styles) > 0 {
		gvNode.SetStyle(cgraph.NodeStyle(strings.Join(styles, ",")))
	}
	gvNode.SetColor(stroke)
	gvNode.SetFontColor(text)
	if width := strings.TrimSuffix(props["stroke-width"], "px"); width != "" {
		var w float64
		if _, err := fmt.Sscanf(width, "%g", &w); err == nil && w > 0 {
			gvNode.SetPenWidth(w)
		}
	}
}

var (
	breakPattern = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
)

// nodeLabel turns line breaks into graphviz centered line escapes and
// drops any other inline markup.
func nodeLabel(label string) string {
	label = breakPattern.ReplaceAllString(label, "\n")
	label = tagPattern.ReplaceAllString(label, "")
	label = strings.ReplaceAll(label, `\`, `\\`)
	return strings.ReplaceAll(label, "\n", `\n`)
}

func isWhite(color string) bool {
	switch strings.ToLower(strings.TrimSpace(color)) {
	case "#fff", "#ffffff", "white":
		return true
	}
	return false
}

func pixelsToInches(px int) float64 {
	return float64(px) / 72
}
