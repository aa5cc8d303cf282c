package strategy

import (
	"strings"

	"github.com/goliatone/go-workflow-export/locale"
)

// Request is the body accepted by the upstream strategy generator.
type Request struct {
	StrategyType string   `json:"strategy_type"`
	Stage        string   `json:"stage"`
	Industry     string   `json:"industry"`
	Keywords     []string `json:"keywords"`
	DiagramStyle string   `json:"diagram_style"`
	Language     string   `json:"language,omitempty"`
}

// Response is the upstream generator payload. Only WorkflowDiagram feeds
// the diagram pipeline; the rest is narrative content.
type Response struct {
	Success         bool     `json:"success"`
	Strategy        string   `json:"strategy"`
	KPIs            []string `json:"kpis"`
	WorkflowDiagram string   `json:"workflow_diagram"`
	ModelUsed       string   `json:"model_used,omitempty"`
	StrategyType    string   `json:"strategy_type,omitempty"`
}

// Language detects the output language from the strategy text.
func (r Response) Language() locale.Language {
	return locale.Detect(r.Strategy)
}

// Paragraphs splits the strategy text into non-empty paragraphs.
func (r Response) Paragraphs() []string {
	lines := strings.Split(strings.ReplaceAll(r.Strategy, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
