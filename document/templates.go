package document

import (
	"bytes"

	exporttemplate "github.com/goliatone/go-workflow-export/adapters/template"
)

const (
	headerTemplate  = "header"
	contentTemplate = "content"
)

// DiagramContainerID is the id of the diagram container element.
const DiagramContainerID = "workflow-diagram"

// HeaderClass marks the export header.
const HeaderClass = "export-header"

const headerSource = `<header class="` + HeaderClass + `" dir="{{ dir }}">
<h1>{{ title }}</h1>
<p class="export-date">{{ date_label }}: {{ date }}</p>
</header>`

const contentSource = `<section class="strategy">
<h2>{{ strategy_heading }}</h2>
{% for p in paragraphs %}<p>{{ p }}</p>
{% endfor %}</section>
{% if kpis %}<section class="kpis page-break-avoid">
<h2>{{ kpi_heading }}</h2>
<ul>{% for k in kpis %}<li>{{ k }}</li>{% endfor %}</ul>
</section>
{% endif %}<section class="diagram page-break-avoid">
<h2>{{ diagram_heading }}</h2>
<div id="` + DiagramContainerID + `" class="diagram-container"></div>
</section>`

// Templates are the default document templates.
func Templates() *exporttemplate.Executor {
	return exporttemplate.NewExecutor("document").MustRegister(map[string]string{
		headerTemplate:  headerSource,
		contentTemplate: contentSource,
	})
}

func execute(tpl exporttemplate.TemplateExecutor, name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
