package exporttemplate

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-workflow-export/export"
)

// TemplateExecutor executes a named template with data.
type TemplateExecutor interface {
	ExecuteTemplate(w io.Writer, name string, data map[string]any) error
}

// Executor holds compiled pongo2 templates.
type Executor struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
}

var _ TemplateExecutor = (*Executor)(nil)

// NewExecutor returns an executor with its own template set.
func NewExecutor(name string) *Executor {
	if name == "" {
		name = "export"
	}
	return &Executor{
		set:       pongo2.NewSet(name, pongo2.MustNewLocalFileSystemLoader("")),
		templates: make(map[string]*pongo2.Template),
	}
}

// Register compiles source under name, replacing any previous template.
func (e *Executor) Register(name, source string) error {
	if name == "" {
		return export.NewError(export.KindValidation, "template name is required", nil)
	}
	tpl, err := e.set.FromString(source)
	if err != nil {
		return export.NewError(export.KindValidation, fmt.Sprintf("compile template %q", name), err)
	}
	e.mu.Lock()
	e.templates[name] = tpl
	e.mu.Unlock()
	return nil
}

// MustRegister is Register for package-level template tables.
func (e *Executor) MustRegister(templates map[string]string) *Executor {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := e.Register(name, templates[name]); err != nil {
			panic(err)
		}
	}
	return e
}

// Has reports whether name is registered.
func (e *Executor) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.templates[name]
	return ok
}

// ExecuteTemplate renders name into w.
func (e *Executor) ExecuteTemplate(w io.Writer, name string, data map[string]any) error {
	e.mu.RLock()
	tpl, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return export.NewError(export.KindNotFound, fmt.Sprintf("template %q not registered", name), nil)
	}
	if err := tpl.ExecuteWriter(pongo2.Context(data), w); err != nil {
		var exportErr *export.ExportError
		if errors.As(err, &exportErr) {
			return err
		}
		return export.NewError(export.KindInternal, fmt.Sprintf("execute template %q", name), err)
	}
	return nil
}
