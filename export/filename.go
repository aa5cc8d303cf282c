package export

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// DefaultFilenameTemplate builds `{Prefix}_{TypeName}_{Industry}`.
const DefaultFilenameTemplate = "{{.Prefix}}_{{.TypeName}}_{{.Industry}}"

// FilenameData feeds the filename template.
type FilenameData struct {
	Prefix   string
	TypeName string
	Industry string
	Date     string
}

var filenameReplacer = strings.NewReplacer("/", "-", "\\", "-", "\x00", "")

// RenderFilename executes pattern against data and appends the pdf extension.
func RenderFilename(pattern string, data FilenameData, now time.Time) (string, error) {
	if pattern == "" {
		pattern = DefaultFilenameTemplate
	}
	if data.Date == "" {
		data.Date = now.UTC().Format("20060102")
	}

	tmpl, err := template.New("filename").Parse(pattern)
	if err != nil {
		return "", NewError(KindValidation, "invalid filename template", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewError(KindValidation, "render filename", err)
	}

	result := filenameReplacer.Replace(strings.TrimSpace(buf.String()))
	if result == "" || strings.Trim(result, "_") == "" {
		return "", NewError(KindValidation, fmt.Sprintf("empty filename from template %q", pattern), nil)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".pdf") {
		result += ".pdf"
	}
	return result, nil
}
