package adapter

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.tmpl
var reportTemplateFS embed.FS

type reportTemplate string

const (
	templateReport reportTemplate = "report"
	templateSaved  reportTemplate = "saved"
)

// loadReportTemplates parses the embedded set once; every formatter shares it.
var loadReportTemplates = sync.OnceValues(func() (*template.Template, error) {
	return template.New("formatter").
		Funcs(template.FuncMap{"upper": strings.ToUpper}).
		ParseFS(reportTemplateFS, "templates/*.tmpl")
})

func render(name reportTemplate, data any) (string, error) {
	set, err := loadReportTemplates()
	if err != nil {
		return "", fmt.Errorf("load report templates: %w", err)
	}

	var sb strings.Builder
	if err := set.ExecuteTemplate(&sb, string(name), data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
