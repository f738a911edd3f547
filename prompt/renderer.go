// Package prompt renders per-document prompt templates.
package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// Render substitutes placeholders in templateText with fields from the
// document source. The full source, control block included, is bound under
// "ctx", so a template references document fields as {{.ctx.field}}.
// A reference the engine cannot resolve is a render error.
//
// Render is a pure function of its inputs; templates are recompiled on every
// call rather than cached.
func Render(templateText string, source map[string]any) (string, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(templateText)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, map[string]any{"ctx": source}); err != nil {
		return "", fmt.Errorf("rendering prompt template: %w", err)
	}
	return buf.String(), nil
}
