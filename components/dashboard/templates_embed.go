package dashboard

import (
	"embed"
	"fmt"
	"io"
	"io/fs"

	template "github.com/goliatone/go-template"
)

//go:embed templates/*.html templates/**/*.html
var embeddedTemplates embed.FS

// Renderer describes the template renderer contract needed by the controller.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// TemplatesFS exposes the embedded dashboard templates so hosts can layer
// their own overrides on top.
func TemplatesFS() embed.FS {
	return embeddedTemplates
}

// NewTemplateRenderer creates a go-template renderer backed by the embedded templates.
// Template names resolve relative to the templates directory regardless of
// the process working directory.
func NewTemplateRenderer() (Renderer, error) {
	root, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("dashboard: open embedded templates: %w", err)
	}
	return template.NewRenderer(
		template.WithFS(root),
		template.WithExtension(".html"),
	)
}
