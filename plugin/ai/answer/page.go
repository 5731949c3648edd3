package answer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/olivesarenice/telegram-rag/store"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
<article>
<h1>{{.Title}}</h1>
<p><small>{{.UpdatedAt}} UTC</small></p>
{{.Body}}
</article>
</body>
</html>
`))

// PageRenderer renders a note's cleaned body as a standalone HTML page.
type PageRenderer struct {
	markdown goldmark.Markdown
}

// NewPageRenderer creates a PageRenderer with GitHub flavoured markdown.
func NewPageRenderer() *PageRenderer {
	return &PageRenderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Render returns the page for note.
func (r *PageRenderer) Render(note *store.Note) ([]byte, error) {
	var body bytes.Buffer
	if err := r.markdown.Convert([]byte(note.CleanedBody), &body); err != nil {
		return nil, fmt.Errorf("failed to render note body: %w", err)
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title     string
		UpdatedAt string
		Body      template.HTML
	}{
		Title:     note.Title,
		UpdatedAt: note.UpdatedAt,
		// goldmark omits raw HTML in the body unless WithUnsafe is set.
		Body: template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return page.Bytes(), nil
}
