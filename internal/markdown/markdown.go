// Package markdown converts page and resource bodies to HTML.
//
// Fenced code blocks are highlighted with chroma using the site's code theme
// and wrapped with a copy button consumed by webdog.js. Raw HTML is passed
// through so directives such as wd-partial survive conversion.
package markdown

import (
	"bytes"

	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

// Converter renders Markdown to HTML. It is safe for concurrent use.
type Converter struct {
	md goldmark.Markdown
}

// Themes exposes the chroma style registry as a theme set for config validation.
type Themes struct{}

// HasTheme reports whether chroma knows a style named name.
func (Themes) HasTheme(name string) bool {
	_, ok := styles.Registry[name]
	return ok
}

// New creates a converter highlighting code with the given chroma style.
func New(theme string) *Converter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.DefinitionList,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle(theme),
				highlighting.WithWrapperRenderer(codeBlockWrapper),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAttribute(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	return &Converter{md: md}
}

// Convert renders source to HTML.
func (c *Converter) Convert(source string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(source), &buf); err != nil {
		return "", ferrors.RenderError("failed to render markdown").WithCause(err).Build()
	}
	return buf.String(), nil
}

func codeBlockWrapper(w util.BufWriter, _ highlighting.CodeBlockContext, entering bool) {
	if entering {
		_, _ = w.WriteString(`<div class="wd-codeblock"><button class="copy">Copy</button>`)
		return
	}
	_, _ = w.WriteString(`</div>`)
}
