package rewrite

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

// Minifier compacts finished documents, including inline styles and scripts.
type Minifier struct {
	m *minify.M
}

// NewMinifier creates a Minifier.
func NewMinifier() *Minifier {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepDefaultAttrVals: true,
		KeepQuotes:          true,
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	return &Minifier{m: m}
}

// HTML minifies a document.
func (m *Minifier) HTML(doc string) (string, error) {
	out, err := m.m.String("text/html", doc)
	if err != nil {
		return "", ferrors.RenderError("failed to minify html").WithCause(err).Build()
	}
	return out, nil
}
