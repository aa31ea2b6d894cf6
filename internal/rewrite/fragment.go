package rewrite

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

// fragmentBody parses doc as a full document and returns the markup inside
// its body element.
func fragmentBody(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", ferrors.RenderError("failed to parse partial output").WithCause(err).Build()
	}
	body := findElement(root, atom.Body)
	if body == nil {
		return "", nil
	}
	var b strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", ferrors.RenderError("failed to render partial output").WithCause(err).Build()
		}
	}
	return b.String(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
