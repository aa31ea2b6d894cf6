// Package rewrite post-processes rendered HTML.
//
// A Rewriter resolves wd-partial directives, injects the head and body
// additions every full document gets, and expands cdn$ and me$ link
// commands. Named extras and minification run as separate steps so the
// caller controls their order.
package rewrite

import (
	"errors"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/zyllian/webdog/internal/config"
	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

// PartialTag is the element name of a partial include directive.
const PartialTag = "wd-partial"

// PartialTemplateAttr names the template a directive renders.
const PartialTemplateAttr = "t"

// MaxPartialDepth bounds how deeply partials may nest.
const MaxPartialDepth = 16

var (
	// ErrPartialCycle is returned when a partial includes itself directly or
	// transitively, or nesting exceeds MaxPartialDepth.
	ErrPartialCycle = errors.New("partial include cycle")
	// ErrMissingPartialTemplate is returned for a directive without a t attribute.
	ErrMissingPartialTemplate = errors.New("wd-partial is missing its t attribute")
)

// Partial is one include directive found in a document.
type Partial struct {
	// Template is the value of the t attribute.
	Template string
	// Attrs holds every attribute of the directive, t included.
	Attrs map[string]string
	// Inner is the directive's inner markup.
	Inner string
	// Chain lists the partial templates being rendered, outermost first,
	// ending with Template.
	Chain []string
}

// PartialFunc renders a partial through the full page pipeline in fragment
// mode and returns the resulting document.
type PartialFunc func(p Partial) (string, error)

// Options describe one document passing through Rewrite.
type Options struct {
	Title string
	// Head is extra markup appended to the head, such as embed metadata.
	Head    string
	Scripts []string
	Styles  []string
	// Fragment documents only get partial resolution.
	Fragment bool
	// Chain is the partial chain of the document being rewritten.
	Chain []string
}

// Rewriter applies the rewrite steps for one site configuration.
type Rewriter struct {
	cfg      *config.SiteConfig
	serving  bool
	partials PartialFunc
}

// New creates a Rewriter. partials may be nil when documents never contain
// directives.
func New(cfg *config.SiteConfig, serving bool, partials PartialFunc) *Rewriter {
	return &Rewriter{cfg: cfg, serving: serving, partials: partials}
}

// Rewrite runs partial resolution and, for full documents, head injection
// and link rewriting.
func (r *Rewriter) Rewrite(doc string, opts Options) (string, error) {
	if opts.Fragment && !containsPartial(doc) {
		return doc, nil
	}

	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", ferrors.RenderError("failed to parse rendered html").WithCause(err).Build()
	}
	changed, err := r.resolvePartials(d, opts.Chain)
	if err != nil {
		return "", err
	}

	if opts.Fragment {
		if !changed {
			return doc, nil
		}
		return serialize(d)
	}

	r.injectHead(d, opts)
	if err := r.rewriteLinks(d); err != nil {
		return "", err
	}
	return serialize(d)
}

// resolvePartials replaces directives until none remain.
func (r *Rewriter) resolvePartials(d *goquery.Document, chain []string) (bool, error) {
	changed := false
	for {
		sel := d.Find(PartialTag).First()
		if sel.Length() == 0 {
			return changed, nil
		}
		changed = true

		attrs := make(map[string]string, len(sel.Nodes[0].Attr))
		for _, a := range sel.Nodes[0].Attr {
			attrs[a.Key] = a.Val
		}
		tmpl, ok := attrs[PartialTemplateAttr]
		if !ok || tmpl == "" {
			return false, ferrors.RenderError("invalid partial directive").WithCause(ErrMissingPartialTemplate).Build()
		}
		if slices.Contains(chain, tmpl) || len(chain) >= MaxPartialDepth {
			return false, ferrors.RenderError("partial includes itself").
				WithCause(ErrPartialCycle).
				WithContext("template", tmpl).
				WithContext("chain", strings.Join(append(slices.Clone(chain), tmpl), " -> ")).
				Build()
		}
		if r.partials == nil {
			return false, ferrors.InternalError("partial renderer not configured").Build()
		}

		inner, err := sel.Html()
		if err != nil {
			return false, ferrors.RenderError("failed to serialize partial content").WithCause(err).Build()
		}
		out, err := r.partials(Partial{
			Template: tmpl,
			Attrs:    attrs,
			Inner:    inner,
			Chain:    append(slices.Clone(chain), tmpl),
		})
		if err != nil {
			return false, err
		}
		body, err := fragmentBody(out)
		if err != nil {
			return false, err
		}
		sel.ReplaceWithHtml(body)
	}
}

func containsPartial(doc string) bool {
	return strings.Contains(strings.ToLower(doc), "<"+PartialTag)
}

func serialize(d *goquery.Document) (string, error) {
	out, err := d.Html()
	if err != nil {
		return "", ferrors.RenderError("failed to serialize html").WithCause(err).Build()
	}
	return out, nil
}
