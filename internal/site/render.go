package site

import (
	"errors"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
	"github.com/zyllian/webdog/internal/frontmatter"
	"github.com/zyllian/webdog/internal/resource"
	"github.com/zyllian/webdog/internal/rewrite"
	"github.com/zyllian/webdog/internal/templates"
)

type pageRequest struct {
	meta     PageMetadata
	html     string
	data     any
	fragment bool
	chain    []string
}

// BuildPageRaw renders a page body through its template and the rewrite
// pipeline without writing it anywhere.
func (b *Builder) BuildPageRaw(meta PageMetadata, pageHTML string, data any) (string, error) {
	return b.render(pageRequest{meta: meta, html: pageHTML, data: data})
}

func (b *Builder) render(req pageRequest) (string, error) {
	meta := req.meta
	title := b.cfg.Title
	if meta.Title != "" {
		title = b.cfg.Title + " / " + meta.Title
	}

	var head string
	if meta.Embed != nil {
		var err error
		if head, err = meta.Embed.Render(b.cfg); err != nil {
			return "", ferrors.RenderError("failed to render embed metadata").WithCause(err).Build()
		}
	}

	tmpl := meta.Template
	if tmpl == "" {
		tmpl = templates.DefaultTemplate
	}
	out, err := b.templates.Render(tmpl, TemplateData{
		Page:     template.HTML(req.html), // #nosec G203 -- page html is rendered from site sources
		Title:    title,
		Data:     req.data,
		Userdata: meta.Userdata,
	})
	if err != nil {
		return "", err
	}

	out, err = b.rewriter.Rewrite(out, rewrite.Options{
		Title:    title,
		Head:     head,
		Scripts:  meta.Scripts,
		Styles:   meta.Styles,
		Fragment: req.fragment,
		Chain:    req.chain,
	})
	if err != nil {
		return "", err
	}

	if meta.Extra != nil {
		if out, err = rewrite.ApplyExtra(out, meta.Extra, b); err != nil {
			return "", err
		}
	}

	// Fragments are minified as part of the document they end up in.
	if !b.serving && !req.fragment {
		if out, err = b.minifier.HTML(out); err != nil {
			return "", err
		}
	}
	return out, nil
}

// renderPartial builds a wd-partial directive as a fragment. The directive's
// attributes become the page's userdata and its inner markup the page body.
func (b *Builder) renderPartial(p rewrite.Partial) (string, error) {
	userdata := make(map[string]any, len(p.Attrs))
	for k, v := range p.Attrs {
		userdata[k] = v
	}
	return b.render(pageRequest{
		meta:     PageMetadata{Template: p.Template, Userdata: userdata},
		html:     p.Inner,
		fragment: true,
		chain:    p.Chain,
	})
}

// BuildPage renders the indexed page id to <build>/<id>.html.
func (b *Builder) BuildPage(id string) error {
	path, ok := b.pages[id]
	if !ok {
		return ferrors.NewError(ferrors.CategoryNotFound, "page not in index").WithContext("page", id).Build()
	}
	raw, err := os.ReadFile(path) // #nosec G304 -- page paths come from the page index
	if err != nil {
		return ferrors.FileSystemError("failed to read page").WithCause(err).WithContext("path", path).Build()
	}
	meta, body, err := frontmatter.Parse[PageMetadata](string(raw))
	if err != nil {
		return ferrors.FrontMatterError("failed to parse page front matter").WithCause(err).WithContext("page", id).Build()
	}
	if meta == nil {
		meta = &PageMetadata{}
	}
	pageHTML, err := b.markdown.Convert(body)
	if err != nil {
		return ferrors.RenderError("failed to render markdown").WithCause(err).WithContext("page", id).Build()
	}
	out, err := b.BuildPageRaw(*meta, pageHTML, nil)
	if err != nil {
		if ce, ok := ferrors.AsClassified(err); ok {
			return ce.WithContext("page", id)
		}
		return ferrors.WrapError(err, ferrors.CategoryRender, "failed to build page").WithContext("page", id).Build()
	}

	dst := b.pageOutput(id)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ferrors.FileSystemError("failed to create page directory").WithCause(err).WithContext("path", dst).Build()
	}
	if err := os.WriteFile(dst, []byte(out), 0o644); err != nil {
		return ferrors.FileSystemError("failed to write page").WithCause(err).WithContext("path", dst).Build()
	}
	return nil
}

// SetPage adds or updates a page in the index.
func (b *Builder) SetPage(id, path string) {
	b.pages[id] = path
}

// RemovePage drops a page from the index and deletes its output.
func (b *Builder) RemovePage(id string) error {
	delete(b.pages, id)
	dst := b.pageOutput(id)
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ferrors.FileSystemError("failed to remove page output").WithCause(err).WithContext("path", dst).Build()
	}
	return nil
}

// RemovePagesUnder removes every indexed page whose source was below dir,
// such as after a whole pages subdirectory is deleted. It returns how many
// pages were removed.
func (b *Builder) RemovePagesUnder(dir string) (int, error) {
	removed := 0
	for _, id := range b.pages.IDs() {
		if _, ok := PageID(dir, b.pages[id]); !ok {
			continue
		}
		if err := b.RemovePage(id); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (b *Builder) pageOutput(id string) string {
	return filepath.Join(b.buildDir, filepath.FromSlash(id)+".html")
}

// RenderPage implements resource.Renderer.
func (b *Builder) RenderPage(p resource.Page) (string, error) {
	return b.render(pageRequest{
		meta: PageMetadata{Title: p.Title, Template: p.Template, Embed: p.Embed},
		data: p.Data,
	})
}

// RenderTemplate renders a template without the rewrite pipeline.
func (b *Builder) RenderTemplate(name string, data any) (string, error) {
	return b.templates.Render(name, data)
}

// RecentResources returns template views of the newest count items of a
// resource type. A negative count returns every item.
func (b *Builder) RecentResources(resourceType string, count int) (any, error) {
	c, ok := b.collections[resourceType]
	if !ok {
		return nil, ferrors.ResourceError("missing resource type").
			WithCause(ErrUnknownResourceType).
			WithContext("resource_type", resourceType).
			Build()
	}
	return c.Views(count), nil
}

var (
	_ resource.Renderer = (*Builder)(nil)
	_ rewrite.ExtraHost = (*Builder)(nil)
)
