// Package templates holds the site's named HTML templates.
//
// Every file matching templates/**/*.tmpl is registered under its path
// relative to the templates directory, slash separated, without the
// extension: templates/blog/list.tmpl is "blog/list".
package templates

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

// Ext is the extension template files must carry.
const Ext = ".tmpl"

// DefaultTemplate is used when a page does not name one.
const DefaultTemplate = "base"

// ErrTemplateNotFound is returned when rendering a name that was never registered.
var ErrTemplateNotFound = errors.New("template not found")

// Registry is a set of named templates loaded from a directory. Reload must
// not run concurrently with Render; concurrent Render calls are safe.
type Registry struct {
	dir   string
	set   *template.Template
	names map[string]struct{}
}

// NewRegistry creates an empty registry rooted at dir. Call Reload to load it.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:   dir,
		set:   template.New("").Funcs(funcs()),
		names: map[string]struct{}{},
	}
}

// Reload discards every template and parses the directory again. On error
// the previous set is kept.
func (r *Registry) Reload() error {
	set := template.New("").Funcs(funcs())
	names := map[string]struct{}{}

	err := filepath.WalkDir(r.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == r.dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || filepath.Ext(p) != Ext {
			return nil
		}
		rel, err := filepath.Rel(r.dir, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), Ext)
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if _, err := set.New(name).Parse(string(data)); err != nil {
			return ferrors.TemplateError("failed to parse template").
				WithCause(err).
				WithContext("template", name).
				Build()
		}
		names[name] = struct{}{}
		return nil
	})
	if err != nil {
		if _, ok := ferrors.AsClassified(err); ok {
			return err
		}
		return ferrors.TemplateError("failed to load templates").WithCause(err).WithContext("dir", r.dir).Build()
	}

	r.set = set
	r.names = names
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.names[name]
	return ok
}

// Names returns the registered template names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Render executes the named template with data.
func (r *Registry) Render(name string, data any) (string, error) {
	if !r.Has(name) {
		return "", ferrors.TemplateError("unknown template").
			WithCause(ErrTemplateNotFound).
			WithContext("template", name).
			Build()
	}
	var buf bytes.Buffer
	if err := r.set.ExecuteTemplate(&buf, name, data); err != nil {
		return "", ferrors.TemplateError("failed to render template").
			WithCause(err).
			WithContext("template", name).
			Build()
	}
	return buf.String(), nil
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"safe":  func(s string) template.HTML { return template.HTML(s) }, // #nosec G203 -- site authors own their templates
		"join":  strings.Join,
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"date": func(layout string, t time.Time) string {
			return t.Format(layout)
		},
	}
}
