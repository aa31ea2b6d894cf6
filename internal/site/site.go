// Package site is the build orchestrator. A Builder owns the site
// configuration, the page index, the template registry and one loaded
// collection per resource type, and exposes building one page, one
// resource type, or the whole site.
//
// A Builder is not safe for concurrent mutation. Reload, ReloadConfig,
// ReloadResourceType, SetPage and RemovePage must be called from a single
// goroutine; the build methods fan out read-only work internally.
package site

import (
	"errors"
	"html/template"

	"github.com/zyllian/webdog/internal/rewrite"
)

// Site directory layout.
const (
	PagesDir     = "pages"
	TemplatesDir = "templates"
	RootDir      = "root"
	PageExt      = ".md"
)

// ErrUnknownResourceType is returned for a resource type missing from the configuration.
var ErrUnknownResourceType = errors.New("unknown resource type")

// PageMetadata is a page's front matter.
type PageMetadata struct {
	Title string `yaml:"title,omitempty"`
	// Template defaults to "base".
	Template string             `yaml:"template,omitempty"`
	Embed    *rewrite.Embed     `yaml:"embed,omitempty"`
	Scripts  []string           `yaml:"scripts,omitempty"`
	Styles   []string           `yaml:"styles,omitempty"`
	Extra    *rewrite.ExtraData `yaml:"extra,omitempty"`
	// Userdata is passed to the template untouched. Partials receive their
	// directive attributes here.
	Userdata map[string]any `yaml:"userdata,omitempty"`
}

// Validate rejects unknown extras at parse time.
func (m *PageMetadata) Validate() error {
	if m.Extra != nil {
		return m.Extra.Validate()
	}
	return nil
}

// TemplateData is the context every page template renders with.
type TemplateData struct {
	Page     template.HTML
	Title    string
	Data     any
	Userdata map[string]any
}
