package testing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zyllian/webdog/internal/config"
	"github.com/zyllian/webdog/internal/frontmatter"
	"github.com/zyllian/webdog/internal/resource"
)

// BaseTemplate is the default page template written by NewSiteFixture.
const BaseTemplate = `<!DOCTYPE html><html><head></head><body><main class="page">{{.Page}}</main><div id="content"></div></body></html>`

// SiteFixture builds a site directory on disk with a fluent interface.
type SiteFixture struct {
	t      *testing.T
	Dir    string
	Config *config.SiteConfig
}

// NewSiteFixture creates a site in a temporary directory with a base
// template and a configuration that needs no stylesheets.
func NewSiteFixture(t *testing.T) *SiteFixture {
	t.Helper()
	cfg := config.New("https://example.com/", "Test Site", "https://cdn.example/")
	cfg.SassStyles = []string{}
	f := &SiteFixture{t: t, Dir: t.TempDir(), Config: cfg}
	return f.WithTemplate("base", BaseTemplate)
}

// WithTemplate writes templates/<name>.tmpl.
func (f *SiteFixture) WithTemplate(name, body string) *SiteFixture {
	f.t.Helper()
	return f.WithFile(filepath.Join("templates", filepath.FromSlash(name)+".tmpl"), body)
}

// WithPage writes pages/<id>.md with optional front matter.
func (f *SiteFixture) WithPage(id string, meta any, body string) *SiteFixture {
	f.t.Helper()
	raw := body
	if meta != nil {
		var err error
		if raw, err = frontmatter.Format(&meta, body); err != nil {
			f.t.Fatalf("format page front matter: %v", err)
		}
	}
	return f.WithFile(filepath.Join("pages", filepath.FromSlash(id)+".md"), raw)
}

// WithFile writes an arbitrary file relative to the site directory.
func (f *SiteFixture) WithFile(rel, content string) *SiteFixture {
	f.t.Helper()
	p := filepath.Join(f.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), testDirPermissions); err != nil {
		f.t.Fatalf("create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), testFilePermissions); err != nil {
		f.t.Fatalf("write %s: %v", rel, err)
	}
	return f
}

// WithBlog registers a "blog" resource type with small list and detail
// templates, three items per page.
func (f *SiteFixture) WithBlog() *SiteFixture {
	f.t.Helper()
	f.Config.Resources["blog"] = &config.ResourceTypeConfig{
		SourcePath:           "blog",
		OutputPathResources:  "blog",
		OutputPathLists:      "blog",
		ResourceTemplate:     "blog/resource",
		ResourceListTemplate: "blog/list",
		TagListTemplate:      "basic-link-list",
		RSSTemplate:          "blog/rss",
		RSSTitle:             "Test blog",
		RSSDescription:       "Posts",
		ListTitle:            "Blog",
		TagListTitle:         "Blog tags",
		ResourceNamePlural:   "Posts",
		ResourcesPerPage:     3,
		TimestampFormat:      config.DefaultTimestampFormat,
	}
	return f.
		WithTemplate("blog/resource", `<!DOCTYPE html><html><head></head><body><article><h1>{{.Data.Title}}</h1>{{.Data.Content}}</article></body></html>`).
		WithTemplate("blog/list", `<!DOCTYPE html><html><head></head><body><ul>{{range .Data.Resources}}<li><a href="/blog/{{.ID}}">{{.Title}}</a></li>{{end}}</ul><p>{{.Data.Page}}/{{.Data.PageMax}}</p></body></html>`).
		WithTemplate("basic-link-list", `<!DOCTYPE html><html><head></head><body><h1>{{.Data.Title}}</h1>{{range .Data.Links}}<a href="{{.Link}}">{{.Title}}</a>{{end}}</body></html>`).
		WithTemplate("blog/rss", `{{.Content}}`)
}

// WithResource writes resources/<dir>/<id>.md.
func (f *SiteFixture) WithResource(dir, id string, meta resource.Metadata, body string) *SiteFixture {
	f.t.Helper()
	raw, err := frontmatter.Format(&meta, body)
	if err != nil {
		f.t.Fatalf("format resource %s: %v", id, err)
	}
	return f.WithFile(filepath.Join(resource.Dir, dir, id+".md"), raw)
}

// Post returns resource metadata with the given title and a timestamp
// offset by days from a fixed date.
func Post(title string, days int, tags ...string) resource.Metadata {
	return resource.Metadata{
		Title:     title,
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, days),
		Tags:      tags,
	}
}

// Write saves config.yaml and returns the site directory.
func (f *SiteFixture) Write() string {
	f.t.Helper()
	if err := f.Config.Save(f.Dir); err != nil {
		f.t.Fatalf("save config: %v", err)
	}
	return f.Dir
}
