package resource

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zyllian/webdog/internal/config"
	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
	"github.com/zyllian/webdog/internal/frontmatter"
)

// Dir is the site directory holding every resource type's source directory.
const Dir = "resources"

// Converter renders Markdown bodies to HTML.
type Converter interface {
	Convert(source string) (string, error)
}

// Collection is the loaded items of one resource type, newest first.
type Collection struct {
	Name   string
	Config *config.ResourceTypeConfig
	Items  []*Item
}

// Loader reads resource collections from a site directory.
type Loader struct {
	SitePath string
	Site     *config.SiteConfig
	Markdown Converter
	// Serving keeps drafts.
	Serving bool
}

// SourceDir returns the directory a resource type is loaded from.
func (l *Loader) SourceDir(rc *config.ResourceTypeConfig) string {
	return filepath.Join(l.SitePath, Dir, filepath.FromSlash(rc.SourcePath))
}

// Load reads every .md file directly inside the type's source directory.
// Drafts are skipped unless serving. Items are sorted by timestamp, newest
// first, with ties broken by ID.
func (l *Loader) Load(name string, rc *config.ResourceTypeConfig) (*Collection, error) {
	dir := l.SourceDir(rc)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ferrors.ResourceError("failed to read resource directory").
			WithCause(err).
			WithContext("resource_type", name).
			WithContext("path", dir).
			Build()
	}

	items := make([]*Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		item, err := l.loadItem(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, ferrors.ResourceError("failed to load resource").
				WithCause(err).
				WithContext("resource_type", name).
				WithContext("path", filepath.Join(dir, e.Name())).
				Build()
		}
		if item.Draft && !l.Serving {
			continue
		}
		items = append(items, item)
	}
	SortItems(items)

	return &Collection{Name: name, Config: rc, Items: items}, nil
}

func (l *Loader) loadItem(path string) (*Item, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from the site's resource directory listing
	if err != nil {
		return nil, err
	}
	meta, body, err := frontmatter.ParseRequired[Metadata](string(raw))
	if err != nil {
		return nil, err
	}
	content, err := l.Markdown.Convert(body)
	if err != nil {
		return nil, err
	}
	if meta.CDNFile != "" {
		resolved, err := l.Site.ResolveCDN(meta.CDNFile)
		if err != nil {
			return nil, err
		}
		meta.CDNFile = resolved
	}
	return &Item{
		ID:       ItemID(path),
		Metadata: meta,
		Content:  content,
	}, nil
}

// ItemID returns the id of the resource stored at path.
func ItemID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SortItems orders items newest first, breaking timestamp ties by ID.
func SortItems(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID < b.ID
	})
}

// Views returns template views of the first n items, or all when n < 0.
func (c *Collection) Views(n int) []TemplateItem {
	if n < 0 || n > len(c.Items) {
		n = len(c.Items)
	}
	out := make([]TemplateItem, n)
	for i, it := range c.Items[:n] {
		out[i] = it.View(c.Config.TimestampFormat)
	}
	return out
}
