package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zyllian/webdog/internal/config"
	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
	"github.com/zyllian/webdog/internal/rewrite"
)

// Page is a generated page to run through the full page pipeline.
type Page struct {
	Template string
	Title    string
	Embed    *rewrite.Embed
	Data     any
}

// Renderer is what writing a collection needs from the site builder.
type Renderer interface {
	// RenderPage runs the full page pipeline with an empty body.
	RenderPage(p Page) (string, error)
	// RenderTemplate renders a template on its own.
	RenderTemplate(name string, data any) (string, error)
}

// Writer writes a collection's output files under BuildDir.
type Writer struct {
	Site     *config.SiteConfig
	BuildDir string
	Renderer Renderer
	// Now stamps the feed's build date. Defaults to time.Now.
	Now func() time.Time
}

// Write renders detail pages, paginated lists, per-tag lists, the tag index
// and the feed. Any failure aborts the remaining steps.
func (w *Writer) Write(ctx context.Context, c *Collection) error {
	rc := c.Config
	itemsDir := filepath.Join(w.BuildDir, filepath.FromSlash(rc.OutputPathResources))
	listDir := filepath.Join(w.BuildDir, filepath.FromSlash(rc.OutputPathLists))
	for _, dir := range []string{itemsDir, listDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return w.fsError(c, dir, err)
		}
	}

	if err := w.writeDetails(ctx, c, itemsDir); err != nil {
		return err
	}
	if err := w.writeList(c, c.Items, rc.ListTitle, "", listDir); err != nil {
		return err
	}

	groups := GroupByTag(c.Items)
	if err := w.writeTagIndex(c, groups, itemsDir); err != nil {
		return err
	}
	for tag, items := range groups {
		title := fmt.Sprintf("%s tagged %s", rc.ResourceNamePlural, tag)
		if err := w.writeList(c, items, title, tag, filepath.Join(itemsDir, "tag", tag)); err != nil {
			return err
		}
	}

	return w.writeFeed(c, listDir)
}

func (w *Writer) writeDetails(ctx context.Context, c *Collection, itemsDir string) error {
	rc := c.Config
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, it := range c.Items {
		it := it
		g.Go(func() error {
			out, err := w.Renderer.RenderPage(Page{
				Template: rc.ResourceTemplate,
				Title:    it.Title,
				Embed: &rewrite.Embed{
					Title:       it.Title,
					Description: it.Desc,
					Image:       it.CDNFile,
					LargeImage:  true,
				},
				Data: it.View(rc.TimestampFormat),
			})
			if err != nil {
				return ferrors.ResourceError("failed to render resource page").
					WithCause(err).
					WithContext("resource_type", c.Name).
					WithContext("id", it.ID).
					Build()
			}
			return w.writeFile(c, filepath.Join(itemsDir, it.ID+".html"), out)
		})
	}
	return g.Wait()
}

// writeList writes <dir>/<p>.html for every page and duplicates page 1 as
// <dir>/index.html. The directory is created even when items is empty.
func (w *Writer) writeList(c *Collection, items []*Item, title, tag, dir string) error {
	rc := c.Config
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return w.fsError(c, dir, err)
	}
	spans := Paginate(len(items), rc.ResourcesPerPage)
	for _, span := range spans {
		views := make([]TemplateItem, 0, span.End-span.Start)
		for _, it := range items[span.Start:span.End] {
			views = append(views, it.View(rc.TimestampFormat))
		}
		out, err := w.Renderer.RenderPage(Page{
			Template: rc.ResourceListTemplate,
			Title:    title,
			Data: ListData{
				Resources: views,
				Tag:       tag,
				Page:      span.Page,
				PageMax:   span.PageMax,
				Previous:  span.Previous,
				Next:      span.Next,
			},
		})
		if err != nil {
			return ferrors.ResourceError("failed to render resource list").
				WithCause(err).
				WithContext("resource_type", c.Name).
				WithContext("page", span.Page).
				Build()
		}
		if span.Page == 1 {
			if err := w.writeFile(c, filepath.Join(dir, "index.html"), out); err != nil {
				return err
			}
		}
		if err := w.writeFile(c, filepath.Join(dir, strconv.Itoa(span.Page)+".html"), out); err != nil {
			return err
		}
	}
	return w.pruneList(c, dir, len(spans))
}

// pruneList removes list pages past pages, left over from a larger
// collection. Detail pages of items with numeric ids are kept.
func (w *Writer) pruneList(c *Collection, dir string, pages int) error {
	// Lists written at the build root share it with site pages.
	if filepath.Clean(dir) == filepath.Clean(w.BuildDir) {
		return nil
	}
	if pages == 0 {
		if err := removeIfExists(filepath.Join(dir, "index.html")); err != nil {
			return w.fsError(c, dir, err)
		}
	}
	ids := make(map[string]bool, len(c.Items))
	for _, it := range c.Items {
		ids[it.ID] = true
	}
	for n := pages + 1; ; n++ {
		name := strconv.Itoa(n)
		if ids[name] {
			continue
		}
		p := filepath.Join(dir, name+".html")
		if err := os.Remove(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return w.fsError(c, p, err)
		}
	}
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (w *Writer) writeTagIndex(c *Collection, groups map[string][]*Item, itemsDir string) error {
	rc := c.Config
	tags := SortedTags(groups)
	links := make([]Link, 0, len(tags))
	for _, tc := range tags {
		links = append(links, Link{
			Link:  fmt.Sprintf("/%s/tag/%s/", rc.OutputPathResources, url.PathEscape(tc.Tag)),
			Title: fmt.Sprintf("%s (%d)", tc.Tag, tc.Count),
		})
	}
	out, err := w.Renderer.RenderPage(Page{
		Template: rc.TagListTemplate,
		Title:    rc.TagListTitle,
		Data:     LinkListData{Links: links, Title: rc.TagListTitle},
	})
	if err != nil {
		return ferrors.ResourceError("failed to render tag list").
			WithCause(err).
			WithContext("resource_type", c.Name).
			Build()
	}
	return w.writeFile(c, filepath.Join(itemsDir, "tags.html"), out)
}

func (w *Writer) writeFeed(c *Collection, listDir string) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	feed, err := BuildFeed(c, w.Site, now(), func(item TemplateItem) (string, error) {
		return w.Renderer.RenderTemplate(c.Config.RSSTemplate, item)
	})
	if err != nil {
		return ferrors.FeedError("failed to build feed").
			WithCause(err).
			WithContext("resource_type", c.Name).
			Build()
	}
	if err := ValidateFeed(feed, w.Site.BaseURL); err != nil {
		return ferrors.FeedError("feed failed validation").
			WithCause(err).
			WithContext("resource_type", c.Name).
			Build()
	}
	rss, err := feed.ToRss()
	if err != nil {
		return ferrors.FeedError("failed to serialize feed").
			WithCause(err).
			WithContext("resource_type", c.Name).
			Build()
	}
	return w.writeFile(c, filepath.Join(listDir, FeedFile), rss)
}

func (w *Writer) writeFile(c *Collection, path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return w.fsError(c, path, err)
	}
	return nil
}

func (w *Writer) fsError(c *Collection, path string, err error) error {
	return ferrors.FileSystemError("failed to write resource output").
		WithCause(err).
		WithContext("resource_type", c.Name).
		WithContext("path", path).
		Build()
}
