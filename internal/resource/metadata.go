// Package resource loads typed, timestamped content collections and writes
// their detail pages, paginated lists, tag pages, tag index and RSS feed.
package resource

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"
)

var (
	errMissingTitle     = errors.New("resource is missing a title")
	errMissingTimestamp = errors.New("resource is missing a timestamp")
	errInvalidTag       = errors.New("tag must be a single path segment")
)

// Metadata is a resource's front matter.
type Metadata struct {
	Title     string    `yaml:"title"`
	Timestamp time.Time `yaml:"timestamp"`
	Tags      []string  `yaml:"tags"`
	// CDNFile is resolved to an absolute CDN URL when the resource is loaded.
	CDNFile string `yaml:"cdn_file,omitempty"`
	Desc    string `yaml:"desc,omitempty"`
	Draft   bool   `yaml:"draft,omitempty"`
	// Extra holds every key not listed above.
	Extra map[string]any `yaml:",inline"`
}

// Validate requires a title and a timestamp. Tags name output directories,
// so each must be a single non-hidden path segment.
func (m *Metadata) Validate() error {
	if m.Title == "" {
		return errMissingTitle
	}
	if m.Timestamp.IsZero() {
		return errMissingTimestamp
	}
	for _, tag := range m.Tags {
		if !validTag(tag) {
			return fmt.Errorf("%w: %q", errInvalidTag, tag)
		}
	}
	return nil
}

func validTag(tag string) bool {
	return tag != "" &&
		!strings.ContainsAny(tag, `/\`) &&
		!strings.HasPrefix(tag, ".")
}

// Item is one loaded resource.
type Item struct {
	// ID is the source file name without its extension.
	ID string
	Metadata
	// Content is the rendered HTML body.
	Content string
}

// TemplateItem is the view of an Item templates receive.
type TemplateItem struct {
	ID                string
	Title             string
	Timestamp         time.Time
	ReadableTimestamp string
	Tags              []string
	CDNFile           string
	Desc              string
	Draft             bool
	Extra             map[string]any
	Content           template.HTML
}

// View converts an item for templates, formatting the timestamp with layout.
func (it *Item) View(layout string) TemplateItem {
	return TemplateItem{
		ID:                it.ID,
		Title:             it.Title,
		Timestamp:         it.Timestamp,
		ReadableTimestamp: it.Timestamp.Format(layout),
		Tags:              it.Tags,
		CDNFile:           it.CDNFile,
		Desc:              it.Desc,
		Draft:             it.Draft,
		Extra:             it.Extra,
		Content:           template.HTML(it.Content), // #nosec G203 -- rendered from the site's own markdown
	}
}

// ListData is passed to list templates.
type ListData struct {
	Resources []TemplateItem
	// Tag is empty for the main list.
	Tag     string
	Page    int
	PageMax int
	// Previous and Next are 0 when there is no such page.
	Previous int
	Next     int
}

// Link is one entry of a link list page.
type Link struct {
	Link  string
	Title string
}

// LinkListData is passed to the tag list template.
type LinkListData struct {
	Links []Link
	Title string
}
