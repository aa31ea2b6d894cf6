package resource

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/zyllian/webdog/internal/config"
)

// ErrInvalidFeed is returned when a feed fails validation and is not written.
var ErrInvalidFeed = errors.New("invalid feed")

// FeedFile is the feed's file name inside the list directory.
const FeedFile = "rss.xml"

// BuildFeed assembles the RSS channel for a collection. content renders the
// feed template for one item.
func BuildFeed(c *Collection, site *config.SiteConfig, now time.Time, content func(TemplateItem) (string, error)) (*feeds.Feed, error) {
	rc := c.Config
	link, err := site.ResolveBase(rc.OutputPathLists + "/")
	if err != nil {
		return nil, err
	}
	feed := &feeds.Feed{
		Title:       rc.RSSTitle,
		Link:        &feeds.Link{Href: link},
		Description: rc.RSSDescription,
		Created:     now,
		Updated:     now,
		Items:       make([]*feeds.Item, 0, len(c.Items)),
	}

	for _, it := range c.Items {
		itemLink, err := site.ResolveBase(rc.OutputPathResources + "/" + it.ID)
		if err != nil {
			return nil, err
		}
		body, err := content(it.View(rc.TimestampFormat))
		if err != nil {
			return nil, err
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       it.Title,
			Link:        &feeds.Link{Href: itemLink},
			Id:          itemLink,
			Description: it.Desc,
			Created:     it.Timestamp,
			Content:     body,
		})
	}
	return feed, nil
}

// ValidateFeed checks the channel has a title and link and that every item
// has a title and a link under baseURL.
func ValidateFeed(feed *feeds.Feed, baseURL string) error {
	if strings.TrimSpace(feed.Title) == "" {
		return fmt.Errorf("%w: channel title is empty", ErrInvalidFeed)
	}
	if feed.Link == nil || feed.Link.Href == "" {
		return fmt.Errorf("%w: channel link is empty", ErrInvalidFeed)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%w: base url: %w", ErrInvalidFeed, err)
	}
	for i, item := range feed.Items {
		if strings.TrimSpace(item.Title) == "" {
			return fmt.Errorf("%w: item %d has no title", ErrInvalidFeed, i)
		}
		if item.Link == nil || !underBase(item.Link.Href, base) {
			return fmt.Errorf("%w: item %q has no link under %s", ErrInvalidFeed, item.Title, baseURL)
		}
	}
	return nil
}

func underBase(href string, base *url.URL) bool {
	u, err := url.Parse(href)
	if err != nil || !u.IsAbs() {
		return false
	}
	// Links resolve against the base the way a browser would, so only the
	// base's directory part has to match.
	dir := base.Path[:strings.LastIndex(base.Path, "/")+1]
	return u.Scheme == base.Scheme && u.Host == base.Host && strings.HasPrefix(u.Path, dir)
}
