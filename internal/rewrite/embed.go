package rewrite

import (
	"fmt"
	"html"
	"strings"

	"github.com/zyllian/webdog/internal/config"
)

// Embed is the OpenGraph metadata a page or resource can declare.
type Embed struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Image       string `yaml:"image,omitempty"`
	ThemeColor  string `yaml:"theme_color,omitempty"`
	LargeImage  bool   `yaml:"large_image,omitempty"`
}

// Render returns the meta tags for e. An image of the form cdn$file is
// resolved against the CDN base URL.
func (e *Embed) Render(cfg *config.SiteConfig) (string, error) {
	var b strings.Builder
	meta := func(attr, key, content string) {
		fmt.Fprintf(&b, `<meta content="%s" %s="%s">`, html.EscapeString(content), attr, key)
	}

	meta("property", "og:title", e.Title)
	meta("property", "og:url", cfg.BaseURL)
	meta("property", "og:site_name", cfg.Title)
	if e.Description != "" {
		meta("property", "og:description", e.Description)
	}
	if e.Image != "" {
		image := e.Image
		if rest, ok := strings.CutPrefix(image, CommandCDN+"$"); ok {
			resolved, err := cfg.ResolveCDN(rest)
			if err != nil {
				return "", fmt.Errorf("resolve embed image: %w", err)
			}
			image = resolved
		}
		meta("property", "og:image", image)
	}
	themeColor := e.ThemeColor
	if themeColor == "" {
		themeColor = cfg.ThemeColor
	}
	meta("name", "theme-color", themeColor)
	if e.LargeImage {
		meta("name", "twitter:card", "summary_large_image")
	}
	return b.String(), nil
}
