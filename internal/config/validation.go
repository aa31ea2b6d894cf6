package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

// Validate checks the configuration. It runs on every load and reload.
func (c *SiteConfig) Validate(themes ThemeSet) error {
	if err := validateAbsoluteURL("base_url", c.BaseURL); err != nil {
		return err
	}
	if err := validateAbsoluteURL("cdn_url", c.CDNURL); err != nil {
		return err
	}
	if themes != nil && !themes.HasTheme(c.CodeTheme) {
		return ferrors.ConfigError("code theme not available").
			WithCause(ErrMissingTheme).
			WithContext("code_theme", c.CodeTheme).
			Build()
	}

	names := c.ResourceNames()
	for _, name := range names {
		if err := c.Resources[name].validate(name); err != nil {
			return err
		}
	}
	return c.validateResourceDirs(names)
}

// ResourceNames returns the configured resource type names in sorted order.
func (c *SiteConfig) ResourceNames() []string {
	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *ResourceTypeConfig) validate(name string) error {
	if r == nil {
		return invalid("resource type has no configuration", name)
	}
	if strings.TrimSpace(r.SourcePath) == "" {
		return invalid("resource type is missing source_path", name)
	}
	if r.ResourcesPerPage < 1 {
		return invalid("resources_per_page must be at least 1", name)
	}
	required := map[string]string{
		"resource_template":      r.ResourceTemplate,
		"resource_list_template": r.ResourceListTemplate,
		"tag_list_template":      r.TagListTemplate,
		"rss_template":           r.RSSTemplate,
	}
	for _, key := range []string{"resource_template", "resource_list_template", "tag_list_template", "rss_template"} {
		if strings.TrimSpace(required[key]) == "" {
			return invalid("resource type is missing "+key, name)
		}
	}
	return nil
}

// validateResourceDirs rejects duplicate or nested source directories so
// every source file maps to at most one resource type.
func (c *SiteConfig) validateResourceDirs(names []string) error {
	for i, a := range names {
		da := cleanRel(c.Resources[a].SourcePath)
		for _, b := range names[i+1:] {
			db := cleanRel(c.Resources[b].SourcePath)
			if da == db || strings.HasPrefix(da, db+"/") || strings.HasPrefix(db, da+"/") {
				return ferrors.ConfigError("resource source directories overlap").
					WithCause(ErrAmbiguousResourceMapping).
					WithContext("first", a).
					WithContext("second", b).
					Build()
			}
		}
	}
	return nil
}

func validateAbsoluteURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ferrors.ConfigError(field + " must be an absolute URL").
			WithCause(fmt.Errorf("%w: %q", ErrInvalidConfig, raw)).
			Build()
	}
	return nil
}

func invalid(msg, resourceType string) error {
	return ferrors.ConfigError(msg).
		WithCause(ErrInvalidConfig).
		WithContext("resource_type", resourceType).
		Build()
}
