// Package config loads, validates and saves a site's config.yaml.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

// Filename is the name of the site configuration file at the site root.
const Filename = "config.yaml"

// Defaults applied when a field is left empty.
const (
	DefaultCodeTheme        = "monokai"
	DefaultThemeColor       = "#ffc4fc"
	DefaultWebdogPath       = "webdog"
	DefaultBuildDir         = "build"
	DefaultResourcesPerPage = 3
	DefaultTimestampFormat  = "Monday, January 02, 2006"
)

var (
	// ErrMissingTheme is returned when code_theme names a theme the highlighter does not know.
	ErrMissingTheme = errors.New("code theme not found")
	// ErrAmbiguousResourceMapping is returned when two resource types share or nest source directories.
	ErrAmbiguousResourceMapping = errors.New("ambiguous resource directory mapping")
	// ErrInvalidConfig covers every other validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ThemeSet reports whether a syntax highlighting theme exists.
type ThemeSet interface {
	HasTheme(name string) bool
}

// SiteConfig is the top level configuration of a site.
type SiteConfig struct {
	BaseURL     string                         `yaml:"base_url"`
	Title       string                         `yaml:"title"`
	Description string                         `yaml:"description,omitempty"`
	Build       string                         `yaml:"build,omitempty"`
	SassStyles  []string                       `yaml:"sass_styles"`
	CDNURL      string                         `yaml:"cdn_url"`
	CodeTheme   string                         `yaml:"code_theme"`
	ThemeColor  string                         `yaml:"theme_color,omitempty"`
	WebdogPath  string                         `yaml:"webdog_path,omitempty"`
	Resources   map[string]*ResourceTypeConfig `yaml:"resources"`
}

// ResourceTypeConfig configures one resource collection. SourcePath is
// relative to the site's resources directory; output paths are relative to
// the build directory.
type ResourceTypeConfig struct {
	SourcePath           string `yaml:"source_path"`
	OutputPathResources  string `yaml:"output_path_resources"`
	OutputPathLists      string `yaml:"output_path_lists"`
	ResourceTemplate     string `yaml:"resource_template"`
	ResourceListTemplate string `yaml:"resource_list_template"`
	TagListTemplate      string `yaml:"tag_list_template"`
	RSSTemplate          string `yaml:"rss_template"`
	RSSTitle             string `yaml:"rss_title"`
	RSSDescription       string `yaml:"rss_description"`
	ListTitle            string `yaml:"list_title"`
	TagListTitle         string `yaml:"tag_list_title"`
	ResourceNamePlural   string `yaml:"resource_name_plural"`
	ResourcesPerPage     int    `yaml:"resources_per_page"`
	TimestampFormat      string `yaml:"timestamp_format,omitempty"`
}

// New returns a configuration with defaults for a freshly created site.
func New(baseURL, title, cdnURL string) *SiteConfig {
	cfg := &SiteConfig{
		BaseURL:   baseURL,
		Title:     title,
		CDNURL:    cdnURL,
		Resources: map[string]*ResourceTypeConfig{},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads <sitePath>/config.yaml. Variables from <sitePath>/.env and
// .env.local are loaded first without overriding the existing environment,
// then ${VAR} references in the file are expanded.
func Load(sitePath string) (*SiteConfig, error) {
	loadEnvFiles(sitePath)

	configPath := filepath.Join(sitePath, Filename)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, ferrors.ConfigError("failed to read config file").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration bytes and applies defaults. It does not validate.
func Parse(data []byte) (*SiteConfig, error) {
	expanded := os.ExpandEnv(string(data))
	var cfg SiteConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ferrors.ConfigError("failed to unmarshal config").
			WithCause(fmt.Errorf("%w: %w", ErrInvalidConfig, err)).
			Build()
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func loadEnvFiles(sitePath string) {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(sitePath, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		// godotenv.Load never overrides variables that are already set.
		_ = godotenv.Load(p)
	}
}

func (c *SiteConfig) applyDefaults() {
	if c.CodeTheme == "" {
		c.CodeTheme = DefaultCodeTheme
	}
	if c.ThemeColor == "" {
		c.ThemeColor = DefaultThemeColor
	}
	if c.WebdogPath == "" {
		c.WebdogPath = DefaultWebdogPath
	}
	if c.SassStyles == nil {
		c.SassStyles = []string{"index.scss"}
	}
	if c.Resources == nil {
		c.Resources = map[string]*ResourceTypeConfig{}
	}
	for _, rc := range c.Resources {
		if rc == nil {
			continue
		}
		rc.applyDefaults()
	}
}

func (r *ResourceTypeConfig) applyDefaults() {
	if r.ResourcesPerPage == 0 {
		r.ResourcesPerPage = DefaultResourcesPerPage
	}
	if r.TimestampFormat == "" {
		r.TimestampFormat = DefaultTimestampFormat
	}
}

// Save writes the configuration to <sitePath>/config.yaml.
func (c *SiteConfig) Save(sitePath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ferrors.ConfigError("failed to marshal config").WithCause(err).Build()
	}
	p := filepath.Join(sitePath, Filename)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return ferrors.FileSystemError("failed to write config").WithCause(err).WithContext("path", p).Build()
	}
	return nil
}

// BuildDir resolves the output directory. Serving always builds into
// <sitePath>/build.
func (c *SiteConfig) BuildDir(sitePath string, serving bool) string {
	if serving || c.Build == "" {
		return filepath.Join(sitePath, DefaultBuildDir)
	}
	if filepath.IsAbs(c.Build) {
		return c.Build
	}
	return filepath.Join(sitePath, c.Build)
}

// ResolveCDN joins file onto the CDN base URL.
func (c *SiteConfig) ResolveCDN(file string) (string, error) {
	return joinURL(c.CDNURL, file)
}

// ResolveBase joins p onto the site base URL.
func (c *SiteConfig) ResolveBase(p string) (string, error) {
	return joinURL(c.BaseURL, p)
}

// ResourceTypeForDir returns the resource type whose source directory is
// exactly dir (slash separated, relative to the resources root).
func (c *SiteConfig) ResourceTypeForDir(dir string) (string, bool) {
	dir = cleanRel(dir)
	for name, rc := range c.Resources {
		if rc != nil && cleanRel(rc.SourcePath) == dir {
			return name, true
		}
	}
	return "", false
}

// joinURL resolves ref against base the way a browser would, so a base
// without a trailing slash drops its last segment.
func joinURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

func cleanRel(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "./")
}
