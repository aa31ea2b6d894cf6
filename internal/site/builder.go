package site

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zyllian/webdog/internal/config"
	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
	"github.com/zyllian/webdog/internal/logfields"
	"github.com/zyllian/webdog/internal/markdown"
	"github.com/zyllian/webdog/internal/metrics"
	"github.com/zyllian/webdog/internal/resource"
	"github.com/zyllian/webdog/internal/rewrite"
	"github.com/zyllian/webdog/internal/styles"
	"github.com/zyllian/webdog/internal/templates"
)

//go:embed assets/webdog.js
var webdogJS []byte

// Builder builds a site.
type Builder struct {
	sitePath string
	buildDir string
	serving  bool

	cfg         *config.SiteConfig
	pages       PageIndex
	templates   *templates.Registry
	markdown    *markdown.Converter
	rewriter    *rewrite.Rewriter
	minifier    *rewrite.Minifier
	collections map[string]*resource.Collection

	recorder    metrics.Recorder
	compileSass styles.CompileFunc
	now         func() time.Time
}

// NewBuilder loads the site configuration and page index. Call Prepare
// before building.
func NewBuilder(sitePath string, serving bool) (*Builder, error) {
	cfg, err := config.Load(sitePath)
	if err != nil {
		return nil, err
	}
	pages, err := ScanPages(filepath.Join(sitePath, PagesDir))
	if err != nil {
		return nil, err
	}
	return &Builder{
		sitePath:    sitePath,
		buildDir:    cfg.BuildDir(sitePath, serving),
		serving:     serving,
		cfg:         cfg,
		pages:       pages,
		templates:   templates.NewRegistry(filepath.Join(sitePath, TemplatesDir)),
		markdown:    markdown.New(cfg.CodeTheme),
		minifier:    rewrite.NewMinifier(),
		collections: map[string]*resource.Collection{},
		recorder:    metrics.NoopRecorder{},
		now:         time.Now,
	}, nil
}

// SetRecorder injects a metrics recorder (optional). Returns the builder for chaining.
func (b *Builder) SetRecorder(r metrics.Recorder) *Builder {
	if r == nil {
		b.recorder = metrics.NoopRecorder{}
		return b
	}
	b.recorder = r
	return b
}

// WithSassCompiler replaces the sass executable.
func (b *Builder) WithSassCompiler(fn styles.CompileFunc) *Builder {
	b.compileSass = fn
	return b
}

// WithClock replaces the clock used for feed build dates.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) SitePath() string           { return b.sitePath }
func (b *Builder) BuildDir() string           { return b.buildDir }
func (b *Builder) Serving() bool              { return b.serving }
func (b *Builder) Config() *config.SiteConfig { return b.cfg }
func (b *Builder) Pages() PageIndex           { return b.pages }

// Collection returns the loaded collection for a resource type.
func (b *Builder) Collection(name string) (*resource.Collection, bool) {
	c, ok := b.collections[name]
	return c, ok
}

// Prepare empties the build directory, writes the webdog client script,
// mirrors the static root and loads everything else.
func (b *Builder) Prepare() error {
	if err := resetDir(b.buildDir); err != nil {
		return ferrors.FileSystemError("failed to prepare build directory").WithCause(err).WithContext("path", b.buildDir).Build()
	}

	scriptDir := filepath.Join(b.buildDir, filepath.FromSlash(b.cfg.WebdogPath))
	if err := os.MkdirAll(scriptDir, 0o755); err != nil {
		return ferrors.FileSystemError("failed to create webdog directory").WithCause(err).WithContext("path", scriptDir).Build()
	}
	if err := os.WriteFile(filepath.Join(scriptDir, "webdog.js"), webdogJS, 0o644); err != nil {
		return ferrors.FileSystemError("failed to write webdog.js").WithCause(err).WithContext("path", scriptDir).Build()
	}

	copied, err := copyTree(filepath.Join(b.sitePath, RootDir), b.buildDir)
	if err != nil {
		return err
	}
	slog.Debug("Copied static root", logfields.Count(copied))

	return b.Reload()
}

// Reload validates the current configuration, reloads templates and reloads
// every resource collection from scratch.
func (b *Builder) Reload() error {
	return b.reload(b.cfg)
}

// reload loads everything cfg describes and only then swaps it in, so a
// failure leaves the previous configuration, rewriter and collections.
func (b *Builder) reload(cfg *config.SiteConfig) error {
	if err := cfg.Validate(markdown.Themes{}); err != nil {
		return err
	}
	if err := b.templates.Reload(); err != nil {
		return err
	}
	md := markdown.New(cfg.CodeTheme)
	loader := &resource.Loader{SitePath: b.sitePath, Site: cfg, Markdown: md, Serving: b.serving}

	collections := make(map[string]*resource.Collection, len(cfg.Resources))
	for _, name := range cfg.ResourceNames() {
		c, err := loader.Load(name, cfg.Resources[name])
		if err != nil {
			return err
		}
		collections[name] = c
		slog.Debug("Loaded resources", logfields.ResourceType(name), logfields.Count(len(c.Items)))
	}

	b.cfg = cfg
	b.markdown = md
	b.rewriter = rewrite.New(cfg, b.serving, b.renderPartial)
	b.collections = collections
	return nil
}

// ReloadTemplates rereads every template from disk.
func (b *Builder) ReloadTemplates() error {
	return b.templates.Reload()
}

// ReloadConfig rereads config.yaml and reloads. The previous configuration
// stays active when the new one fails to parse, validate or load.
func (b *Builder) ReloadConfig() error {
	cfg, err := config.Load(b.sitePath)
	if err != nil {
		return err
	}
	return b.reload(cfg)
}

// ReloadResourceType reloads one collection from its source directory.
func (b *Builder) ReloadResourceType(name string) error {
	rc, ok := b.cfg.Resources[name]
	if !ok {
		return ferrors.ResourceError("missing resource type").
			WithCause(ErrUnknownResourceType).
			WithContext("resource_type", name).
			Build()
	}
	c, err := b.loader().Load(name, rc)
	if err != nil {
		return err
	}
	b.collections[name] = c
	slog.Debug("Loaded resources", logfields.ResourceType(name), logfields.Count(len(c.Items)))
	return nil
}

func (b *Builder) loader() *resource.Loader {
	return &resource.Loader{SitePath: b.sitePath, Site: b.cfg, Markdown: b.markdown, Serving: b.serving}
}

// ResourceTypeForPath maps a source path to the resource type whose source
// directory directly contains it.
func (b *Builder) ResourceTypeForPath(path string) (string, bool) {
	root := filepath.Join(b.sitePath, resource.Dir)
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		return "", false
	}
	return b.cfg.ResourceTypeForDir(filepath.ToSlash(rel))
}
