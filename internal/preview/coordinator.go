// Package preview runs the development server. Source changes are applied
// to a single Builder one event at a time, and connected browsers are told
// to reload whenever visible output changed.
package preview

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zyllian/webdog/internal/config"
	"github.com/zyllian/webdog/internal/logfields"
	"github.com/zyllian/webdog/internal/metrics"
	"github.com/zyllian/webdog/internal/resource"
	"github.com/zyllian/webdog/internal/site"
	"github.com/zyllian/webdog/internal/styles"
)

// Op is the kind of source change.
type Op string

const (
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
)

// Event is one source change.
type Event struct {
	ID   string
	Op   Op
	Path string
	// OldPath is the previous location of a renamed file.
	OldPath string
}

// Root names the part of the site a path belongs to.
type Root string

const (
	RootPages     Root = "pages"
	RootTemplates Root = "templates"
	RootSass      Root = "sass"
	RootStatic    Root = "root"
	RootResources Root = "resources"
	RootConfig    Root = "config"
	RootBuild     Root = "build"
	RootOther     Root = "other"
)

// Broadcaster tells connected clients to reload.
type Broadcaster interface {
	Broadcast(ctx context.Context) (sent, dropped int)
}

// Coordinator owns a serving Builder. Only the goroutine running Run (or a
// caller of Dispatch/Handle in tests) may touch the builder.
type Coordinator struct {
	builder  *site.Builder
	live     Broadcaster
	recorder metrics.Recorder
}

// NewCoordinator wires a builder to a broadcaster. live may be nil.
func NewCoordinator(b *site.Builder, live Broadcaster, recorder metrics.Recorder) *Coordinator {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Coordinator{builder: b, live: live, recorder: recorder}
}

// Run handles events until ctx is done or events is closed.
func (c *Coordinator) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.Dispatch(ctx, ev)
		}
	}
}

// Dispatch handles one event, logs the outcome and broadcasts a reload
// when output changed. Failures never stop the caller's loop.
func (c *Coordinator) Dispatch(ctx context.Context, ev Event) {
	start := time.Now()
	root := c.Classify(ev.Path)
	attrs := []any{logfields.EventID(ev.ID), logfields.Op(string(ev.Op)), logfields.Path(c.rel(ev.Path)), logfields.Root(string(root))}

	reload, err := c.Handle(ctx, ev)
	switch {
	case err != nil:
		c.recorder.IncDevEvent(string(root), metrics.ResultFailed)
		slog.Error("Failed to apply change", append(attrs, logfields.Error(err))...)
	case reload:
		c.recorder.IncDevEvent(string(root), metrics.ResultSuccess)
		slog.Info("Applied change", append(attrs, logfields.Since(start))...)
	default:
		c.recorder.IncDevEvent(string(root), metrics.ResultSkipped)
		slog.Debug("Ignored change", attrs...)
	}

	if reload && c.live != nil {
		sent, dropped := c.live.Broadcast(ctx)
		slog.Debug("Reload broadcast", logfields.EventID(ev.ID), logfields.Count(sent), slog.Int("dropped", dropped))
	}
}

// Handle applies ev to the builder and reports whether visible output
// changed. A rename builds the new path before removing the old one.
func (c *Coordinator) Handle(ctx context.Context, ev Event) (bool, error) {
	switch ev.Op {
	case OpRemove:
		return c.apply(ctx, ev.Path, true)
	case OpRename:
		changed, err := c.apply(ctx, ev.Path, false)
		if err != nil || ev.OldPath == "" || ev.OldPath == ev.Path {
			return changed, err
		}
		removed, err := c.apply(ctx, ev.OldPath, true)
		return changed || removed, err
	default:
		return c.apply(ctx, ev.Path, false)
	}
}

// Classify maps an absolute path to its site root.
func (c *Coordinator) Classify(path string) Root {
	if within(c.builder.BuildDir(), path) {
		return RootBuild
	}
	rel, err := filepath.Rel(c.builder.SitePath(), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return RootOther
	}
	rel = filepath.ToSlash(rel)
	if rel == config.Filename {
		return RootConfig
	}
	first, _, _ := strings.Cut(rel, "/")
	switch first {
	case site.PagesDir:
		return RootPages
	case site.TemplatesDir:
		return RootTemplates
	case styles.Dir:
		return RootSass
	case site.RootDir:
		return RootStatic
	case resource.Dir:
		return RootResources
	}
	return RootOther
}

func (c *Coordinator) apply(ctx context.Context, path string, removed bool) (bool, error) {
	root := c.Classify(path)
	if root == RootBuild || root == RootOther {
		return false, nil
	}
	if !removed {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return false, nil
		}
	}

	b := c.builder
	switch root {
	case RootPages:
		id, ok := site.PageID(filepath.Join(b.SitePath(), site.PagesDir), path)
		if !ok {
			if !removed {
				return false, nil
			}
			// A deleted directory takes its pages with it.
			n, err := b.RemovePagesUnder(path)
			return n > 0, err
		}
		if removed {
			return true, b.RemovePage(id)
		}
		b.SetPage(id, path)
		return true, b.BuildPage(id)

	case RootTemplates:
		if err := b.ReloadTemplates(); err != nil {
			return false, err
		}
		return true, c.rebuildAll(ctx)

	case RootSass:
		return true, b.BuildSass(ctx)

	case RootStatic:
		if removed {
			return true, b.RemoveStatic(path)
		}
		return true, b.CopyStatic(path)

	case RootResources:
		name, ok := b.ResourceTypeForPath(path)
		if !ok {
			slog.Debug("No resource type owns path", logfields.Path(c.rel(path)))
			return false, nil
		}
		if err := b.ReloadResourceType(name); err != nil {
			return false, err
		}
		if removed && filepath.Ext(path) == site.PageExt {
			id := strings.TrimSuffix(filepath.Base(path), site.PageExt)
			if err := b.RemoveResource(name, id); err != nil {
				return false, err
			}
		}
		return true, b.BuildResources(ctx, name)

	case RootConfig:
		if removed {
			return false, nil
		}
		if err := b.ReloadConfig(); err != nil {
			return false, err
		}
		return true, c.rebuildAll(ctx)
	}
	return false, nil
}

func (c *Coordinator) rebuildAll(ctx context.Context) error {
	if err := c.builder.BuildAllPages(ctx); err != nil {
		return err
	}
	return c.builder.BuildAllResources(ctx)
}

func (c *Coordinator) rel(path string) string {
	if rel, err := filepath.Rel(c.builder.SitePath(), path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
