package site

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
	"github.com/zyllian/webdog/internal/logfields"
	"github.com/zyllian/webdog/internal/metrics"
	"github.com/zyllian/webdog/internal/resource"
	"github.com/zyllian/webdog/internal/styles"
)

// Stage names used for logging and metrics.
const (
	StagePrepare   = "prepare"
	StagePages     = "pages"
	StageSass      = "sass"
	StageResources = "resources"
)

// stage runs fn, logging and recording its duration and result.
func (b *Builder) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	b.recorder.ObserveStageDuration(name, time.Since(start))
	if err != nil {
		b.recorder.IncStageResult(name, metrics.ResultFailed)
		return err
	}
	b.recorder.IncStageResult(name, metrics.ResultSuccess)
	slog.Debug("Stage complete", logfields.Stage(name), logfields.Since(start))
	return nil
}

// BuildAllPages renders every indexed page in parallel. The first failure
// cancels pages not yet started.
func (b *Builder) BuildAllPages(ctx context.Context) error {
	return b.stage(StagePages, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for _, id := range b.pages.IDs() {
			id := id
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return b.BuildPage(id)
			})
		}
		return g.Wait()
	})
}

// BuildSass compiles the configured stylesheets.
func (b *Builder) BuildSass(ctx context.Context) error {
	return b.stage(StageSass, func() error {
		c := &styles.Compiler{
			SourceDir: filepath.Join(b.sitePath, styles.Dir),
			BuildDir:  b.buildDir,
			Serving:   b.serving,
			Compile:   b.compileSass,
		}
		built, err := c.Build(ctx, b.cfg.SassStyles)
		if err != nil {
			return err
		}
		slog.Debug("Compiled stylesheets", logfields.Count(built))
		return nil
	})
}

// BuildResources writes every output of one loaded resource type.
func (b *Builder) BuildResources(ctx context.Context, name string) error {
	c, ok := b.collections[name]
	if !ok {
		return ferrors.ResourceError("missing resource type").
			WithCause(ErrUnknownResourceType).
			WithContext("resource_type", name).
			Build()
	}
	w := &resource.Writer{Site: b.cfg, BuildDir: b.buildDir, Renderer: b, Now: b.now}
	return w.Write(ctx, c)
}

// RemoveResource deletes the detail page of a resource whose source is gone.
func (b *Builder) RemoveResource(name, id string) error {
	rc, ok := b.cfg.Resources[name]
	if !ok {
		return ferrors.ResourceError("missing resource type").
			WithCause(ErrUnknownResourceType).
			WithContext("resource_type", name).
			Build()
	}
	dst := filepath.Join(b.buildDir, filepath.FromSlash(rc.OutputPathResources), id+".html")
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ferrors.FileSystemError("failed to remove resource output").WithCause(err).WithContext("path", dst).Build()
	}
	return nil
}

// BuildAllResources writes every resource type in name order.
func (b *Builder) BuildAllResources(ctx context.Context) error {
	return b.stage(StageResources, func() error {
		for _, name := range b.cfg.ResourceNames() {
			if err := b.BuildResources(ctx, name); err != nil {
				return err
			}
		}
		return nil
	})
}

// BuildAll renders pages, then stylesheets, then resources.
func (b *Builder) BuildAll(ctx context.Context) error {
	if err := b.BuildAllPages(ctx); err != nil {
		return err
	}
	if err := b.BuildSass(ctx); err != nil {
		return err
	}
	return b.BuildAllResources(ctx)
}

// BuildOnce prepares and fully builds the site at sitePath.
func BuildOnce(ctx context.Context, sitePath string, recorder metrics.Recorder) error {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	start := time.Now()
	err := buildOnce(ctx, sitePath, recorder)
	recorder.ObserveBuildDuration(time.Since(start))
	if err != nil {
		recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
		return err
	}
	recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	slog.Info("Site built", logfields.Path(sitePath), logfields.Since(start))
	return nil
}

func buildOnce(ctx context.Context, sitePath string, recorder metrics.Recorder) error {
	b, err := NewBuilder(sitePath, false)
	if err != nil {
		return err
	}
	b.SetRecorder(recorder)
	if err := b.stage(StagePrepare, b.Prepare); err != nil {
		return err
	}
	return b.BuildAll(ctx)
}
