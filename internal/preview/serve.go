package preview

import (
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
	"github.com/zyllian/webdog/internal/livereload"
	"github.com/zyllian/webdog/internal/logfields"
	"github.com/zyllian/webdog/internal/metrics"
	"github.com/zyllian/webdog/internal/server"
	"github.com/zyllian/webdog/internal/site"
)

// Default listen address.
const (
	DefaultIP   = "127.0.0.1"
	DefaultPort = 8080
)

// eventBuffer absorbs bursts such as a directory moved into the site.
const eventBuffer = 64

// Options configure Serve.
type Options struct {
	SitePath string
	IP       string
	Port     int
	// Registry collects metrics and is exposed by the server. A fresh
	// registry is used when nil.
	Registry *prom.Registry
}

// Serve builds the site in serving mode, then serves it with live reload
// while applying source changes until ctx is cancelled.
func Serve(ctx context.Context, opts Options) error {
	sitePath, err := filepath.Abs(opts.SitePath)
	if err != nil {
		return ferrors.FileSystemError("failed to resolve site path").WithCause(err).WithContext("path", opts.SitePath).Build()
	}
	if opts.IP == "" {
		opts.IP = DefaultIP
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	reg := opts.Registry
	if reg == nil {
		reg = prom.NewRegistry()
	}
	recorder := metrics.NewPrometheusRecorder(reg)

	b, err := site.NewBuilder(sitePath, true)
	if err != nil {
		return err
	}
	b.SetRecorder(recorder)
	if err := b.Prepare(); err != nil {
		return err
	}
	if err := b.BuildAll(ctx); err != nil {
		// Keep serving so the fix can be picked up by the watcher.
		slog.Error("Initial build failed", logfields.Error(err))
	}

	watcher, err := NewWatcher(sitePath, b.BuildDir())
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	hub := livereload.NewHub(recorder)
	defer hub.Close()
	handler := server.NewHandler(server.Options{
		Files:    os.DirFS(b.BuildDir()),
		Live:     hub,
		Registry: reg,
		Logger:   slog.Default(),
	})
	coord := NewCoordinator(b, hub, recorder)
	events := make(chan Event, eventBuffer)
	addr := net.JoinHostPort(opts.IP, strconv.Itoa(opts.Port))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.ListenAndServe(gctx, addr, handler) })
	g.Go(func() error { return watcher.Run(gctx, events) })
	g.Go(func() error {
		coord.Run(gctx, events)
		return nil
	})
	return g.Wait()
}
