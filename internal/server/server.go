// Package server is the dev asset server. It serves the build directory,
// the live reload client script, WebSocket upgrades for live reload and
// Prometheus metrics.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	prom "github.com/prometheus/client_golang/prometheus"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
	"github.com/zyllian/webdog/internal/logfields"
	"github.com/zyllian/webdog/internal/metrics"
	"github.com/zyllian/webdog/internal/rewrite"
	"github.com/zyllian/webdog/internal/server/middleware"
)

//go:embed assets/dev.js
var devScript []byte

// NotFoundPage is served with 404 responses when the build contains it.
const NotFoundPage = "404.html"

// MetricsPath serves the Prometheus registry.
const MetricsPath = "/_metrics"

const notFoundBody = "404 Not Found"

// Options configure a Handler.
type Options struct {
	// Files is the build directory.
	Files fs.FS
	// Live receives WebSocket upgrades. Upgrades are rejected when nil.
	Live http.Handler
	// Registry is exposed at MetricsPath when set.
	Registry *prom.Registry
	Logger   *slog.Logger
}

type assetServer struct {
	files fs.FS
	live  http.Handler
}

// NewHandler builds the dev server router.
func NewHandler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &assetServer{files: opts.Files, live: opts.Live}

	r := chi.NewRouter()
	r.Use(middleware.Chain(logger, ferrors.NewHTTPErrorAdapter(logger)))
	r.Get(rewrite.DevScriptPath, serveDevScript)
	if opts.Registry != nil {
		r.Method(http.MethodGet, MetricsPath, metrics.HTTPHandler(opts.Registry))
	}
	r.Get("/*", s.serve)
	return r
}

func serveDevScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(devScript)
}

func (s *assetServer) serve(w http.ResponseWriter, r *http.Request) {
	if isWebSocketUpgrade(r) {
		if s.live == nil {
			http.Error(w, "live reload unavailable", http.StatusServiceUnavailable)
			return
		}
		s.live.ServeHTTP(w, r)
		return
	}

	name, ok := s.resolve(r.URL.Path)
	if !ok {
		s.notFound(w)
		return
	}
	data, err := fs.ReadFile(s.files, name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", http.DetectContentType(data))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// resolve maps a request path to a file: verbatim, then with .html
// appended, then the directory's index.html.
func (s *assetServer) resolve(urlPath string) (string, bool) {
	rel := strings.Trim(path.Clean("/"+urlPath), "/")
	if rel != "" {
		if s.isFile(rel) {
			return rel, true
		}
		if s.isFile(rel + ".html") {
			return rel + ".html", true
		}
	}
	dir := rel
	if dir == "" {
		dir = "."
	}
	if info, err := fs.Stat(s.files, dir); err == nil && info.IsDir() {
		index := path.Join(dir, "index.html")
		if s.isFile(index) {
			return index, true
		}
	}
	return "", false
}

func (s *assetServer) isFile(name string) bool {
	info, err := fs.Stat(s.files, name)
	return err == nil && !info.IsDir()
}

func (s *assetServer) notFound(w http.ResponseWriter) {
	body := []byte(notFoundBody)
	if data, err := fs.ReadFile(s.files, NotFoundPage); err == nil {
		body = data
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(body)
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// ListenAndServe binds addr and serves h until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return ferrors.RuntimeError("failed to bind dev server").WithCause(err).WithContext("addr", addr).Fatal().Build()
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	slog.Info("Dev server listening", slog.String("addr", fmt.Sprintf("http://%s", ln.Addr())))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return ferrors.RuntimeError("dev server failed").WithCause(err).Build()
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Dev server shutdown", logfields.Error(err))
		}
		return nil
	}
}
