package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/coder/websocket"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyllian/webdog/internal/livereload"
	"github.com/zyllian/webdog/internal/metrics"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":         {Data: []byte("<p>home</p>")},
		"about.html":         {Data: []byte("<p>about</p>")},
		"blog/index.html":    {Data: []byte("<p>blog</p>")},
		"blog/post1.html":    {Data: []byte("<p>post</p>")},
		"blog/tag/go/1.html": {Data: []byte("<p>go</p>")},
		"styles/site.css":    {Data: []byte("a{}")},
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandler_ResolvesPaths(t *testing.T) {
	h := NewHandler(Options{Files: buildFS(), Logger: quietLogger()})

	cases := []struct {
		path string
		body string
	}{
		{"/", "<p>home</p>"},
		{"/about", "<p>about</p>"},
		{"/about.html", "<p>about</p>"},
		{"/blog", "<p>blog</p>"},
		{"/blog/", "<p>blog</p>"},
		{"/blog/post1", "<p>post</p>"},
		{"/blog/tag/go/1", "<p>go</p>"},
		{"/styles/site.css", "a{}"},
		{"/%61bout", "<p>about</p>"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.path, func(t *testing.T) {
			rec := get(t, h, tc.path)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.body, rec.Body.String())
		})
	}

	assert.Contains(t, get(t, h, "/styles/site.css").Header().Get("Content-Type"), "text/css")
}

func TestHandler_NotFound(t *testing.T) {
	h := NewHandler(Options{Files: buildFS(), Logger: quietLogger()})
	rec := get(t, h, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, notFoundBody, rec.Body.String())

	files := buildFS()
	files[NotFoundPage] = &fstest.MapFile{Data: []byte("<h1>lost</h1>")}
	h = NewHandler(Options{Files: files, Logger: quietLogger()})
	rec = get(t, h, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "<h1>lost</h1>", rec.Body.String())
}

func TestHandler_TraversalStaysInsideBuild(t *testing.T) {
	h := NewHandler(Options{Files: buildFS(), Logger: quietLogger()})
	rec := get(t, h, "/../../etc/passwd")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type unreadableFS struct{ fstest.MapFS }

func (unreadableFS) ReadFile(string) ([]byte, error) { return nil, errors.New("disk on fire") }

func TestHandler_ReadErrorIs500(t *testing.T) {
	h := NewHandler(Options{Files: unreadableFS{buildFS()}, Logger: quietLogger()})
	rec := get(t, h, "/about")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk on fire")

	rec = get(t, h, "/about")
	assert.Equal(t, http.StatusInternalServerError, rec.Code, "server keeps serving after errors")
}

func TestHandler_DevScript(t *testing.T) {
	h := NewHandler(Options{Files: buildFS(), Logger: quietLogger()})
	rec := get(t, h, "/_dev.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "WebSocket")
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
}

func TestHandler_Metrics(t *testing.T) {
	reg := prom.NewRegistry()
	metrics.NewPrometheusRecorder(reg).SetLiveConnections(3)
	h := NewHandler(Options{Files: buildFS(), Registry: reg, Logger: quietLogger()})

	rec := get(t, h, MetricsPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "webdog_live_connections 3")
}

func TestHandler_WebSocketUpgradeRegistersPeer(t *testing.T) {
	hub := livereload.NewHub(nil)
	srv := httptest.NewServer(NewHandler(Options{Files: buildFS(), Live: hub, Logger: quietLogger()}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Broadcast(ctx)
	_, msg, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, livereload.ReloadMessage, string(msg))
}
