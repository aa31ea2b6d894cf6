package preview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyllian/webdog/internal/config"
	"github.com/zyllian/webdog/internal/site"
	sitetest "github.com/zyllian/webdog/internal/testing"
)

type countingBroadcaster struct{ calls int }

func (b *countingBroadcaster) Broadcast(context.Context) (int, int) {
	b.calls++
	return 1, 0
}

type devSite struct {
	fixture *sitetest.SiteFixture
	builder *site.Builder
	coord   *Coordinator
	live    *countingBroadcaster
	out     *sitetest.FileAssertions
}

func newDevSite(t *testing.T) *devSite {
	t.Helper()
	f := sitetest.NewSiteFixture(t).
		WithBlog().
		WithPage("index", map[string]any{"title": "Home"}, "Home.\n").
		WithPage("about", nil, "About us.\n").
		WithResource("blog", "post1", sitetest.Post("Post 1", 1, "go"), "First.\n").
		WithFile("root/robots.txt", "User-agent: *\n")
	dir := f.Write()

	b, err := site.NewBuilder(dir, true)
	require.NoError(t, err)
	require.NoError(t, b.Prepare())
	require.NoError(t, b.BuildAll(context.Background()))

	live := &countingBroadcaster{}
	return &devSite{
		fixture: f,
		builder: b,
		coord:   NewCoordinator(b, live, nil),
		live:    live,
		out:     sitetest.NewFileAssertions(t, b.BuildDir()),
	}
}

func (d *devSite) path(rel string) string {
	return filepath.Join(d.fixture.Dir, filepath.FromSlash(rel))
}

func (d *devSite) handle(t *testing.T, op Op, rel string) bool {
	t.Helper()
	reload, err := d.coord.Handle(context.Background(), Event{ID: "test", Op: op, Path: d.path(rel)})
	require.NoError(t, err)
	return reload
}

func TestClassify(t *testing.T) {
	d := newDevSite(t)

	cases := []struct {
		rel  string
		want Root
	}{
		{"pages/about.md", RootPages},
		{"pages/docs/intro.md", RootPages},
		{"templates/base.tmpl", RootTemplates},
		{"sass/index.scss", RootSass},
		{"root/robots.txt", RootStatic},
		{"resources/blog/post1.md", RootResources},
		{"config.yaml", RootConfig},
		{"build/index.html", RootBuild},
		{"build", RootBuild},
		{"notes.txt", RootOther},
		{"pagesx/a.md", RootOther},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.rel, func(t *testing.T) {
			assert.Equal(t, tc.want, d.coord.Classify(d.path(tc.rel)))
		})
	}
	assert.Equal(t, RootOther, d.coord.Classify(filepath.Join(filepath.Dir(d.fixture.Dir), "elsewhere.md")))
}

func TestHandle_PageEditRewritesOnlyThatPage(t *testing.T) {
	d := newDevSite(t)
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	d.out.Backdate("blog/post1.html", past).Backdate("index.html", past).Backdate("about.html", past)

	d.fixture.WithPage("about", nil, "About the team.\n")
	assert.True(t, d.handle(t, OpWrite, "pages/about.md"))

	d.out.AssertFileContains("about.html", "About the team.")
	assert.True(t, d.out.ModTime("about.html").After(past))
	assert.True(t, d.out.ModTime("blog/post1.html").Equal(past), "resource outputs are untouched")
	assert.True(t, d.out.ModTime("index.html").Equal(past), "other pages are untouched")
}

func TestHandle_NewAndRemovedPages(t *testing.T) {
	d := newDevSite(t)

	d.fixture.WithPage("docs/new", map[string]any{"title": "New"}, "Fresh.\n")
	assert.True(t, d.handle(t, OpWrite, "pages/docs/new.md"))
	d.out.AssertFileContains("docs/new.html", "Fresh.")
	assert.Contains(t, d.builder.Pages(), "docs/new")

	assert.True(t, d.handle(t, OpRemove, "pages/docs/new.md"))
	d.out.AssertFileNotExists("docs/new.html")
	assert.NotContains(t, d.builder.Pages(), "docs/new")
}

func TestHandle_RenameBuildsNewThenRemovesOld(t *testing.T) {
	d := newDevSite(t)
	d.fixture.WithPage("team", nil, "About us.\n")

	d.coord.Dispatch(context.Background(), Event{
		ID:      "rename",
		Op:      OpRename,
		Path:    d.path("pages/team.md"),
		OldPath: d.path("pages/about.md"),
	})

	d.out.AssertFileExists("team.html").AssertFileNotExists("about.html")
	assert.Equal(t, 1, d.live.calls)
}

func TestHandle_IgnoresBuildAndUnknownPaths(t *testing.T) {
	d := newDevSite(t)
	assert.False(t, d.handle(t, OpWrite, "build/index.html"))
	assert.False(t, d.handle(t, OpWrite, "notes.txt"))
	assert.False(t, d.handle(t, OpWrite, "pages"), "directories are not pages")
	assert.False(t, d.handle(t, OpWrite, "resources/unconfigured/x.md"))

	d.coord.Dispatch(context.Background(), Event{ID: "x", Op: OpWrite, Path: d.path("build/index.html")})
	assert.Zero(t, d.live.calls)
}

func TestHandle_TemplateChangeRebuildsEverything(t *testing.T) {
	d := newDevSite(t)
	d.fixture.
		WithTemplate("base", `<!DOCTYPE html><html><head></head><body><main class="page">{{.Page}}</main><footer>v2</footer></body></html>`).
		WithTemplate("blog/resource", `<!DOCTYPE html><html><head></head><body><article class="v2">{{.Data.Content}}</article></body></html>`)

	assert.True(t, d.handle(t, OpWrite, "templates/base.tmpl"))
	d.out.AssertFileContains("index.html", "<footer>v2</footer>").
		AssertFileContains("about.html", "<footer>v2</footer>").
		AssertFileContains("blog/post1.html", `class="v2"`)
}

func TestHandle_ResourceChangeRebuildsType(t *testing.T) {
	d := newDevSite(t)
	d.fixture.WithResource("blog", "post2", sitetest.Post("Post 2", 2, "go"), "Second.\n")

	assert.True(t, d.handle(t, OpWrite, "resources/blog/post2.md"))
	d.out.AssertFileContains("blog/post2.html", "Second.").
		AssertFileContains("blog/index.html", "Post 2").
		AssertFileContains("blog/tags.html", "go (2)")
}

func TestHandle_RemovedResourceDropsItsOutputs(t *testing.T) {
	d := newDevSite(t)
	for i, id := range []string{"post2", "post3", "post4"} {
		d.fixture.WithResource("blog", id, sitetest.Post(id, i+2), "Body.\n")
	}
	assert.True(t, d.handle(t, OpWrite, "resources/blog/post4.md"))
	d.out.AssertFileExists("blog/post4.html").AssertFileExists("blog/2.html")

	require.NoError(t, os.Remove(d.path("resources/blog/post4.md")))
	assert.True(t, d.handle(t, OpRemove, "resources/blog/post4.md"))
	d.out.AssertFileNotExists("blog/post4.html").
		AssertFileNotExists("blog/2.html").
		AssertFileExists("blog/1.html").
		AssertFileNotContains("blog/index.html", "post4")
}

func TestHandle_RemovedPageDirectoryDropsItsPages(t *testing.T) {
	d := newDevSite(t)
	d.fixture.
		WithPage("docs/intro", nil, "Intro.\n").
		WithPage("docs/deep/setup", nil, "Setup.\n")
	assert.True(t, d.handle(t, OpWrite, "pages/docs/intro.md"))
	assert.True(t, d.handle(t, OpWrite, "pages/docs/deep/setup.md"))
	d.out.AssertFileExists("docs/intro.html").AssertFileExists("docs/deep/setup.html")

	require.NoError(t, os.RemoveAll(d.path("pages/docs")))
	assert.True(t, d.handle(t, OpRemove, "pages/docs"))
	d.out.AssertFileNotExists("docs/intro.html").
		AssertFileNotExists("docs/deep/setup.html").
		AssertFileExists("about.html")
	assert.Equal(t, []string{"about", "index"}, d.builder.Pages().IDs())

	assert.False(t, d.handle(t, OpRemove, "pages/docs"), "nothing left to remove")
}

func TestHandle_StaticRoot(t *testing.T) {
	d := newDevSite(t)
	d.fixture.WithFile("root/img/logo.svg", "<svg/>")

	assert.True(t, d.handle(t, OpWrite, "root/img/logo.svg"))
	d.out.AssertFileContains("img/logo.svg", "<svg/>")

	assert.True(t, d.handle(t, OpRemove, "root/robots.txt"))
	d.out.AssertFileNotExists("robots.txt")
}

func TestDispatch_ConfigFailureKeepsServing(t *testing.T) {
	d := newDevSite(t)
	d.fixture.Config.CodeTheme = "no-such-theme"
	d.fixture.Write()

	_, err := d.coord.Handle(context.Background(), Event{Op: OpWrite, Path: d.path(config.Filename)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrMissingTheme))
	assert.Equal(t, config.DefaultCodeTheme, d.builder.Config().CodeTheme)

	d.coord.Dispatch(context.Background(), Event{ID: "cfg", Op: OpWrite, Path: d.path(config.Filename)})
	assert.Zero(t, d.live.calls, "failed changes do not reload browsers")

	d.fixture.WithPage("about", nil, "Still here.\n")
	d.coord.Dispatch(context.Background(), Event{ID: "page", Op: OpWrite, Path: d.path("pages/about.md")})
	d.out.AssertFileContains("about.html", "Still here.")
	assert.Equal(t, 1, d.live.calls)
}

func TestDispatch_ConfigChangeRebuilds(t *testing.T) {
	d := newDevSite(t)
	d.fixture.Config.Title = "Renamed Site"
	d.fixture.Write()

	d.coord.Dispatch(context.Background(), Event{ID: "cfg", Op: OpWrite, Path: d.path(config.Filename)})
	d.out.AssertFileContains("index.html", "<title>Renamed Site / Home</title>")
	assert.Equal(t, 1, d.live.calls)
}

func TestRun_StopsWhenChannelCloses(t *testing.T) {
	d := newDevSite(t)
	events := make(chan Event, 1)
	d.fixture.WithPage("about", nil, "Queued.\n")
	events <- Event{ID: "q", Op: OpWrite, Path: d.path("pages/about.md")}
	close(events)

	d.coord.Run(context.Background(), events)
	d.out.AssertFileContains("about.html", "Queued.")
	assert.Equal(t, 1, d.live.calls)
}
