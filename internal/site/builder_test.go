package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyllian/webdog/internal/config"
	"github.com/zyllian/webdog/internal/frontmatter"
	"github.com/zyllian/webdog/internal/metrics"
	"github.com/zyllian/webdog/internal/rewrite"
	sitetest "github.com/zyllian/webdog/internal/testing"
)

func blogSite(t *testing.T) *sitetest.SiteFixture {
	t.Helper()
	draft := sitetest.Post("Draft", 10, "go")
	draft.Draft = true
	return sitetest.NewSiteFixture(t).
		WithBlog().
		WithPage("index", map[string]any{"title": "Home"}, "Welcome *home*.\n").
		WithPage("about", nil, "About us.\n").
		WithPage("docs/intro", map[string]any{"title": "Intro"}, "Intro.\n").
		WithResource("blog", "post1", sitetest.Post("Post 1", 1, "go", "web"), "First.\n").
		WithResource("blog", "post2", sitetest.Post("Post 2", 2, "go"), "Second.\n").
		WithResource("blog", "post3", sitetest.Post("Post 3", 3), "Third.\n").
		WithResource("blog", "post4", sitetest.Post("Post 4", 4, "web"), "Fourth.\n").
		WithResource("blog", "draft", draft, "Unfinished.\n").
		WithFile("root/robots.txt", "User-agent: *\n")
}

func prepared(t *testing.T, dir string, serving bool) *Builder {
	t.Helper()
	b, err := NewBuilder(dir, serving)
	require.NoError(t, err)
	require.NoError(t, b.Prepare())
	return b
}

func TestBuildAll_WritesEveryOutput(t *testing.T) {
	dir := blogSite(t).Write()
	b := prepared(t, dir, false)
	b.WithClock(func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) })
	require.NoError(t, b.BuildAll(context.Background()))

	fa := sitetest.NewFileAssertions(t, b.BuildDir())
	fa.AssertFileContains("index.html", "<title>Test Site / Home</title>").
		AssertFileContains("about.html", "<title>Test Site</title>").
		AssertFileExists("docs/intro.html").
		AssertFileExists("webdog/webdog.js").
		AssertFileContains("robots.txt", "User-agent").
		AssertFileContains("blog/post1.html", "First.").
		AssertFileNotExists("blog/draft.html").
		AssertFileExists("blog/index.html").
		AssertFileExists("blog/1.html").
		AssertFileExists("blog/2.html").
		AssertFileNotExists("blog/3.html").
		AssertFileContains("blog/tags.html", "go (2)").
		AssertFileContains("blog/tags.html", "/blog/tag/web/").
		AssertFileExists("blog/tag/go/index.html").
		AssertFileContains("blog/rss.xml", "Post 4").
		AssertFileNotContains("blog/rss.xml", "Draft")

	fa.AssertDirExists("docs").
		AssertDirExists("blog/tag/web").
		AssertMinFileCount(".", 3).
		AssertFileContains("blog/rss.xml", "<lastBuildDate>Thu, 01 Feb 2024 09:00:00 +0000</lastBuildDate>")

	// four posts, two list pages plus index, tags.html and rss.xml
	assert.Equal(t, 9, fa.CountFiles("blog"))
	assert.Equal(t, []string{"1.html", "index.html"}, fa.ListFiles("blog/tag/go"))
	assert.Equal(t, fa.GetFileContent("blog/1.html"), fa.GetFileContent("blog/index.html"))
	assert.Contains(t, fa.GetFileContent("blog/index.html"), "Post 4")
	assert.NotContains(t, fa.GetFileContent("blog/index.html"), "Post 1")
}

func TestBuildAll_ServingKeepsDraftsAndAddsDevScript(t *testing.T) {
	dir := blogSite(t).Write()
	b := prepared(t, dir, true)
	require.NoError(t, b.BuildAll(context.Background()))

	sitetest.NewFileAssertions(t, b.BuildDir()).
		AssertFileExists("blog/draft.html").
		AssertFileContains("index.html", rewrite.DevScriptPath).
		AssertFileContains("index.html", `class="debug"`)
}

func TestPrepare_EmptiesBuildDirectory(t *testing.T) {
	dir := blogSite(t).Write()
	stale := filepath.Join(dir, config.DefaultBuildDir, "stale.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o750))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	prepared(t, dir, false)
	assert.NoFileExists(t, stale)
}

func TestBuildPage_ResolvesPartials(t *testing.T) {
	dir := sitetest.NewSiteFixture(t).
		WithTemplate("partials/card", `<div class="card">{{.Userdata.name}}: {{.Page}}</div>`).
		WithPage("index", nil, "<wd-partial t=\"partials/card\" name=\"Ada\">hello</wd-partial>\n").
		Write()
	b := prepared(t, dir, true)
	require.NoError(t, b.BuildPage("index"))

	out := sitetest.NewFileAssertions(t, b.BuildDir()).GetFileContent("index.html")
	assert.Contains(t, out, `<div class="card">Ada: hello</div>`)
	assert.NotContains(t, out, rewrite.PartialTag)
}

func TestBuildPage_PartialCycleFails(t *testing.T) {
	dir := sitetest.NewSiteFixture(t).
		WithTemplate("partials/loop", `<section><wd-partial t="partials/loop"></wd-partial></section>`).
		WithPage("index", nil, "<wd-partial t=\"partials/loop\"></wd-partial>\n").
		Write()
	b := prepared(t, dir, true)

	err := b.BuildPage("index")
	require.Error(t, err)
	assert.ErrorIs(t, err, rewrite.ErrPartialCycle)
	assert.NoFileExists(t, filepath.Join(b.BuildDir(), "index.html"))
}

func TestBuildPage_Extras(t *testing.T) {
	dir := blogSite(t).
		WithTemplate("extra/hello", `<p class="extra">hi</p>`).
		WithTemplate("extra/recent", `{{range .Resources}}<span class="recent">{{.Title}}</span>{{end}}`).
		WithPage("basic", map[string]any{
			"extra": map[string]any{"name": "basic", "template": "extra/hello"},
		}, "Body.\n").
		WithPage("recent", map[string]any{
			"extra": map[string]any{"name": "resource-list-outside", "template": "extra/recent", "resource": "blog", "count": 2},
		}, "Body.\n").
		Write()
	b := prepared(t, dir, true)

	require.NoError(t, b.BuildPage("basic"))
	require.NoError(t, b.BuildPage("recent"))

	fa := sitetest.NewFileAssertions(t, b.BuildDir())
	assert.Contains(t, fa.GetFileContent("basic.html"), `<p class="extra">hi</p></main>`)

	recent := fa.GetFileContent("recent.html")
	assert.Equal(t, 2, strings.Count(recent, `class="recent"`))
	assert.Less(t, strings.Index(recent, "Draft"), strings.Index(recent, "Post 4"), "serving keeps the newest draft first")
}

func TestBuildPage_UnknownExtraFails(t *testing.T) {
	dir := sitetest.NewSiteFixture(t).
		WithPage("index", map[string]any{"extra": map[string]any{"name": "nope"}}, "Body.\n").
		Write()
	b := prepared(t, dir, false)

	err := b.BuildPage("index")
	require.Error(t, err)
	assert.ErrorIs(t, err, rewrite.ErrUnknownExtra)
	assert.ErrorIs(t, err, frontmatter.ErrMalformedFrontMatter)
}

func TestBuildPage_EmbedMetadata(t *testing.T) {
	dir := sitetest.NewSiteFixture(t).
		WithPage("index", map[string]any{
			"title": "Home",
			"embed": map[string]any{"title": "Hello", "image": "cdn$card.png"},
		}, "Body.\n").
		Write()
	b := prepared(t, dir, true)
	require.NoError(t, b.BuildPage("index"))

	sitetest.NewFileAssertions(t, b.BuildDir()).
		AssertFileContains("index.html", `<meta content="https://cdn.example/card.png" property="og:image"/>`).
		AssertFileContains("index.html", `property="og:title"`)
}

func TestPrepare_MissingThemeFails(t *testing.T) {
	f := sitetest.NewSiteFixture(t)
	f.Config.CodeTheme = "no-such-theme"
	b, err := NewBuilder(f.Write(), false)
	require.NoError(t, err)

	err = b.Prepare()
	require.ErrorIs(t, err, config.ErrMissingTheme)
}

func TestReloadConfig_KeepsPreviousConfigOnFailure(t *testing.T) {
	f := blogSite(t)
	dir := f.Write()
	b := prepared(t, dir, true)

	f.Config.CodeTheme = "no-such-theme"
	f.Config.Title = "Broken"
	f.Write()
	require.ErrorIs(t, b.ReloadConfig(), config.ErrMissingTheme)
	assert.Equal(t, "Test Site", b.Config().Title)

	f.Config.CodeTheme = config.DefaultCodeTheme
	f.Config.Title = "Renamed"
	delete(f.Config.Resources, "blog")
	f.Write()
	require.NoError(t, b.ReloadConfig())
	assert.Equal(t, "Renamed", b.Config().Title)
	_, ok := b.Collection("blog")
	assert.False(t, ok)
}

func TestReloadConfig_FailedLoadKeepsPreviousState(t *testing.T) {
	f := blogSite(t)
	dir := f.Write()
	b := prepared(t, dir, true)

	notes := *f.Config.Resources["blog"]
	notes.SourcePath = "notes"
	notes.OutputPathResources = "notes"
	notes.OutputPathLists = "notes"
	f.Config.Resources["notes"] = &notes
	f.Config.Title = "Renamed"
	f.WithFile("resources/notes/bare.md", "no front matter\n").Write()

	require.ErrorIs(t, b.ReloadConfig(), frontmatter.ErrMissingFrontMatter)
	assert.Equal(t, "Test Site", b.Config().Title)
	assert.NotContains(t, b.Config().Resources, "notes")
	blog, ok := b.Collection("blog")
	require.True(t, ok)
	assert.Len(t, blog.Items, 5)
	_, ok = b.Collection("notes")
	assert.False(t, ok)

	require.NoError(t, b.BuildAll(context.Background()))
	sitetest.NewFileAssertions(t, b.BuildDir()).
		AssertFileContains("index.html", "<title>Test Site / Home</title>").
		AssertFileNotExists("notes")
}

func TestRemovePagesUnder(t *testing.T) {
	dir := blogSite(t).WithPage("docs/setup", nil, "Setup.\n").Write()
	b := prepared(t, dir, false)
	require.NoError(t, b.BuildAllPages(context.Background()))
	fa := sitetest.NewFileAssertions(t, b.BuildDir())
	assert.Equal(t, 2, fa.CountFiles("docs"))

	n, err := b.RemovePagesUnder(filepath.Join(dir, PagesDir, "docs"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, fa.CountFiles("docs"))
	assert.Equal(t, []string{"about", "index"}, b.Pages().IDs())
	fa.AssertFileExists("about.html")
}

func TestRemoveResource(t *testing.T) {
	b := prepared(t, blogSite(t).Write(), true)
	require.NoError(t, b.BuildAllResources(context.Background()))
	fa := sitetest.NewFileAssertions(t, b.BuildDir())
	fa.AssertFileExists("blog/post1.html")

	require.NoError(t, b.RemoveResource("blog", "post1"))
	fa.AssertFileNotExists("blog/post1.html")
	require.NoError(t, b.RemoveResource("blog", "post1"))
	require.ErrorIs(t, b.RemoveResource("missing", "x"), ErrUnknownResourceType)
}

func TestReloadResourceType_Unknown(t *testing.T) {
	b := prepared(t, sitetest.NewSiteFixture(t).Write(), false)
	require.ErrorIs(t, b.ReloadResourceType("missing"), ErrUnknownResourceType)
	require.ErrorIs(t, b.BuildResources(context.Background(), "missing"), ErrUnknownResourceType)
	_, err := b.RecentResources("missing", 1)
	require.ErrorIs(t, err, ErrUnknownResourceType)
}

func TestRemovePage(t *testing.T) {
	b := prepared(t, blogSite(t).Write(), false)
	require.NoError(t, b.BuildPage("about"))
	require.FileExists(t, filepath.Join(b.BuildDir(), "about.html"))

	require.NoError(t, b.RemovePage("about"))
	assert.NoFileExists(t, filepath.Join(b.BuildDir(), "about.html"))
	assert.NotContains(t, b.Pages(), "about")
	require.NoError(t, b.RemovePage("about"))
}

func TestStaticFiles(t *testing.T) {
	dir := blogSite(t).Write()
	b := prepared(t, dir, true)

	src := filepath.Join(dir, RootDir, "img", "a.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o750))
	require.NoError(t, os.WriteFile(src, []byte("a"), 0o600))

	require.NoError(t, b.CopyStatic(src))
	assert.FileExists(t, filepath.Join(b.BuildDir(), "img", "a.txt"))
	require.NoError(t, b.RemoveStatic(src))
	assert.NoFileExists(t, filepath.Join(b.BuildDir(), "img", "a.txt"))

	require.Error(t, b.CopyStatic(filepath.Join(dir, "pages", "index.md")))
}

func TestResourceTypeForPath(t *testing.T) {
	dir := blogSite(t).Write()
	b := prepared(t, dir, true)

	name, ok := b.ResourceTypeForPath(filepath.Join(dir, "resources", "blog", "post1.md"))
	assert.True(t, ok)
	assert.Equal(t, "blog", name)

	_, ok = b.ResourceTypeForPath(filepath.Join(dir, "resources", "blog", "nested", "x.md"))
	assert.False(t, ok)
}

func TestScanPages(t *testing.T) {
	dir := blogSite(t).WithFile("pages/notes.txt", "skip").Write()
	index, err := ScanPages(filepath.Join(dir, PagesDir))
	require.NoError(t, err)
	assert.Equal(t, []string{"about", "docs/intro", "index"}, index.IDs())

	empty, err := ScanPages(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBuildOnce_UsesConfiguredBuildDirAndRecordsOutcome(t *testing.T) {
	f := blogSite(t)
	f.Config.Build = "public"
	dir := f.Write()

	reg := prom.NewRegistry()
	require.NoError(t, BuildOnce(context.Background(), dir, metrics.NewPrometheusRecorder(reg)))
	assert.FileExists(t, filepath.Join(dir, "public", "index.html"))
	assert.NoDirExists(t, filepath.Join(dir, config.DefaultBuildDir))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var outcomes float64
	for _, mf := range mfs {
		if mf.GetName() == "webdog_build_outcomes_total" {
			for _, m := range mf.GetMetric() {
				outcomes += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, outcomes)
}

func TestBuildSass_UsesCompiler(t *testing.T) {
	f := blogSite(t)
	f.Config.SassStyles = []string{"index.scss"}
	b := prepared(t, f.Write(), false)
	b.WithSassCompiler(func(context.Context, string) (string, error) {
		return "a { color: blue; }", nil
	})

	require.NoError(t, b.BuildSass(context.Background()))
	sitetest.NewFileAssertions(t, b.BuildDir()).AssertFileContains("styles/index.css", "a{color:blue}")
}
