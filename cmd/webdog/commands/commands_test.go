package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyllian/webdog/internal/config"
	"github.com/zyllian/webdog/internal/frontmatter"
	"github.com/zyllian/webdog/internal/resource"
)

var fixedNow = time.Date(2024, 3, 9, 8, 7, 6, 0, time.FixedZone("CET", 3600))

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("webdog"), kong.Vars{"version": "test"})
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = kctx.Run(&Global{Out: &out, Now: func() time.Time { return fixedNow }}, &cli)
	return out.String(), err
}

func created(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "site")
	out, err := run(t, "--site-path", dir, "create", "https://example.com/", "Woof")
	require.NoError(t, err)
	require.Contains(t, out, "Base site created")
	return dir
}

func TestNow(t *testing.T) {
	out, err := run(t, "now")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09T07:07:06Z\n", out)
}

func TestCreate(t *testing.T) {
	dir := created(t)
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "Woof", cfg.Title)

	out, err := run(t, "--site-path", dir, "create", "https://example.com/", "Again")
	require.NoError(t, err)
	assert.Contains(t, out, "canceling!")
}

func TestCreate_CDNURL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")
	_, err := run(t, "--site-path", dir, "create", "https://example.com/", "Woof", "--cdn-url", "https://cdn.example.com/")
	require.NoError(t, err)
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/", cfg.CDNURL)
}

func TestResourceCreateAndNew(t *testing.T) {
	dir := created(t)

	out, err := run(t, "--site-path", dir, "resource", "create", "blog", "Post", "Posts")
	require.NoError(t, err)
	assert.Contains(t, out, "Created the new resource type blog")

	out, err = run(t, "--site-path", dir, "resource", "create", "blog", "Post", "Posts")
	require.NoError(t, err)
	assert.Contains(t, out, "resource type blog already exists, canceling!")

	out, err = run(t, "--site-path", dir, "new", "blog", "hello", "Hello there", "-t", "go", "--tag", "web", "-d", "A greeting", "--skip-draft")
	require.NoError(t, err)
	assert.Contains(t, out, "Created the new blog resource hello")

	raw, err := os.ReadFile(filepath.Join(dir, resource.Dir, "blog", "hello.md"))
	require.NoError(t, err)
	meta, _, err := frontmatter.ParseRequired[resource.Metadata](string(raw))
	require.NoError(t, err)
	assert.Equal(t, "Hello there", meta.Title)
	assert.Equal(t, []string{"go", "web"}, meta.Tags)
	assert.Equal(t, "A greeting", meta.Desc)
	assert.False(t, meta.Draft)
	assert.True(t, meta.Timestamp.Equal(fixedNow))
	assert.Equal(t, time.UTC, meta.Timestamp.Location())

	out, err = run(t, "--site-path", dir, "new", "blog", "hello", "Duplicate")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists, canceling!")

	out, err = run(t, "--site-path", dir, "new", "recipes", "soup", "Soup")
	require.NoError(t, err)
	assert.Contains(t, out, "no resource type recipes, canceling!")
}

func TestPageNew(t *testing.T) {
	dir := created(t)

	out, err := run(t, "--site-path", dir, "page", "new", "about", "About", "--template", "wide")
	require.NoError(t, err)
	assert.Contains(t, out, "Page created!")

	raw, err := os.ReadFile(filepath.Join(dir, "pages", "about.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "---\n"))
	assert.Contains(t, string(raw), "template: wide")

	out, err = run(t, "--site-path", dir, "page", "new", "about")
	require.NoError(t, err)
	assert.Contains(t, out, "page about already exists, canceling!")
}

func TestBuild(t *testing.T) {
	dir := created(t)
	_, err := run(t, "--site-path", dir, "page", "new", "hello", "Hello")
	require.NoError(t, err)

	out, err := run(t, "--site-path", dir, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "Build completed")
	assert.FileExists(t, filepath.Join(dir, config.DefaultBuildDir, "hello.html"))
	assert.FileExists(t, filepath.Join(dir, config.DefaultBuildDir, "index.html"))
}

func TestBuild_MissingSiteFails(t *testing.T) {
	_, err := run(t, "--site-path", filepath.Join(t.TempDir(), "nope"), "build")
	require.Error(t, err)
}
