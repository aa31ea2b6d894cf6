package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_Basic(t *testing.T) {
	c := New("monokai")
	out, err := c.Convert("# Hello\n\nSome *text*.\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<em>text</em>")
}

func TestConvert_WrapsFencedCode(t *testing.T) {
	c := New("monokai")
	out, err := c.Convert("```go\nfunc main() {}\n```\n")
	require.NoError(t, err)
	assert.Contains(t, out, `<div class="wd-codeblock"><button class="copy">Copy</button>`)
	assert.Contains(t, out, "<pre")
	assert.Contains(t, out, "</div>")
}

func TestConvert_KeepsRawHTML(t *testing.T) {
	c := New("monokai")
	out, err := c.Convert("<wd-partial t=\"card\">inner</wd-partial>\n")
	require.NoError(t, err)
	assert.Contains(t, out, `<wd-partial t="card">`)
}

func TestConvert_Tables(t *testing.T) {
	c := New("monokai")
	out, err := c.Convert("| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
}

func TestThemes(t *testing.T) {
	var th Themes
	assert.True(t, th.HasTheme("monokai"))
	assert.False(t, th.HasTheme("definitely-not-a-theme"))
}
