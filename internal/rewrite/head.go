package rewrite

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DevScriptPath is the live reload client served by the dev server.
const DevScriptPath = "/_dev.js"

// DebugClass is added to the body element while serving.
const DebugClass = "debug"

func (r *Rewriter) injectHead(d *goquery.Document, opts Options) {
	head := d.Find("head").First()
	head.PrependHtml(`<meta charset="utf-8">`)

	var b strings.Builder
	fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(opts.Title))
	b.WriteString(opts.Head)
	for _, script := range opts.Scripts {
		fmt.Fprintf(&b, `<script type="text/javascript" src="%s" defer></script>`, html.EscapeString(script))
	}
	for _, style := range opts.Styles {
		fmt.Fprintf(&b, `<link rel="stylesheet" href="/styles/%s">`, html.EscapeString(style))
	}
	fmt.Fprintf(&b, `<script type="text/javascript" src="/%s/webdog.js" defer></script>`, html.EscapeString(r.cfg.WebdogPath))
	if r.serving {
		fmt.Fprintf(&b, `<script src="%s"></script>`, DevScriptPath)
	}
	head.AppendHtml(b.String())

	if r.serving {
		d.Find("body").First().AddClass(DebugClass)
	}
}
