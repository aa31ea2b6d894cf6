package rewrite

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

// Link commands recognized in src and href values of the form command$rest.
const (
	CommandCDN = "cdn"
	CommandMe  = "me"
)

func (r *Rewriter) rewriteLinks(d *goquery.Document) error {
	var firstErr error

	d.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		cmd, rest, ok := strings.Cut(src, "$")
		if !ok || cmd != CommandCDN {
			return true
		}
		resolved, err := r.resolveCDN(rest)
		if err != nil {
			firstErr = err
			return false
		}
		s.SetAttr("src", resolved)
		return true
	})
	if firstErr != nil {
		return firstErr
	}

	d.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if cmd, rest, ok := strings.Cut(href, "$"); ok {
			switch cmd {
			case CommandCDN:
				resolved, err := r.resolveCDN(rest)
				if err != nil {
					firstErr = err
					return false
				}
				href = resolved
			case CommandMe:
				href = rest
				addRel(s, "me")
			}
			s.SetAttr("href", href)
		}
		if isExternal(href) {
			addRel(s, "noopener", "noreferrer")
			s.SetAttr("target", "_blank")
		}
		return true
	})
	return firstErr
}

func (r *Rewriter) resolveCDN(file string) (string, error) {
	out, err := r.cfg.ResolveCDN(file)
	if err != nil {
		return "", ferrors.RenderError("failed to resolve cdn link").
			WithCause(err).
			WithContext("file", file).
			Build()
	}
	return out, nil
}

// isExternal reports whether href is an absolute URL with a host.
func isExternal(href string) bool {
	u, err := url.Parse(href)
	return err == nil && u.IsAbs() && u.Host != ""
}

// addRel appends tokens to the rel attribute, skipping ones already present.
func addRel(s *goquery.Selection, tokens ...string) {
	existing, _ := s.Attr("rel")
	fields := strings.Fields(existing)
	for _, t := range tokens {
		found := false
		for _, f := range fields {
			if strings.EqualFold(f, t) {
				found = true
				break
			}
		}
		if !found {
			fields = append(fields, t)
		}
	}
	s.SetAttr("rel", strings.Join(fields, " "))
}
