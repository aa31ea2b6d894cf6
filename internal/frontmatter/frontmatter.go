// Package frontmatter splits and joins the YAML metadata block that prefixes
// pages and resources.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

var (
	// ErrMalformedFrontMatter is returned when the opening delimiter has no
	// closing delimiter, or the block does not decode into the metadata type.
	ErrMalformedFrontMatter = errors.New("malformed front matter")
	// ErrMissingFrontMatter is returned by ParseRequired when a document has no
	// front matter block at all.
	ErrMissingFrontMatter = errors.New("missing front matter")

	errMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")
)

// Parse splits raw into optional metadata and body. meta is nil when raw has no
// front matter block.
func Parse[T any](raw string) (meta *T, body string, err error) {
	fm, rest, had, _, err := Split([]byte(raw))
	if err != nil {
		return nil, "", ferrors.FrontMatterError("failed to split front matter").
			WithCause(fmt.Errorf("%w: %w", ErrMalformedFrontMatter, err)).
			Build()
	}
	if !had {
		return nil, raw, nil
	}

	var out T
	if len(bytes.TrimSpace(fm)) > 0 {
		if err := yaml.Unmarshal(fm, &out); err != nil {
			return nil, "", ferrors.FrontMatterError("failed to decode front matter").
				WithCause(fmt.Errorf("%w: %w", ErrMalformedFrontMatter, err)).
				Build()
		}
	}
	if v, ok := any(&out).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, "", ferrors.FrontMatterError("invalid front matter").
				WithCause(fmt.Errorf("%w: %w", ErrMalformedFrontMatter, err)).
				Build()
		}
	}
	return &out, string(rest), nil
}

// ParseRequired is Parse for documents that must carry front matter.
func ParseRequired[T any](raw string) (T, string, error) {
	var zero T
	meta, body, err := Parse[T](raw)
	if err != nil {
		return zero, "", err
	}
	if meta == nil {
		return zero, "", ferrors.FrontMatterError("document has no front matter").
			WithCause(ErrMissingFrontMatter).
			Build()
	}
	return *meta, body, nil
}

// Format renders meta and body back into a document. The delimited block is
// only emitted when meta is non-nil, and the output always ends in a newline.
func Format[T any](meta *T, body string) (string, error) {
	var sb strings.Builder
	if meta != nil {
		data, err := encodeYAML(meta)
		if err != nil {
			return "", ferrors.FrontMatterError("failed to encode front matter").WithCause(err).Build()
		}
		sb.WriteString("---\n")
		sb.Write(data)
		sb.WriteString("---\n")
	}
	sb.WriteString(body)
	if !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
