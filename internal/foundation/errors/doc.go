// Package errors provides the classified error primitives used across webdog.
//
// Errors carry a category (config, frontmatter, template, resource, ...), a
// severity, and a small structured context map. Domain sentinels such as
// frontmatter.ErrMalformedFrontMatter are attached as the cause, so callers can
// keep using errors.Is against the sentinel while logs and HTTP responses get
// the classification.
//
//	err := errors.NewError(errors.CategoryResource, "failed to load resource").
//		WithContext("path", path).
//		WithCause(frontmatter.ErrMissingFrontMatter).
//		Build()
package errors
