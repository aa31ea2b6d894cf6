// Package scaffold creates new sites, resource types, pages and resources
// from the templates embedded in the binary.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zyllian/webdog/internal/config"
	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
	"github.com/zyllian/webdog/internal/frontmatter"
	"github.com/zyllian/webdog/internal/resource"
	"github.com/zyllian/webdog/internal/site"
	"github.com/zyllian/webdog/internal/templates"
)

//go:embed all:site
var defaultSite embed.FS

//go:embed resource/*.tmpl
var resourceTemplates embed.FS

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrExists is returned instead of overwriting anything.
var ErrExists = errors.New("already exists")

// Placeholders replaced in resource templates.
const (
	PlaceholderType            = "!!RESOURCE_TYPE!!"
	PlaceholderName            = "!!RESOURCE_NAME!!"
	PlaceholderNameLower       = "!!RESOURCE_NAME_LOWERCASE!!"
	PlaceholderNamePlural      = "!!RESOURCE_NAME_PLURAL!!"
	PlaceholderNamePluralLower = "!!RESOURCE_NAME_PLURAL_LOWERCASE!!"
)

const (
	defaultPageBody     = "new page :)\n"
	defaultResourceBody = "hello world :)\n"
)

// CreateSite writes a new site to path. An empty cdnURL uses baseURL.
func CreateSite(path, baseURL, title, cdnURL string) error {
	if _, err := os.Stat(path); err == nil {
		return exists("site", path)
	}
	if cdnURL == "" {
		cdnURL = baseURL
	}
	cfg := config.New(baseURL, title, cdnURL)
	if err := cfg.Validate(nil); err != nil {
		return err
	}
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return ferrors.FileSystemError("failed to create site directory").WithCause(err).WithContext("path", path).Build()
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	src, err := fs.Sub(defaultSite, "site")
	if err != nil {
		return ferrors.InternalError("embedded site is missing").WithCause(err).Build()
	}
	if err := extract(src, path, nil); err != nil {
		return err
	}
	root := filepath.Join(path, site.RootDir)
	if err := os.Mkdir(root, dirPerm); err != nil {
		return ferrors.FileSystemError("failed to create static root").WithCause(err).WithContext("path", root).Build()
	}
	return nil
}

// ResourceType names a new resource type.
type ResourceType struct {
	ID     string
	Name   string
	Plural string
}

func (r ResourceType) replacer() *strings.Replacer {
	lower := cases.Lower(language.Und)
	// Longer placeholders first so a prefix never matches early.
	return strings.NewReplacer(
		PlaceholderNamePluralLower, lower.String(r.Plural),
		PlaceholderNamePlural, r.Plural,
		PlaceholderNameLower, lower.String(r.Name),
		PlaceholderName, r.Name,
		PlaceholderType, r.ID,
	)
}

// Config returns the configuration registered for the type.
func (r ResourceType) Config() *config.ResourceTypeConfig {
	title := cases.Title(language.Und, cases.NoLower)
	return &config.ResourceTypeConfig{
		SourcePath:           r.ID,
		OutputPathResources:  r.ID,
		OutputPathLists:      r.ID,
		ResourceTemplate:     r.ID + "/resource",
		ResourceListTemplate: r.ID + "/list",
		TagListTemplate:      "basic-link-list",
		RSSTemplate:          r.ID + "/rss",
		RSSTitle:             title.String(r.Plural),
		RSSDescription:       fmt.Sprintf("The latest %s", cases.Lower(language.Und).String(r.Plural)),
		ListTitle:            r.Plural,
		TagListTitle:         r.Name + " tags",
		ResourceNamePlural:   r.Plural,
		ResourcesPerPage:     config.DefaultResourcesPerPage,
		TimestampFormat:      config.DefaultTimestampFormat,
	}
}

// CreateResourceType writes templates for a new resource type, registers it
// in config.yaml and adds a first draft resource. It returns the path of
// that resource.
func CreateResourceType(sitePath string, rt ResourceType, now time.Time) (string, error) {
	cfg, err := config.Load(sitePath)
	if err != nil {
		return "", err
	}
	if _, ok := cfg.Resources[rt.ID]; ok {
		return "", exists("resource type", rt.ID)
	}
	tmplDir := filepath.Join(sitePath, site.TemplatesDir, filepath.FromSlash(rt.ID))
	if _, err := os.Stat(tmplDir); err == nil {
		return "", exists("template directory", tmplDir)
	}

	src, err := fs.Sub(resourceTemplates, "resource")
	if err != nil {
		return "", ferrors.InternalError("embedded resource templates are missing").WithCause(err).Build()
	}
	if err := extract(src, tmplDir, rt.replacer()); err != nil {
		return "", err
	}

	cfg.Resources[rt.ID] = rt.Config()
	if err := cfg.Save(sitePath); err != nil {
		return "", err
	}

	lower := cases.Lower(language.Und).String(rt.Name)
	return NewResource(sitePath, rt.ID, "first", resource.Metadata{
		Title:     "First " + lower,
		Timestamp: now.UTC().Truncate(time.Second),
		Tags:      []string{"first"},
		Desc:      fmt.Sprintf("This is the first %s :)", lower),
		Draft:     true,
	})
}

// NewPage writes pages/<id>.md. Empty title and template are omitted.
func NewPage(sitePath, id, title, template string) (string, error) {
	p := filepath.Join(sitePath, site.PagesDir, filepath.FromSlash(id)+site.PageExt)
	if _, err := os.Stat(p); err == nil {
		return "", exists("page", id)
	}
	if template == templates.DefaultTemplate {
		template = ""
	}
	meta := site.PageMetadata{Title: title, Template: template}
	raw, err := frontmatter.Format(&meta, defaultPageBody)
	if err != nil {
		return "", err
	}
	return p, writeFile(p, raw)
}

// NewResource writes resources/<source>/<id>.md for a configured type.
func NewResource(sitePath, resourceType, id string, meta resource.Metadata) (string, error) {
	cfg, err := config.Load(sitePath)
	if err != nil {
		return "", err
	}
	rc, ok := cfg.Resources[resourceType]
	if !ok {
		return "", ferrors.ResourceError("no such resource type").
			WithCause(site.ErrUnknownResourceType).
			WithContext("resource_type", resourceType).
			Build()
	}
	if err := meta.Validate(); err != nil {
		return "", ferrors.NewError(ferrors.CategoryValidation, "invalid resource metadata").
			WithCause(err).
			WithContext("id", id).
			Build()
	}
	p := filepath.Join(sitePath, resource.Dir, filepath.FromSlash(rc.SourcePath), id+site.PageExt)
	if _, err := os.Stat(p); err == nil {
		return "", exists(resourceType+" resource", id)
	}
	raw, err := frontmatter.Format(&meta, defaultResourceBody)
	if err != nil {
		return "", err
	}
	return p, writeFile(p, raw)
}

// extract copies every file of src below dst, passing text through r when set.
func extract(src fs.FS, dst string, r *strings.Replacer) error {
	err := fs.WalkDir(src, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dst, filepath.FromSlash(p))
		if d.IsDir() {
			return os.MkdirAll(target, dirPerm)
		}
		data, err := fs.ReadFile(src, p)
		if err != nil {
			return err
		}
		content := string(data)
		if r != nil {
			content = r.Replace(content)
		}
		return os.WriteFile(target, []byte(content), filePerm)
	})
	if err != nil {
		return ferrors.FileSystemError("failed to write scaffold files").WithCause(err).WithContext("path", dst).Build()
	}
	return nil
}

func writeFile(p, content string) error {
	if err := os.MkdirAll(filepath.Dir(p), dirPerm); err != nil {
		return ferrors.FileSystemError("failed to create directory").WithCause(err).WithContext("path", p).Build()
	}
	if err := os.WriteFile(p, []byte(content), filePerm); err != nil {
		return ferrors.FileSystemError("failed to write file").WithCause(err).WithContext("path", p).Build()
	}
	return nil
}

func exists(kind, what string) error {
	return ferrors.NewError(ferrors.CategoryValidation, kind+" already exists").
		WithCause(ErrExists).
		WithContext("target", what).
		Build()
}
