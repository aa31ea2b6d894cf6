package rewrite

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
)

// ErrUnknownExtra is returned for an extra name with no registered handler.
var ErrUnknownExtra = errors.New("unknown extra")

// Extra names.
const (
	ExtraBasic               = "basic"
	ExtraResourceListOutside = "resource-list-outside"
)

// ExtraData is a page's extra directive: a name plus a payload whose keys
// sit next to the name in front matter.
type ExtraData struct {
	Name    string
	payload yaml.Node
}

// UnmarshalYAML keeps the whole mapping so handlers can decode their payload.
func (e *ExtraData) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Name string `yaml:"name"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	e.Name = head.Name
	e.payload = *node
	return nil
}

// MarshalYAML writes the original mapping back, or just the name.
func (e ExtraData) MarshalYAML() (any, error) {
	if e.payload.Kind != 0 {
		return &e.payload, nil
	}
	return map[string]string{"name": e.Name}, nil
}

// Decode decodes the payload into v. The name key is ignored by structs
// that do not declare it.
func (e *ExtraData) Decode(v any) error {
	if e.payload.Kind == 0 {
		return nil
	}
	return e.payload.Decode(v)
}

// Validate fails with ErrUnknownExtra when no handler is registered for Name.
func (e *ExtraData) Validate() error {
	if _, ok := extras[e.Name]; !ok {
		return fmt.Errorf("%w: %q (known: %s)", ErrUnknownExtra, e.Name, strings.Join(ExtraNames(), ", "))
	}
	return nil
}

// ExtraHost is what extras need from the site builder.
type ExtraHost interface {
	// RenderTemplate renders a named template without the page pipeline.
	RenderTemplate(name string, data any) (string, error)
	// RecentResources returns template data for the first count items of a
	// loaded resource collection.
	RecentResources(resourceType string, count int) (any, error)
}

type extraFunc func(doc string, host ExtraHost, data *ExtraData) (string, error)

var extras = map[string]extraFunc{
	ExtraBasic:               basicExtra,
	ExtraResourceListOutside: resourceListOutsideExtra,
}

// ExtraNames lists the registered extras.
func ExtraNames() []string {
	names := make([]string, 0, len(extras))
	for n := range extras {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplyExtra runs the handler registered for data.Name on doc.
func ApplyExtra(doc string, data *ExtraData, host ExtraHost) (string, error) {
	fn, ok := extras[data.Name]
	if !ok {
		return "", ferrors.RenderError("unknown extra").
			WithCause(fmt.Errorf("%w: %q", ErrUnknownExtra, data.Name)).
			Build()
	}
	out, err := fn(doc, host, data)
	if err != nil {
		return "", ferrors.RenderError("extra failed").
			WithCause(err).
			WithContext("extra", data.Name).
			Build()
	}
	return out, nil
}

// basicExtra renders a template with no data into main.page.
func basicExtra(doc string, host ExtraHost, data *ExtraData) (string, error) {
	var payload struct {
		Template string `yaml:"template"`
	}
	if err := data.Decode(&payload); err != nil {
		return "", fmt.Errorf("decode basic extra: %w", err)
	}
	content, err := host.RenderTemplate(payload.Template, struct{}{})
	if err != nil {
		return "", err
	}
	return appendTo(doc, content, "main.page")
}

// resourceListOutsideExtra renders recent items of a resource type into #content.
func resourceListOutsideExtra(doc string, host ExtraHost, data *ExtraData) (string, error) {
	var payload struct {
		Template string `yaml:"template"`
		Resource string `yaml:"resource"`
		Count    int    `yaml:"count"`
	}
	if err := data.Decode(&payload); err != nil {
		return "", fmt.Errorf("decode resource-list-outside extra: %w", err)
	}
	items, err := host.RecentResources(payload.Resource, payload.Count)
	if err != nil {
		return "", err
	}
	content, err := host.RenderTemplate(payload.Template, map[string]any{"Resources": items})
	if err != nil {
		return "", err
	}
	return appendTo(doc, content, "#content")
}

func appendTo(doc, content, selector string) (string, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", err
	}
	d.Find(selector).AppendHtml(content)
	return serialize(d)
}
