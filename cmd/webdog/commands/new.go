package commands

import (
	"errors"
	"time"

	"github.com/zyllian/webdog/internal/resource"
	"github.com/zyllian/webdog/internal/scaffold"
	"github.com/zyllian/webdog/internal/site"
)

// NewCmd implements the 'new' command.
type NewCmd struct {
	ResourceType string   `arg:"" name:"resource-type" help:"The type of resource to create."`
	ID           string   `arg:"" help:"The resource's ID."`
	Title        string   `arg:"" help:"The resource's title."`
	Tags         []string `short:"t" name:"tag" sep:"none" help:"A tag for the resource. Repeatable."`
	Description  string   `short:"d" name:"description" help:"The resource's description."`
	SkipDraft    bool     `name:"skip-draft" help:"Publish immediately instead of creating a draft."`
}

func (n *NewCmd) Run(g *Global, root *CLI) error {
	meta := resource.Metadata{
		Title:     n.Title,
		Timestamp: g.now().UTC().Truncate(time.Second),
		Tags:      n.Tags,
		Desc:      n.Description,
		Draft:     !n.SkipDraft,
	}
	path, err := scaffold.NewResource(root.SitePath, n.ResourceType, n.ID, meta)
	if err != nil {
		if errors.Is(err, site.ErrUnknownResourceType) {
			return g.canceled(err, "no resource type %s", n.ResourceType)
		}
		return g.canceled(err, "a %s resource with the ID %s already exists", n.ResourceType, n.ID)
	}
	g.success("Created the new %s resource %s! Available at %s.", n.ResourceType, n.ID, path)
	return nil
}
