package commands

import (
	"github.com/zyllian/webdog/internal/scaffold"
)

// ResourceCmd groups resource type subcommands.
type ResourceCmd struct {
	Create ResourceCreateCmd `cmd:"" help:"Create a new resource type."`
}

// ResourceCreateCmd implements 'resource create'.
type ResourceCreateCmd struct {
	ID     string `arg:"" help:"The resource type's ID."`
	Name   string `arg:"" help:"The name of a single resource."`
	Plural string `arg:"" help:"The plural name of the resource type."`
}

func (r *ResourceCreateCmd) Run(g *Global, root *CLI) error {
	rt := scaffold.ResourceType{ID: r.ID, Name: r.Name, Plural: r.Plural}
	first, err := scaffold.CreateResourceType(root.SitePath, rt, g.now())
	if err != nil {
		return g.canceled(err, "resource type %s already exists", r.ID)
	}
	g.success("Created the new resource type %s! The first resource is at %s.", r.ID, first)
	return nil
}
