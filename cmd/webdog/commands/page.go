package commands

import (
	"github.com/zyllian/webdog/internal/scaffold"
)

// PageCmd groups page subcommands.
type PageCmd struct {
	New PageNewCmd `cmd:"" help:"Create a new standard page."`
}

// PageNewCmd implements 'page new'.
type PageNewCmd struct {
	ID       string `arg:"" help:"The page's ID."`
	Title    string `arg:"" optional:"" help:"The page's title."`
	Template string `name:"template" help:"The page's template if not the default."`
}

func (p *PageNewCmd) Run(g *Global, root *CLI) error {
	path, err := scaffold.NewPage(root.SitePath, p.ID, p.Title, p.Template)
	if err != nil {
		return g.canceled(err, "page %s already exists", p.ID)
	}
	g.success("Page created! Edit at %s.", path)
	return nil
}
