package commands

import (
	"github.com/zyllian/webdog/internal/scaffold"
)

// CreateCmd implements the 'create' command.
type CreateCmd struct {
	BaseURL string `arg:"" name:"base-url" help:"The site's base URL."`
	Title   string `arg:"" help:"The site's title."`
	CDNURL  string `name:"cdn-url" help:"The site's CDN URL (defaults to the base URL)."`
}

func (c *CreateCmd) Run(g *Global, root *CLI) error {
	if err := scaffold.CreateSite(root.SitePath, c.BaseURL, c.Title, c.CDNURL); err != nil {
		return g.canceled(err, "content exists at %s", root.SitePath)
	}
	g.success("Base site created at %s! Ready for editing, woof!", root.SitePath)
	return nil
}
