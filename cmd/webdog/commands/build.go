package commands

import (
	"context"
	"time"

	"github.com/zyllian/webdog/internal/metrics"
	"github.com/zyllian/webdog/internal/site"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct{}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	g.info("Building site...")
	start := time.Now()
	if err := site.BuildOnce(context.Background(), root.SitePath, metrics.NoopRecorder{}); err != nil {
		return err
	}
	g.success("Build completed in %s", time.Since(start).Round(time.Millisecond))
	return nil
}
