package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/zyllian/webdog/internal/preview"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	IP   string `name:"ip" default:"127.0.0.1" help:"The IP address to bind to."`
	Port int    `short:"p" name:"port" default:"8080" help:"The port to bind to."`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g.info("Serving %s at http://%s:%d", root.SitePath, s.IP, s.Port)
	return preview.Serve(ctx, preview.Options{SitePath: root.SitePath, IP: s.IP, Port: s.Port})
}
