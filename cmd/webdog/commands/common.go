// Package commands implements the webdog command line.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/zyllian/webdog/internal/scaffold"
	"github.com/zyllian/webdog/internal/site"
)

// Global is passed to every command's Run method.
type Global struct {
	// Out receives user-facing messages.
	Out io.Writer
	Now func() time.Time
}

// CLI definition & global flags.
type CLI struct {
	SitePath string           `name:"site-path" default:"." type:"path" help:"Path to the site."`
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Create   CreateCmd   `cmd:"" help:"Create a new webdog site."`
	Build    BuildCmd    `cmd:"" help:"Build the site."`
	Serve    ServeCmd    `cmd:"" help:"Serve the site with live reload while editing."`
	Now      NowCmd      `cmd:"" help:"Print the current UTC timestamp."`
	Resource ResourceCmd `cmd:"" help:"Manage resource types."`
	Page     PageCmd     `cmd:"" help:"Manage standard pages."`
	New      NewCmd      `cmd:"" help:"Create a new resource of the given type."`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func (g *Global) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) success(format string, args ...any) {
	_, _ = color.New(color.FgGreen, color.Bold).Fprintf(g.out(), format+"\n", args...)
}

func (g *Global) info(format string, args ...any) {
	_, _ = color.New(color.FgCyan).Fprintf(g.out(), format+"\n", args...)
}

// canceled reports refusals to overwrite or unknown targets as a warning
// instead of a failure. Any other error is returned unchanged.
func (g *Global) canceled(err error, format string, args ...any) error {
	if !errors.Is(err, scaffold.ErrExists) && !errors.Is(err, site.ErrUnknownResourceType) {
		return err
	}
	msg := fmt.Sprintf(format, args...)
	_, _ = color.New(color.FgYellow).Fprintf(g.out(), "%s, canceling!\n", msg)
	return nil
}
