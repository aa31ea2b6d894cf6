// Command webdog builds and serves static sites.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/zyllian/webdog/cmd/webdog/commands"
	ferrors "github.com/zyllian/webdog/internal/foundation/errors"
	"github.com/zyllian/webdog/internal/version"
)

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("webdog"),
		kong.Description("Static site generator with a live reloading dev server. Woof!"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Out: os.Stdout, Now: time.Now}
	if err := parser.Run(global, &cli); err != nil {
		adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		_, _ = fmt.Fprintln(os.Stderr, color.RedString(adapter.FormatError(err)))
		os.Exit(adapter.ExitCodeFor(err))
	}
}
