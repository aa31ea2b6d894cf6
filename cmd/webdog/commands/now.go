package commands

import (
	"fmt"
	"time"
)

// NowCmd prints the current time in the format resource timestamps use.
type NowCmd struct{}

func (n *NowCmd) Run(g *Global) error {
	_, err := fmt.Fprintln(g.out(), g.now().UTC().Format(time.RFC3339))
	return err
}
