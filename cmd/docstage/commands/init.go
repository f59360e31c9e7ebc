package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docstage/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Dir      string `arg:"" optional:"" default:"." help:"Directory to write docstage.yaml into."`
	SiteName string `name:"site-name" help:"Site name for the starter configuration."`
	Force    bool   `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	path, err := config.Init(i.Dir, i.SiteName, i.Force)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(root.stdout(), "Wrote %s\n", path)
	return nil
}
