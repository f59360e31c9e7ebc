package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docstage/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (VersionCmd) Run(_ *Global, root *CLI) error {
	_, _ = fmt.Fprintln(root.stdout(), "docstage", version.String())
	return nil
}
