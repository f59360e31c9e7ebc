package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docstage/cmd/docstage/commands"
	"git.home.luguber.info/inful/docstage/internal/config"
	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/version"
)

func main() {
	// Env files must be in place before kong resolves env-backed flags.
	config.LoadEnvFiles()

	cli := &commands.CLI{}
	kctx := kong.Parse(cli,
		kong.Name("docstage"),
		kong.Description("Stage a documentation source tree into a framework-ready content tree."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := kctx.Run(&commands.Global{Logger: slog.Default()}, cli)
	adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	os.Exit(adapter.Report(os.Stderr, err))
}
