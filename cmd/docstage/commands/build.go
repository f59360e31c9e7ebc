package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	RunFlags `embed:""`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return b.run(ctx, root)
}

func (b *BuildCmd) run(ctx context.Context, root *CLI) error {
	source, output, opts, err := b.resolve(root.stdin(), root.stdout())
	if err != nil {
		return err
	}

	rc := pipeline.NewRunContext(source, output, opts)
	rc.Stdin = root.stdin()
	rc.Stdout = root.stdout()

	res, err := pipeline.Process(ctx, rc)
	if err == nil || !errors.HasCategory(err, errors.CategoryAborted) {
		printSummary(root.stdout(), res, output)
	}
	return err
}
