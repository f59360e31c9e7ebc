// Package commands implements the docstage subcommands.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/foundation/normalization"
	"git.home.luguber.info/inful/docstage/internal/pipeline"
	"git.home.luguber.info/inful/docstage/internal/registry"
	"git.home.luguber.info/inful/docstage/internal/workspace"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Verbose  bool             `short:"v" help:"Enable verbose logging" env:"DOCSTAGE_VERBOSE"`
	LogLevel string           `name:"log-level" help:"Log level (debug, info, warn, error)" env:"DOCSTAGE_LOG_LEVEL"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Process the source tree into the output root once"`
	Watch   WatchCmd   `cmd:"" help:"Process the source tree and rerun on every change"`
	Init    InitCmd    `cmd:"" help:"Write a starter docstage.yaml"`
	Ver     VersionCmd `cmd:"" name:"version" help:"Print version information"`
	Stdout  io.Writer  `kong:"-"`
	Stdin   io.Reader  `kong:"-"`
	LogSink io.Writer  `kong:"-"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	sink := c.LogSink
	if sink == nil {
		sink = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose, c.LogLevel)}))
	slog.SetDefault(logger)
	return nil
}

func (c *CLI) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

func (c *CLI) stdin() io.Reader {
	if c.Stdin == nil {
		return os.Stdin
	}
	return c.Stdin
}

var logLevels = normalization.NewEnum("log level", map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}, slog.LevelInfo)

// parseLogLevel resolves the level; --verbose wins over an explicit level.
func parseLogLevel(verbose bool, level string) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return logLevels.Normalize(level)
}

// RunFlags are shared by build and watch.
type RunFlags struct {
	Source      string   `short:"s" name:"source" default:"." env:"DOCSTAGE_SOURCE" help:"Source documentation tree."`
	Output      string   `short:"o" name:"output" required:"" env:"DOCSTAGE_OUTPUT" help:"Output root; its contents are replaced on every run."`
	Yes         bool     `short:"y" name:"yes" env:"DOCSTAGE_YES" help:"Replace an unmanaged output root without asking."`
	Force       bool     `name:"force" env:"DOCSTAGE_FORCE" help:"Same as --yes."`
	DryRun      bool     `name:"dry-run" env:"DOCSTAGE_DRY_RUN" help:"Compute everything, write nothing."`
	NoInput     bool     `name:"no-input" env:"DOCSTAGE_NO_INPUT" help:"Never prompt; refuse instead."`
	Concurrency int      `short:"j" name:"concurrency" env:"DOCSTAGE_CONCURRENCY" help:"Per-file workers (0 = number of CPUs)."`
	Precedence  string   `name:"precedence" default:"last-wins" enum:"last-wins,strict" env:"DOCSTAGE_PRECEDENCE" help:"Duplicate component policy (last-wins, strict)."`
	Link        []string `name:"link" env:"DOCSTAGE_LINKS" help:"Create a symlink at PATH pointing into the output root (TARGET relative to it); repeatable."`
}

// resolve turns flags into absolute paths and pipeline options.
func (f *RunFlags) resolve(in io.Reader, out io.Writer) (string, string, pipeline.Options, error) {
	var opts pipeline.Options

	source, err := filepath.Abs(f.Source)
	if err != nil {
		return "", "", opts, errors.WrapError(err, errors.CategoryValidation, "invalid source path").
			WithContext("path", f.Source).Build()
	}
	output, err := filepath.Abs(f.Output)
	if err != nil {
		return "", "", opts, errors.WrapError(err, errors.CategoryValidation, "invalid output path").
			WithContext("path", f.Output).Build()
	}

	prec, err := registry.ParsePrecedence(f.Precedence)
	if err != nil {
		return "", "", opts, err
	}
	links := make([]workspace.Link, 0, len(f.Link))
	for _, spec := range f.Link {
		l, err := workspace.ParseLink(spec)
		if err != nil {
			return "", "", opts, err
		}
		links = append(links, l)
	}

	opts = pipeline.Options{
		AssumeYes:   f.Yes,
		Force:       f.Force,
		DryRun:      f.DryRun,
		Concurrency: f.Concurrency,
		Interactive: !f.NoInput && isTerminal(in),
		Prompt:      workspace.StdPrompt(in, out),
		Links:       links,
		Precedence:  prec,
	}
	return source, output, opts, nil
}

// isTerminal reports whether r is an interactive character device.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func printSummary(w io.Writer, res *pipeline.Result, output string) {
	if res == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "%s: %d documents, %d files copied, %d components, %d warnings in %s -> %s\n",
		res.Status, res.Documents, res.FilesCopied, res.ComponentsCopied, res.Warnings,
		res.Duration.Round(time.Millisecond), output)
}
