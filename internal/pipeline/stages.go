package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/docstage/internal/config"
	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/logfields"
	"git.home.luguber.info/inful/docstage/internal/manifest"
	"git.home.luguber.info/inful/docstage/internal/patterns"
	"git.home.luguber.info/inful/docstage/internal/refs"
	"git.home.luguber.info/inful/docstage/internal/registry"
	"git.home.luguber.info/inful/docstage/internal/workspace"
)

// preflight validates the inputs and the ownership of the output root. Nothing is mutated.
func (p *processor) preflight(_ context.Context) error {
	src, err := filepath.Abs(p.rc.Source)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "cannot resolve source").
			WithContext("path", p.rc.Source).Fatal().Build()
	}
	info, err := os.Stat(src)
	if err != nil {
		return errors.NotFoundError("source directory does not exist").WithContext("path", src).Build()
	}
	if !info.IsDir() {
		return errors.ValidationError("source is not a directory").WithContext("path", src).Build()
	}
	if p.rc.OutputRoot == "" {
		return errors.ValidationError("output root is required").Build()
	}
	out, err := filepath.Abs(p.rc.OutputRoot)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "cannot resolve output root").
			WithContext("path", p.rc.OutputRoot).Fatal().Build()
	}

	if err := workspace.Evaluate(out,
		workspace.NotSource(src),
		workspace.NotAncestorOrDescendant(src),
		workspace.NotSystemCritical(),
	); err != nil {
		return err
	}
	p.source, p.out = src, out

	need, err := workspace.NeedsConfirmation(out)
	if err != nil || !need {
		return err
	}

	opts := p.rc.Options
	switch {
	case opts.DryRun:
		slog.Info("Dry run: output root is not managed by docstage and would need confirmation", logfields.Path(out))
		return nil
	case opts.AssumeYes || opts.Force:
		slog.Info("Replacing unmanaged output root", logfields.Path(out))
		return nil
	case !opts.Interactive:
		return errors.SafetyError("output root exists and is not managed by docstage; pass --yes to replace it").
			WithContext("path", out).Build()
	}

	prompt := opts.Prompt
	if prompt == nil {
		prompt = workspace.StdPrompt(p.rc.Stdin, p.rc.Stdout)
	}
	ok, err := prompt(fmt.Sprintf("Output root %s exists and was not created by docstage. Replace its contents?", out))
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "confirmation failed").Fatal().Build()
	}
	if !ok {
		return workspace.ErrAborted
	}
	return nil
}

// loadConfig runs before the clean so that an invalid configuration aborts the run without
// touching the output root, and so that the assets directory is known when copying.
func (p *processor) loadConfig(ctx context.Context) error {
	cascade, err := config.Discover(ctx, p.source, p.out)
	if err != nil {
		return err
	}
	if err := cascade.Master.Validate(); err != nil {
		return err
	}
	p.cascade = cascade
	p.master = cascade.Master
	p.exclude = patterns.NewMatcher(p.master.Exclude)
	p.unlisted = patterns.NewMatcher(p.master.Unlisted)
	p.hidden = patterns.NewMatcher(p.master.Hidden)

	slog.Info("Configuration loaded",
		logfields.RunID(p.rc.ID),
		logfields.Count(len(cascade.Hierarchical)),
		slog.Int("exclude", len(p.master.Exclude)))
	return nil
}

func (p *processor) clean(_ context.Context) error {
	if p.rc.Options.DryRun {
		slog.Info("Dry run: output root left untouched", logfields.Path(p.out))
		return nil
	}
	p.mgr = workspace.NewManager(p.out)
	if err := p.mgr.Prepare(p.rc.ID); err != nil {
		return err
	}
	for range p.mgr.CreateLinks(p.rc.Options.Links) {
		p.countWarning(StageClean)
	}
	return nil
}

// copyAssets mirrors the assets directory verbatim, minus excluded paths.
func (p *processor) copyAssets(ctx context.Context) error {
	root := filepath.Join(p.source, filepath.FromSlash(p.master.AssetsDir))
	if _, err := os.Stat(root); err != nil {
		slog.Debug("No assets directory", logfields.Path(root))
		return nil
	}

	return filepath.WalkDir(root, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := p.rel(abs)
		if relErr != nil {
			return relErr
		}
		if p.excluded(rel) {
			p.res.Skipped++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Name() == config.FileName {
			return nil
		}
		p.res.AssetsCopied++
		if p.rc.Options.DryRun {
			return nil
		}
		return copyFile(abs, filepath.Join(p.out, filepath.FromSlash(rel)))
	})
}

func (p *processor) discover(_ context.Context) error {
	scoped := func(prefix string) registry.Skip {
		return func(rel string) bool { return p.excluded(path.Join(prefix, rel)) }
	}

	if p.master.ComponentsEnabled() {
		dir := filepath.Join(p.source, filepath.FromSlash(p.master.ComponentsDir))
		notConfig := func(rel string) bool { return path.Base(rel) == config.FileName }
		comps, err := registry.DiscoverComponents(dir, p.rc.Options.Precedence, scoped(p.master.ComponentsDir), notConfig)
		if err != nil {
			return err
		}
		if p.rc.Options.Precedence == registry.PrecedenceStrict {
			for range comps.Duplicates {
				p.countWarning(StageDiscover)
			}
		}
		p.components = comps
	}

	css, err := registry.DiscoverCSS(filepath.Join(p.source, filepath.FromSlash(p.master.AssetsDir)), scoped(p.master.AssetsDir))
	if err != nil {
		return err
	}
	p.css = css

	slog.Info("Registries discovered",
		logfields.RunID(p.rc.ID),
		slog.Int("components", p.components.Len()),
		slog.Int("stylesheets", len(css)))
	return nil
}

// fixupReferences runs after every document has been written.
func (p *processor) fixupReferences(_ context.Context) error {
	if p.rc.Options.DryRun {
		slog.Info("Dry run: partial references not rewritten", logfields.Count(len(p.res.Conversions)))
		return nil
	}
	if len(p.res.Conversions) == 0 {
		return nil
	}

	stats, err := refs.UpdatePartialReferences(p.out, p.res.Conversions)
	if err != nil {
		return err
	}
	p.res.Partials = stats
	for range stats.Failures {
		p.countWarning(StageFixupReferences)
	}
	if stats.Rewritten > 0 {
		p.refreshFingerprints()
	}
	slog.Info("Partial references updated",
		logfields.RunID(p.rc.ID),
		slog.Int("files", stats.Files),
		slog.Int("rewritten", stats.Rewritten),
		slog.Int("misses", stats.Misses))
	return nil
}

func (p *processor) writeManifest(_ context.Context) error {
	m := &manifest.Manifest{
		Config:     p.master,
		Source:     manifest.Source{Revision: manifest.Revision(p.source)},
		Docs:       p.docs,
		Components: manifest.Components{Items: []manifest.ComponentItem{}},
		CSS:        manifest.CSS{Items: []string{}},
	}
	if m.Docs == nil {
		m.Docs = []manifest.Doc{}
	}
	if p.master.ComponentsEnabled() {
		m.Components.Directory = p.master.ComponentsDir
		for _, d := range p.components.Items() {
			m.Components.Items = append(m.Components.Items, manifest.ComponentItem{
				Name: d.Name,
				Path: path.Join(p.master.ComponentsDir, d.RelativePath),
				Kind: d.Kind,
			})
		}
	}
	for _, a := range p.css {
		m.CSS.Items = append(m.CSS.Items, a.RelativePath)
	}
	p.res.Manifest = m

	if p.rc.Options.DryRun {
		return nil
	}
	return manifest.Write(p.out, m)
}

// rel returns the slash path of abs relative to the source root.
func (p *processor) rel(abs string) (string, error) {
	r, err := filepath.Rel(p.source, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(r), nil
}
