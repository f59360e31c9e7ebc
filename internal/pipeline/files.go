package pipeline

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docstage/internal/config"
	"git.home.luguber.info/inful/docstage/internal/convert"
	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/frontmatterops"
	"git.home.luguber.info/inful/docstage/internal/logfields"
	"git.home.luguber.info/inful/docstage/internal/manifest"
	"git.home.luguber.info/inful/docstage/internal/patterns"
	"git.home.luguber.info/inful/docstage/internal/refs"
	"git.home.luguber.info/inful/docstage/internal/util/sets"
)

type itemKind int

const (
	kindContent itemKind = iota
	kindComponent
	kindCopy
)

// workItem is one source file the per-file loop will handle.
type workItem struct {
	abs  string
	rel  string
	kind itemKind
}

// output is one file ready to be written.
type output struct {
	item    workItem
	dest    string
	content []byte
	// copyFrom is set for byte-for-byte copies; content is then unused.
	copyFrom string
	doc      *manifest.Doc
}

var skippedDirs = map[string]struct{}{".git": {}, "node_modules": {}}

// collect walks the source once and returns the work list in lexical order.
func (p *processor) collect(ctx context.Context) ([]workItem, error) {
	var items []workItem
	err := filepath.WalkDir(p.source, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if abs == p.source {
			return nil
		}
		rel, relErr := p.rel(abs)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if _, skip := skippedDirs[d.Name()]; skip || strings.HasPrefix(d.Name(), ".") || abs == p.out {
				return filepath.SkipDir
			}
			if rel == p.master.AssetsDir {
				return filepath.SkipDir
			}
			if p.excluded(rel) {
				slog.Debug("Excluded directory", logfields.Path(rel))
				p.res.Skipped++
				return filepath.SkipDir
			}
			return nil
		}

		if d.Name() == config.FileName || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if p.excluded(rel) {
			slog.Debug("Excluded file", logfields.Path(rel))
			p.res.Skipped++
			return nil
		}

		kind := kindCopy
		switch {
		case p.inComponents(rel):
			kind = kindComponent
		case patterns.IsContent(rel):
			kind = kindContent
		}
		items = append(items, workItem{abs: abs, rel: rel, kind: kind})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "source walk failed").
			WithContext("path", p.source).Fatal().Build()
	}
	return items, nil
}

func (p *processor) inComponents(rel string) bool {
	if !p.master.ComponentsEnabled() {
		return false
	}
	return strings.HasPrefix(rel, p.master.ComponentsDir+"/")
}

// readmePlan decides which README files become index files: a README is renamed when no
// index file sits next to it and no other README in that directory was renamed first.
type readmePlan struct {
	renamed sets.Set[string]
}

func planReadmes(items []workItem) readmePlan {
	indexDirs := sets.New[string]()
	for _, it := range items {
		if it.kind == kindContent && patterns.IsIndex(it.rel) {
			indexDirs.Add(path.Dir(it.rel))
		}
	}

	plan := readmePlan{renamed: sets.New[string]()}
	taken := sets.New[string]()
	for _, it := range items {
		if it.kind != kindContent || !patterns.IsReadme(it.rel) {
			continue
		}
		dir := path.Dir(it.rel)
		if indexDirs.Has(dir) || taken.Has(dir) {
			continue
		}
		taken.Add(dir)
		plan.renamed.Add(it.rel)
	}
	return plan
}

// convertFiles transforms every content file in parallel, then writes all outputs in
// parallel once destinations are known to be distinct.
func (p *processor) convertFiles(ctx context.Context) error {
	items, err := p.collect(ctx)
	if err != nil {
		return err
	}
	plan := planReadmes(items)
	p.rc.Recorder.SetConcurrency(p.rc.Options.Concurrency)

	components := &convert.ComponentConverter{
		Classifier:    p.classifier,
		Registry:      p.components,
		Imports:       p.master.Imports,
		ComponentsDir: p.master.ComponentsDir,
	}

	outputs := make([]*output, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.rc.Options.Concurrency)
	for i, it := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			switch it.kind {
			case kindContent:
				outputs[i] = p.transform(it, plan, components)
			case kindComponent:
				outputs[i] = p.componentOutput(it)
			default:
				outputs[i] = &output{item: it, dest: it.rel, copyFrom: it.abs}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	writes := p.claimDestinations(outputs)
	if err := p.write(ctx, writes); err != nil {
		return err
	}

	sort.Slice(p.docs, func(i, j int) bool { return p.docs[i].Source < p.docs[j].Source })
	p.res.Documents = len(p.docs)
	slog.Info("Files processed",
		logfields.RunID(p.rc.ID),
		slog.Int("documents", len(p.docs)),
		slog.Int("copied", p.res.FilesCopied),
		slog.Int("components", p.res.ComponentsCopied),
		slog.Int("conversions", len(p.res.Conversions)))
	return nil
}

// transform runs classify, convert, README link rewrite and frontmatter merge for one
// document. It only reads shared state. A nil result means the file was skipped.
func (p *processor) transform(it workItem, plan readmePlan, components *convert.ComponentConverter) *output {
	content, err := os.ReadFile(it.abs)
	if err != nil {
		p.warn(StageConvertFiles, "Cannot read document, skipping", logfields.Path(it.rel), logfields.Error(err))
		return nil
	}

	ext := path.Ext(it.rel)
	class := p.classifier.ClassifyFile(it.rel, content)
	dir := path.Dir(it.rel)
	stem := strings.TrimSuffix(path.Base(it.rel), ext)
	if plan.renamed.Has(it.rel) {
		stem = "index"
	}
	finalRel := path.Join(dir, stem+class.Format.Ext())

	doc := convert.Document{SourceRel: it.rel, FinalRel: finalRel, Content: content}
	body := content
	if class.NeedsConversion {
		switch class.Format {
		case patterns.FormatComponent:
			body = components.Convert(doc)
		case patterns.FormatTag:
			body = convert.TagConverter{}.Convert(doc)
		}
	}

	body = refs.TransformReadmeLinks(body)

	hidden := p.hidden.Matches(it.rel)
	unlisted := p.unlisted.Matches(it.rel)
	partial := patterns.IsPartial(it.rel)
	merged := frontmatterops.MergeWithCascade(it.abs, body, frontmatterops.MergeOptions{
		Hierarchical: p.cascade.Hierarchical,
		SourceDir:    p.source,
		IsHidden:     hidden,
		IsUnlisted:   unlisted,
		Partial:      partial,
	})
	if merged.InvalidExisting {
		p.countWarning(StageConvertFiles)
	}

	fp, err := frontmatterops.FingerprintDocument(merged.Content)
	if err != nil {
		slog.Debug("Cannot fingerprint document", logfields.Path(it.rel), logfields.Error(err))
	}

	slog.Debug("Document transformed",
		logfields.File(it.rel),
		logfields.Target(finalRel),
		logfields.Format(string(class.Format)))

	return &output{
		item:    it,
		dest:    finalRel,
		content: merged.Content,
		doc: &manifest.Doc{
			Slug:        Slug(finalRel),
			Title:       merged.Title,
			Source:      it.rel,
			Destination: finalRel,
			Format:      string(class.Format),
			Fingerprint: fp,
			Unlisted:    unlisted,
			Hidden:      hidden,
			Partial:     partial,
		},
	}
}

// componentOutput copies the registry's winner for a component name under its canonical
// extension. Files that lost a name collision are not copied.
func (p *processor) componentOutput(it workItem) *output {
	inner := strings.TrimPrefix(it.rel, p.master.ComponentsDir+"/")
	if d, ok := p.components.BySource(inner); ok {
		return &output{item: it, dest: path.Join(p.master.ComponentsDir, d.RelativePath), copyFrom: it.abs}
	}
	slog.Debug("Component shadowed by a duplicate name, not copied", logfields.Path(it.rel))
	return nil
}

// claimDestinations drops outputs whose destination was already claimed by an earlier file in
// source order and records conversion map entries and manifest docs for the rest.
func (p *processor) claimDestinations(outputs []*output) []*output {
	claimed := map[string]string{}
	writes := make([]*output, 0, len(outputs))
	for _, o := range outputs {
		if o == nil {
			continue
		}
		if owner, taken := claimed[o.dest]; taken {
			p.warn(StageConvertFiles, "Destination already produced by another file, skipping",
				logfields.Path(o.item.rel), logfields.Target(o.dest), slog.String("owner", owner))
			continue
		}
		claimed[o.dest] = o.item.rel
		writes = append(writes, o)

		switch {
		case o.doc != nil:
			if o.item.rel != o.dest {
				p.res.Conversions[o.item.rel] = o.dest
			}
			p.docs = append(p.docs, *o.doc)
			p.rc.Recorder.IncFiles(o.doc.Format)
		case o.item.kind == kindComponent:
			p.res.ComponentsCopied++
		default:
			p.res.FilesCopied++
		}
	}
	return writes
}

func (p *processor) write(ctx context.Context, writes []*output) error {
	if p.rc.Options.DryRun {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.rc.Options.Concurrency)
	for _, o := range writes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dest := filepath.Join(p.out, filepath.FromSlash(o.dest))
			if o.copyFrom != "" {
				return copyFile(o.copyFrom, dest)
			}
			return writeFile(dest, o.content)
		})
	}
	return g.Wait()
}

// refreshFingerprints recomputes fingerprints of structured-tag documents after the partial
// pass may have changed them.
func (p *processor) refreshFingerprints() {
	for i := range p.docs {
		d := &p.docs[i]
		if d.Format != string(patterns.FormatTag) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(p.out, filepath.FromSlash(d.Destination)))
		if err != nil {
			continue
		}
		if fp, err := frontmatterops.FingerprintDocument(content); err == nil {
			d.Fingerprint = fp
		}
	}
}

// Slug derives the manifest slug from a final relative path: lower-cased, without its
// format extension, without a trailing index segment.
func Slug(finalRel string) string {
	s := strings.ToLower(patterns.StripContentExt(finalRel))
	if s == "index" {
		return ""
	}
	return strings.TrimSuffix(s, "/index")
}
