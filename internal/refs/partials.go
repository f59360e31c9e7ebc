package refs

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/logfields"
	"git.home.luguber.info/inful/docstage/internal/markdown"
	"git.home.luguber.info/inful/docstage/internal/patterns"
)

var (
	partialTag  = regexp.MustCompile(`\{%-?\s*partial\b[^%]*?-?%\}`)
	partialFile = regexp.MustCompile(`\bfile\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// ConversionMap maps source-relative slash paths to the final relative paths they were
// written to. Only changed paths are recorded.
type ConversionMap map[string]string

// Stats summarizes one fix-up pass.
type Stats struct {
	Files     int
	Rewritten int
	Misses    int
	Failures  int
}

// UpdatePartialReferences rewrites partial includes in every structured-tag document beneath
// rootDir whose target changed path. It must run after every document has been written.
func UpdatePartialReferences(rootDir string, conversionMap ConversionMap) (Stats, error) {
	var stats Stats
	err := filepath.WalkDir(rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), patterns.FormatTag.Ext()) {
			return nil
		}
		rel, relErr := filepath.Rel(rootDir, p)
		if relErr != nil {
			return relErr
		}
		stats.Files++
		fixFile(p, filepath.ToSlash(rel), conversionMap, &stats)
		return nil
	})
	if err != nil {
		return stats, errors.WrapError(err, errors.CategoryFileSystem, "partial reference pass failed").
			WithContext("path", rootDir).Build()
	}
	return stats, nil
}

func fixFile(abs, rel string, cm ConversionMap, stats *Stats) {
	// #nosec G304 -- abs comes from walking the output root
	content, err := os.ReadFile(abs)
	if err != nil {
		stats.Failures++
		slog.Warn("Cannot read document for partial fix-up", logfields.Path(abs), logfields.Error(err))
		return
	}

	out, rewritten, misses := RewritePartials(content, rel, cm)
	stats.Misses += misses
	if rewritten == 0 {
		return
	}

	info, err := os.Stat(abs)
	if err != nil {
		stats.Failures++
		slog.Warn("Cannot stat document for partial fix-up", logfields.Path(abs), logfields.Error(err))
		return
	}
	if err := os.WriteFile(abs, out, info.Mode().Perm()); err != nil {
		stats.Failures++
		slog.Warn("Cannot write partial fix-up", logfields.Path(abs), logfields.Error(err))
		return
	}
	stats.Rewritten += rewritten
}

// RewritePartials rewrites the partial references of one document located at docRel.
func RewritePartials(content []byte, docRel string, cm ConversionMap) (out []byte, rewritten, misses int) {
	docDir := path.Dir(docRel)
	var edits []markdown.Edit
	for _, tag := range partialTag.FindAllIndex(content, -1) {
		m := partialFile.FindSubmatchIndex(content[tag[0]:tag[1]])
		if m == nil {
			continue
		}
		vs, ve := m[2], m[3]
		if vs < 0 {
			vs, ve = m[4], m[5]
		}
		start, end := tag[0]+vs, tag[0]+ve
		ref := string(content[start:end])

		target, ok := Resolve(ref, docDir, cm)
		if !ok {
			misses++
			slog.Debug("Partial reference not in conversion map", logfields.Path(docRel), logfields.Target(ref))
			continue
		}
		edits = append(edits, markdown.Edit{Start: start, End: end, Replacement: []byte(target)})
	}
	if len(edits) == 0 {
		return content, 0, misses
	}
	out, err := markdown.ApplyEdits(content, edits)
	if err != nil {
		return content, 0, misses
	}
	return out, len(edits), misses
}

// Resolve maps a partial reference written in a document in docDir to its new spelling. The
// reference is tried relative to docDir, then to the root, bare and with every content
// extension. The result keeps the reference's anchoring style.
func Resolve(ref, docDir string, cm ConversionMap) (string, bool) {
	rooted := strings.HasPrefix(ref, "/")
	dotted := strings.HasPrefix(ref, "./")
	clean := path.Clean(strings.TrimPrefix(strings.TrimPrefix(ref, "./"), "/"))
	if clean == "." || clean == "" || strings.HasPrefix(clean, "../") && docDir == "." {
		return "", false
	}

	type base struct {
		candidate string
		relative  bool
	}
	var bases []base
	if !rooted && docDir != "." && docDir != "" {
		bases = append(bases, base{candidate: path.Join(docDir, clean), relative: true})
	}
	bases = append(bases, base{candidate: clean})

	for _, b := range bases {
		for _, key := range withExtensions(b.candidate) {
			final, ok := cm[key]
			if !ok {
				continue
			}
			out := final
			if b.relative {
				r, err := filepath.Rel(filepath.FromSlash(docDir), filepath.FromSlash(final))
				if err != nil {
					continue
				}
				out = filepath.ToSlash(r)
			}
			switch {
			case rooted:
				out = "/" + out
			case dotted:
				out = "./" + out
			}
			return out, true
		}
	}
	return "", false
}

func withExtensions(p string) []string {
	out := []string{p}
	if patterns.IsContent(p) {
		return out
	}
	for _, ext := range patterns.ContentExts {
		out = append(out, p+ext)
	}
	return out
}
