package frontmatterops

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/docstage/internal/config"
	"git.home.luguber.info/inful/docstage/internal/frontmatter"
	"git.home.luguber.info/inful/docstage/internal/logfields"
)

// MergeOptions carries the cascade and the visibility decisions for one document.
type MergeOptions struct {
	Hierarchical []config.Node
	SourceDir    string
	IsHidden     bool
	IsUnlisted   bool
	// Partial documents keep their content untouched; see patterns.IsPartial.
	Partial bool
}

// MergeResult is the rewritten document and the metadata it now carries.
type MergeResult struct {
	Content     []byte
	Fields      map[string]any
	Title       string
	TitleFromH1 bool
	// InvalidExisting is set when the document's own block could not be parsed.
	InvalidExisting bool
}

// MergeWithCascade merges metadata by precedence defaults < existing < file-specific < forced
// visibility < title fallback, and rewrites the document with the merged block.
func MergeWithCascade(path string, content []byte, opts MergeOptions) MergeResult {
	existing, body, style, invalid := readExisting(path, content)

	if opts.Partial {
		title, _ := Title(path, body)
		if t, ok := titleOf(existing); ok {
			title = t
		}
		return MergeResult{Content: content, Fields: existing, Title: title, InvalidExisting: invalid}
	}

	app := config.GetApplicable(opts.Hierarchical, opts.SourceDir, path)
	merged := config.DeepMerge(app.Defaults, existing)
	merged = config.DeepMerge(merged, app.FileSpecific)
	merged = config.DeepMerge(merged, Forced(opts.IsHidden, opts.IsUnlisted))

	res := MergeResult{InvalidExisting: invalid}
	if t, ok := titleOf(merged); ok {
		res.Title = t
	} else {
		h, fromH1 := firstH1(body)
		if fromH1 && h.Text != "" {
			res.Title = h.Text
			res.TitleFromH1 = true
			body = stripHeading(body, h)
		} else {
			res.Title = TitleFromFilename(path)
		}
		merged["title"] = res.Title
	}

	out, err := frontmatter.Render(merged, body, style)
	if err != nil {
		slog.Warn("Cannot serialize frontmatter, keeping document unchanged", logfields.Path(path), logfields.Error(err))
		return MergeResult{Content: content, Fields: existing, Title: res.Title, InvalidExisting: invalid}
	}
	res.Content = out
	res.Fields = merged
	return res
}

// Forced returns the visibility fields that override every other source.
func Forced(hidden, unlisted bool) map[string]any {
	forced := map[string]any{}
	if unlisted || hidden {
		forced["sidebar"] = map[string]any{"hidden": true}
	}
	if hidden {
		forced["pagefind"] = false
	}
	return forced
}

// readExisting isolates a broken metadata block to this document.
func readExisting(path string, content []byte) (map[string]any, []byte, frontmatter.Style, bool) {
	fields, body, _, style, err := Read(content)
	switch {
	case err == nil:
		return fields, body, style, false
	case errors.Is(err, frontmatter.ErrMissingClosingDelimiter):
		slog.Warn("Unterminated frontmatter, treating document as body only", logfields.Path(path))
		return map[string]any{}, content, style, true
	default:
		slog.Warn("Invalid frontmatter, ignoring existing metadata", logfields.Path(path), logfields.Error(err))
		return map[string]any{}, body, style, true
	}
}

// titleOf reports the title a document already carries. Non-string scalars such as
// `title: 2024` count as present and are stringified; only blank strings count as absent.
func titleOf(fields map[string]any) (string, bool) {
	v, ok := fields["title"]
	if !ok || v == nil {
		return "", false
	}
	s, isString := v.(string)
	if !isString {
		return fmt.Sprint(v), true
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
