// Package refs rewrites references inside documents after files change names: README links
// become index links, and partial includes follow format promotions.
package refs

import (
	"log/slog"
	"path"
	"strings"

	"git.home.luguber.info/inful/docstage/internal/frontmatter"
	"git.home.luguber.info/inful/docstage/internal/logfields"
	"git.home.luguber.info/inful/docstage/internal/markdown"
	"git.home.luguber.info/inful/docstage/internal/patterns"
)

// TransformReadmeLinks rewrites every README-family link destination to index, keeping the
// extension as written and any fragment or query. Code spans and code blocks are never touched
// because edits only come from link nodes.
func TransformReadmeLinks(content []byte) []byte {
	if !patterns.ReadmeLinkPattern.Match(content) {
		return content
	}

	raw, body, had, style, err := frontmatter.Split(content)
	if err != nil {
		raw, body, had = nil, content, false
	}

	doc, err := markdown.Parse(body)
	if err != nil {
		slog.Debug("Skipping README link rewrite", logfields.Error(err))
		return content
	}

	var edits []markdown.Edit
	for _, l := range doc.Links() {
		if e, ok := readmeEdit(l); ok {
			edits = append(edits, e)
		}
	}
	if len(edits) == 0 {
		return content
	}

	out, err := markdown.ApplyEdits(body, edits)
	if err != nil {
		slog.Warn("README link rewrite failed", logfields.Error(err))
		return content
	}
	return frontmatter.Join(raw, out, had, style)
}

// readmeEdit targets only the file-name segment of the destination.
func readmeEdit(l markdown.Link) (markdown.Edit, bool) {
	dest := l.Destination
	if isExternal(dest) {
		return markdown.Edit{}, false
	}
	p := dest
	if i := strings.IndexAny(p, "#?"); i >= 0 {
		p = p[:i]
	}
	base := path.Base(p)
	if p == "" || !patterns.IsReadme(base) {
		return markdown.Edit{}, false
	}

	start := l.Span.Start + len(p) - len(base)
	stem := len(base) - len(path.Ext(base))
	return markdown.Edit{Start: start, End: start + stem, Replacement: []byte("index")}, true
}

func isExternal(dest string) bool {
	if strings.HasPrefix(dest, "//") {
		return true
	}
	if i := strings.Index(dest, ":"); i > 0 {
		scheme := dest[:i]
		return !strings.ContainsAny(scheme, "/.#?")
	}
	return false
}
