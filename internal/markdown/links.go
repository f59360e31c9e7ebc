package markdown

import (
	"bytes"
	"regexp"

	gmast "github.com/yuin/goldmark/ast"
)

// LinkKind names the construct a destination was found in.
type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
	LinkKindHTMLAnchor          LinkKind = "html_anchor"
)

// Link is a destination located in the source. Span covers the destination text exactly as
// written, so replacing it is a minimal edit.
type Link struct {
	Kind        LinkKind
	Destination string
	Span        Range
}

var refDefinition = regexp.MustCompile(`(?m)^ {0,3}\[(?:[^\]\\]|\\.)+\]:[ \t]*(?:<([^>\n]*)>|(\S+))`)

// Links returns every link destination in document order of discovery: inline links and
// images, autolinks, raw HTML anchors, then reference definitions. Destinations whose written
// form cannot be located (escapes, entities) are skipped.
func (d *Document) Links() []Link {
	src := d.Source
	var links []Link
	cursor := 0

	_ = gmast.Walk(d.Root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Link:
			if l, ok := locateInline(src, node, node.Destination, cursor); ok {
				l.Kind = LinkKindInline
				links = append(links, l)
				cursor = max(cursor, l.Span.End)
			}
		case *gmast.Image:
			if l, ok := locateInline(src, node, node.Destination, cursor); ok {
				l.Kind = LinkKindImage
				links = append(links, l)
				cursor = max(cursor, l.Span.End)
			}
		case *gmast.AutoLink:
			url := node.URL(src)
			if i := bytes.Index(src[cursor:], append(append([]byte("<"), url...), '>')); i >= 0 {
				start := cursor + i + 1
				links = append(links, Link{
					Kind:        LinkKindAuto,
					Destination: string(url),
					Span:        Range{Start: start, End: start + len(url)},
				})
				cursor = start + len(url)
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				links = append(links, anchorHrefs(src, seg.Start, seg.Stop)...)
			}
		case *gmast.HTMLBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				links = append(links, anchorHrefs(src, seg.Start, seg.Stop)...)
			}
			if node.HasClosure() {
				links = append(links, anchorHrefs(src, node.ClosureLine.Start, node.ClosureLine.Stop)...)
			}
		}
		return gmast.WalkContinue, nil
	})

	return append(links, d.referenceDefinitions()...)
}

// locateInline finds `](dest` after the label of node. Reference-style uses are skipped; their
// definition is reported separately.
func locateInline(src []byte, node gmast.Node, dest []byte, cursor int) (Link, bool) {
	from := cursor
	if r, ok := childTextRange(node); ok {
		from = r.End
	}
	if len(dest) == 0 {
		return Link{}, false
	}

	for from < len(src) {
		i := bytes.IndexByte(src[from:], ']')
		if i < 0 {
			return Link{}, false
		}
		p := from + i + 1
		if p >= len(src) || src[p] != '(' {
			from = p
			continue
		}
		p++
		for p < len(src) && (src[p] == ' ' || src[p] == '\t' || src[p] == '\n') {
			p++
		}
		if p < len(src) && src[p] == '<' {
			p++
		}
		if bytes.HasPrefix(src[p:], dest) {
			return Link{Destination: string(dest), Span: Range{Start: p, End: p + len(dest)}}, true
		}
		// A nested image closes first; keep scanning for the enclosing link.
		from = p
	}
	return Link{}, false
}

func (d *Document) referenceDefinitions() []Link {
	if len(d.Ctx.References()) == 0 {
		return nil
	}
	code := d.CodeRanges()
	var links []Link
	for _, m := range refDefinition.FindAllSubmatchIndex(d.Source, -1) {
		if InRanges(code, m[0]) {
			continue
		}
		start, end := m[4], m[5]
		if m[2] >= 0 {
			start, end = m[2], m[3]
		}
		links = append(links, Link{
			Kind:        LinkKindReferenceDefinition,
			Destination: string(d.Source[start:end]),
			Span:        Range{Start: start, End: end},
		})
	}
	return links
}
