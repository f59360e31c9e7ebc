package markdown

import (
	"bytes"
	"strings"

	gmast "github.com/yuin/goldmark/ast"
)

// Heading is a located heading.
type Heading struct {
	Level int
	Text  string
	// Block spans the whole heading, including the setext underline when present.
	Block Range
}

// FirstHeading returns the first top-level heading of the given level in document order.
// Headings nested in block quotes or list items are not document headings.
func (d *Document) FirstHeading(level int) (Heading, bool) {
	var found *gmast.Heading
	for n := d.Root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*gmast.Heading); ok && h.Level == level {
			found = h
			break
		}
	}
	if found == nil || found.Lines().Len() == 0 {
		return Heading{}, false
	}

	lines := found.Lines()
	start := lineStart(d.Source, lines.At(0).Start)
	last := lines.At(lines.Len() - 1)
	end := lineEnd(d.Source, max(last.Stop-1, last.Start))
	if !bytes.HasPrefix(bytes.TrimLeft(d.Source[start:], " "), []byte("#")) {
		end = lineEnd(d.Source, end)
	}

	return Heading{
		Level: found.Level,
		Text:  strings.TrimSpace(InlineText(found, d.Source)),
		Block: Range{Start: start, End: end},
	}, true
}

// InlineText concatenates the literal text below n.
func InlineText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}
