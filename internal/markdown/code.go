package markdown

import (
	"bytes"
	"sort"

	gmast "github.com/yuin/goldmark/ast"
)

// CodeRanges returns the byte ranges of fenced and indented code blocks (info line included)
// and inline code spans, sorted by start.
func (d *Document) CodeRanges() []Range {
	var ranges []Range
	_ = gmast.Walk(d.Root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.FencedCodeBlock:
			if node.Info != nil {
				ranges = append(ranges, Range{
					Start: lineStart(d.Source, node.Info.Segment.Start),
					End:   lineEnd(d.Source, node.Info.Segment.Stop),
				})
			}
			ranges = append(ranges, linesRange(node)...)
			return gmast.WalkSkipChildren, nil
		case *gmast.CodeBlock:
			ranges = append(ranges, linesRange(node)...)
			return gmast.WalkSkipChildren, nil
		case *gmast.CodeSpan:
			if r, ok := childTextRange(node); ok {
				ranges = append(ranges, r)
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	return ranges
}

// Masked returns a copy of the source with every code range blanked out. Newlines are kept so
// line numbers and byte offsets stay valid.
func (d *Document) Masked() []byte {
	return Mask(d.Source, d.CodeRanges())
}

// Mask blanks the given ranges of src with spaces, keeping newlines.
func Mask(src []byte, ranges []Range) []byte {
	out := append([]byte(nil), src...)
	for _, r := range ranges {
		for i := max(r.Start, 0); i < r.End && i < len(out); i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}
	return out
}

// CommentRanges returns the byte ranges of HTML comments, both comment blocks and inline
// comments, sorted by start.
func (d *Document) CommentRanges() []Range {
	var ranges []Range
	_ = gmast.Walk(d.Root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.HTMLBlock:
			if node.HTMLBlockType == gmast.HTMLBlockType2 {
				ranges = append(ranges, linesRange(node)...)
				if node.HasClosure() {
					ranges = append(ranges, Range{Start: node.ClosureLine.Start, End: node.ClosureLine.Stop})
				}
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.RawHTML:
			segs := node.Segments
			if segs.Len() > 0 {
				first := segs.At(0)
				if !bytes.HasPrefix(first.Value(d.Source), []byte("<!--")) {
					return gmast.WalkSkipChildren, nil
				}
				for i := 0; i < segs.Len(); i++ {
					ranges = append(ranges, Range{Start: segs.At(i).Start, End: segs.At(i).Stop})
				}
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	return ranges
}

// MaskedSyntax blanks code and HTML comments, leaving only text that renders as markup.
func (d *Document) MaskedSyntax() []byte {
	return Mask(d.Source, append(d.CodeRanges(), d.CommentRanges()...))
}

// InRanges reports whether offset falls inside any of the sorted ranges.
func InRanges(ranges []Range, offset int) bool {
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].End > offset })
	return i < len(ranges) && ranges[i].Contains(offset)
}

func linesRange(n gmast.Node) []Range {
	lines := n.Lines()
	out := make([]Range, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, Range{Start: seg.Start, End: seg.Stop})
	}
	return out
}

// childTextRange spans the text segments below n.
func childTextRange(n gmast.Node) (Range, bool) {
	r := Range{Start: -1}
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if t, ok := c.(*gmast.Text); ok && entering {
			if r.Start < 0 || t.Segment.Start < r.Start {
				r.Start = t.Segment.Start
			}
			if t.Segment.Stop > r.End {
				r.End = t.Segment.Stop
			}
		}
		return gmast.WalkContinue, nil
	})
	return r, r.Start >= 0
}
