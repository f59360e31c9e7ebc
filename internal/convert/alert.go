package convert

import (
	"regexp"
	"strings"

	gmast "github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/docstage/internal/markdown"
)

var (
	alertMarker = regexp.MustCompile(`(?i)^\[!(NOTE|TIP|IMPORTANT|WARNING|CAUTION)\][ \t]*(.*)$`)
	quotePrefix = regexp.MustCompile(`^ {0,3}> ?`)
)

// AlertVariant maps an alert keyword to its aside variant.
func AlertVariant(keyword string) string {
	switch strings.ToUpper(keyword) {
	case "NOTE":
		return "note"
	case "TIP":
		return "tip"
	case "IMPORTANT", "WARNING":
		return "caution"
	case "CAUTION":
		return "danger"
	default:
		return ""
	}
}

// alertEdits turns every top-level alert blockquote into an aside block. Nested content keeps
// its formatting with one quote level removed.
func alertEdits(doc *markdown.Document, nl string) []markdown.Edit {
	src := doc.Source
	var edits []markdown.Edit
	for n := doc.Root.FirstChild(); n != nil; n = n.NextSibling() {
		if _, ok := n.(*gmast.Blockquote); !ok {
			continue
		}
		span, ok := blockSpan(n, src)
		if !ok {
			continue
		}

		quoted := lines(src[span.Start:span.End])
		first := strings.TrimRight(quotePrefix.ReplaceAllString(string(quoted[0]), ""), "\r\n")
		m := alertMarker.FindStringSubmatch(strings.TrimSpace(first))
		if m == nil {
			continue
		}

		var b strings.Builder
		b.WriteString(`{% aside type="` + AlertVariant(m[1]) + `"`)
		if title := strings.TrimSpace(m[2]); title != "" {
			b.WriteString(` title="` + escapeAttr(title) + `"`)
		}
		b.WriteString(" %}" + nl)
		for _, line := range quoted[1:] {
			if len(line) == 0 {
				continue
			}
			b.WriteString(quotePrefix.ReplaceAllString(string(line), ""))
		}
		if !strings.HasSuffix(b.String(), "\n") {
			b.WriteString(nl)
		}
		b.WriteString("{% /aside %}")
		if strings.HasSuffix(string(src[span.Start:span.End]), "\n") {
			b.WriteString(nl)
		}
		edits = append(edits, markdown.Edit{Start: span.Start, End: span.End, Replacement: []byte(b.String())})
	}
	return edits
}

// blockSpan covers every source line touched by n's descendants.
func blockSpan(n gmast.Node, src []byte) (markdown.Range, bool) {
	r := markdown.Range{Start: -1}
	extend := func(start, stop int) {
		if r.Start < 0 || start < r.Start {
			r.Start = start
		}
		if stop > r.End {
			r.End = stop
		}
	}
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := c.(*gmast.Text); ok {
			extend(t.Segment.Start, t.Segment.Stop)
		}
		if c.Type() == gmast.TypeBlock {
			segs := c.Lines()
			for i := 0; i < segs.Len(); i++ {
				s := segs.At(i)
				extend(s.Start, s.Stop)
			}
		}
		return gmast.WalkContinue, nil
	})
	if r.Start < 0 {
		return r, false
	}

	start := r.Start
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := max(r.End-1, r.Start)
	for end < len(src) && src[end] != '\n' {
		end++
	}
	if end < len(src) {
		end++
	}
	return markdown.Range{Start: start, End: end}, true
}
