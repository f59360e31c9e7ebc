package markdown

import (
	"bytes"
	"regexp"

	"golang.org/x/net/html"
)

var hrefAttr = regexp.MustCompile(`(?i)\shref\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+))`)

// anchorHrefs tokenizes src[start:end] as HTML and reports the href of every <a> start tag.
func anchorHrefs(src []byte, start, end int) []Link {
	if start < 0 || end > len(src) || start >= end {
		return nil
	}
	chunk := src[start:end]
	if !bytes.Contains(bytes.ToLower(chunk), []byte("href")) {
		return nil
	}

	var links []Link
	z := html.NewTokenizer(bytes.NewReader(chunk))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return links
		}
		raw := z.Raw()
		tokenStart := offset
		offset += len(raw)
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, _ := z.TagName()
		if string(name) != "a" {
			continue
		}
		m := hrefAttr.FindSubmatchIndex(raw)
		if m == nil {
			continue
		}
		for g := 1; g <= 3; g++ {
			if m[2*g] < 0 {
				continue
			}
			s := start + tokenStart + m[2*g]
			e := start + tokenStart + m[2*g+1]
			links = append(links, Link{
				Kind:        LinkKindHTMLAnchor,
				Destination: string(src[s:e]),
				Span:        Range{Start: s, End: e},
			})
			break
		}
	}
}
