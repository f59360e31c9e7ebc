// Package markdown wraps goldmark for the analyses docstage performs on document bodies:
// locating code regions, headings and link destinations as byte ranges, and applying
// minimal byte-range edits without re-rendering.
package markdown

import (
	"fmt"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Document is a parsed body together with its source and parse context.
type Document struct {
	Source []byte
	Root   gmast.Node
	Ctx    parser.Context
}

// Parse parses a body (frontmatter already removed). A panic inside the parser is returned as
// an error so callers can fall back to textual matching.
func Parse(body []byte) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("markdown parse panic: %v", r)
		}
	}()

	ctx := parser.NewContext()
	root := goldmark.New().Parser().Parse(text.NewReader(body), parser.WithContext(ctx))
	return &Document{Source: body, Root: root, Ctx: ctx}, nil
}

// Range is a half-open byte range into a source.
type Range struct {
	Start int
	End   int
}

// Contains reports whether offset lies inside r.
func (r Range) Contains(offset int) bool { return offset >= r.Start && offset < r.End }

// lineStart returns the offset of the first byte of the line containing offset.
func lineStart(src []byte, offset int) int {
	for offset > 0 && src[offset-1] != '\n' {
		offset--
	}
	return offset
}

// lineEnd returns the offset just past the newline ending the line containing offset.
func lineEnd(src []byte, offset int) int {
	for offset < len(src) && src[offset] != '\n' {
		offset++
	}
	if offset < len(src) {
		offset++
	}
	return offset
}
