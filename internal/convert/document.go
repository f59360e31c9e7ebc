// Package convert applies the syntax adjustments a document needs for its target format:
// auto-imports for component documents, and aside/badge tags for structured-tag documents.
package convert

import (
	"bytes"

	"git.home.luguber.info/inful/docstage/internal/frontmatter"
)

// Document is one content file on its way through conversion.
type Document struct {
	// SourceRel is the slash path of the source file relative to the source root.
	SourceRel string
	// FinalRel is the slash path the document will be written to, relative to the output root.
	FinalRel string
	Content  []byte
}

// Converter rewrites a document for one target format.
type Converter interface {
	Convert(doc Document) []byte
}

// parts is a document split into its raw metadata block and body.
type parts struct {
	raw   []byte
	body  []byte
	had   bool
	style frontmatter.Style
}

func split(content []byte) parts {
	raw, body, had, style, err := frontmatter.Split(content)
	if err != nil {
		return parts{body: content, style: frontmatter.DetectStyle(content)}
	}
	return parts{raw: raw, body: body, had: had, style: style}
}

func (p parts) join(body []byte) []byte {
	return frontmatter.Join(p.raw, body, p.had, p.style)
}

func (p parts) nl() string {
	if p.style.Newline == "" {
		return "\n"
	}
	return p.style.Newline
}

func lines(b []byte) [][]byte {
	return bytes.SplitAfter(b, []byte("\n"))
}
