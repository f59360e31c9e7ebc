// Package frontmatterops implements document-level metadata operations on top of the
// frontmatter package: reading, title synthesis, cascade merging and fingerprinting.
package frontmatterops

import (
	"git.home.luguber.info/inful/docstage/internal/frontmatter"
)

// Read splits a document into metadata fields and body.
//
// Contract:
// - Without a metadata block, had=false, fields is empty and body is the full input.
// - An unterminated block returns frontmatter.ErrMissingClosingDelimiter.
// - An empty block yields an empty fields map.
func Read(content []byte) (fields map[string]any, body []byte, had bool, style frontmatter.Style, err error) {
	raw, body, had, style, err := frontmatter.Split(content)
	if err != nil {
		return nil, nil, false, style, err
	}

	fields, err = frontmatter.ParseYAML(raw)
	if err != nil {
		return nil, body, had, style, err
	}
	return fields, body, had, style, nil
}
