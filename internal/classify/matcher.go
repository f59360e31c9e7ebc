// Package classify decides which content format a document needs from its original body.
package classify

import (
	"regexp"

	"git.home.luguber.info/inful/docstage/internal/markdown"
	"git.home.luguber.info/inful/docstage/internal/util/sets"
)

var (
	componentTag = regexp.MustCompile(`<([A-Z][A-Za-z0-9_]*)(?:\.[A-Za-z0-9_.]+)?(?:[\s/>]|$)`)
	markdocTag   = regexp.MustCompile(`\{%-?\s*/?[A-Za-z][\w-]*(?:\s[^%]*)?-?%\}`)
	badgeHeading = regexp.MustCompile(`(?m)^ {0,3}#{1,6}[ \t].*:badge\[[^\]\n]*\]`)
)

// Matcher finds format-specific syntax outside code.
type Matcher interface {
	// Names returns the capitalized custom element names used by body.
	Names(body []byte) (sets.Set[string], error)
	// Has reports whether body uses structured block tags or heading badges.
	Has(body []byte) (bool, error)
}

// Structural masks code and HTML comments using the goldmark AST before matching.
type Structural struct{}

func (Structural) Names(body []byte) (sets.Set[string], error) {
	doc, err := markdown.Parse(body)
	if err != nil {
		return nil, err
	}
	return namesIn(doc.MaskedSyntax()), nil
}

func (Structural) Has(body []byte) (bool, error) {
	doc, err := markdown.Parse(body)
	if err != nil {
		return false, err
	}
	return hasTagSyntax(doc.MaskedSyntax()), nil
}

// Textual strips fenced and inline code by line scanning, then closed HTML comments. It never
// fails.
type Textual struct{}

func (Textual) Names(body []byte) (sets.Set[string], error) {
	return namesIn(stripComments(StripCode(body))), nil
}

func (Textual) Has(body []byte) (bool, error) {
	return hasTagSyntax(stripComments(StripCode(body))), nil
}

func namesIn(masked []byte) sets.Set[string] {
	names := sets.New[string]()
	for _, m := range componentTag.FindAllSubmatch(masked, -1) {
		names.Add(string(m[1]))
	}
	return names
}

func hasTagSyntax(masked []byte) bool {
	return markdocTag.Match(masked) || badgeHeading.Match(masked)
}
