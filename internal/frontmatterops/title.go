package frontmatterops

import (
	"bytes"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/docstage/internal/markdown"
	"git.home.luguber.info/inful/docstage/internal/patterns"
)

// ReadmeTitle is used for README-family files without a level-1 heading.
const ReadmeTitle = "Overview"

var titleCaser = cases.Title(language.Und, cases.NoLower)

// Title returns the first level-1 heading of body, or a title derived from the file name.
// fromH1 reports which source was used.
func Title(path string, body []byte) (title string, fromH1 bool) {
	if h, ok := firstH1(body); ok && h.Text != "" {
		return h.Text, true
	}
	return TitleFromFilename(path), false
}

// TitleFromFilename turns "getting-started.md" into "Getting Started".
func TitleFromFilename(path string) string {
	if patterns.IsReadme(path) {
		return ReadmeTitle
	}
	stem := patterns.StripContentExt(filepath.Base(path))
	words := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ' ' || r == '\t'
	})
	return titleCaser.String(strings.Join(words, " "))
}

func firstH1(body []byte) (markdown.Heading, bool) {
	doc, err := markdown.Parse(body)
	if err != nil {
		return markdown.Heading{}, false
	}
	return doc.FirstHeading(1)
}

// stripHeading removes the heading block. Blank lines left at the start of the body, or
// doubled up where the heading used to be, are dropped.
func stripHeading(body []byte, h markdown.Heading) []byte {
	prefix, rest := body[:h.Block.Start], body[h.Block.End:]
	if len(bytes.TrimSpace(prefix)) == 0 {
		return trimLeadingBlankLines(rest)
	}
	if endsWithBlankLine(prefix) {
		rest = trimLeadingBlankLines(rest)
	}
	out := make([]byte, 0, len(prefix)+len(rest))
	out = append(out, prefix...)
	return append(out, rest...)
}

func endsWithBlankLine(b []byte) bool {
	b = bytes.TrimSuffix(b, []byte("\n"))
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	} else {
		return false
	}
	return len(bytes.TrimSpace(b)) == 0
}

func trimLeadingBlankLines(b []byte) []byte {
	for len(b) > 0 {
		i := 0
		for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\r') {
			i++
		}
		if i < len(b) && b[i] == '\n' {
			b = b[i+1:]
			continue
		}
		if i == len(b) {
			return b[:0]
		}
		return b
	}
	return b
}
