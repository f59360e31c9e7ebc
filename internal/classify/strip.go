package classify

import (
	"bytes"
	"regexp"
	"strings"
)

var htmlComment = regexp.MustCompile(`(?s)<!--.*?-->`)

// StripCode blanks fenced code blocks and inline code spans, keeping newlines and offsets.
func StripCode(body []byte) []byte {
	out := append([]byte(nil), body...)
	lines := bytes.SplitAfter(out, []byte("\n"))

	var fence string
	offset := 0
	for _, line := range lines {
		trimmed := strings.TrimLeft(string(line), " ")
		indent := len(line) - len(trimmed)
		switch {
		case fence != "":
			if indent < 4 && strings.HasPrefix(strings.TrimSpace(trimmed), fence) &&
				strings.Trim(strings.TrimSpace(trimmed), fence[:1]) == "" {
				fence = ""
			}
			blank(out[offset : offset+len(line)])
		case indent < 4 && (strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")):
			fence = openingFence(trimmed)
			blank(out[offset : offset+len(line)])
		default:
			blankInlineCode(out[offset : offset+len(line)])
		}
		offset += len(line)
	}
	return out
}

// stripComments blanks closed HTML comments in place.
func stripComments(body []byte) []byte {
	for _, m := range htmlComment.FindAllIndex(body, -1) {
		blank(body[m[0]:m[1]])
	}
	return body
}

func openingFence(line string) string {
	ch := line[0]
	n := 0
	for n < len(line) && line[n] == ch {
		n++
	}
	return line[:n]
}

// blankInlineCode blanks backtick spans that open and close on the same line.
func blankInlineCode(line []byte) {
	i := 0
	for i < len(line) {
		if line[i] != '`' {
			i++
			continue
		}
		start := i
		for i < len(line) && line[i] == '`' {
			i++
		}
		run := i - start
		end := findRun(line, i, run)
		if end < 0 {
			continue
		}
		blank(line[start : end+run])
		i = end + run
	}
}

func findRun(line []byte, from, run int) int {
	for i := from; i < len(line); {
		if line[i] != '`' {
			i++
			continue
		}
		start := i
		for i < len(line) && line[i] == '`' {
			i++
		}
		if i-start == run {
			return start
		}
	}
	return -1
}

func blank(b []byte) {
	for i := range b {
		if b[i] != '\n' && b[i] != '\r' {
			b[i] = ' '
		}
	}
}
