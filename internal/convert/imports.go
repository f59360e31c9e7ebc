package convert

import (
	"regexp"
	"strings"

	gmast "github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/docstage/internal/classify"
	"git.home.luguber.info/inful/docstage/internal/markdown"
	"git.home.luguber.info/inful/docstage/internal/util/sets"
)

var esmImport = regexp.MustCompile(`^\s*import\s+(.+?)\s+from\s+['"][^'"]+['"]\s*;?\s*$`)

// ImportedNames returns the local bindings of ESM import statements in body. Imports are read
// from top-level paragraphs; when parsing fails, code is stripped textually and every line is
// checked.
func ImportedNames(body []byte) sets.Set[string] {
	if names, err := structuralImports(body); err == nil {
		return names
	}
	return textualImports(body)
}

func structuralImports(body []byte) (sets.Set[string], error) {
	doc, err := markdown.Parse(body)
	if err != nil {
		return nil, err
	}
	names := sets.New[string]()
	for n := doc.Root.FirstChild(); n != nil; n = n.NextSibling() {
		if _, ok := n.(*gmast.Paragraph); !ok {
			continue
		}
		segs := n.Lines()
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			addBindings(names, string(seg.Value(body)))
		}
	}
	return names, nil
}

func textualImports(body []byte) sets.Set[string] {
	names := sets.New[string]()
	for _, line := range lines(classify.StripCode(body)) {
		addBindings(names, string(line))
	}
	return names
}

func addBindings(names sets.Set[string], line string) {
	m := esmImport.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return
	}
	for _, b := range parseBindings(m[1]) {
		names.Add(b)
	}
}

// parseBindings handles `Default`, `{ A, B as C }`, `* as NS` and combinations.
func parseBindings(clause string) []string {
	var out []string
	clause = strings.TrimSpace(clause)
	if open := strings.Index(clause, "{"); open >= 0 {
		if end := strings.Index(clause[open:], "}"); end >= 0 {
			for _, spec := range strings.Split(clause[open+1:open+end], ",") {
				fields := strings.Fields(spec)
				switch {
				case len(fields) == 3 && fields[1] == "as":
					out = append(out, fields[2])
				case len(fields) == 1:
					out = append(out, fields[0])
				}
			}
			clause = clause[:open] + clause[open+end+1:]
		}
	}
	for _, part := range strings.Split(clause, ",") {
		fields := strings.Fields(part)
		switch {
		case len(fields) == 3 && fields[0] == "*" && fields[1] == "as":
			out = append(out, fields[2])
		case len(fields) == 1:
			out = append(out, fields[0])
		}
	}
	return out
}
