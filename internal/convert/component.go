package convert

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/docstage/internal/classify"
	"git.home.luguber.info/inful/docstage/internal/config"
	"git.home.luguber.info/inful/docstage/internal/registry"
	"git.home.luguber.info/inful/docstage/internal/util/sets"
)

// ComponentConverter inserts import statements for components a document uses but never
// imports.
type ComponentConverter struct {
	Classifier *classify.Classifier
	Registry   *registry.Components
	Imports    config.ImportsConfig
	// ComponentsDir is the slash path of the components directory in the output tree.
	ComponentsDir string
}

// Missing partitions the names a document still needs to import.
type Missing struct {
	Custom    []string
	Builtin   []string
	Framework []string
}

// Empty reports whether nothing needs importing.
func (m Missing) Empty() bool {
	return len(m.Custom) == 0 && len(m.Builtin) == 0 && len(m.Framework) == 0
}

// Analyze computes the missing imports of body.
func (c *ComponentConverter) Analyze(body []byte) Missing {
	classifier := c.Classifier
	if classifier == nil {
		classifier = classify.New()
	}
	used := classifier.Names(body)
	imported := ImportedNames(body)
	builtins := sets.New(c.Imports.Builtins...)

	var m Missing
	for _, name := range sets.Sorted(used) {
		switch {
		case imported.Has(name):
		case c.isCustom(name):
			m.Custom = append(m.Custom, name)
		case builtins.Has(name):
			m.Builtin = append(m.Builtin, name)
		default:
			m.Framework = append(m.Framework, name)
		}
	}
	return m
}

func (c *ComponentConverter) isCustom(name string) bool {
	_, ok := c.Registry.Lookup(name)
	return ok
}

// Convert returns the document with one import per custom component, then one grouped
// builtin import and one grouped framework import, followed by a blank line. A document that
// needs nothing is returned unchanged.
func (c *ComponentConverter) Convert(doc Document) []byte {
	p := split(doc.Content)
	m := c.Analyze(p.body)
	if m.Empty() {
		return doc.Content
	}

	nl := p.nl()
	var b strings.Builder
	for _, name := range m.Custom {
		d, _ := c.Registry.Lookup(name)
		b.WriteString("import " + name + " from '" + c.importPath(doc.FinalRel, d) + "';" + nl)
	}
	if len(m.Builtin) > 0 {
		b.WriteString(groupedImport(m.Builtin, c.Imports.Builtin) + nl)
	}
	if len(m.Framework) > 0 {
		b.WriteString(groupedImport(m.Framework, c.frameworkModule()) + nl)
	}
	b.WriteString(nl)

	body := make([]byte, 0, b.Len()+len(p.body))
	body = append(body, b.String()...)
	body = append(body, p.body...)
	return p.join(body)
}

func (c *ComponentConverter) frameworkModule() string {
	if c.Imports.Framework == "" {
		return config.DefaultFrameworkModule
	}
	return c.Imports.Framework
}

// importPath is the relative path from the document's final directory to the component.
func (c *ComponentConverter) importPath(finalRel string, d registry.Descriptor) string {
	dir := c.ComponentsDir
	if dir == "" {
		dir = config.DefaultComponentsDir
	}
	return RelativeImport(path.Dir(finalRel), path.Join(dir, d.RelativePath))
}

func groupedImport(names []string, module string) string {
	return "import { " + strings.Join(names, ", ") + " } from '" + module + "';"
}

// RelativeImport returns the "./"- or "../"-prefixed slash path from fromDir to target.
func RelativeImport(fromDir, target string) string {
	from := splitClean(fromDir)
	to := splitClean(target)

	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}

	var parts []string
	for range from[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[common:]...)
	rel := strings.Join(parts, "/")
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}

func splitClean(p string) []string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
