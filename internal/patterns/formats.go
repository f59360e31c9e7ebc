package patterns

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Format is the content format a document is written in.
type Format string

const (
	FormatPlain     Format = "plain"
	FormatComponent Format = "component"
	FormatTag       Format = "tag"
)

// ComponentExt is the canonical extension every component file is written with.
const ComponentExt = ".astro"

var formatByExt = map[string]Format{
	".md":       FormatPlain,
	".markdown": FormatPlain,
	".mdx":      FormatComponent,
	".mdoc":     FormatTag,
	".markdoc":  FormatTag,
}

var componentKinds = map[string]string{
	".astro":  "astro",
	".tsx":    "react",
	".jsx":    "react",
	".vue":    "vue",
	".svelte": "svelte",
	".html":   "html",
}

var stylesheetExts = map[string]struct{}{
	".css": {}, ".scss": {}, ".sass": {}, ".less": {},
}

// ContentExts lists every recognized content extension in a fixed probing order.
var ContentExts = []string{".md", ".markdown", ".mdx", ".mdoc", ".markdoc"}

// ReadmeLinkPattern finds a README-family segment followed by a content extension.
var ReadmeLinkPattern = regexp.MustCompile(`(?i)(^|[/\\(\["'<\s])readme\.(md|markdown|mdx|mdoc|markdoc)\b`)

// Ext returns the canonical extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatComponent:
		return ".mdx"
	case FormatTag:
		return ".mdoc"
	default:
		return ".md"
	}
}

// Rich reports whether the format needs a converter.
func (f Format) Rich() bool {
	return f == FormatComponent || f == FormatTag
}

// FormatForExt maps an extension (with leading dot, any case) to its format.
func FormatForExt(ext string) (Format, bool) {
	f, ok := formatByExt[strings.ToLower(ext)]
	return f, ok
}

// IsContent reports whether p carries a recognized content extension.
func IsContent(p string) bool {
	_, ok := FormatForExt(filepath.Ext(p))
	return ok
}

// IsStylesheet reports whether p is a stylesheet source.
func IsStylesheet(p string) bool {
	_, ok := stylesheetExts[strings.ToLower(filepath.Ext(p))]
	return ok
}

// ComponentKind names the framework of a component source by extension; "" when unknown.
func ComponentKind(p string) string {
	return componentKinds[strings.ToLower(filepath.Ext(p))]
}

// StripContentExt removes a recognized content extension from p, if present.
func StripContentExt(p string) string {
	if IsContent(p) {
		return strings.TrimSuffix(p, filepath.Ext(p))
	}
	return p
}

// IsReadme reports whether the base name of p is a README-family content file.
func IsReadme(p string) bool {
	if !IsContent(p) {
		return false
	}
	return strings.EqualFold(StripContentExt(path.Base(filepath.ToSlash(p))), "readme")
}

// IsIndex reports whether the base name of p is index.<content ext>.
func IsIndex(p string) bool {
	if !IsContent(p) {
		return false
	}
	return StripContentExt(path.Base(filepath.ToSlash(p))) == "index"
}

// IsPartial reports whether any segment of the slash path rel starts with an underscore.
func IsPartial(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, "_") {
			return true
		}
	}
	return false
}
