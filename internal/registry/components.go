// Package registry discovers user-defined components and stylesheet assets and returns them
// as deterministic descriptor lists.
package registry

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	derrors "git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/foundation/normalization"
	"git.home.luguber.info/inful/docstage/internal/logfields"
	"git.home.luguber.info/inful/docstage/internal/patterns"
)

// Precedence decides what happens when two component files share a name.
type Precedence string

const (
	// PrecedenceLastWins keeps the file discovered last in lexical walk order.
	PrecedenceLastWins Precedence = "last-wins"
	// PrecedenceStrict keeps the first file and reports the duplicate as a warning.
	PrecedenceStrict Precedence = "strict"
)

var precedences = normalization.NewEnum("component precedence", map[string]Precedence{
	string(PrecedenceLastWins): PrecedenceLastWins,
	string(PrecedenceStrict):   PrecedenceStrict,
}, PrecedenceLastWins)

// ParsePrecedence maps a flag value to a Precedence; blank means last-wins.
func ParsePrecedence(s string) (Precedence, error) {
	return precedences.Parse(s)
}

// Descriptor describes one component file.
type Descriptor struct {
	Name              string `json:"name"`
	OriginalFilename  string `json:"originalFilename"`
	CanonicalFilename string `json:"canonicalFilename"`
	// RelativePath is the slash path of the canonical file inside the components directory.
	RelativePath string `json:"relativePath"`
	Kind         string `json:"kind"`
	// Source is the slash path of the original file inside the components directory.
	Source string `json:"-"`
}

// Components is the discovered component set keyed by case-sensitive name.
type Components struct {
	Dir        string
	byName     map[string]Descriptor
	Duplicates int
}

// Lookup returns the descriptor registered under name.
func (c *Components) Lookup(name string) (Descriptor, bool) {
	if c == nil {
		return Descriptor{}, false
	}
	d, ok := c.byName[name]
	return d, ok
}

// Len returns the number of registered components.
func (c *Components) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byName)
}

// Items returns descriptors sorted by name.
func (c *Components) Items() []Descriptor {
	if c == nil {
		return nil
	}
	out := make([]Descriptor, 0, len(c.byName))
	for _, d := range c.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BySource returns the descriptor for a source path relative to the components directory.
func (c *Components) BySource(rel string) (Descriptor, bool) {
	rel = filepath.ToSlash(rel)
	for _, d := range c.byName {
		if d.Source == rel {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Describe builds the descriptor for a component file at rel (slash path inside the
// components directory). Every file gets the component extension; Kind is empty for
// extensions no framework claims.
func Describe(rel string) Descriptor {
	rel = filepath.ToSlash(rel)
	base := path.Base(rel)
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)
	canonical := name + patterns.ComponentExt
	return Descriptor{
		Name:              name,
		OriginalFilename:  base,
		CanonicalFilename: canonical,
		RelativePath:      path.Join(path.Dir(rel), canonical),
		Kind:              patterns.ComponentKind(base),
		Source:            rel,
	}
}

// Skip reports whether a slash path relative to the discovery root must be ignored.
type Skip func(rel string) bool

// DiscoverComponents walks dir recursively and describes every file in it except dotfiles.
// A missing directory yields an empty registry.
func DiscoverComponents(dir string, precedence Precedence, skip ...Skip) (*Components, error) {
	c := &Components{Dir: dir, byName: map[string]Descriptor{}}
	if precedence == "" {
		precedence = PrecedenceLastWins
	}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		hidden := p != dir && strings.HasPrefix(d.Name(), ".")
		if d.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden {
			slog.Debug("Skipping dotfile in components directory", logfields.Path(p))
			return nil
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return relErr
		}
		if skipped(filepath.ToSlash(rel), skip) {
			return nil
		}
		c.add(Describe(rel), precedence)
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "component discovery failed").
			WithContext("path", dir).Build()
	}
	return c, nil
}

func (c *Components) add(d Descriptor, precedence Precedence) {
	prev, exists := c.byName[d.Name]
	if !exists {
		c.byName[d.Name] = d
		return
	}
	c.Duplicates++
	if precedence == PrecedenceStrict {
		slog.Warn("Duplicate component name, keeping first",
			logfields.Name(d.Name), slog.String("kept", prev.Source), slog.String("ignored", d.Source))
		return
	}
	slog.Debug("Duplicate component name, later file wins",
		logfields.Name(d.Name), slog.String("replaced", prev.Source), slog.String("winner", d.Source))
	c.byName[d.Name] = d
}

func skipped(rel string, skip []Skip) bool {
	for _, fn := range skip {
		if fn != nil && fn(rel) {
			return true
		}
	}
	return false
}
