package config

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/logfields"
	"git.home.luguber.info/inful/docstage/internal/patterns"
)

var skippedDirs = map[string]struct{}{".git": {}, "node_modules": {}}

// Discover finds every docstage.yaml beneath root and folds them. Directories listed in skip
// (typically a nested output root) are not descended into. A file that fails to parse
// contributes an empty RawConfig and a warning.
func Discover(ctx context.Context, root string, skip ...string) (*Cascade, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "cannot resolve source root").
			WithContext("path", root).Build()
	}

	skipSet := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		if abs, absErr := filepath.Abs(s); absErr == nil {
			skipSet[abs] = struct{}{}
		}
	}

	var nodes []Node
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p == root {
				return nil
			}
			if _, ok := skippedDirs[d.Name()]; ok {
				return filepath.SkipDir
			}
			if _, ok := skipSet[p]; ok {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != FileName {
			return nil
		}
		rel, relErr := filepath.Rel(root, filepath.Dir(p))
		if relErr != nil {
			return relErr
		}
		nodes = append(nodes, newNode(rel, p, load(p)))
		return nil
	})
	if walkErr != nil {
		return nil, errors.WrapError(walkErr, errors.CategoryFileSystem, "configuration discovery failed").
			WithContext("path", root).Build()
	}

	SortNodes(nodes)
	return &Cascade{Master: Fold(nodes), Hierarchical: nodes}, nil
}

func newNode(relDir, file string, raw RawConfig) Node {
	dir := filepath.ToSlash(relDir)
	if dir == "." {
		dir = ""
	}
	depth := 0
	if dir != "" {
		depth = strings.Count(dir, "/") + 1
	}
	return Node{Dir: dir, Path: file, Depth: depth, Raw: raw}
}

// load reads one file; any failure is isolated to that file.
func load(file string) RawConfig {
	data, err := os.ReadFile(file)
	if err != nil {
		slog.Warn("Cannot read configuration file, using empty config", logfields.Path(file), logfields.Error(err))
		return RawConfig{}
	}
	raw, err := Parse(data)
	if err != nil {
		slog.Warn("Invalid configuration file, using empty config", logfields.Path(file), logfields.Error(err))
		return RawConfig{}
	}
	return raw
}

// Parse decodes one configuration document.
func Parse(data []byte) (RawConfig, error) {
	var raw RawConfig
	if len(strings.TrimSpace(string(data))) == 0 {
		return raw, nil
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return RawConfig{}, err
	}
	return raw, nil
}

// SortNodes orders nodes root-to-leaf, ties broken by directory path.
func SortNodes(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Depth != nodes[j].Depth {
			return nodes[i].Depth < nodes[j].Depth
		}
		return nodes[i].Dir < nodes[j].Dir
	})
}

// Fold reduces depth-ordered nodes into a MasterConfig. Site-level fields come from the root
// node only; pattern lists are scoped to their directory and concatenated.
func Fold(nodes []Node) MasterConfig {
	m := MasterConfig{
		AssetsDir:     DefaultAssetsDir,
		ComponentsDir: DefaultComponentsDir,
		Imports: ImportsConfig{
			Framework: DefaultFrameworkModule,
			Builtin:   DefaultBuiltinModule,
		},
	}

	for _, n := range nodes {
		if n.Dir == "" {
			applyRoot(&m, n.Raw)
		}
		for _, p := range n.Raw.Exclude {
			m.Exclude = append(m.Exclude, patterns.Scope(n.Dir, p))
		}
		for _, p := range n.Raw.Unlisted {
			m.Unlisted = append(m.Unlisted, patterns.Scope(n.Dir, p))
		}
		for _, p := range n.Raw.Hidden {
			m.Hidden = append(m.Hidden, patterns.Scope(n.Dir, p))
		}
	}
	return m
}

func applyRoot(m *MasterConfig, raw RawConfig) {
	if raw.Site != nil {
		m.Site = *raw.Site
	}
	m.Sidebar = raw.Sidebar
	if raw.Assets != "" {
		m.AssetsDir = path.Clean(filepath.ToSlash(raw.Assets))
	}
	if raw.Components.Set {
		switch {
		case raw.Components.Disabled:
			m.ComponentsDir = ""
		case raw.Components.Dir != "":
			m.ComponentsDir = path.Clean(filepath.ToSlash(raw.Components.Dir))
		}
	}
	if raw.Imports != nil {
		if raw.Imports.Framework != "" {
			m.Imports.Framework = raw.Imports.Framework
		}
		if raw.Imports.Builtin != "" {
			m.Imports.Builtin = raw.Imports.Builtin
		}
		m.Imports.Builtins = append([]string(nil), raw.Imports.Builtins...)
	}
}

// Validate rejects directory settings that would escape the source root.
func (m MasterConfig) Validate() error {
	for key, dir := range map[string]string{"assets": m.AssetsDir, "components": m.ComponentsDir} {
		if dir == "" {
			continue
		}
		if path.IsAbs(dir) || dir == ".." || strings.HasPrefix(dir, "../") || dir == "." {
			return errors.ConfigError("directory setting must be a subdirectory of the source root").
				WithContext("key", key).
				WithContext("value", dir).
				Build()
		}
	}
	return nil
}
