package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docstage/internal/frontmatter"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestDiscover_FoldsRootToLeaf(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), `
site: {name: Root Docs, url: https://docs.example.com}
assets: static
components: widgets
imports:
  builtins: [FileTree]
exclude: [drafts]
frontmatter: {sidebar: {badge: New}, layout: doc}
`)
	writeFile(t, filepath.Join(root, "guide", FileName), `
site: {name: Ignored}
exclude: ["*.tmp"]
unlisted: [internal]
hidden: [scratch]
`)
	writeFile(t, filepath.Join(root, "guide", "deep", FileName), `exclude: [old/v1]`)
	writeFile(t, filepath.Join(root, "node_modules", "pkg", FileName), `exclude: [never]`)

	c, err := Discover(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, c.Hierarchical, 3)
	require.Equal(t, []string{"", "guide", "guide/deep"},
		[]string{c.Hierarchical[0].Dir, c.Hierarchical[1].Dir, c.Hierarchical[2].Dir})

	m := c.Master
	require.Equal(t, "Root Docs", m.Site.Name)
	require.Equal(t, "static", m.AssetsDir)
	require.Equal(t, "widgets", m.ComponentsDir)
	require.Equal(t, DefaultFrameworkModule, m.Imports.Framework)
	require.Equal(t, []string{"FileTree"}, m.Imports.Builtins)
	require.Equal(t, []string{"drafts", "/guide/**/*.tmp", "/guide/deep/old/v1"}, m.Exclude)
	require.Equal(t, []string{"/guide/**/internal"}, m.Unlisted)
	require.Equal(t, []string{"/guide/**/scratch"}, m.Hidden)
}

func TestDiscover_InvalidFileIsIsolated(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "site: {name: Good}\nexclude: [drafts]\n")
	writeFile(t, filepath.Join(root, "broken", FileName), "exclude: [unterminated\n  - : :")

	c, err := Discover(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, c.Hierarchical, 2)
	require.Equal(t, RawConfig{}, c.Hierarchical[1].Raw)
	require.Equal(t, "Good", c.Master.Site.Name)
	require.Equal(t, []string{"drafts"}, c.Master.Exclude)
}

func TestDiscover_SkipsOutputRoot(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "dist")
	writeFile(t, filepath.Join(out, FileName), "exclude: [x]")

	c, err := Discover(context.Background(), root, out)
	require.NoError(t, err)
	require.Empty(t, c.Hierarchical)
	require.Equal(t, DefaultAssetsDir, c.Master.AssetsDir)
	require.Equal(t, DefaultComponentsDir, c.Master.ComponentsDir)
}

func TestComponentsFalseDisablesDiscovery(t *testing.T) {
	raw, err := Parse([]byte("components: false\n"))
	require.NoError(t, err)
	m := Fold([]Node{{Raw: raw}})
	require.False(t, m.ComponentsEnabled())
}

func TestParse_MetadataKeepsYAMLTypes(t *testing.T) {
	raw, err := Parse([]byte("frontmatter:\n  date: 2024-05-01\nfiles:\n  a.md:\n    title: \"2024-01-01\"\n    order: 2\n"))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"date": frontmatter.Timestamp("2024-05-01")}, raw.Frontmatter)
	require.Equal(t, map[string]any{"title": "2024-01-01", "order": 2}, raw.Files["a.md"])
}

func TestFold_IsDeterministic(t *testing.T) {
	nodes := []Node{
		{Dir: "b", Depth: 1, Raw: RawConfig{Exclude: []string{"x"}}},
		{Dir: "a", Depth: 1, Raw: RawConfig{Exclude: []string{"x"}}},
		{Dir: "", Depth: 0, Raw: RawConfig{Exclude: []string{"x"}}},
	}
	SortNodes(nodes)
	require.Equal(t, []string{"x", "/a/**/x", "/b/**/x"}, Fold(nodes).Exclude)
}

func TestValidate(t *testing.T) {
	m := Fold(nil)
	require.NoError(t, m.Validate())

	m.AssetsDir = "../outside"
	require.Error(t, m.Validate())
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path, err := Init(dir, "Handbook", false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	raw, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, "Handbook", raw.Site.Name)
	require.Equal(t, DefaultComponentsDir, raw.Components.Dir)

	_, err = Init(dir, "Handbook", false)
	require.Error(t, err)
	_, err = Init(dir, "Handbook", true)
	require.NoError(t, err)
}
