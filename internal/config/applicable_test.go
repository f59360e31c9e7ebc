package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetApplicable(t *testing.T) {
	root := "/src"
	nodes := []Node{
		{Dir: "", Raw: RawConfig{
			Frontmatter: map[string]any{"layout": "doc", "sidebar": map[string]any{"badge": "New", "order": 1}},
			Files:       map[string]map[string]any{"guide/intro.md": {"title": "Not nearest"}},
		}},
		{Dir: "guide", Depth: 1, Raw: RawConfig{
			Frontmatter: map[string]any{"sidebar": map[string]any{"order": 5}, "tags": []any{"a", "b"}},
			Files:       map[string]map[string]any{"intro.md": {"title": "Intro"}},
		}},
		{Dir: "guidebook", Depth: 1, Raw: RawConfig{
			Frontmatter: map[string]any{"layout": "book"},
		}},
	}

	app := GetApplicable(nodes, root, filepath.Join(root, "guide", "intro.md"))
	require.Equal(t, map[string]any{
		"layout":  "doc",
		"sidebar": map[string]any{"badge": "New", "order": 5},
		"tags":    []any{"a", "b"},
	}, app.Defaults)
	require.Equal(t, map[string]any{"title": "Intro"}, app.FileSpecific)

	top := GetApplicable(nodes, root, "other.md")
	require.Equal(t, "doc", top.Defaults["layout"])
	require.Empty(t, top.FileSpecific)
}

func TestGetApplicable_DoesNotLeakMutations(t *testing.T) {
	nodes := []Node{{Raw: RawConfig{Frontmatter: map[string]any{"sidebar": map[string]any{"badge": "New"}}}}}

	app := GetApplicable(nodes, "/src", "/src/a.md")
	app.Defaults["sidebar"].(map[string]any)["badge"] = "Changed"

	require.Equal(t, "New", nodes[0].Raw.Frontmatter["sidebar"].(map[string]any)["badge"])
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{"a": 1, "nested": map[string]any{"x": 1, "y": 2}, "list": []any{1, 2}}
	src := map[string]any{"nested": map[string]any{"y": 3}, "list": []any{9}, "b": true}

	got := DeepMerge(dst, src)
	require.Equal(t, map[string]any{
		"a":      1,
		"b":      true,
		"nested": map[string]any{"x": 1, "y": 3},
		"list":   []any{9},
	}, got)
	require.Equal(t, 2, dst["nested"].(map[string]any)["y"])
	require.Equal(t, map[string]any{}, DeepMerge(nil, nil))
}
