package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(rel), 0o600))
	}
}

func TestDescribe(t *testing.T) {
	d := Describe("cards/Card.tsx")
	require.Equal(t, Descriptor{
		Name:              "Card",
		OriginalFilename:  "Card.tsx",
		CanonicalFilename: "Card.astro",
		RelativePath:      "cards/Card.astro",
		Kind:              "react",
		Source:            "cards/Card.tsx",
	}, d)
}

func TestDiscoverComponents_LastWins(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Card.astro", "legacy/Card.vue", "Tabs.svelte")

	c, err := DiscoverComponents(dir, PrecedenceLastWins)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	require.Equal(t, 1, c.Duplicates)

	card, ok := c.Lookup("Card")
	require.True(t, ok)
	require.Equal(t, "legacy/Card.vue", card.Source)
	require.Equal(t, "legacy/Card.astro", card.RelativePath)

	_, ok = c.Lookup("card")
	require.False(t, ok)

	items := c.Items()
	require.Equal(t, "Card", items[0].Name)
	require.Equal(t, "Tabs", items[1].Name)
}

func TestDiscoverComponents_DescribesEveryFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Card.tsx", "Widget.ts", "util/helpers.js", ".DS_Store", ".cache/Stale.astro")

	c, err := DiscoverComponents(dir, PrecedenceLastWins)
	require.NoError(t, err)

	items := c.Items()
	require.Len(t, items, 3)
	require.Equal(t, Descriptor{
		Name:              "Widget",
		OriginalFilename:  "Widget.ts",
		CanonicalFilename: "Widget.astro",
		RelativePath:      "Widget.astro",
		Kind:              "",
		Source:            "Widget.ts",
	}, items[1])
	require.Equal(t, "util/helpers.astro", items[2].RelativePath)

	_, ok := c.Lookup("Stale")
	require.False(t, ok)
}

func TestDiscoverComponents_Strict(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Card.astro", "legacy/Card.vue")

	c, err := DiscoverComponents(dir, PrecedenceStrict)
	require.NoError(t, err)
	card, _ := c.Lookup("Card")
	require.Equal(t, "Card.astro", card.Source)
}

func TestDiscoverComponents_MissingDir(t *testing.T) {
	c, err := DiscoverComponents(filepath.Join(t.TempDir(), "nope"), "")
	require.NoError(t, err)
	require.Zero(t, c.Len())
}

func TestParsePrecedence(t *testing.T) {
	p, err := ParsePrecedence("")
	require.NoError(t, err)
	require.Equal(t, PrecedenceLastWins, p)

	p, err = ParsePrecedence("Strict")
	require.NoError(t, err)
	require.Equal(t, PrecedenceStrict, p)

	_, err = ParsePrecedence("random")
	require.Error(t, err)
}

func TestDiscoverCSS_SortedByPath(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.css", "a.css", "theme/Z.scss", "theme/a.less", "logo.png", "B.css")

	assets, err := DiscoverCSS(dir)
	require.NoError(t, err)

	var paths []string
	for _, a := range assets {
		paths = append(paths, a.RelativePath)
	}
	require.Equal(t, []string{"B.css", "a.css", "b.css", "theme/Z.scss", "theme/a.less"}, paths)
}

func TestDiscoverCSS_MissingDir(t *testing.T) {
	assets, err := DiscoverCSS(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	require.Empty(t, assets)
}

func TestDiscover_SkipFilter(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Card.astro", "drafts/Wip.astro", "site.css", "drafts/wip.css")
	skipDrafts := func(rel string) bool { return strings.HasPrefix(rel, "drafts/") }

	c, err := DiscoverComponents(dir, PrecedenceLastWins, skipDrafts)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	_, ok := c.Lookup("Wip")
	require.False(t, ok)

	assets, err := DiscoverCSS(dir, skipDrafts)
	require.NoError(t, err)
	require.Equal(t, []Asset{{RelativePath: "site.css"}}, assets)
}
