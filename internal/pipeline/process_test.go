package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docstage/internal/foundation/errors"
	"git.home.luguber.info/inful/docstage/internal/frontmatterops"
	"git.home.luguber.info/inful/docstage/internal/manifest"
	"git.home.luguber.info/inful/docstage/internal/workspace"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	}))
	return out
}

func newRun(t *testing.T, files map[string]string) (*RunContext, string) {
	t.Helper()
	base := t.TempDir()
	src := filepath.Join(base, "src")
	require.NoError(t, os.MkdirAll(src, 0o750))
	writeTree(t, src, files)
	out := filepath.Join(base, "out")
	rc := NewRunContext(src, out, Options{Concurrency: 4})
	return rc, out
}

func readDoc(t *testing.T, path string) (map[string]any, string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fields, body, had, _, err := frontmatterops.Read(data)
	require.NoError(t, err)
	require.True(t, had, "expected a metadata block in %s", path)
	return fields, string(body)
}

func docBySource(t *testing.T, m *manifest.Manifest, source string) manifest.Doc {
	t.Helper()
	for _, d := range m.Docs {
		if d.Source == source {
			return d
		}
	}
	t.Fatalf("no manifest doc for %s", source)
	return manifest.Doc{}
}

func TestProcess_IndexTitleFromHeading(t *testing.T) {
	rc, out := newRun(t, map[string]string{"index.md": "# Home\n\nWelcome.\n"})

	res, err := Process(context.Background(), rc)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)

	fields, body := readDoc(t, filepath.Join(out, "index.md"))
	require.Equal(t, "Home", fields["title"])
	require.NotContains(t, body, "# Home")
	require.Contains(t, body, "Welcome.")

	d := docBySource(t, res.Manifest, "index.md")
	require.Equal(t, manifest.Doc{Slug: "", Title: "Home", Source: "index.md", Destination: "index.md", Format: "plain", Fingerprint: d.Fingerprint}, d)
	require.NotEmpty(t, d.Fingerprint)
	require.FileExists(t, filepath.Join(out, manifest.FileName))
	require.True(t, workspace.IsOwned(out))
}

func TestProcess_ExistingTitleKeepsHeading(t *testing.T) {
	rc, out := newRun(t, map[string]string{"guide.md": "---\ntitle: Custom\n---\n# Actual Heading\n\nText.\n"})

	_, err := Process(context.Background(), rc)
	require.NoError(t, err)

	fields, body := readDoc(t, filepath.Join(out, "guide.md"))
	require.Equal(t, "Custom", fields["title"])
	require.Contains(t, body, "# Actual Heading")
}

func TestProcess_PartialReferenceFollowsPromotion(t *testing.T) {
	note := "{% aside type=\"note\" %}\nRemember.\n{% /aside %}\n"
	rc, out := newRun(t, map[string]string{
		"doc.md":            "Intro.\n\n{% partial file=\"_partials/note\" /%}\n",
		"_partials/note.md": note,
	})

	res, err := Process(context.Background(), rc)
	require.NoError(t, err)
	require.Equal(t, "_partials/note.mdoc", res.Conversions["_partials/note.md"])
	require.Equal(t, "doc.mdoc", res.Conversions["doc.md"])
	require.Equal(t, 1, res.Partials.Rewritten)

	tree := readTree(t, out)
	require.Equal(t, note, tree["_partials/note.mdoc"], "partials get no metadata block")
	require.Contains(t, tree["doc.mdoc"], `{% partial file="_partials/note.mdoc" /%}`)
	require.NotContains(t, tree, "doc.md")

	partial := docBySource(t, res.Manifest, "_partials/note.md")
	require.True(t, partial.Partial)
	require.Equal(t, "tag", partial.Format)

	fp, err := frontmatterops.FingerprintDocument([]byte(tree["doc.mdoc"]))
	require.NoError(t, err)
	require.Equal(t, fp, docBySource(t, res.Manifest, "doc.md").Fingerprint)
}

func TestProcess_ComponentsAndStylesheets(t *testing.T) {
	rc, out := newRun(t, map[string]string{
		"assets/b.css":        "b{}",
		"assets/a.css":        "a{}",
		"assets/logo.png":     "png",
		"components/Card.tsx": "export default function Card() {}",
		"guide.md":            "Intro.\n\n<Card title=\"x\" />\n",
	})

	res, err := Process(context.Background(), rc)
	require.NoError(t, err)

	require.Equal(t, []string{"a.css", "b.css"}, res.Manifest.CSS.Items)
	require.Equal(t, "components", res.Manifest.Components.Directory)
	require.Equal(t, []manifest.ComponentItem{{Name: "Card", Path: "components/Card.astro", Kind: "react"}}, res.Manifest.Components.Items)

	tree := readTree(t, out)
	require.Equal(t, "export default function Card() {}", tree["components/Card.astro"])
	require.Equal(t, "png", tree["assets/logo.png"])
	require.Equal(t, "a{}", tree["assets/a.css"])

	guide := tree["guide.mdx"]
	require.Contains(t, guide, "import Card from './components/Card.astro';\n\n")
	require.Equal(t, "component", docBySource(t, res.Manifest, "guide.md").Format)
}

func TestProcess_ComponentFilesAreCanonicalized(t *testing.T) {
	rc, out := newRun(t, map[string]string{
		"components/Card.tsx":  "card",
		"components/Widget.ts": "widget",
		"index.md":             "# Home\n",
	})

	res, err := Process(context.Background(), rc)
	require.NoError(t, err)

	require.Equal(t, []manifest.ComponentItem{
		{Name: "Card", Path: "components/Card.astro", Kind: "react"},
		{Name: "Widget", Path: "components/Widget.astro"},
	}, res.Manifest.Components.Items)

	tree := readTree(t, out)
	require.Equal(t, "widget", tree["components/Widget.astro"])
	require.NotContains(t, tree, "components/Widget.ts")
}

func TestProcess_ExcludeIsTransitive(t *testing.T) {
	rc, out := newRun(t, map[string]string{
		"docstage.yaml":        "exclude: [drafts]\n",
		"keep.md":              "# Keep\n",
		"drafts/a.md":          "# A\n",
		"drafts/deep/b.md":     "# B\n",
		"guide/drafts/c.md":    "# C\n",
		"guide/visible.md":     "# Visible\n",
		"guide/drafts/img.png": "png",
	})

	res, err := Process(context.Background(), rc)
	require.NoError(t, err)

	var sources []string
	for _, d := range res.Manifest.Docs {
		sources = append(sources, d.Source)
	}
	require.Equal(t, []string{"guide/visible.md", "keep.md"}, sources)

	tree := readTree(t, out)
	for rel := range tree {
		require.NotContains(t, rel, "drafts", "excluded path %s was written", rel)
	}
	require.NotContains(t, tree, "docstage.yaml")
}

func TestProcess_ReadmeRename(t *testing.T) {
	rc, out := newRun(t, map[string]string{
		"index.md":        "# Home\n\n[a](alone/README.md) [b](both/README.md)\n\n`alone/README.md`\n",
		"alone/README.md": "Only readme.\n",
		"both/README.md":  "Readme.\n",
		"both/index.md":   "# Both\n",
	})

	res, err := Process(context.Background(), rc)
	require.NoError(t, err)

	tree := readTree(t, out)
	require.Contains(t, tree, "alone/index.md")
	require.NotContains(t, tree, "alone/README.md")
	require.Contains(t, tree, "both/README.md")
	require.Contains(t, tree, "both/index.md")

	require.Contains(t, tree["index.md"], "[a](alone/index.md) [b](both/index.md)")
	require.Contains(t, tree["index.md"], "`alone/README.md`")

	alone := docBySource(t, res.Manifest, "alone/README.md")
	require.Equal(t, "alone", alone.Slug)
	require.Equal(t, "Overview", alone.Title)
	require.Equal(t, "alone/index.md", res.Conversions["alone/README.md"])
}

func TestProcess_VisibilityAndCascade(t *testing.T) {
	rc, out := newRun(t, map[string]string{
		"docstage.yaml":          "hidden: [scratch.md]\nunlisted: [internal]\nfrontmatter:\n  sidebar:\n    badge: New\nfiles:\n  page.md:\n    title: From Config\n",
		"scratch.md":             "# Scratch\n",
		"internal/notes.md":      "# Notes\n",
		"page.md":                "# Ignored Heading\n",
		"internal/docstage.yaml": "frontmatter:\n  draft: true\n",
	})

	res, err := Process(context.Background(), rc)
	require.NoError(t, err)

	scratch, _ := readDoc(t, filepath.Join(out, "scratch.md"))
	require.Equal(t, false, scratch["pagefind"])
	require.Equal(t, map[string]any{"badge": "New", "hidden": true}, scratch["sidebar"])
	require.True(t, docBySource(t, res.Manifest, "scratch.md").Hidden)

	notes, _ := readDoc(t, filepath.Join(out, "internal", "notes.md"))
	require.Equal(t, true, notes["draft"])
	require.Equal(t, map[string]any{"badge": "New", "hidden": true}, notes["sidebar"])
	require.NotContains(t, notes, "pagefind")
	require.True(t, docBySource(t, res.Manifest, "internal/notes.md").Unlisted)

	page, body := readDoc(t, filepath.Join(out, "page.md"))
	require.Equal(t, "From Config", page["title"])
	require.Contains(t, body, "# Ignored Heading")
}

func TestProcess_Idempotent(t *testing.T) {
	rc, out := newRun(t, map[string]string{
		"docstage.yaml":       "site:\n  name: Docs\n",
		"index.md":            "# Home\n\nSee [guide](guide/README.md).\n",
		"guide/README.md":     "> [!WARNING]\n> Careful.\n\n## Setup :badge[New]{type=tip}\n",
		"guide/cards.mdx":     "<Card />\n",
		"_partials/note.md":   "{% aside %}x{% /aside %}\n",
		"ref.md":              "{% partial file=\"_partials/note\" /%}\n",
		"assets/site.css":     "body{}",
		"components/Card.vue": "<template />",
	})

	_, err := Process(context.Background(), rc)
	require.NoError(t, err)
	first := readTree(t, out)

	rc2 := NewRunContext(rc.Source, rc.OutputRoot, rc.Options)
	_, err = Process(context.Background(), rc2)
	require.NoError(t, err)
	require.Equal(t, first, readTree(t, out))

	require.Contains(t, first["guide/index.mdoc"], `{% aside type="caution" %}`)
	require.Contains(t, first["guide/index.mdoc"], `{% badge text="New" variant="tip" /%}`)
	require.Contains(t, first["index.md"], "[guide](guide/index.md)")
}

func TestProcess_SafetyChecks(t *testing.T) {
	rc, _ := newRun(t, map[string]string{"index.md": "# Home\n"})
	rc.OutputRoot = filepath.Join(rc.Source, "out")

	res, err := Process(context.Background(), rc)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategorySafety))
	require.Equal(t, StatusFailed, res.Status)
	require.NoDirExists(t, rc.OutputRoot)

	rc.OutputRoot = rc.Source
	_, err = Process(context.Background(), rc)
	require.True(t, errors.HasCategory(err, errors.CategorySafety))
	require.FileExists(t, filepath.Join(rc.Source, "index.md"))
}

func TestProcess_MissingSource(t *testing.T) {
	rc := NewRunContext(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "out"), Options{})
	_, err := Process(context.Background(), rc)
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestProcess_UnmanagedOutputRoot(t *testing.T) {
	rc, out := newRun(t, map[string]string{"index.md": "# Home\n"})
	writeTree(t, out, map[string]string{"precious.txt": "keep"})

	_, err := Process(context.Background(), rc)
	require.True(t, errors.HasCategory(err, errors.CategorySafety), "non-interactive without --yes must refuse")
	require.FileExists(t, filepath.Join(out, "precious.txt"))

	rc.Options.Interactive = true
	asked := ""
	rc.Options.Prompt = func(q string) (bool, error) { asked = q; return false, nil }
	res, err := Process(context.Background(), rc)
	require.ErrorIs(t, err, workspace.ErrAborted)
	require.Equal(t, StatusAborted, res.Status)
	require.Contains(t, asked, out)
	require.FileExists(t, filepath.Join(out, "precious.txt"))

	rc.Options.Interactive = false
	rc.Options.AssumeYes = true
	res, err = Process(context.Background(), rc)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)
	require.NoFileExists(t, filepath.Join(out, "precious.txt"))
	require.FileExists(t, filepath.Join(out, "index.md"))
}

func TestProcess_DryRun(t *testing.T) {
	rc, out := newRun(t, map[string]string{"index.md": "# Home\n", "guide.md": "<Card />\n"})
	rc.Options.DryRun = true

	res, err := Process(context.Background(), rc)
	require.NoError(t, err)
	require.NoDirExists(t, out)
	require.Len(t, res.Manifest.Docs, 2)
	require.Equal(t, "guide.mdx", res.Conversions["guide.md"])
}

func TestProcess_Canceled(t *testing.T) {
	rc, out := newRun(t, map[string]string{"index.md": "# Home\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Process(ctx, rc)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StatusCanceled, res.Status)
	require.NoDirExists(t, out)
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"index.md":            "",
		"Guide/Index.mdx":     "guide",
		"guide/setup.mdoc":    "guide/setup",
		"API/Reference.md":    "api/reference",
		"guide/index/x.md":    "guide/index/x",
		"_partials/note.mdoc": "_partials/note",
	}
	for in, want := range cases {
		require.Equal(t, want, Slug(in), in)
	}
}
