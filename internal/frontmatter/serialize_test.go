package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeYAML_SortsKeysRecursively(t *testing.T) {
	out, err := SerializeYAML(map[string]any{
		"title":   "Guide",
		"sidebar": map[string]any{"order": 2, "hidden": true},
		"tags":    []any{"b", "a"},
	}, Style{})
	require.NoError(t, err)
	require.Equal(t, "sidebar:\n  hidden: true\n  order: 2\ntags:\n  - b\n  - a\ntitle: Guide\n", string(out))
}

func TestSerializeYAML_QuotesAmbiguousStrings(t *testing.T) {
	out, err := SerializeYAML(map[string]any{"version": "1.0", "flag": "true"}, Style{})
	require.NoError(t, err)
	require.Equal(t, "flag: \"true\"\nversion: \"1.0\"\n", string(out))

	back, err := ParseYAML(out)
	require.NoError(t, err)
	require.Equal(t, "true", back["flag"])
}

func TestSerializeYAML_KeepsDatesPlain(t *testing.T) {
	fields, err := ParseYAML([]byte("date: 2024-05-01\n"))
	require.NoError(t, err)

	out, err := SerializeYAML(fields, Style{})
	require.NoError(t, err)
	require.Equal(t, "date: 2024-05-01\n", string(out))
}

func TestSerializeYAML_QuotedDateStaysString(t *testing.T) {
	fields, err := ParseYAML([]byte("title: \"2024-01-01\"\ndate: 2024-05-01\n"))
	require.NoError(t, err)
	require.Equal(t, "2024-01-01", fields["title"])
	require.Equal(t, Timestamp("2024-05-01"), fields["date"])

	out, err := SerializeYAML(fields, Style{})
	require.NoError(t, err)
	require.Equal(t, "date: 2024-05-01\ntitle: \"2024-01-01\"\n", string(out))
}

func TestParseYAML_Shapes(t *testing.T) {
	fields, err := ParseYAML([]byte("# only a comment\n"))
	require.NoError(t, err)
	require.Empty(t, fields)

	fields, err = ParseYAML([]byte("base: &b\n  order: 1\nsidebar: *b\ntags: [a, 2]\n"))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"order": 1}, fields["sidebar"])
	require.Equal(t, []any{"a", 2}, fields["tags"])

	_, err = ParseYAML([]byte("- a\n- b\n"))
	require.Error(t, err)
}

func TestSerializeYAML_NewlineStyleAndEmpty(t *testing.T) {
	out, err := SerializeYAML(map[string]any{"a": 1, "b": 2}, Style{Newline: "\r\n"})
	require.NoError(t, err)
	require.Equal(t, "a: 1\r\nb: 2\r\n", string(out))

	empty, err := SerializeYAML(nil, Style{})
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestRender(t *testing.T) {
	out, err := Render(map[string]any{"title": "Home"}, []byte("Welcome\n"), Style{Newline: "\n"})
	require.NoError(t, err)
	require.Equal(t, "---\ntitle: Home\n---\nWelcome\n", string(out))
}
